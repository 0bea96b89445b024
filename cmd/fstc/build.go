package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/fstcache/pkg/fstcache"
)

// runBuild builds a store from a TSV stream or a SQLite query.
//
// Both files are built under temporary names in the destination directory
// and renamed into place only after a successful Finish, so an interrupted
// or failed build never leaves a truncated store behind.
func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	index := fs.StringP("index", "i", "", "index file to write")
	values := fs.StringP("values", "v", "", "value file to write")
	tsv := fs.String("tsv", "", "TSV input: key TAB value per line ('-' for stdin)")
	hexValues := fs.Bool("hex", false, "TSV values are hex-encoded")
	sqliteDB := fs.String("sqlite", "", "SQLite database to read")
	query := fs.String("query", "", "query returning (key, value) rows in key order")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	if *index == "" || *values == "" {
		return errors.New("build: --index and --values are required")
	}

	if (*tsv == "") == (*sqliteDB == "") {
		return errors.New("build: exactly one of --tsv and --sqlite is required")
	}

	tmpIndex := tmpPath(*index)
	tmpValues := tmpPath(*values)

	defer func() {
		// Harmless if the renames already claimed them.
		_ = os.Remove(tmpIndex)
		_ = os.Remove(tmpValues)
	}()

	b, err := fstcache.CreateFiles(tmpIndex, tmpValues)
	if err != nil {
		return err
	}

	var count uint64

	if *tsv != "" {
		count, err = feedTSV(b, *tsv, *hexValues)
	} else {
		if *query == "" {
			return errors.New("build: --sqlite requires --query")
		}

		count, err = feedSQLite(b, *sqliteDB, *query)
	}

	if err != nil {
		return err
	}

	err = b.Finish()
	if err != nil {
		return err
	}

	err = atomic.ReplaceFile(tmpIndex, *index)
	if err != nil {
		return fmt.Errorf("replace %s: %w", *index, err)
	}

	err = atomic.ReplaceFile(tmpValues, *values)
	if err != nil {
		return fmt.Errorf("replace %s: %w", *values, err)
	}

	fmt.Fprintf(os.Stderr, "fstc: built %d entries into %s + %s\n", count, *index, *values)

	return nil
}

func tmpPath(path string) string {
	dir, base := filepath.Split(path)

	return filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d", base, os.Getpid()))
}

// feedTSV streams "key TAB value" lines into the builder. Keys must already
// be sorted; the builder rejects anything else.
func feedTSV(b *fstcache.Builder, path string, hexValues bool) (uint64, error) {
	var r io.Reader = os.Stdin

	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return 0, fmt.Errorf("open tsv: %w", err)
		}

		defer func() { _ = f.Close() }()

		r = f
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<24)

	var count uint64

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		key, rawValue, ok := strings.Cut(line, "\t")
		if !ok {
			return count, fmt.Errorf("line %d: missing TAB separator", count+1)
		}

		value := []byte(rawValue)

		if hexValues {
			decoded, err := hex.DecodeString(rawValue)
			if err != nil {
				return count, fmt.Errorf("line %d: bad hex value: %w", count+1, err)
			}

			value = decoded
		}

		err := b.Insert([]byte(key), value)
		if err != nil {
			return count, err
		}

		count++
	}

	err := scanner.Err()
	if err != nil {
		return count, fmt.Errorf("read tsv: %w", err)
	}

	return count, nil
}
