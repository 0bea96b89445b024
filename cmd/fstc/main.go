// fstc is a CLI for building and querying fstcache stores.
//
// Usage:
//
//	fstc build  [opts]              Build a store from a TSV stream or SQLite query
//	fstc get    [opts] <key>        Print the value offset for a key
//	fstc first  [opts]              Print the smallest key
//	fstc last   [opts]              Print the greatest key
//	fstc lastle [opts] <bound>      Print the greatest key <= bound
//	fstc range  [opts] [lo] [hi]    List entries in [lo, hi] (inclusive)
//	fstc info   [opts]              Print store statistics
//	fstc shell  [opts]              Interactive shell over a store
//
// Store paths come from --index/--values, or from an .fstc.json config file
// (JWCC: comments and trailing commas are allowed):
//
//	{
//	    // paths are relative to the config file
//	    "index": "store.idx",
//	    "values": "store.val",
//	}
package main

import (
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/fstcache/pkg/fstcache"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()

		return 2
	}

	cmd, rest := args[0], args[1:]

	var err error

	switch cmd {
	case "build":
		err = runBuild(rest)
	case "get":
		err = withStore(rest, 1, func(c *fstcache.Cache, args []string) error {
			return printGet(os.Stdout, c, []byte(args[0]))
		})
	case "first":
		err = withStore(rest, 0, func(c *fstcache.Cache, _ []string) error {
			return printEdge(os.Stdout, c, false)
		})
	case "last":
		err = withStore(rest, 0, func(c *fstcache.Cache, _ []string) error {
			return printEdge(os.Stdout, c, true)
		})
	case "lastle":
		err = withStore(rest, 1, func(c *fstcache.Cache, args []string) error {
			return printLastLE(os.Stdout, c, []byte(args[0]))
		})
	case "range":
		err = withStore(rest, -1, func(c *fstcache.Cache, args []string) error {
			return printRange(os.Stdout, c, args)
		})
	case "info":
		err = withStore(rest, 0, func(c *fstcache.Cache, _ []string) error {
			return printInfo(os.Stdout, c)
		})
	case "shell":
		err = withStore(rest, 0, runShell)
	case "help", "-h", "--help":
		usage()

		return 0
	default:
		fmt.Fprintf(os.Stderr, "fstc: unknown command %q\n", cmd)
		usage()

		return 2
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "fstc: %v\n", err)

		return 1
	}

	return 0
}

func usage() {
	fmt.Fprint(os.Stderr, `usage:
  fstc build  --index FILE --values FILE (--tsv FILE | --sqlite DB --query SQL)
  fstc get    [store opts] <key>
  fstc first  [store opts]
  fstc last   [store opts]
  fstc lastle [store opts] <bound>
  fstc range  [store opts] [lo] [hi]
  fstc info   [store opts]
  fstc shell  [store opts]

store opts:
  -i, --index FILE    index file path
  -v, --values FILE   value file path
  -c, --config FILE   .fstc.json config with index/values paths
`)
}

// storeFlags returns a FlagSet carrying the shared store-location options.
func storeFlags(name string) (*flag.FlagSet, *string, *string, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	index := fs.StringP("index", "i", "", "index file path")
	values := fs.StringP("values", "v", "", "value file path")
	config := fs.StringP("config", "c", "", "config file path")

	return fs, index, values, config
}

// withStore parses store flags, maps the store, and hands the remaining
// positional arguments (exactly want of them; -1 for any count) to fn.
func withStore(args []string, want int, fn func(*fstcache.Cache, []string) error) error {
	fs, index, values, config := storeFlags("fstc")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	if want >= 0 && fs.NArg() != want {
		return fmt.Errorf("expected %d argument(s), got %d", want, fs.NArg())
	}

	indexPath, valuePath, err := resolveStorePaths(*index, *values, *config)
	if err != nil {
		return err
	}

	c, err := fstcache.MapPaths(indexPath, valuePath)
	if err != nil {
		return err
	}

	defer func() { _ = c.Close() }()

	return fn(c, fs.Args())
}

func printGet(w *os.File, c *fstcache.Cache, key []byte) error {
	offset, found, err := c.GetOffset(key)
	if err != nil {
		return err
	}

	if !found {
		return fmt.Errorf("key %q not found", key)
	}

	n := valueLen(c, key, offset)
	fmt.Fprintf(w, "%s\toffset=%d\tvalue=%x\n", key, offset, c.ValueBytes()[offset:offset+n])

	return nil
}

func printEdge(w *os.File, c *fstcache.Cache, last bool) error {
	var entry fstcache.Entry

	stream := c.Range(fstcache.Unbounded(), fstcache.Unbounded())

	found := false

	for {
		e, ok := stream.Next()
		if !ok {
			break
		}

		entry = e
		found = true

		if !last {
			break
		}
	}

	if err := stream.Err(); err != nil {
		return err
	}

	if !found {
		return errors.New("store is empty")
	}

	fmt.Fprintf(w, "%s\toffset=%d\n", entry.Key, entry.Offset)

	return nil
}

func printLastLE(w *os.File, c *fstcache.Cache, bound []byte) error {
	key, offset, found, err := lastLEAnyWidth(c, bound)
	if err != nil {
		return err
	}

	if !found {
		return fmt.Errorf("no key <= %q", bound)
	}

	fmt.Fprintf(w, "%s\toffset=%d\n", key, offset)

	return nil
}

// lastLEAnyWidth probes LastLE without knowing the answer's width up front:
// it resolves the expected width first with a forward range scan over every
// key up to and including the bound.
func lastLEAnyWidth(c *fstcache.Cache, bound []byte) ([]byte, uint64, bool, error) {
	stream := c.Range(fstcache.Unbounded(), fstcache.Include(bound))

	var (
		last  fstcache.Entry
		found bool
	)

	for {
		e, ok := stream.Next()
		if !ok {
			break
		}

		last = e
		found = true
	}

	if err := stream.Err(); err != nil {
		return nil, 0, false, err
	}

	if !found {
		return nil, 0, false, nil
	}

	key, offset, err := c.LastLE(len(last.Key), bound)
	if err != nil || key == nil {
		return nil, 0, false, err
	}

	return key, offset, true, nil
}

func printRange(w *os.File, c *fstcache.Cache, args []string) error {
	start, end := fstcache.Unbounded(), fstcache.Unbounded()

	if len(args) > 0 && args[0] != "" {
		start = fstcache.Include([]byte(args[0]))
	}

	if len(args) > 1 && args[1] != "" {
		end = fstcache.Include([]byte(args[1]))
	}

	if len(args) > 2 {
		return fmt.Errorf("expected at most 2 arguments, got %d", len(args))
	}

	stream := c.Range(start, end)

	for {
		e, ok := stream.Next()
		if !ok {
			break
		}

		fmt.Fprintf(w, "%s\toffset=%d\n", e.Key, e.Offset)
	}

	return stream.Err()
}

func printInfo(w *os.File, c *fstcache.Cache) error {
	fmt.Fprintf(w, "keys\t%d\n", c.Len())
	fmt.Fprintf(w, "value bytes\t%d\n", len(c.ValueBytes()))

	return nil
}

// valueLen infers a value's length from the gap to the next key's offset,
// or to the end of the blob for the greatest key.
func valueLen(c *fstcache.Cache, key []byte, offset uint64) uint64 {
	stream := c.Range(fstcache.Exclude(key), fstcache.Unbounded())

	next, ok := stream.Next()
	if !ok {
		return uint64(len(c.ValueBytes())) - offset
	}

	return next.Offset - offset
}
