package fstcache

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/calvinalkan/fstcache/pkg/fstcache/internal/transducer"
)

// Builder serializes an ordered stream of (key, value) pairs into an index
// stream and a value stream.
//
// The builder keeps two cursors: appended (bytes written to the value sink)
// and committed (bytes written as of the most recent committed entry). A
// key's recorded offset is the committed cursor before that entry's bytes
// were appended, i.e. the start of its value. This split lets a value be
// assembled from several chunks - including a caller-prefixed length header,
// since the store records only offsets - before the key is committed.
//
// A failed append or commit leaves the builder, and both sinks, in an
// undefined state; discard the produced files.
type Builder struct {
	index *transducer.Builder
	value io.Writer

	appended  uint64
	committed uint64

	lastKey  []byte
	anyKey   bool
	finished bool

	// Set by CreateFiles: flushed, synced, and closed by Finish.
	valueBuf *bufio.Writer
	indexBuf *bufio.Writer
	files    []*os.File
}

// NewBuilder creates a Builder writing the index to indexW and value bytes
// to valueW. The index header is written immediately.
//
// Finish flushes neither writer; callers that pass buffered writers own the
// flush. See [CreateFiles] for the file-backed convenience.
func NewBuilder(indexW, valueW io.Writer) (*Builder, error) {
	index, err := transducer.NewBuilder(indexW)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	return &Builder{
		index: index,
		value: valueW,
	}, nil
}

// CreateFiles creates (truncating) the two store files and returns a Builder
// writing to them through buffered writers. Finish flushes, syncs, and
// closes both files.
func CreateFiles(indexPath, valuePath string) (*Builder, error) {
	indexFile, err := os.Create(indexPath)
	if err != nil {
		return nil, fmt.Errorf("%w: create index: %w", ErrIO, err)
	}

	valueFile, err := os.Create(valuePath)
	if err != nil {
		_ = indexFile.Close()

		return nil, fmt.Errorf("%w: create values: %w", ErrIO, err)
	}

	indexBuf := bufio.NewWriter(indexFile)
	valueBuf := bufio.NewWriter(valueFile)

	b, err := NewBuilder(indexBuf, valueBuf)
	if err != nil {
		_ = indexFile.Close()
		_ = valueFile.Close()

		return nil, err
	}

	b.indexBuf = indexBuf
	b.valueBuf = valueBuf
	b.files = []*os.File{indexFile, valueFile}

	return b, nil
}

// AppendValueBytes writes chunk to the value sink and advances the appended
// cursor. The index is untouched until [Builder.CommitEntry].
func (b *Builder) AppendValueBytes(chunk []byte) error {
	if b.finished {
		return ErrFinished
	}

	n, err := b.value.Write(chunk)
	b.appended += uint64(n)

	if err != nil {
		return fmt.Errorf("%w: value sink: %w", ErrIO, err)
	}

	return nil
}

// CommitEntry records key at the committed cursor, then promotes the cursor
// to everything appended so far.
//
// key must sort strictly after the previously committed key; otherwise
// [ErrOutOfOrderKey] or [ErrDuplicateKey] is returned and the builder is in
// an undefined state.
func (b *Builder) CommitEntry(key []byte) error {
	if b.finished {
		return ErrFinished
	}

	if b.anyKey {
		switch bytes.Compare(key, b.lastKey) {
		case 0:
			return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		case -1:
			return fmt.Errorf("%w: %q after %q", ErrOutOfOrderKey, key, b.lastKey)
		}
	}

	err := b.index.Insert(key, b.committed)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIndex, err)
	}

	b.lastKey = append(b.lastKey[:0], key...)
	b.anyKey = true
	b.committed = b.appended

	return nil
}

// Insert appends value and commits key in one step.
func (b *Builder) Insert(key, value []byte) error {
	err := b.AppendValueBytes(value)
	if err != nil {
		return err
	}

	return b.CommitEntry(key)
}

// Finish completes the index encoding. For a builder from [CreateFiles] it
// first flushes the value buffer, and afterwards flushes, syncs, and closes
// both files; writers passed to [NewBuilder] are not flushed. After Finish,
// no further operation is valid.
func (b *Builder) Finish() error {
	if b.finished {
		return ErrFinished
	}

	b.finished = true

	if b.valueBuf != nil {
		err := b.valueBuf.Flush()
		if err != nil {
			return fmt.Errorf("%w: flush values: %w", ErrIO, err)
		}
	}

	err := b.index.Close()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIndex, err)
	}

	if b.indexBuf != nil {
		err := b.indexBuf.Flush()
		if err != nil {
			return fmt.Errorf("%w: flush index: %w", ErrIO, err)
		}
	}

	for _, f := range b.files {
		err := f.Sync()
		if err != nil {
			return fmt.Errorf("%w: sync %s: %w", ErrIO, f.Name(), err)
		}

		err = f.Close()
		if err != nil {
			return fmt.Errorf("%w: close %s: %w", ErrIO, f.Name(), err)
		}
	}

	return nil
}
