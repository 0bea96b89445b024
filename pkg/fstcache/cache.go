package fstcache

import (
	"errors"
	"fmt"
	"os"

	"github.com/calvinalkan/fstcache/pkg/fstcache/internal/transducer"
)

// Cache is a read-only view of a built store: an FST index resolving keys to
// value offsets, and the value blob those offsets point into.
//
// A Cache over caller-provided byte slices borrows them for its lifetime.
// A Cache from [MapPaths] owns two memory mappings, released by Close.
// All read operations are safe for concurrent use.
type Cache struct {
	index *transducer.FST
	value []byte

	// mmap regions owned by this Cache; nil when the caller provided the
	// bytes directly.
	mappedIndex []byte
	mappedValue []byte
}

// New attaches a Cache to already-materialized index and value bytes.
//
// Returns an [ErrIndex] error if indexBytes is not a valid serialized index.
func New(indexBytes, valueBytes []byte) (*Cache, error) {
	index, err := transducer.Load(indexBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndex, err)
	}

	return &Cache{
		index: index,
		value: valueBytes,
	}, nil
}

// MapPaths opens both store files read-only and memory-maps them.
//
// Dereferencing cold offsets later may block on page faults; that cost is
// the reader's, not this call's.
func MapPaths(indexPath, valuePath string) (*Cache, error) {
	indexData, err := mapPath(indexPath)
	if err != nil {
		return nil, err
	}

	valueData, err := mapPath(valuePath)
	if err != nil {
		_ = unmapBytes(indexData)

		return nil, err
	}

	c, err := New(indexData, valueData)
	if err != nil {
		_ = unmapBytes(indexData)
		_ = unmapBytes(valueData)

		return nil, err
	}

	c.mappedIndex = indexData
	c.mappedValue = valueData

	return c, nil
}

func mapPath(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}

	defer func() { _ = f.Close() }()

	// The mapping outlives the descriptor.
	return mapFile(f)
}

// Close releases any memory mappings held by the Cache. A Cache over
// caller-provided bytes has nothing to release.
//
// Byte slices previously returned by [Cache.ValueBytes] or [ValueAt] become
// invalid.
func (c *Cache) Close() error {
	indexErr := unmapBytes(c.mappedIndex)
	valueErr := unmapBytes(c.mappedValue)

	c.mappedIndex = nil
	c.mappedValue = nil

	if indexErr != nil {
		return indexErr
	}

	return valueErr
}

// ValueBytes returns the full value blob. The slice aliases the Cache's
// backing region and is valid until Close.
func (c *Cache) ValueBytes() []byte { return c.value }

// Len returns the number of keys in the store.
func (c *Cache) Len() uint64 { return c.index.Len() }

// GetOffset returns the value offset recorded for key, or found=false if the
// key is absent. Runs in time proportional to len(key).
func (c *Cache) GetOffset(key []byte) (offset uint64, found bool, err error) {
	offset, found, err = c.index.Get(key)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %w", ErrIndex, err)
	}

	return offset, found, nil
}

// First returns the lexicographically smallest (key, offset) pair, copied
// into a buffer of length width. A nil key means the store is empty.
//
// Panics if the actual first key's length differs from width: the caller
// promised a width.
func (c *Cache) First(width int) (key []byte, offset uint64, err error) {
	it, err := c.index.Iterator(nil, nil)
	if err != nil {
		if errors.Is(err, transducer.ErrIteratorDone) {
			return nil, 0, nil
		}

		return nil, 0, fmt.Errorf("%w: %w", ErrIndex, err)
	}

	k, off := it.Current()
	if len(k) != width {
		panic(fmt.Sprintf("fstcache: First(%d) found key of length %d", width, len(k)))
	}

	key = make([]byte, width)
	copy(key, k)

	return key, off, nil
}
