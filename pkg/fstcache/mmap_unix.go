//go:build unix

package fstcache

import (
	"fmt"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps f read-only into memory. A zero-length file yields a nil
// slice, since mmap rejects empty mappings.
func mapFile(f *os.File) ([]byte, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", ErrIO, f.Name(), err)
	}

	size := info.Size()
	if size == 0 {
		return nil, nil
	}

	if uint64(size) > uint64(math.MaxInt) {
		return nil, fmt.Errorf("%w: %s: %d bytes exceeds mappable size", ErrIO, f.Name(), size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %s: %w", ErrIO, f.Name(), err)
	}

	return data, nil
}

// unmapBytes releases a mapping produced by mapFile. A nil slice is a no-op.
func unmapBytes(data []byte) error {
	if data == nil {
		return nil
	}

	err := unix.Munmap(data)
	if err != nil {
		return fmt.Errorf("%w: munmap: %w", ErrIO, err)
	}

	return nil
}
