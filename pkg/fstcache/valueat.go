package fstcache

import (
	"fmt"
	"unsafe"
)

// ValueAt reinterprets the value bytes at offset as a *T.
//
// This is a contract between the caller and the layout they chose when
// building the store, not something the store enforces: T must match the
// bytes written at offset, and offset must satisfy T's alignment. The store
// makes no alignment guarantee on offsets; fixed-size homogeneous values
// keep every offset at a multiple of the value size, which is the usual way
// to hold up the caller's end.
//
// Panics if [offset, offset+sizeof(T)) falls outside the value blob, or if
// offset violates T's alignment.
func ValueAt[T any](c *Cache, offset uint64) *T {
	var zero T

	size := uint64(unsafe.Sizeof(zero))
	blob := c.ValueBytes()

	if offset+size > uint64(len(blob)) || offset+size < offset {
		panic(fmt.Sprintf("fstcache: ValueAt: [%d, %d) outside value blob of %d bytes",
			offset, offset+size, len(blob)))
	}

	p := unsafe.Pointer(&blob[offset])

	if uintptr(p)%unsafe.Alignof(zero) != 0 {
		panic(fmt.Sprintf("fstcache: ValueAt: offset %d violates %d-byte alignment", offset, unsafe.Alignof(zero)))
	}

	return (*T)(p)
}
