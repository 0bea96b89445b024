package fstcache

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by fstcache operations.
//
// Callers should use [errors.Is] to classify:
//
//	if errors.Is(err, fstcache.ErrIndex) {
//	    // the store's index is unusable; rebuild it
//	}
var (
	// ErrIndex indicates a failure in the index codec: a malformed or
	// truncated index on open, or a rejected insert while building.
	ErrIndex = errors.New("fstcache: index failure")

	// ErrIO indicates a failure in the underlying byte I/O: file open,
	// write, flush, or memory-map. The OS error is preserved in the chain.
	ErrIO = errors.New("fstcache: io failure")

	// ErrOutOfOrderKey indicates a committed key that does not sort
	// strictly after its predecessor. Classifies as [ErrIndex].
	ErrOutOfOrderKey = fmt.Errorf("%w: out-of-order key", ErrIndex)

	// ErrDuplicateKey indicates a committed key equal to its predecessor.
	// Classifies as [ErrIndex].
	ErrDuplicateKey = fmt.Errorf("%w: duplicate key", ErrIndex)

	// ErrFinished indicates use of a Builder after Finish.
	//
	// This is a programming error.
	ErrFinished = errors.New("fstcache: builder finished")
)
