// Package transducer implements the FST index codec used by fstcache: a
// minimal acyclic byte-labeled automaton with uint64 outputs that sum along
// the accepting path.
//
// The codec has two halves. [Builder] consumes keys in strictly ascending
// lexicographic order and streams a serialized automaton to a writer,
// minimizing shared suffixes through a state registry. [FST] attaches to the
// serialized bytes (typically a memory-mapped file) and answers point
// lookups, in-order iteration, and node-level navigation without decoding
// the whole structure.
package transducer

import "errors"

// Sentinel errors returned by transducer operations.
//
// Callers classify with [errors.Is].
var (
	// ErrCorrupt indicates the serialized automaton is damaged or truncated.
	ErrCorrupt = errors.New("transducer: corrupt")

	// ErrIncompatible indicates an unknown format version.
	ErrIncompatible = errors.New("transducer: incompatible version")

	// ErrOutOfOrder indicates an insert key was not strictly greater than
	// the previous key.
	ErrOutOfOrder = errors.New("transducer: out-of-order insert")

	// ErrDuplicate indicates an insert key equal to the previous key.
	ErrDuplicate = errors.New("transducer: duplicate insert")

	// ErrClosed indicates use of a Builder after Close.
	ErrClosed = errors.New("transducer: closed")

	// ErrIteratorDone signals the end of iteration.
	ErrIteratorDone = errors.New("transducer: iterator done")
)
