package fstcache

import (
	"errors"
	"fmt"

	"github.com/calvinalkan/fstcache/pkg/fstcache/internal/transducer"
)

// Entry is one (key, offset) pair yielded by a range stream. Key is a
// detached copy, safe to retain.
type Entry struct {
	Key    []byte
	Offset uint64
}

// A Bound is one endpoint of a key range. The zero value is Unbounded.
type Bound struct {
	key      []byte
	included bool
	bounded  bool
}

// Include returns a closed endpoint at key.
func Include(key []byte) Bound { return Bound{key: key, included: true, bounded: true} }

// Exclude returns an open endpoint at key.
func Exclude(key []byte) Bound { return Bound{key: key, bounded: true} }

// Unbounded returns an endpoint that does not constrain the range.
func Unbounded() Bound { return Bound{} }

// Range returns a forward stream of the (key, offset) pairs whose keys fall
// between start and end, in ascending lexicographic order.
//
// The stream is lazy: entries decode as Next is called. It is restartable by
// calling Range again with the same bounds.
func (c *Cache) Range(start, end Bound) *Stream {
	// The index iterator is half-open [startInclusive, endExclusive). An
	// excluded start and an included end both shift by one key successor:
	// key || 0x00 is the smallest key strictly greater than key.
	var startInclusive, endExclusive []byte

	if start.bounded {
		startInclusive = start.key
		if !start.included {
			startInclusive = keySuccessor(start.key)
		}
	}

	if end.bounded {
		endExclusive = end.key
		if end.included {
			endExclusive = keySuccessor(end.key)
		}
	}

	s := &Stream{}

	it, err := c.index.Iterator(startInclusive, endExclusive)
	if err != nil {
		if !errors.Is(err, transducer.ErrIteratorDone) {
			s.err = fmt.Errorf("%w: %w", ErrIndex, err)
		}

		return s
	}

	s.it = it

	return s
}

// Stream yields range entries in ascending key order:
//
//	stream := c.Range(fstcache.Include(lo), fstcache.Unbounded())
//	for {
//	    entry, ok := stream.Next()
//	    if !ok {
//	        break
//	    }
//	    ...
//	}
//	if err := stream.Err(); err != nil { ... }
type Stream struct {
	it      *transducer.Iterator
	err     error
	started bool
	done    bool
}

// Next returns the next entry in the stream. ok is false when the stream is
// exhausted or failed; check [Stream.Err] afterwards.
func (s *Stream) Next() (Entry, bool) {
	if s.done || s.err != nil || s.it == nil {
		return Entry{}, false
	}

	if s.started {
		err := s.it.Next()
		if err != nil {
			s.done = true

			if !errors.Is(err, transducer.ErrIteratorDone) {
				s.err = fmt.Errorf("%w: %w", ErrIndex, err)
			}

			return Entry{}, false
		}
	}

	s.started = true

	key, offset := s.it.Current()

	return Entry{
		Key:    append([]byte(nil), key...),
		Offset: offset,
	}, true
}

// Err returns the first error the stream hit, or nil on clean exhaustion.
func (s *Stream) Err() error { return s.err }

// Collect drains the stream into a slice.
func (s *Stream) Collect() ([]Entry, error) {
	var entries []Entry

	for {
		entry, ok := s.Next()
		if !ok {
			break
		}

		entries = append(entries, entry)
	}

	return entries, s.Err()
}

// keySuccessor returns the smallest key strictly greater than key under
// lexicographic byte order.
func keySuccessor(key []byte) []byte {
	successor := make([]byte, len(key)+1)
	copy(successor, key)

	return successor
}
