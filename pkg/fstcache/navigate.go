package fstcache

import (
	"fmt"

	"github.com/calvinalkan/fstcache/pkg/fstcache/internal/transducer"
)

// Last returns the lexicographically greatest (key, offset) pair, copied
// into a buffer of length width.
//
// The greatest key lies on the rightmost spine of the index: from the root,
// always take the transition with the greatest input byte, summing outputs,
// until a node with no outgoing transitions is reached.
//
// Returns a nil key if the store is empty or if the greatest key's length
// differs from width.
func (c *Cache) Last(width int) (key []byte, offset uint64, err error) {
	node, err := c.index.NodeAt(c.index.Root())
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrIndex, err)
	}

	var (
		acc []byte
		sum uint64
	)

	for node.NumTransitions() > 0 {
		in, out, addr := node.TransitionAt(node.NumTransitions() - 1)

		acc = append(acc, in)
		sum += out

		node, err = c.index.NodeAt(addr)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrIndex, err)
		}
	}

	if !node.Final() || len(acc) != width {
		return nil, 0, nil
	}

	key = make([]byte, width)
	copy(key, acc)

	return key, sum + node.FinalOutput(), nil
}

// LastLE returns the greatest stored key <= bound, with its offset, copied
// into a buffer of length width. The bound need not itself be stored. A nil
// key means no stored key is <= bound.
//
// Panics if the found key's length differs from width: the caller promised
// a width.
func (c *Cache) LastLE(width int, bound []byte) (key []byte, offset uint64, err error) {
	root, err := c.index.NodeAt(c.index.Root())
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrIndex, err)
	}

	walk := leWalk{index: c.index, bound: bound}

	offset, found, err := walk.descend(cmpEqual, 0, root, 0)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrIndex, err)
	}

	if !found {
		return nil, 0, nil
	}

	if len(walk.key) != width {
		panic(fmt.Sprintf("fstcache: LastLE(%d) found key of length %d", width, len(walk.key)))
	}

	key = make([]byte, width)
	copy(key, walk.key)

	return key, offset, nil
}

// Ordering of the key prefix chosen so far against the same-length prefix of
// the bound.
type prefixCmp int8

const (
	// cmpLess: the prefix is already strictly below the bound; any
	// completion is admissible.
	cmpLess prefixCmp = iota - 1

	// cmpEqual: the prefix is still tied to the bound byte-for-byte.
	cmpEqual

	// cmpGreater: the prefix is strictly above the bound; prune.
	cmpGreater
)

func cmpByte(a, b byte) prefixCmp {
	switch {
	case a < b:
		return cmpLess
	case a > b:
		return cmpGreater
	default:
		return cmpEqual
	}
}

// leWalk carries the fixed inputs of a LastLE search; descend does the
// per-frame work.
type leWalk struct {
	index *transducer.FST
	bound []byte
	key   []byte
}

// descend implements one frame of the bounded depth-first search.
//
// While cmp is cmpEqual the next byte is constrained by bound[depth]: take
// the greatest transition <= that byte and recurse. If that subtree has no
// admissible key, back off exactly one transition - its input byte is then
// strictly below the bound byte, so the whole subtree is admissible and the
// search continues greedily (cmpLess). Once cmpLess, always take the
// greatest transition. A final node is the fallback answer for its frame.
func (w *leWalk) descend(cmp prefixCmp, depth int, node transducer.Node, sum uint64) (uint64, bool, error) {
	if cmp == cmpGreater {
		return 0, false, nil
	}

	if node.NumTransitions() > 0 {
		switch cmp {
		case cmpEqual:
			if depth < len(w.bound) {
				offset, found, err := w.descendTied(depth, node, sum)
				if err != nil || found {
					return offset, found, err
				}
			}
			// depth >= len(bound): any further byte would push the key
			// strictly above the bound; fall through to the final check.

		case cmpLess:
			in, out, addr := node.TransitionAt(node.NumTransitions() - 1)

			child, err := w.index.NodeAt(addr)
			if err != nil {
				return 0, false, err
			}

			w.setKeyByte(depth, in)

			offset, found, err := w.descend(cmpLess, depth+1, child, sum+out)
			if err != nil || found {
				return offset, found, err
			}
		}
	}

	if node.Final() {
		w.key = w.key[:depth]

		return sum + node.FinalOutput(), true, nil
	}

	return 0, false, nil
}

// descendTied handles the cmpEqual case with a constraining bound byte:
// choose the greatest transition <= bound[depth], and on failure backtrack
// to its immediate predecessor.
func (w *leWalk) descendTied(depth int, node transducer.Node, sum uint64) (uint64, bool, error) {
	u := w.bound[depth]

	i, ok := findLastLETransition(node, u)
	if !ok {
		return 0, false, nil
	}

	in, out, addr := node.TransitionAt(i)

	child, err := w.index.NodeAt(addr)
	if err != nil {
		return 0, false, err
	}

	w.setKeyByte(depth, in)

	offset, found, err := w.descend(cmpByte(in, u), depth+1, child, sum+out)
	if err != nil || found {
		return offset, found, err
	}

	// Backtrack one transition. The predecessor's input byte is strictly
	// below u, so every key beneath it is below the bound; take the
	// greatest.
	if i == 0 {
		return 0, false, nil
	}

	in, out, addr = node.TransitionAt(i - 1)

	child, err = w.index.NodeAt(addr)
	if err != nil {
		return 0, false, err
	}

	w.setKeyByte(depth, in)

	return w.descend(cmpLess, depth+1, child, sum+out)
}

func (w *leWalk) setKeyByte(depth int, b byte) {
	if depth < len(w.key) {
		w.key = w.key[:depth]
	}

	for len(w.key) < depth {
		w.key = append(w.key, 0)
	}

	w.key = append(w.key, b)
}

// findLastLETransition returns the index of the greatest transition of node
// whose input byte is <= u, by binary search over the ascending transition
// array. The invariant is lower <= answer < upper.
func findLastLETransition(node transducer.Node, u byte) (int, bool) {
	lower, upper := 0, node.NumTransitions()

	for lower != upper {
		mid := (lower + upper) / 2

		in, _, _ := node.TransitionAt(mid)
		if in <= u {
			if mid == node.NumTransitions()-1 {
				return mid, true
			}

			next, _, _ := node.TransitionAt(mid + 1)
			if next > u {
				return mid, true
			}

			lower = mid + 1
		} else {
			upper = mid
		}
	}

	return 0, false
}
