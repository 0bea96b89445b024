package transducer

import "bytes"

// Iterator visits the automaton's (key, output) pairs in ascending
// lexicographic order, bounded below by startInclusive and above by
// endExclusive (nil means unbounded on that side).
//
// The iterator keeps an explicit path stack through the automaton: one
// decoded node per consumed byte, plus the transition index and partial
// output taken at each level. Advancing explores the next sibling of the
// deepest level first, then backtracks.
type Iterator struct {
	f *FST

	startInclusive []byte
	endExclusive   []byte

	nodes []Node   // nodes[0] is the root; nodes[i] follows keys[i-1]
	keys  []byte   // bytes consumed along the current path
	pos   []int    // transition index taken out of nodes[i]
	vals  []uint64 // output of the transition taken out of nodes[i]

	nextStart []byte
}

// Iterator positions a new iterator at the first key >= startInclusive.
//
// Returns [ErrIteratorDone] if no key falls inside the bounds.
func (f *FST) Iterator(startInclusive, endExclusive []byte) (*Iterator, error) {
	it := &Iterator{
		f:              f,
		startInclusive: startInclusive,
		endExclusive:   endExclusive,
	}

	err := it.pointTo(startInclusive)
	if err != nil {
		return nil, err
	}

	return it, nil
}

// Current returns the key and summed output currently pointed to. The key
// slice is only valid until the next call to Next; callers must copy it to
// retain it.
func (it *Iterator) Current() ([]byte, uint64) {
	curr := it.nodes[len(it.nodes)-1]
	if !curr.Final() {
		return nil, 0
	}

	var total uint64
	for _, v := range it.vals {
		total += v
	}

	return it.keys, total + curr.FinalOutput()
}

// Next advances to the next key. Returns [ErrIteratorDone] when iteration
// is exhausted or the next key would reach endExclusive.
func (it *Iterator) Next() error {
	return it.next(-1)
}

// pointTo descends along key as far as exact transitions exist, then
// advances to the first in-bounds key >= key.
func (it *Iterator) pointTo(key []byte) error {
	if bytes.Compare(key, it.startInclusive) < 0 {
		key = it.startInclusive
	}

	if it.endExclusive != nil && bytes.Compare(key, it.endExclusive) > 0 {
		key = it.endExclusive
	}

	it.nodes = it.nodes[:0]
	it.keys = it.keys[:0]
	it.pos = it.pos[:0]
	it.vals = it.vals[:0]

	root, err := it.f.NodeAt(it.f.Root())
	if err != nil {
		return err
	}

	it.nodes = append(it.nodes, root)

	// If the descent breaks, maxQ is the index of the last transition at
	// the breaking node whose input sorts below the needed byte.
	maxQ := -1

	for j := 0; j < len(key); j++ {
		curr := it.nodes[len(it.nodes)-1]

		i, ok := curr.findTransition(key[j])
		if !ok {
			for q := range curr.NumTransitions() {
				in, _, _ := curr.TransitionAt(q)
				if in < key[j] {
					maxQ = q
				}
			}

			break
		}

		_, out, addr := curr.TransitionAt(i)

		next, err := it.f.NodeAt(addr)
		if err != nil {
			return err
		}

		it.nodes = append(it.nodes, next)
		it.keys = append(it.keys, key[j])
		it.pos = append(it.pos, i)
		it.vals = append(it.vals, out)
	}

	if !it.nodes[len(it.nodes)-1].Final() || bytes.Compare(it.keys, key) < 0 {
		return it.next(maxQ)
	}

	if it.endExclusive != nil && bytes.Compare(it.keys, it.endExclusive) >= 0 {
		return ErrIteratorDone
	}

	return nil
}

// next advances the iterator, beginning the sibling exploration of the
// deepest level after transition index lastPos.
func (it *Iterator) next(lastPos int) error {
	it.nextStart = append(it.nextStart[:0], it.keys...)

	for {
		curr := it.nodes[len(it.nodes)-1]

		if curr.Final() && bytes.Compare(it.keys, it.nextStart) > 0 {
			return nil
		}

		nextPos := lastPos + 1
		if nextPos < curr.NumTransitions() {
			in, out, addr := curr.TransitionAt(nextPos)

			next, err := it.f.NodeAt(addr)
			if err != nil {
				return err
			}

			it.nodes = append(it.nodes, next)
			it.keys = append(it.keys, in)
			it.pos = append(it.pos, nextPos)
			it.vals = append(it.vals, out)
			lastPos = -1

			if it.endExclusive != nil && bytes.Compare(it.keys, it.endExclusive) >= 0 {
				return ErrIteratorDone
			}

			continue
		}

		if len(it.nodes) > 1 {
			it.nodes = it.nodes[:len(it.nodes)-1]
			it.keys = it.keys[:len(it.keys)-1]
			lastPos = it.pos[len(it.pos)-1]
			it.pos = it.pos[:len(it.pos)-1]
			it.vals = it.vals[:len(it.vals)-1]

			continue
		}

		return ErrIteratorDone
	}
}
