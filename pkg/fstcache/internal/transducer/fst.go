package transducer

import (
	"encoding/binary"
	"fmt"
)

// FST is a read-only view over a serialized TDX1 automaton.
//
// The backing byte slice is borrowed, not copied, so an FST works directly
// over a memory-mapped file. FST is safe for concurrent readers.
type FST struct {
	data     []byte
	rootAddr uint64
	keyCount uint64
}

// Load attaches to serialized automaton bytes.
//
// Returns [ErrCorrupt] for damaged or truncated data and [ErrIncompatible]
// for an unknown format version.
func Load(data []byte) (*FST, error) {
	if len(data) < tdx1HeaderSize+tdx1FooterSize {
		return nil, fmt.Errorf("%w: %d bytes is too small", ErrCorrupt, len(data))
	}

	if string(data[:4]) != tdx1Magic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}

	version := binary.LittleEndian.Uint32(data[4:])
	if version != tdx1Version {
		return nil, fmt.Errorf("%w: version %d", ErrIncompatible, version)
	}

	footer := data[len(data)-tdx1FooterSize:]
	rootAddr := binary.LittleEndian.Uint64(footer[0:])
	keyCount := binary.LittleEndian.Uint64(footer[8:])

	if rootAddr < tdx1HeaderSize || rootAddr >= uint64(len(data)-tdx1FooterSize) {
		return nil, fmt.Errorf("%w: root address %d out of range", ErrCorrupt, rootAddr)
	}

	f := &FST{
		data:     data,
		rootAddr: rootAddr,
		keyCount: keyCount,
	}

	// The root must decode; this catches most gross truncations up front.
	_, err := f.NodeAt(rootAddr)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Len returns the number of keys in the automaton.
func (f *FST) Len() uint64 { return f.keyCount }

// Root returns the address of the root node.
func (f *FST) Root() uint64 { return f.rootAddr }

// Node is a decoded view of one automaton state. The transition arrays are
// subslices of the FST's backing bytes.
type Node struct {
	final    bool
	finalOut uint64
	numTrans int
	inputs   []byte
	outputs  []byte
	targets  []byte
	outW     int
	addrW    int
}

// Final reports whether the node terminates a key.
func (n Node) Final() bool { return n.final }

// FinalOutput returns the node's residual output, added to the path sum when
// the node terminates a key.
func (n Node) FinalOutput() uint64 { return n.finalOut }

// NumTransitions returns the number of outgoing transitions.
func (n Node) NumTransitions() int { return n.numTrans }

// TransitionAt returns the i-th outgoing transition. Transitions are sorted
// ascending by input byte.
func (n Node) TransitionAt(i int) (in byte, out uint64, addr uint64) {
	in = n.inputs[i]

	if n.outW > 0 {
		out = readLE(n.outputs[i*n.outW:], n.outW)
	}

	addr = readLE(n.targets[i*n.addrW:], n.addrW)

	return in, out, addr
}

// NodeAt decodes the node block at addr.
func (f *FST) NodeAt(addr uint64) (Node, error) {
	body := f.data[:len(f.data)-tdx1FooterSize]

	if addr < tdx1HeaderSize || addr >= uint64(len(body)) {
		return Node{}, fmt.Errorf("%w: node address %d out of range", ErrCorrupt, addr)
	}

	block := body[addr:]

	var n Node

	flags := block[0]
	n.final = flags&flagFinal != 0
	pos := 1

	if flags&flagHasFinalOutput != 0 {
		v, vn := binary.Uvarint(block[pos:])
		if vn <= 0 {
			return Node{}, fmt.Errorf("%w: bad final output at %d", ErrCorrupt, addr)
		}

		n.finalOut = v
		pos += vn
	}

	count, vn := binary.Uvarint(block[pos:])
	if vn <= 0 {
		return Node{}, fmt.Errorf("%w: bad transition count at %d", ErrCorrupt, addr)
	}

	pos += vn
	n.numTrans = int(count)

	if n.numTrans == 0 {
		return n, nil
	}

	if pos+2 > len(block) {
		return Node{}, fmt.Errorf("%w: truncated node at %d", ErrCorrupt, addr)
	}

	n.outW = int(block[pos])
	n.addrW = int(block[pos+1])
	pos += 2

	if n.outW > 8 || n.addrW < 1 || n.addrW > 8 {
		return Node{}, fmt.Errorf("%w: bad widths at %d", ErrCorrupt, addr)
	}

	need := n.numTrans * (1 + n.outW + n.addrW)
	if pos+need > len(block) {
		return Node{}, fmt.Errorf("%w: truncated node at %d", ErrCorrupt, addr)
	}

	n.inputs = block[pos : pos+n.numTrans]
	pos += n.numTrans

	n.outputs = block[pos : pos+n.numTrans*n.outW]
	pos += n.numTrans * n.outW

	n.targets = block[pos : pos+n.numTrans*n.addrW]

	return n, nil
}

// Get returns the output for key, or found=false if key is absent.
func (f *FST) Get(key []byte) (out uint64, found bool, err error) {
	node, err := f.NodeAt(f.rootAddr)
	if err != nil {
		return 0, false, err
	}

	var sum uint64

	for _, c := range key {
		i, ok := node.findTransition(c)
		if !ok {
			return 0, false, nil
		}

		_, tOut, tAddr := node.TransitionAt(i)
		sum += tOut

		node, err = f.NodeAt(tAddr)
		if err != nil {
			return 0, false, err
		}
	}

	if !node.final {
		return 0, false, nil
	}

	return sum + node.finalOut, true, nil
}

// findTransition binary-searches for the transition whose input byte equals c.
func (n Node) findTransition(c byte) (int, bool) {
	lo, hi := 0, n.numTrans

	for lo < hi {
		mid := (lo + hi) / 2

		switch in := n.inputs[mid]; {
		case in == c:
			return mid, true
		case in < c:
			lo = mid + 1
		default:
			hi = mid
		}
	}

	return 0, false
}
