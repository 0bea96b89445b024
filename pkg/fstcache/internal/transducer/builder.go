package transducer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Builder serializes a sorted stream of (key, output) pairs into a TDX1
// automaton.
//
// Keys must arrive in strictly ascending lexicographic order. States are
// frozen and written as soon as the key stream leaves their prefix, so the
// builder's memory use is bounded by the longest key plus the state
// registry, not by the number of keys.
//
// Builder is not safe for concurrent use.
type Builder struct {
	w   io.Writer
	pos uint64

	// unfinished[i] is the state reached after consuming lastKey[:i].
	// unfinished[0] is the root. len(unfinished) == len(lastKey)+1.
	unfinished []*buildState
	lastKey    []byte
	keyCount   uint64

	// registry maps a frozen state's serialized block to its address.
	// Equal blocks imply equivalent states because child addresses are
	// already minimized when a parent freezes.
	registry map[string]uint64

	scratch bytes.Buffer
	closed  bool
}

type buildState struct {
	final       bool
	finalOutput uint64
	trans       []buildTransition
}

// buildTransition is an arc to either an unfinished child (addr 0, the child
// is the next deeper unfinished state) or a frozen one (addr set).
type buildTransition struct {
	in   byte
	out  uint64
	addr uint64
}

// NewBuilder creates a Builder that writes the serialized automaton to w.
// The file header is written immediately.
func NewBuilder(w io.Writer) (*Builder, error) {
	b := &Builder{
		w:          w,
		unfinished: []*buildState{{}},
		registry:   make(map[string]uint64),
	}

	err := b.write(encodeHeader())
	if err != nil {
		return nil, err
	}

	return b, nil
}

// Insert adds key with the given output value.
//
// Returns [ErrOutOfOrder] or [ErrDuplicate] if key does not sort strictly
// after the previous key, and [ErrClosed] after Close.
func (b *Builder) Insert(key []byte, out uint64) error {
	if b.closed {
		return ErrClosed
	}

	if b.keyCount > 0 {
		switch bytes.Compare(key, b.lastKey) {
		case 0:
			return fmt.Errorf("%w: %q", ErrDuplicate, key)
		case -1:
			return fmt.Errorf("%w: %q after %q", ErrOutOfOrder, key, b.lastKey)
		}
	}

	prefixLen := commonPrefixLen(key, b.lastKey)

	err := b.freezeTail(prefixLen)
	if err != nil {
		return err
	}

	// Redistribute outputs along the surviving prefix so that every arc
	// carries no more than the new key's remaining output. Excess moves
	// down onto the child's arcs (and its final output, if any).
	remaining := out

	for i := range prefixLen {
		arc := &b.unfinished[i].trans[len(b.unfinished[i].trans)-1]

		common := min(arc.out, remaining)
		excess := arc.out - common
		arc.out = common
		remaining -= common

		if excess > 0 {
			child := b.unfinished[i+1]
			for j := range child.trans {
				child.trans[j].out += excess
			}

			if child.final {
				child.finalOutput += excess
			}
		}
	}

	// Append fresh states for the diverging suffix. The remaining output
	// rides on the first new arc.
	suffix := key[prefixLen:]
	for i, c := range suffix {
		parent := b.unfinished[prefixLen+i]
		arcOut := uint64(0)

		if i == 0 {
			arcOut = remaining
		}

		parent.trans = append(parent.trans, buildTransition{in: c, out: arcOut})
		b.unfinished = append(b.unfinished, &buildState{})
	}

	terminal := b.unfinished[len(b.unfinished)-1]
	terminal.final = true

	if len(suffix) == 0 {
		// Only reachable for the very first key (which may be empty):
		// any later key must diverge or extend.
		terminal.finalOutput = remaining
	}

	b.lastKey = append(b.lastKey[:0], key...)
	b.keyCount++

	return nil
}

// Close freezes the remaining states, writes the root and footer, and
// flushes nothing: callers own their writer's buffering.
func (b *Builder) Close() error {
	if b.closed {
		return ErrClosed
	}

	b.closed = true

	err := b.freezeTail(0)
	if err != nil {
		return err
	}

	rootAddr, err := b.freeze(b.unfinished[0])
	if err != nil {
		return err
	}

	return b.write(encodeFooter(rootAddr, b.keyCount))
}

// freezeTail freezes every unfinished state deeper than depth, bottom-up,
// linking each frozen address into its parent's most recent arc.
func (b *Builder) freezeTail(depth int) error {
	for i := len(b.unfinished) - 1; i > depth; i-- {
		addr, err := b.freeze(b.unfinished[i])
		if err != nil {
			return err
		}

		parent := b.unfinished[i-1]
		parent.trans[len(parent.trans)-1].addr = addr
	}

	b.unfinished = b.unfinished[:depth+1]

	return nil
}

// freeze serializes a state, deduplicating through the registry, and returns
// its address.
func (b *Builder) freeze(s *buildState) (uint64, error) {
	b.scratch.Reset()
	encodeState(&b.scratch, s)

	block := b.scratch.String()

	if addr, ok := b.registry[block]; ok {
		return addr, nil
	}

	addr := b.pos

	err := b.write(b.scratch.Bytes())
	if err != nil {
		return 0, err
	}

	b.registry[block] = addr

	return addr, nil
}

func (b *Builder) write(p []byte) error {
	n, err := b.w.Write(p)
	b.pos += uint64(n)

	if err != nil {
		return fmt.Errorf("transducer: write: %w", err)
	}

	return nil
}

// encodeState appends a state's node block to buf. All child addresses must
// already be assigned.
func encodeState(buf *bytes.Buffer, s *buildState) {
	var flags byte
	if s.final {
		flags |= flagFinal
	}

	if s.finalOutput != 0 {
		flags |= flagHasFinalOutput
	}

	buf.WriteByte(flags)

	var varint [binary.MaxVarintLen64]byte

	if s.finalOutput != 0 {
		n := binary.PutUvarint(varint[:], s.finalOutput)
		buf.Write(varint[:n])
	}

	n := binary.PutUvarint(varint[:], uint64(len(s.trans)))
	buf.Write(varint[:n])

	if len(s.trans) == 0 {
		return
	}

	outW, addrW := 0, 1

	for _, t := range s.trans {
		outW = max(outW, byteWidth(t.out))
		addrW = max(addrW, byteWidth(t.addr))
	}

	buf.WriteByte(byte(outW))
	buf.WriteByte(byte(addrW))

	for _, t := range s.trans {
		buf.WriteByte(t.in)
	}

	var scratch [8]byte

	for _, t := range s.trans {
		putLE(scratch[:], t.out, outW)
		buf.Write(scratch[:outW])
	}

	for _, t := range s.trans {
		putLE(scratch[:], t.addr, addrW)
		buf.Write(scratch[:addrW])
	}
}

func commonPrefixLen(a, b []byte) int {
	n := min(len(a), len(b))

	i := 0
	for i < n && a[i] == b[i] {
		i++
	}

	return i
}
