package transducer

import "encoding/binary"

// TDX1 file format constants.
const (
	// Magic bytes at the start of every TDX1 file.
	tdx1Magic = "TDX1"

	// File format version.
	tdx1Version = 1

	// Fixed header size in bytes: magic (4) + version (4).
	tdx1HeaderSize = 8

	// Fixed footer size in bytes: root address (8) + key count (8).
	tdx1FooterSize = 16
)

// Node block flag bits.
const (
	flagFinal          = 1 << 0
	flagHasFinalOutput = 1 << 1
)

// Node block layout, starting at the node's address:
//
//	flags        uint8
//	finalOutput  uvarint      (only if flagHasFinalOutput)
//	numTrans     uvarint
//	outWidth     uint8        (only if numTrans > 0; 0..8 bytes per output)
//	addrWidth    uint8        (only if numTrans > 0; 1..8 bytes per target)
//	inputs       [numTrans]byte            (ascending)
//	outputs      [numTrans * outWidth]byte (little-endian each)
//	targets      [numTrans * addrWidth]byte
//
// Addresses are absolute byte offsets of node blocks within the file, so a
// valid address is always >= tdx1HeaderSize and 0 can stand in for "none".

// byteWidth returns the number of little-endian bytes needed to represent v.
// A zero value needs zero bytes.
func byteWidth(v uint64) int {
	w := 0
	for v != 0 {
		w++
		v >>= 8
	}

	return w
}

// putLE writes the w low-order bytes of v into dst little-endian.
func putLE(dst []byte, v uint64, w int) {
	for i := range w {
		dst[i] = byte(v)
		v >>= 8
	}
}

// readLE reads a w-byte little-endian unsigned integer from src.
func readLE(src []byte, w int) uint64 {
	var v uint64
	for i := w - 1; i >= 0; i-- {
		v = v<<8 | uint64(src[i])
	}

	return v
}

// encodeHeader returns the fixed file header.
func encodeHeader() []byte {
	buf := make([]byte, tdx1HeaderSize)
	copy(buf, tdx1Magic)
	binary.LittleEndian.PutUint32(buf[4:], tdx1Version)

	return buf
}

// encodeFooter returns the fixed file footer.
func encodeFooter(rootAddr, keyCount uint64) []byte {
	buf := make([]byte, tdx1FooterSize)
	binary.LittleEndian.PutUint64(buf[0:], rootAddr)
	binary.LittleEndian.PutUint64(buf[8:], keyCount)

	return buf
}
