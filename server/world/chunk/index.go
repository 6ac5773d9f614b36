package chunk

// SectionIndex is a bit-packed key for a position local to one 16x16x16
// section. The layout is (y<<8)|(z<<4)|x with each component masked to four
// bits, making the packing bijective for components in the range [0,16).
type SectionIndex uint16

// PackIndex packs local x, y and z values into a SectionIndex. Components
// outside [0,16) are masked to their lowest four bits.
func PackIndex(x, y, z uint8) SectionIndex {
	return SectionIndex(uint16(y&0xf)<<8 | uint16(z&0xf)<<4 | uint16(x&0xf))
}

// Unpack returns the local x, y and z values held by the SectionIndex. It is
// the exact inverse of PackIndex for components in [0,16).
func (i SectionIndex) Unpack() (x, y, z uint8) {
	return uint8(i & 0xf), uint8(i >> 8 & 0xf), uint8(i >> 4 & 0xf)
}

// LocalPos reduces global block coordinates to coordinates local to the
// section that contains them. Reduction uses floor semantics on every axis:
// a global coordinate of -1 maps to local 15, so neighbouring sections tile
// the coordinate space without seams. (The predecessor of this code reduced
// by magnitude instead, mapping -1 to 1; that convention double-covers the
// negative quadrants and was deliberately not carried over.)
func LocalPos(x, y, z int) (lx, ly, lz uint8) {
	return uint8(x & 0xf), uint8(y & 0xf), uint8(z & 0xf)
}
