package chunk

import (
	"errors"
)

// ErrOutOfBounds is returned when a position outside the addressable volume
// of a Chunk is read or written.
var ErrOutOfBounds = errors.New("chunk: position out of bounds")

// Range is the inclusive range of block Y values a Chunk covers.
type Range [2]int

// Min returns the minimum Y value of the Range.
func (r Range) Min() int { return r[0] }

// Max returns the maximum Y value of the Range.
func (r Range) Max() int { return r[1] }

// Height returns the amount of blocks between the minimum and maximum Y
// values, inclusive on both ends.
func (r Range) Height() int { return r[1] - r[0] + 1 }

// Chunk is the content of one region: a sparse, vertically ordered collection
// of sections covering a fixed 16x16 horizontal footprint. A Chunk holds no
// coordinate of its own and is exclusively owned by the store that created
// it; generators and broadcasters only ever borrow it for the duration of an
// operation.
type Chunk struct {
	r Range
	// sub holds one slot per vertical section. Slots are nil until a block is
	// written into them, keeping untouched air sections free.
	sub []*Section
}

// New initialises an empty chunk covering the given vertical range.
func New(r Range) *Chunk {
	return &Chunk{r: r, sub: make([]*Section, r.Height()>>4)}
}

// Range returns the vertical range covered by the chunk.
func (c *Chunk) Range() Range { return c.r }

// Sub returns the vertical sections of the chunk, ordered bottom to top.
// Slots without content are nil.
func (c *Chunk) Sub() []*Section { return c.sub }

// SubIndex returns the section slot that the block Y value passed falls in.
func (c *Chunk) SubIndex(y int) int { return (y - c.r[0]) >> 4 }

// Block returns the runtime state ID of the block at a position local to the
// chunk's horizontal footprint. y is a global Y value. ErrOutOfBounds is
// returned for Y values outside the chunk's range.
func (c *Chunk) Block(x uint8, y int, z uint8) (uint32, error) {
	if y < c.r[0] || y > c.r[1] {
		return 0, ErrOutOfBounds
	}
	s := c.sub[c.SubIndex(y)]
	if s.Empty() {
		return 0, nil
	}
	lx, ly, lz := LocalPos(int(x), y, int(z))
	return s.Block(lx, ly, lz), nil
}

// SetBlock sets the runtime state ID of the block at a position local to the
// chunk's horizontal footprint. The section containing the position is
// created if it did not yet exist.
func (c *Chunk) SetBlock(x uint8, y int, z uint8, rid uint32) error {
	if y < c.r[0] || y > c.r[1] {
		return ErrOutOfBounds
	}
	i := c.SubIndex(y)
	s := c.sub[i]
	if s == nil {
		if rid == 0 {
			// Writing air into a section that does not exist is a no-op.
			return nil
		}
		s = &Section{}
		c.sub[i] = s
	}
	lx, ly, lz := LocalPos(int(x), y, int(z))
	s.SetBlock(lx, ly, lz, rid)
	return nil
}

// Biome returns the biome ID at a position local to the chunk's horizontal
// footprint.
func (c *Chunk) Biome(x uint8, y int, z uint8) (uint32, error) {
	if y < c.r[0] || y > c.r[1] {
		return 0, ErrOutOfBounds
	}
	s := c.sub[c.SubIndex(y)]
	if s == nil {
		return 0, nil
	}
	lx, ly, lz := LocalPos(int(x), y, int(z))
	return s.Biome(lx, ly, lz), nil
}

// SetBiome sets the biome ID at a position local to the chunk's horizontal
// footprint.
func (c *Chunk) SetBiome(x uint8, y int, z uint8, b uint32) error {
	if y < c.r[0] || y > c.r[1] {
		return ErrOutOfBounds
	}
	i := c.SubIndex(y)
	s := c.sub[i]
	if s == nil {
		s = &Section{}
		c.sub[i] = s
	}
	lx, ly, lz := LocalPos(int(x), y, int(z))
	s.SetBiome(lx, ly, lz, b)
	return nil
}

// HighestBlock returns the global Y value of the highest non-air block in the
// column at the local x and z passed, or the minimum of the range if the
// column holds no blocks.
func (c *Chunk) HighestBlock(x, z uint8) int {
	for i := len(c.sub) - 1; i >= 0; i-- {
		s := c.sub[i]
		if s.Empty() {
			continue
		}
		base := c.r[0] + i<<4
		for ly := 15; ly >= 0; ly-- {
			if s.Block(x&0xf, uint8(ly), z&0xf) != 0 {
				return base + ly
			}
		}
	}
	return c.r[0]
}

// Clone returns a deep copy of the chunk that shares no state with the
// original. It is used to snapshot a chunk under a short-held lock so that
// serialisation and persistence I/O can happen without the lock.
func (c *Chunk) Clone() *Chunk {
	cl := &Chunk{r: c.r, sub: make([]*Section, len(c.sub))}
	for i, s := range c.sub {
		if s == nil {
			continue
		}
		dup := *s
		cl.sub[i] = &dup
	}
	return cl
}
