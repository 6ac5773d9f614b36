package world

import (
	"sync"

	"github.com/axolotl-mc/axolotl/server/world/chunk"
)

// Column is a resident chunk column together with its bookkeeping. The lock
// guards the chunk data and the modified flag; it is held only for in-memory
// reads and writes, never across broadcasting or provider I/O.
type Column struct {
	mu       sync.RWMutex
	chunk    *chunk.Chunk
	modified bool
}

func newColumn(c *chunk.Chunk) *Column {
	return &Column{chunk: c}
}

// Block reads the block state at a position within the column.
func (col *Column) Block(x, y, z int) (uint32, error) {
	col.mu.RLock()
	defer col.mu.RUnlock()
	return col.chunk.Block(uint8(x&15), y, uint8(z&15))
}

// Biome reads the biome at a position within the column.
func (col *Column) Biome(x, y, z int) (uint32, error) {
	col.mu.RLock()
	defer col.mu.RUnlock()
	return col.chunk.Biome(uint8(x&15), y, uint8(z&15))
}

// HighestBlock returns the highest non-air Y at the column-local x, z, or the
// bottom of the range for an all-air column.
func (col *Column) HighestBlock(x, z int) int {
	col.mu.RLock()
	defer col.mu.RUnlock()
	return col.chunk.HighestBlock(uint8(x&15), uint8(z&15))
}

// setBlock writes a block state and marks the column dirty. The error is
// non-nil only for out-of-range Y.
func (col *Column) setBlock(x, y, z int, state uint32) error {
	col.mu.Lock()
	defer col.mu.Unlock()
	if err := col.chunk.SetBlock(uint8(x&15), y, uint8(z&15), state); err != nil {
		return err
	}
	col.modified = true
	return nil
}

// setBlocks applies a batch of column-local edits under a single lock hold.
// The batch is all-or-nothing: bounds are validated up front, so a rejected
// batch leaves the column untouched and nothing partially applied reaches the
// viewers.
func (col *Column) setBlocks(edits []BlockEdit) error {
	col.mu.Lock()
	defer col.mu.Unlock()
	r := col.chunk.Range()
	for _, e := range edits {
		if e.Pos.Y() < r.Min() || e.Pos.Y() > r.Max() {
			return chunk.ErrOutOfBounds
		}
	}
	for _, e := range edits {
		if err := col.chunk.SetBlock(uint8(e.Pos.X()&15), e.Pos.Y(), uint8(e.Pos.Z()&15), e.State); err != nil {
			return err
		}
		col.modified = true
	}
	return nil
}

// snapshot returns a deep copy of the chunk data and whether the column was
// modified since the last snapshot, clearing the flag. The copy lets the
// caller run provider I/O without holding the lock.
func (col *Column) snapshot() (*chunk.Chunk, bool) {
	col.mu.Lock()
	defer col.mu.Unlock()
	mod := col.modified
	col.modified = false
	return col.chunk.Clone(), mod
}
