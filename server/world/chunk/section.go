package chunk

// Section is a fixed 16x16x16 volume of block state IDs plus biome data. A
// Section is exclusively owned by its parent Chunk and is never shared
// between chunks.
type Section struct {
	// blocks holds a runtime state ID per block, indexed by SectionIndex.
	blocks [4096]uint32
	// biomes holds a biome ID per 4x4x4 cell, the granularity at which biome
	// data is stored within a section.
	biomes [64]uint32
	// count is the number of non-air blocks in the section, used to decide
	// whether the section may be skipped during iteration and serialisation.
	count uint16
}

// Block returns the runtime state ID of the block at a local position.
func (s *Section) Block(x, y, z uint8) uint32 {
	return s.blocks[PackIndex(x, y, z)]
}

// SetBlock sets the runtime state ID of the block at a local position.
func (s *Section) SetBlock(x, y, z uint8, rid uint32) {
	i := PackIndex(x, y, z)
	before := s.blocks[i]
	if before == rid {
		return
	}
	if before == 0 {
		s.count++
	} else if rid == 0 {
		s.count--
	}
	s.blocks[i] = rid
}

// Biome returns the biome ID at a local position.
func (s *Section) Biome(x, y, z uint8) uint32 {
	return s.biomes[biomeIndex(x, y, z)]
}

// SetBiome sets the biome ID at a local position. Biomes are stored per 4x4x4
// cell, so setting one position affects the whole cell containing it.
func (s *Section) SetBiome(x, y, z uint8, b uint32) {
	s.biomes[biomeIndex(x, y, z)] = b
}

// Empty checks if the section contains only air blocks.
func (s *Section) Empty() bool {
	return s == nil || s.count == 0
}

func biomeIndex(x, y, z uint8) uint8 {
	return (y>>2)<<4 | (z>>2)<<2 | x>>2
}
