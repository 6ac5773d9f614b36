package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ChunkPos holds the coordinate of a chunk: the X and Z values of the chunk
// divided by 16, rounded down.
type ChunkPos [2]int32

// X returns the X coordinate of the chunk position.
func (p ChunkPos) X() int32 { return p[0] }

// Z returns the Z coordinate of the chunk position.
func (p ChunkPos) Z() int32 { return p[1] }

// BlockPos holds the global position of a block: X, Y and Z values.
type BlockPos [3]int

// X returns the X coordinate of the block position.
func (p BlockPos) X() int { return p[0] }

// Y returns the Y coordinate of the block position.
func (p BlockPos) Y() int { return p[1] }

// Z returns the Z coordinate of the block position.
func (p BlockPos) Z() int { return p[2] }

// chunkPosFromBlockPos returns the position of the chunk a block position
// falls in.
func chunkPosFromBlockPos(pos BlockPos) ChunkPos {
	return ChunkPos{int32(pos[0] >> 4), int32(pos[2] >> 4)}
}

// chunkPosFromVec3 returns the position of the chunk a Vec3 falls in.
func chunkPosFromVec3(vec mgl64.Vec3) ChunkPos {
	return ChunkPos{
		int32(math.Floor(vec[0])) >> 4,
		int32(math.Floor(vec[2])) >> 4,
	}
}
