package world

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/tidewater-mc/tidewater/server/block/cube"
)

// ChunkPos holds the position of a chunk. The first value is the X
// coordinate, the second the Z coordinate. A chunk position is the block
// position of its lowest corner divided by 16.
type ChunkPos [2]int32

// X returns the X coordinate of the chunk position.
func (p ChunkPos) X() int32 {
	return p[0]
}

// Z returns the Z coordinate of the chunk position.
func (p ChunkPos) Z() int32 {
	return p[1]
}

// chunkPosFromBlockPos returns the position of the chunk that the block
// position passed is located in.
func chunkPosFromBlockPos(p cube.Pos) ChunkPos {
	return ChunkPos{int32(p[0] >> 4), int32(p[2] >> 4)}
}

// chunkPosFromVec3 returns the position of the chunk that the vec3 passed is
// located in.
func chunkPosFromVec3(vec3 mgl64.Vec3) ChunkPos {
	return ChunkPos{int32(cube.PosFromVec3(vec3)[0] >> 4), int32(cube.PosFromVec3(vec3)[2] >> 4)}
}
