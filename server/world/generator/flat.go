// Package generator implements the world.Generator implementations bundled
// with the server.
package generator

import (
	"github.com/tidewater-mc/tidewater/server/world"
	"github.com/tidewater-mc/tidewater/server/world/chunk"
)

// Flat generates completely flat chunks from a fixed column of layers.
type Flat struct {
	// Layers is the column of blocks the chunk is filled with, ordered from
	// the bottom of the world upwards.
	Layers []world.Block
}

// NewFlat creates a Flat generator with the classic layer column of bedrock,
// dirt and grass.
func NewFlat(bedrock, dirt, grass world.Block) Flat {
	return Flat{Layers: []world.Block{bedrock, dirt, dirt, grass}}
}

// GenerateChunk ...
func (f Flat) GenerateChunk(_ world.ChunkPos, c *chunk.Chunk) {
	for x := uint8(0); x < chunk.Width; x++ {
		for z := uint8(0); z < chunk.Width; z++ {
			for y, b := range f.Layers {
				id, meta := b.EncodeBlock()
				c.SetBlock(x, uint8(y), z, id, meta)
			}
			c.SetHeight(x, z, uint8(len(f.Layers)))
		}
	}
}
