package generator

import (
	"github.com/aquilax/go-perlin"
	"github.com/tidewater-mc/tidewater/server/world"
	"github.com/tidewater-mc/tidewater/server/world/chunk"
)

const (
	// seaLevel is the height up to which terrain below it is filled with
	// water.
	seaLevel = 62
	// baseHeight is the average terrain surface height.
	baseHeight = 64
	// heightAmplitude is the maximum deviation of the surface from
	// baseHeight.
	heightAmplitude = 24
	// noiseScale is the horizontal scale of the terrain noise. Larger values
	// produce smoother terrain.
	noiseScale = 172.0
)

// Terrain generates rolling hill terrain from perlin noise, with water filling
// the areas below sea level and beaches where the terrain meets it.
type Terrain struct {
	noise *perlin.Perlin

	stone, dirt, grass, sand, water, bedrock world.Block
}

// NewTerrain creates a Terrain generator seeded with the seed passed.
func NewTerrain(seed int64, stone, dirt, grass, sand, water, bedrock world.Block) *Terrain {
	return &Terrain{
		noise:   perlin.NewPerlin(2, 2, 3, seed),
		stone:   stone,
		dirt:    dirt,
		grass:   grass,
		sand:    sand,
		water:   water,
		bedrock: bedrock,
	}
}

// GenerateChunk ...
func (t *Terrain) GenerateChunk(pos world.ChunkPos, c *chunk.Chunk) {
	baseX, baseZ := float64(pos[0])*chunk.Width, float64(pos[1])*chunk.Width
	for x := uint8(0); x < chunk.Width; x++ {
		for z := uint8(0); z < chunk.Width; z++ {
			n := t.noise.Noise2D((baseX+float64(x))/noiseScale, (baseZ+float64(z))/noiseScale)
			surface := baseHeight + int(n*heightAmplitude)
			if surface < 1 {
				surface = 1
			} else if surface > chunk.Height-2 {
				surface = chunk.Height - 2
			}
			t.fillColumn(c, x, z, surface)
		}
	}
}

// fillColumn fills a single column of the chunk up to the surface height
// passed, picking the surface blocks based on its relation to sea level.
func (t *Terrain) fillColumn(c *chunk.Chunk, x, z uint8, surface int) {
	put := func(y int, b world.Block) {
		id, meta := b.EncodeBlock()
		c.SetBlock(x, uint8(y), z, id, meta)
	}
	put(0, t.bedrock)
	for y := 1; y < surface-3; y++ {
		put(y, t.stone)
	}
	beach := surface <= seaLevel+1
	for y := max(surface-3, 1); y < surface; y++ {
		if beach {
			put(y, t.sand)
		} else {
			put(y, t.dirt)
		}
	}
	top := surface
	if beach {
		put(surface, t.sand)
	} else {
		put(surface, t.grass)
	}
	for y := surface + 1; y <= seaLevel; y++ {
		put(y, t.water)
		top = y
	}
	c.SetHeight(x, z, uint8(top+1))
}
