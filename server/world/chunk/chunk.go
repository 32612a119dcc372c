package chunk

// Chunk is a segment of the world of size 16x16 blocks, spanning the full
// build height of the world. It holds the block ids, block metadata and the
// two light channels of every cell, along with a height map used for sky
// light calculation.
type Chunk struct {
	// blocks holds the block id of every cell, indexed by (x<<11 | z<<7 | y).
	blocks [Width * Width * Height]uint8
	// meta, skyLight and blockLight hold a nibble per cell, packed two cells
	// per byte with the same indexing as blocks.
	meta       nibbleArray
	skyLight   nibbleArray
	blockLight nibbleArray
	// heightMap holds, for every column, one more than the Y value of the
	// highest light obstructing block. Cells at or above this value are
	// exposed to the sky.
	heightMap [Width * Width]uint8
}

const (
	// Width is the horizontal size of a chunk in blocks on both the X and Z
	// axis.
	Width = 16
	// Height is the vertical size of a chunk in blocks.
	Height = 128
)

// New returns a new empty chunk. All cells hold block id 0 with full sky
// light, so that newly created chunks are lit before generation fills them.
func New() *Chunk {
	c := &Chunk{}
	for i := range c.skyLight {
		c.skyLight[i] = 0xff
	}
	return c
}

// index returns the cell index of the x, y and z values passed.
func index(x, y, z uint8) uint16 {
	return uint16(x)<<11 | uint16(z)<<7 | uint16(y)
}

// Block returns the block id and metadata of the cell at the position passed.
func (c *Chunk) Block(x, y, z uint8) (id, meta uint8) {
	i := index(x, y, z)
	return c.blocks[i], c.meta.at(i)
}

// SetBlock sets the block id and metadata of the cell at the position passed.
func (c *Chunk) SetBlock(x, y, z, id, meta uint8) {
	i := index(x, y, z)
	c.blocks[i] = id
	c.meta.set(i, meta)
}

// SkyLight returns the sky light value of the cell at the position passed.
// The value returned is always in the range 0-15.
func (c *Chunk) SkyLight(x, y, z uint8) uint8 {
	return c.skyLight.at(index(x, y, z))
}

// SetSkyLight sets the sky light value of the cell at the position passed.
func (c *Chunk) SetSkyLight(x, y, z, v uint8) {
	c.skyLight.set(index(x, y, z), v)
}

// BlockLight returns the block light value of the cell at the position
// passed. The value returned is always in the range 0-15.
func (c *Chunk) BlockLight(x, y, z uint8) uint8 {
	return c.blockLight.at(index(x, y, z))
}

// SetBlockLight sets the block light value of the cell at the position
// passed.
func (c *Chunk) SetBlockLight(x, y, z, v uint8) {
	c.blockLight.set(index(x, y, z), v)
}

// Light returns the combined light value at the position passed: the highest
// of the sky light and block light channels.
func (c *Chunk) Light(x, y, z uint8) uint8 {
	return max(c.SkyLight(x, y, z), c.BlockLight(x, y, z))
}

// Height returns the height map value of the column at the x and z passed:
// one more than the Y value of the highest light obstructing block in the
// column.
func (c *Chunk) Height(x, z uint8) uint8 {
	return c.heightMap[uint16(x)<<4|uint16(z)]
}

// SetHeight sets the height map value of the column at the x and z passed.
func (c *Chunk) SetHeight(x, z, height uint8) {
	c.heightMap[uint16(x)<<4|uint16(z)] = height
}

// HighestBlock returns the Y value of the highest non-air block in the column
// at the x and z passed, or 0 if the column contains only air.
func (c *Chunk) HighestBlock(x, z uint8) uint8 {
	base := uint16(x)<<11 | uint16(z)<<7
	for y := Height - 1; y >= 0; y-- {
		if c.blocks[base|uint16(y)] != 0 {
			return uint8(y)
		}
	}
	return 0
}

// Empty checks if the chunk contains only air blocks.
func (c *Chunk) Empty() bool {
	for _, id := range c.blocks {
		if id != 0 {
			return false
		}
	}
	return true
}
