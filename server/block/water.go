package block

// Water is a still water source block. Light passing through it loses two
// levels per block.
type Water struct{}

// EncodeBlock ...
func (Water) EncodeBlock() (id, meta uint8) {
	return 9, 0
}

// LightDiffusionLevel ...
func (Water) LightDiffusionLevel() uint8 {
	return 2
}

// Leaves are the blocks that make up the canopy of trees. They pass most
// light through, costing a single level per block.
type Leaves struct{}

// EncodeBlock ...
func (Leaves) EncodeBlock() (id, meta uint8) {
	return 18, 0
}

// LightDiffusionLevel ...
func (Leaves) LightDiffusionLevel() uint8 {
	return 1
}
