// Package block implements the blocks that may be found in a world, together
// with their light, tick and block entity behaviour.
package block

import (
	"github.com/tidewater-mc/tidewater/server/world"
)

// transparent is embedded by blocks that do not obstruct light at all.
type transparent struct{}

// LightDiffusionLevel ...
func (transparent) LightDiffusionLevel() uint8 {
	return 0
}

func init() {
	world.RegisterBlock(Air{})
	world.RegisterBlock(Stone{})
	world.RegisterBlock(Grass{})
	world.RegisterBlock(Dirt{})
	world.RegisterBlock(Water{})
	world.RegisterBlock(Sand{})
	world.RegisterBlock(Gravel{})
	world.RegisterBlock(Leaves{})
	world.RegisterBlock(Torch{})
	world.RegisterBlock(Chest{})
	world.RegisterBlock(Glowstone{})
	world.RegisterBlock(Bedrock{})
}
