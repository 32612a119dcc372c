package block

import (
	"math/rand/v2"

	"github.com/tidewater-mc/tidewater/server/block/cube"
	"github.com/tidewater-mc/tidewater/server/world"
)

// Grass is the block covering the surface of the world. It spreads to nearby
// dirt and dies when kept in the dark.
type Grass struct{}

// EncodeBlock ...
func (Grass) EncodeBlock() (id, meta uint8) {
	return 2, 0
}

// RandomTick handles the conversion between grass and dirt. A grass block
// turns into dirt when the light above it drops below 4, and otherwise tries
// to spread to a random nearby dirt block when the light above it is at least
// 9.
func (g Grass) RandomTick(pos cube.Pos, tx *world.Tx, r *rand.Rand) {
	above := pos.Add(cube.Pos{0, 1, 0})
	if above.OutOfBounds(tx.Range()) {
		return
	}
	light, err := tx.Light(above)
	if err != nil {
		return
	}
	if light < 4 {
		_ = tx.SetBlock(pos, Dirt{})
		return
	}
	if light < 9 {
		return
	}
	// Attempt to spread to one random position in the surrounding 3x5x3 box.
	target := pos.Add(cube.Pos{r.IntN(3) - 1, r.IntN(5) - 3, r.IntN(3) - 1})
	if target.OutOfBounds(tx.Range()) {
		return
	}
	b, err := tx.Block(target)
	if err != nil {
		return
	}
	if _, ok := b.(Dirt); !ok {
		return
	}
	targetAbove := target.Add(cube.Pos{0, 1, 0})
	if targetAbove.OutOfBounds(tx.Range()) {
		return
	}
	if light, err := tx.Light(targetAbove); err != nil || light < 4 {
		return
	}
	_ = tx.SetBlock(target, Grass{})
}

// Dirt is the block commonly found below grass.
type Dirt struct{}

// EncodeBlock ...
func (Dirt) EncodeBlock() (id, meta uint8) {
	return 3, 0
}
