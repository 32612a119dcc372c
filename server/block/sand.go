package block

import (
	"math/rand/v2"

	"github.com/tidewater-mc/tidewater/server/block/cube"
	"github.com/tidewater-mc/tidewater/server/world"
)

// Sand is a gravity affected block. When the block below it is removed, the
// sand falls down until it rests on a solid block again.
type Sand struct{}

// EncodeBlock ...
func (Sand) EncodeBlock() (id, meta uint8) {
	return 12, 0
}

// ScheduledTick makes the sand fall if it is no longer supported.
func (s Sand) ScheduledTick(pos cube.Pos, tx *world.Tx, _ *rand.Rand) {
	fall(s, pos, tx)
}

// NeighbourUpdateTick schedules a fall check when a block next to the sand
// changes, so removing its support makes it drop.
func (s Sand) NeighbourUpdateTick(pos, _ cube.Pos, tx *world.Tx) {
	tx.ScheduleBlockUpdate(pos, s, 1)
}

// Gravel is a gravity affected block like sand.
type Gravel struct{}

// EncodeBlock ...
func (Gravel) EncodeBlock() (id, meta uint8) {
	return 13, 0
}

// ScheduledTick makes the gravel fall if it is no longer supported.
func (g Gravel) ScheduledTick(pos cube.Pos, tx *world.Tx, _ *rand.Rand) {
	fall(g, pos, tx)
}

// NeighbourUpdateTick schedules a fall check when a block next to the gravel
// changes.
func (g Gravel) NeighbourUpdateTick(pos, _ cube.Pos, tx *world.Tx) {
	tx.ScheduleBlockUpdate(pos, g, 1)
}

// fall moves a gravity affected block down by one if the block below it is
// air. Setting the block at the new position schedules the next fall step, so
// a column of falling blocks descends one block per tick.
func fall(b world.Block, pos cube.Pos, tx *world.Tx) {
	below := pos.Add(cube.Pos{0, -1, 0})
	if below.OutOfBounds(tx.Range()) {
		return
	}
	under, err := tx.Block(below)
	if err != nil {
		return
	}
	if _, ok := under.(Air); !ok {
		return
	}
	if err := tx.SetBlock(pos, Air{}); err != nil {
		return
	}
	_ = tx.SetBlock(below, b)
}
