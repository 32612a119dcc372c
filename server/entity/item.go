package entity

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/tidewater-mc/tidewater/server/block/cube"
	"github.com/tidewater-mc/tidewater/server/world"
)

// itemLifetime is the number of ticks after which a dropped item despawns.
const itemLifetime = 6000

// ItemType is the entity type of dropped item stacks. Items fall under
// gravity and despawn after five minutes.
type ItemType struct {
	// ID is the numeric id of the item the stack holds.
	ID int16
	// Count is the number of items in the stack.
	Count uint8
}

// EncodeEntity ...
func (ItemType) EncodeEntity() string {
	return "tidewater:item"
}

// Tick applies gravity to the item and removes it once it reaches the end of
// its lifetime.
func (ItemType) Tick(e *world.EntityHandle, tx *world.Tx, _ int64) {
	if e.Age() >= itemLifetime {
		_ = tx.RemoveEntity(e)
		return
	}
	pos, vel := applyGravity(e, tx, 0.04, 0.98)
	_ = tx.MoveEntity(e, pos, vel)
}

// applyGravity computes the next position and velocity of a falling entity,
// settling the entity on the ground when it hits a non-air block.
func applyGravity(e *world.EntityHandle, tx *world.Tx, gravity, drag float64) (mgl64.Vec3, mgl64.Vec3) {
	vel := e.Velocity()
	vel[1] -= gravity
	vel = vel.Mul(drag)
	pos := e.Position().Add(vel)

	if pos[1] < float64(tx.Range().Min()) {
		pos[1] = float64(tx.Range().Min())
		vel = mgl64.Vec3{}
		return pos, vel
	}
	b, err := tx.Block(cube.PosFromVec3(pos))
	if err != nil {
		// The entity moved into an unloaded chunk; freeze it until the chunk
		// is available again.
		return e.Position(), mgl64.Vec3{}
	}
	if id, _ := b.EncodeBlock(); id != 0 {
		// Settle on top of the block the entity fell into.
		pos[1] = float64(int(pos[1]) + 1)
		vel = mgl64.Vec3{vel[0] * 0.6, 0, vel[2] * 0.6}
	}
	return pos, vel
}
