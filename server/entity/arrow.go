package entity

import (
	"github.com/tidewater-mc/tidewater/server/world"
)

// arrowLifetime is the number of ticks after which a stuck or resting arrow
// despawns.
const arrowLifetime = 1200

// ArrowType is the entity type of arrow projectiles.
type ArrowType struct{}

// EncodeEntity ...
func (ArrowType) EncodeEntity() string {
	return "tidewater:arrow"
}

// Tick moves the arrow along its trajectory, applying gravity and drag, and
// removes it at the end of its lifetime.
func (ArrowType) Tick(e *world.EntityHandle, tx *world.Tx, _ int64) {
	if e.Age() >= arrowLifetime {
		_ = tx.RemoveEntity(e)
		return
	}
	pos, vel := applyGravity(e, tx, 0.05, 0.99)
	_ = tx.MoveEntity(e, pos, vel)
}
