// Package entity implements the entity types that may live in a world.
package entity

import (
	"github.com/tidewater-mc/tidewater/server/world"
)

// PlayerType is the entity type of player entities. Players are moved by
// their sessions rather than by the world, so the type does not tick.
type PlayerType struct{}

// EncodeEntity ...
func (PlayerType) EncodeEntity() string {
	return "tidewater:player"
}

// NewPlayerData creates the EntityData of a new player entity with the name
// passed, spawning at the world's spawn position.
func NewPlayerData(name string, w *world.World) world.EntityData {
	spawn := w.Spawn()
	return world.EntityData{Pos: spawn.Vec3Centre(), Name: name}
}
