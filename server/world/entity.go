package world

import (
	"github.com/go-gl/mathgl/mgl64"
)

// EntityType is the type of an Entity, such as an item or a player. An
// EntityType value carries the kind specific state of a single entity, so a
// new value is used for every entity spawned.
type EntityType interface {
	// EncodeEntity returns the string id of the entity type, such as
	// "tidewater:item".
	EncodeEntity() string
}

// TickerEntityType is implemented by entity types that require ticking every
// world tick, such as projectiles and items affected by gravity.
type TickerEntityType interface {
	EntityType
	// Tick ticks the entity passed. The entity is guaranteed to still be in
	// the world when Tick is called.
	Tick(e *EntityHandle, tx *Tx, current int64)
}

// EntityData holds the state of an entity shared by all entity types.
type EntityData struct {
	// Pos is the position of the entity in the world.
	Pos mgl64.Vec3
	// Vel is the current velocity of the entity per tick.
	Vel mgl64.Vec3
	// Name is the display name of the entity. It is generally only set for
	// players.
	Name string
	// Age is the number of ticks the entity has existed for.
	Age int64
}

// EntityHandle is the live representation of an entity in a world. Handles
// are created exclusively through Tx.AddEntity, which assigns every entity a
// unique id that is never reused for the lifetime of the process. The world
// owns the handle; chunks only hold non-owning references to it.
type EntityHandle struct {
	id   int64
	t    EntityType
	data EntityData

	// chunkPos is the position of the chunk whose membership set currently
	// holds this handle. It is maintained by the world whenever the entity
	// moves.
	chunkPos ChunkPos
	ticker   TickerEntityType
}

// newEntityHandle creates an EntityHandle for the entity type and data
// passed.
func newEntityHandle(id int64, t EntityType, data EntityData) *EntityHandle {
	e := &EntityHandle{id: id, t: t, data: data}
	if ticker, ok := t.(TickerEntityType); ok {
		e.ticker = ticker
	}
	return e
}

// ID returns the unique id of the entity. Entity ids are assigned
// monotonically and are never reused within the lifetime of a process.
func (e *EntityHandle) ID() int64 {
	return e.id
}

// Type returns the EntityType of the entity.
func (e *EntityHandle) Type() EntityType {
	return e.t
}

// Position returns the current position of the entity in the world.
func (e *EntityHandle) Position() mgl64.Vec3 {
	return e.data.Pos
}

// Velocity returns the current velocity of the entity per tick.
func (e *EntityHandle) Velocity() mgl64.Vec3 {
	return e.data.Vel
}

// Name returns the display name of the entity, if any.
func (e *EntityHandle) Name() string {
	return e.data.Name
}

// Age returns the number of ticks the entity has existed in the world for.
func (e *EntityHandle) Age() int64 {
	return e.data.Age
}

// ChunkPos returns the position of the chunk whose membership set currently
// holds the entity.
func (e *EntityHandle) ChunkPos() ChunkPos {
	return e.chunkPos
}
