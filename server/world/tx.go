package world

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/tidewater-mc/tidewater/server/block/cube"
)

// Tx represents a synchronised transaction performed on a World. All reads
// and writes of world state go through a Tx, guaranteeing they happen on the
// world's simulation goroutine. A Tx is only valid for the duration of the
// transaction function it was passed to; use after the transaction finishes
// panics.
type Tx struct {
	w      *World
	closed bool
}

// closedPanicMessage is the panic raised when a Tx is used after the
// transaction it belongs to finished.
const closedPanicMessage = "world.Tx: use of transaction after transaction finishes is not permitted"

// close invalidates the transaction.
func (tx *Tx) close() {
	tx.closed = true
}

func (tx *Tx) wld() *World {
	if tx.closed {
		panic(closedPanicMessage)
	}
	return tx.w
}

// World returns the World that the transaction operates on.
func (tx *Tx) World() *World {
	return tx.wld()
}

// Range returns the height range of the world.
func (tx *Tx) Range() cube.Range {
	return tx.wld().Range()
}

// CurrentTick returns the current tick of the world.
func (tx *Tx) CurrentTick() int64 {
	return tx.wld().set.CurrentTick
}

// Block reads the block at the position passed. If the position is not
// within a loaded chunk, an error wrapping ErrUnloadedChunk is returned.
func (tx *Tx) Block(pos cube.Pos) (Block, error) {
	return tx.wld().blockAt(pos)
}

// SetBlock writes a block to the position passed. Nil may be passed to set
// the position to air. If the position is not within a loaded chunk, an
// error wrapping ErrUnloadedChunk is returned and the world is unchanged.
func (tx *Tx) SetBlock(pos cube.Pos, b Block) error {
	return tx.wld().setBlock(pos, b)
}

// Light returns the combined light level at the position passed, the highest
// of sky light and block light. The value is always in the range 0-15.
func (tx *Tx) Light(pos cube.Pos) (uint8, error) {
	return tx.wld().lightAt(pos)
}

// ChunkLoaded checks if the chunk at the position passed is currently loaded
// and simulated.
func (tx *Tx) ChunkLoaded(pos ChunkPos) bool {
	_, ok := tx.wld().column(pos)
	return ok
}

// UnloadChunk evicts the chunk at the position passed, saving it first. An
// error wrapping ErrChunkBusy is returned if the chunk is still referenced
// by entities, loaders, scheduled ticks or pending light work.
func (tx *Tx) UnloadChunk(pos ChunkPos) error {
	return tx.wld().unloadChunk(pos)
}

// BlockEntity returns the block entity at the position passed, if any.
func (tx *Tx) BlockEntity(pos cube.Pos) (BlockEntity, bool) {
	c, ok := tx.wld().column(chunkPosFromBlockPos(pos))
	if !ok {
		return nil, false
	}
	be, ok := c.BlockEntities[pos]
	return be, ok
}

// UpdateBlockEntity shows a change of the block entity at the position
// passed to all viewers of its chunk and marks the chunk for saving.
func (tx *Tx) UpdateBlockEntity(pos cube.Pos, be BlockEntity) {
	tx.wld().broadcastBlockEntityData(pos, be)
}

// ScheduleBlockUpdate schedules a block update at the position passed, to be
// performed after the delay in ticks passed. Multiple updates may be pending
// for the same position; each fires independently.
func (tx *Tx) ScheduleBlockUpdate(pos cube.Pos, b Block, delay int64) {
	tx.wld().scheduleBlockUpdate(pos, b, delay)
}

// CancelBlockUpdates removes all pending scheduled block updates at the
// position passed, returning the number of entries removed. It is typically
// called when a block is destroyed before its scheduled action fires.
func (tx *Tx) CancelBlockUpdates(pos cube.Pos) int {
	return tx.wld().scheduledUpdates.cancelAt(pos)
}

// AddEntity spawns an entity of the type passed into the world and returns
// its handle. The id assigned to the entity is unique for the lifetime of
// the process.
func (tx *Tx) AddEntity(t EntityType, data EntityData) *EntityHandle {
	return tx.wld().addEntity(t, data)
}

// RemoveEntity despawns the entity passed. An error wrapping
// ErrUnknownEntity is returned if the entity is not in the world.
func (tx *Tx) RemoveEntity(e *EntityHandle) error {
	return tx.wld().removeEntity(e)
}

// MoveEntity updates the position and velocity of the entity passed,
// migrating its chunk membership if the movement crosses a chunk boundary.
func (tx *Tx) MoveEntity(e *EntityHandle, pos, vel mgl64.Vec3) error {
	return tx.wld().moveEntity(e, pos, vel)
}

// EntitiesIn returns the entities whose position is currently within the
// chunk at the position passed.
func (tx *Tx) EntitiesIn(pos ChunkPos) []*EntityHandle {
	return tx.wld().entitiesIn(pos)
}
