package session

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/tidewater-mc/tidewater/server/block/cube"
	"github.com/tidewater-mc/tidewater/server/world"
	"github.com/tidewater-mc/tidewater/server/world/chunk"
)

// Compile time check to make sure Session implements world.Viewer.
var _ world.Viewer = (*Session)(nil)

// ViewChunk sends the full chunk payload to the client. The payload is
// encoded on the simulation goroutine; the write itself happens on the
// session's writer goroutine.
func (s *Session) ViewChunk(pos world.ChunkPos, c *chunk.Chunk, blockEntities map[cube.Pos]world.BlockEntity) {
	var entities []map[string]any
	for _, be := range blockEntities {
		entities = append(entities, be.EncodeBlockEntity())
	}
	s.send(chunkMessage{Type: "chunk", X: pos[0], Z: pos[1], Payload: c.Encode(), BlockEntities: entities})
}

// HideChunk tells the client to discard the chunk at the position passed.
func (s *Session) HideChunk(pos world.ChunkPos) {
	s.send(hideChunkMessage{Type: "hide_chunk", X: pos[0], Z: pos[1]})
}

// ViewBlockUpdate sends a single block change to the client.
func (s *Session) ViewBlockUpdate(pos cube.Pos, b world.Block) {
	id, meta := b.EncodeBlock()
	s.send(blockUpdateMessage{Type: "block_update", Pos: [3]int(pos), Block: blockInfo{ID: id, Meta: meta}})
}

// ViewBlockEntityData sends the updated state of a block entity to the
// client.
func (s *Session) ViewBlockEntityData(pos cube.Pos, data map[string]any) {
	s.send(blockEntityMessage{Type: "block_entity", Pos: [3]int(pos), Data: data})
}

// ViewLightUpdate sends the new light values of a single position to the
// client.
func (s *Session) ViewLightUpdate(pos cube.Pos, sky, block uint8) {
	s.send(lightUpdateMessage{Type: "light_update", Pos: [3]int(pos), Sky: sky, Block: block})
}

// ViewEntity shows an entity to the client.
func (s *Session) ViewEntity(e *world.EntityHandle) {
	s.send(entityMessage{
		Type:       "entity_add",
		EntityID:   e.ID(),
		EntityType: e.Type().EncodeEntity(),
		Name:       e.Name(),
		Pos:        [3]float64(e.Position()),
		Vel:        [3]float64(e.Velocity()),
	})
}

// HideEntity removes an entity from the client's view.
func (s *Session) HideEntity(e *world.EntityHandle) {
	s.send(entityMessage{Type: "entity_remove", EntityID: e.ID()})
}

// ViewEntityMovement sends the new position and velocity of an entity to the
// client.
func (s *Session) ViewEntityMovement(e *world.EntityHandle, pos, vel mgl64.Vec3) {
	s.send(entityMessage{Type: "entity_move", EntityID: e.ID(), Pos: [3]float64(pos), Vel: [3]float64(vel)})
}

// ViewTime sends the current world time to the client.
func (s *Session) ViewTime(t int) {
	s.send(timeMessage{Type: "time", Time: t})
}
