package world

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/tidewater-mc/tidewater/server/block/cube"
	"github.com/tidewater-mc/tidewater/server/world/chunk"
)

// Viewer is a viewer in the world. It can view changes that are made in the
// world, such as the changing of blocks, entities moving and light being
// recalculated. Viewers are only ever called from the world's simulation
// goroutine; implementations that relay changes elsewhere must do so without
// blocking.
type Viewer interface {
	// ViewChunk views a chunk that entered the viewer's visible set. The full
	// chunk contents are passed, along with the block entities in it.
	ViewChunk(pos ChunkPos, c *chunk.Chunk, blockEntities map[cube.Pos]BlockEntity)
	// HideChunk hides a chunk that left the viewer's visible set. The viewer
	// should release any state associated with the chunk.
	HideChunk(pos ChunkPos)
	// ViewBlockUpdate views the updating of a block within the visible set.
	ViewBlockUpdate(pos cube.Pos, b Block)
	// ViewBlockEntityData views a change of the extra data of a block entity,
	// such as the contents of a container.
	ViewBlockEntityData(pos cube.Pos, data map[string]any)
	// ViewLightUpdate views a change of the light values of a cell within the
	// visible set.
	ViewLightUpdate(pos cube.Pos, sky, block uint8)
	// ViewEntity views an entity that entered the viewer's visible set.
	ViewEntity(e *EntityHandle)
	// HideEntity stops viewing an entity that left the visible set.
	HideEntity(e *EntityHandle)
	// ViewEntityMovement views the movement of an entity that remains within
	// the visible set.
	ViewEntityMovement(e *EntityHandle, pos, vel mgl64.Vec3)
	// ViewTime views a change of the world time.
	ViewTime(t int)
}

// NopViewer is a Viewer implementation that does not do anything when one of
// its methods are called. It may be embedded by other structs to avoid having
// to implement each method.
type NopViewer struct{}

// Compile time check to make sure NopViewer implements Viewer.
var _ Viewer = NopViewer{}

func (NopViewer) ViewChunk(ChunkPos, *chunk.Chunk, map[cube.Pos]BlockEntity) {}
func (NopViewer) HideChunk(ChunkPos)                                         {}
func (NopViewer) ViewBlockUpdate(cube.Pos, Block)                            {}
func (NopViewer) ViewBlockEntityData(cube.Pos, map[string]any)               {}
func (NopViewer) ViewLightUpdate(cube.Pos, uint8, uint8)                     {}
func (NopViewer) ViewEntity(*EntityHandle)                                   {}
func (NopViewer) HideEntity(*EntityHandle)                                   {}
func (NopViewer) ViewEntityMovement(*EntityHandle, mgl64.Vec3, mgl64.Vec3)   {}
func (NopViewer) ViewTime(int)                                               {}
