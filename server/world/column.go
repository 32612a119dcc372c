package world

import (
	"sync/atomic"

	"github.com/tidewater-mc/tidewater/server/block/cube"
	"github.com/tidewater-mc/tidewater/server/world/chunk"
)

// Column holds a chunk currently loaded by a world and the world specific
// state attached to it: the block entities in the chunk, the membership set
// of entities whose position falls within its bounds and the viewers that
// observe the chunk.
type Column struct {
	*chunk.Chunk

	// Entities holds non-owning references to the entities currently located
	// in the chunk. The world maintains the invariant that every entity
	// appears in the membership set of exactly the column containing its
	// position.
	Entities []*EntityHandle
	// BlockEntities maps block positions within the chunk to the extra state
	// attached to the blocks at those positions.
	BlockEntities map[cube.Pos]BlockEntity

	viewers map[Viewer]struct{}
	loaders []*Loader

	modified bool
	// idleSince is the tick at which the column last lost its loaders. It is
	// used to give unobserved chunks a grace period before eviction.
	idleSince int64

	ready   atomic.Bool
	readyCh chan struct{}
}

// newColumn returns a new Column wrapping the chunk passed. The column is not
// yet marked ready; load and generation workers fill the chunk first.
func newColumn(c *chunk.Chunk) *Column {
	return &Column{
		Chunk:         c,
		BlockEntities: map[cube.Pos]BlockEntity{},
		viewers:       map[Viewer]struct{}{},
		readyCh:       make(chan struct{}),
	}
}

// Ready checks if the column has finished loading or generating. Block
// operations on columns that are not ready fail with ErrUnloadedChunk.
func (c *Column) Ready() bool {
	return c.ready.Load()
}

// markReady marks the column as ready, unblocking any goroutine waiting in
// waitReady. Calling markReady more than once is a no-op.
func (c *Column) markReady() {
	if c.ready.CompareAndSwap(false, true) {
		close(c.readyCh)
	}
}

// waitReady blocks until the column is marked ready.
func (c *Column) waitReady() {
	<-c.readyCh
}

// forEachViewer calls the function passed for every viewer currently viewing
// the column.
func (c *Column) forEachViewer(f func(v Viewer)) {
	for v := range c.viewers {
		f(v)
	}
}
