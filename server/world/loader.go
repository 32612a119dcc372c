package world

import (
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

// Loader tracks the square of chunks around a position that a Viewer should
// see. As the position moves, the loader computes which chunk positions enter
// and leave the view and requests or hides them accordingly. Chunk requests
// are asynchronous: a chunk that is not yet ready stays queued and is sent in
// a later Load call once its data arrived.
type Loader struct {
	r int
	w *World

	viewer Viewer

	pos       ChunkPos
	moved     bool
	loadQueue []ChunkPos
	loaded    map[ChunkPos]*Column

	closed bool
}

// NewLoader creates a new loader using the chunk radius passed. Chunks beyond
// this Chebyshev radius from the loader's position are never loaded on its
// behalf. The Viewer passed receives the chunk and entity views the loader
// produces.
func NewLoader(chunkRadius int, world *World, v Viewer) *Loader {
	l := &Loader{r: chunkRadius, w: world, viewer: v, loaded: map[ChunkPos]*Column{}}
	world.addWorldViewer(l)
	return l
}

// World returns the World the loader operates in.
func (l *Loader) World() *World {
	return l.w
}

// ChangeRadius changes the radius of the Loader. Chunks beyond the new radius
// are hidden immediately; chunks newly within it are queued for loading.
func (l *Loader) ChangeRadius(tx *Tx, new int) {
	l.r = new
	l.evictOutside(tx)
	l.populateLoadQueue()
}

// Move moves the loader to the world position passed. If the chunk position
// derived from it differs from the current one, the view is recomputed:
// chunks leaving the square are hidden and chunks entering it are queued.
func (l *Loader) Move(tx *Tx, pos mgl64.Vec3) {
	chunkPos := chunkPosFromVec3(pos)
	if chunkPos == l.pos && l.moved {
		return
	}
	l.pos, l.moved = chunkPos, true
	l.evictOutside(tx)
	l.populateLoadQueue()
}

// Load requests up to n chunks that entered the loader's view, sending every
// one that is ready to the viewer. Chunks whose data has not arrived yet do
// not count against n and remain queued. Load does nothing if the loader was
// closed.
func (l *Loader) Load(tx *Tx, n int) {
	if l.closed || l.w == nil {
		return
	}
	w := tx.World()
	sent := 0
	pending := l.loadQueue[:0]
	for i, pos := range l.loadQueue {
		if sent >= n {
			pending = append(pending, l.loadQueue[i:]...)
			break
		}
		c := w.requestChunk(pos)
		if !c.Ready() {
			pending = append(pending, pos)
			continue
		}
		l.loaded[pos] = c
		w.addViewer(c, l)
		l.viewer.ViewChunk(pos, c.Chunk, c.BlockEntities)
		sent++
	}
	l.loadQueue = pending
}

// Chunk attempts to return a chunk at the chunk position passed. The second
// return value is false if no chunk at that position is loaded by the loader.
func (l *Loader) Chunk(pos ChunkPos) (*Column, bool) {
	c, ok := l.loaded[pos]
	return c, ok
}

// AmountLoaded returns the number of chunks currently shown to the viewer.
func (l *Loader) AmountLoaded() int {
	return len(l.loaded)
}

// Close closes the loader. All chunks it showed are hidden from the viewer
// and the loader detaches from the world. It is no longer usable afterwards.
func (l *Loader) Close(tx *Tx) {
	for pos := range l.loaded {
		l.hide(tx, pos)
	}
	l.loadQueue = nil
	l.w.removeWorldViewer(l)
	l.closed = true
	l.viewer = nil
}

// hide hides the chunk at the position passed from the loader's viewer and
// detaches the loader from its column.
func (l *Loader) hide(tx *Tx, pos ChunkPos) {
	tx.World().removeViewer(pos, l)
	l.viewer.HideChunk(pos)
	delete(l.loaded, pos)
}

// evictOutside hides all loaded chunks beyond the loader's radius and drops
// queued positions that fell outside the view before they were ever sent.
func (l *Loader) evictOutside(tx *Tx) {
	for pos := range l.loaded {
		if !l.inView(pos) {
			l.hide(tx, pos)
		}
	}
	l.loadQueue = slices.DeleteFunc(l.loadQueue, func(pos ChunkPos) bool {
		return !l.inView(pos)
	})
}

// inView reports whether the chunk position passed is within the loader's
// square view.
func (l *Loader) inView(pos ChunkPos) bool {
	dx, dz := pos[0]-l.pos[0], pos[1]-l.pos[1]
	return abs32(dx) <= int32(l.r) && abs32(dz) <= int32(l.r)
}

// populateLoadQueue rebuilds the queue of chunk positions that are within the
// view but not yet shown, ordered by distance to the centre so that nearby
// chunks are sent first.
func (l *Loader) populateLoadQueue() {
	queued := make(map[ChunkPos]struct{}, len(l.loadQueue))
	for _, pos := range l.loadQueue {
		queued[pos] = struct{}{}
	}
	r := int32(l.r)
	for dx := -r; dx <= r; dx++ {
		for dz := -r; dz <= r; dz++ {
			pos := ChunkPos{l.pos[0] + dx, l.pos[1] + dz}
			if _, ok := l.loaded[pos]; ok {
				continue
			}
			if _, ok := queued[pos]; ok {
				continue
			}
			l.loadQueue = append(l.loadQueue, pos)
		}
	}
	centre := l.pos
	slices.SortStableFunc(l.loadQueue, func(a, b ChunkPos) int {
		da := max(abs32(a[0]-centre[0]), abs32(a[1]-centre[1]))
		db := max(abs32(b[0]-centre[0]), abs32(b[1]-centre[1]))
		return int(da - db)
	})
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
