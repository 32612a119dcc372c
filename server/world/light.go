package world

import (
	"github.com/tidewater-mc/tidewater/server/block/cube"
	"github.com/tidewater-mc/tidewater/server/world/chunk"
)

// lightChannel identifies one of the two light channels of a cell.
type lightChannel uint8

const (
	// channelBlock is the light channel fed by light emitting blocks.
	channelBlock lightChannel = iota
	// channelSky is the light channel fed by sky exposure.
	channelSky
)

// lightUpdate is a pending position awaiting light recomputation. The credit
// bounds how far a single change can propagate: every re-enqueued neighbour
// carries one credit less, so a worklist entry can never travel further than
// the 15 levels a light value can span.
type lightUpdate struct {
	pos     cube.Pos
	channel lightChannel
	credit  uint8
}

// enqueueLightUpdates queues recomputation of both light channels of the
// cell at the position passed. It is called for every block change that can
// alter opacity or emission.
func (w *World) enqueueLightUpdates(pos cube.Pos) {
	w.enqueueLight(lightUpdate{pos: pos, channel: channelBlock, credit: 15})
	w.enqueueLight(lightUpdate{pos: pos, channel: channelSky, credit: 15})
}

// enqueueLight adds a single update to the worklist, keeping the per-chunk
// pending counters in sync so eviction can detect in-flight light work.
func (w *World) enqueueLight(u lightUpdate) {
	w.lightQueue = append(w.lightQueue, u)
	w.lightPending[chunkPosFromBlockPos(u.pos)]++
}

// popLight removes the next update from the worklist. ok is false if the
// worklist is empty.
func (w *World) popLight() (lightUpdate, bool) {
	if w.lightHead >= len(w.lightQueue) {
		w.lightQueue = w.lightQueue[:0]
		w.lightHead = 0
		return lightUpdate{}, false
	}
	u := w.lightQueue[w.lightHead]
	w.lightHead++
	pos := chunkPosFromBlockPos(u.pos)
	if n := w.lightPending[pos]; n <= 1 {
		delete(w.lightPending, pos)
	} else {
		w.lightPending[pos] = n - 1
	}
	return u, true
}

// tickLight processes pending light updates, relaxing each popped cell
// towards the light invariant: a cell's value is the maximum of its own
// emission and the highest neighbour value minus the cell's opacity. Changed
// cells re-enqueue their neighbours, so the worklist drains to a fixed point.
// At most budget updates are processed; the rest stay queued for later
// ticks. Updates in chunks that are not loaded are parked and replayed when
// the chunk becomes ready.
func (w *World) tickLight(budget int) {
	w.replayDeferredLight()

	for processed := 0; processed < budget; processed++ {
		u, ok := w.popLight()
		if !ok {
			return
		}
		w.relaxLight(u)
	}
	if remaining := len(w.lightQueue) - w.lightHead; remaining > 0 {
		w.conf.Log.Debug("light update budget exhausted", "remaining", remaining)
	}
}

// replayDeferredLight moves parked updates of chunks that have since become
// ready back onto the worklist.
func (w *World) replayDeferredLight() {
	for pos, updates := range w.deferredLight {
		if _, ok := w.column(pos); !ok {
			continue
		}
		delete(w.deferredLight, pos)
		for _, u := range updates {
			w.enqueueLight(u)
		}
	}
}

// relaxLight recomputes the light value of the cell referenced by the update
// passed.
func (w *World) relaxLight(u lightUpdate) {
	chunkPos := chunkPosFromBlockPos(u.pos)
	c, ok := w.column(chunkPos)
	if !ok {
		// The chunk was unloaded while the update was queued: park the update
		// so it is retried once the chunk loads again.
		w.deferredLight[chunkPos] = append(w.deferredLight[chunkPos], u)
		return
	}
	x, y, z := uint8(u.pos[0]&15), uint8(u.pos[1]), uint8(u.pos[2]&15)

	var maxNeighbour uint8
	for _, face := range cube.Faces() {
		side := u.pos.Side(face)
		if side.OutOfBounds(w.Range()) {
			continue
		}
		n, ok := w.column(chunkPosFromBlockPos(side))
		if !ok {
			// Unloaded neighbour chunks contribute nothing; the boundary cells
			// are re-relaxed when the neighbour loads.
			continue
		}
		sx, sy, sz := uint8(side[0]&15), uint8(side[1]), uint8(side[2]&15)
		var v uint8
		if u.channel == channelBlock {
			v = n.BlockLight(sx, sy, sz)
		} else {
			v = n.SkyLight(sx, sy, sz)
		}
		maxNeighbour = max(maxNeighbour, v)
	}

	id, meta := c.Block(x, y, z)
	rid := uint16(id)<<4 | uint16(meta)
	opacity := max(lightDiffusion[rid], 1)

	var emission uint8
	skyExposed := false
	if u.channel == channelBlock {
		emission = lightEmission[rid]
	} else if uint8(u.pos[1]) >= c.Height(x, z) {
		emission = 15
		skyExposed = true
	}

	newLight := emission
	if maxNeighbour > opacity {
		newLight = max(newLight, maxNeighbour-opacity)
	}

	var changed bool
	if u.channel == channelBlock {
		if c.BlockLight(x, y, z) != newLight {
			c.SetBlockLight(x, y, z, newLight)
			changed = true
		}
	} else {
		if c.SkyLight(x, y, z) != newLight {
			c.SetSkyLight(x, y, z, newLight)
			changed = true
		}
	}
	if !changed {
		return
	}
	c.modified = true
	c.forEachViewer(func(v Viewer) {
		v.ViewLightUpdate(u.pos, c.SkyLight(x, y, z), c.BlockLight(x, y, z))
	})

	if u.credit == 0 {
		return
	}
	for _, face := range cube.Faces() {
		// Cells above a sky exposed cell are already at full sky light, so
		// upward propagation is skipped for them.
		if face == cube.FaceUp && skyExposed && u.channel == channelSky {
			continue
		}
		side := u.pos.Side(face)
		if side.OutOfBounds(w.Range()) {
			continue
		}
		w.enqueueLight(lightUpdate{pos: side, channel: u.channel, credit: u.credit - 1})
	}
}

// initSkyLight fills the sky light channel of a freshly generated chunk
// column by column: cells at or above the height map value receive full sky
// light, cells below receive none. Smoothing across columns and chunk
// borders happens lazily through the regular worklist as blocks change. The
// height map is recomputed here so generators do not have to maintain it.
func initSkyLight(c *chunk.Chunk) {
	for x := uint8(0); x < chunk.Width; x++ {
		for z := uint8(0); z < chunk.Width; z++ {
			height := 0
			for y := chunk.Height - 1; y >= 0; y-- {
				id, meta := c.Block(x, uint8(y), z)
				if lightDiffusion[uint16(id)<<4|uint16(meta)] != 0 {
					height = y + 1
					break
				}
			}
			c.SetHeight(x, z, uint8(height))
			for y := 0; y < chunk.Height; y++ {
				if y >= height {
					c.SetSkyLight(x, uint8(y), z, 15)
				} else {
					c.SetSkyLight(x, uint8(y), z, 0)
				}
			}
		}
	}
}
