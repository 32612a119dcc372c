package world

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/tidewater-mc/tidewater/server/block/cube"
)

// ticker implements World ticking methods.
type ticker struct {
	interval time.Duration
}

const (
	tpsSampleSize      = 20
	tpsWarningFraction = 0.95
	// loaderChunkSends caps the number of chunks a single loader may be sent
	// per tick, spreading the cost of large view movements over time.
	loaderChunkSends = 16
	// membershipCheckInterval is the cadence, in ticks, of the entity
	// membership consistency check.
	membershipCheckInterval = 100
	// evictionInterval is the cadence, in ticks, of the chunk eviction pass.
	evictionInterval = 100
)

// tickLoop starts ticking the World at the configured interval, updating the
// blocks, entities, light and views as required.
func (t ticker) tickLoop(w *World) {
	tc := time.NewTicker(t.interval)
	defer tc.Stop()
	lastTick := time.Now()
	var (
		durationSum time.Duration
		ticksCount  int
		warned      bool
	)
	for {
		select {
		case <-tc.C:
			tickStart := time.Now()
			duration := tickStart.Sub(lastTick)
			lastTick = tickStart
			if duration > 0 {
				durationSum += duration
				ticksCount++
				if ticksCount >= tpsSampleSize {
					avg := durationSum / time.Duration(ticksCount)
					if avg > 0 {
						tps := 1.0 / avg.Seconds()
						w.tps.Store(math.Float64bits(tps))
						expected := 1.0 / t.interval.Seconds()
						if tps < expected*tpsWarningFraction {
							if !warned {
								w.conf.Log.Warn("tick rate dropped below target", "tps", tps, "target", expected)
								warned = true
							}
						} else if warned {
							warned = false
						}
					}
					durationSum = 0
					ticksCount = 0
				}
			}
			<-w.Exec(t.tick)
		case <-w.closing:
			// World is being closed: stop ticking.
			w.running.Done()
			return
		}
	}
}

// tick performs one tick on the World. Inbound commands queued since the
// previous tick have already been applied as transactions by the time tick
// runs; the tick itself fires due scheduled updates, processes the light
// budget, ticks blocks and entities and recomputes every loader's view.
func (t ticker) tick(tx *Tx) {
	w := tx.World()

	w.set.Lock()
	w.set.CurrentTick++
	if w.set.TimeCycle {
		w.set.Time++
	}
	tick, tim := w.set.CurrentTick, int(w.set.Time)
	w.set.Unlock()

	w.scheduledUpdates.tick(tx, tick, w.conf.ScheduledTickBudget, w.conf.Log)
	w.tickLight(w.conf.LightUpdateBudget)
	t.tickBlocksRandomly(tx, tick)
	t.tickEntities(tx, tick)
	t.performNeighbourUpdates(tx)

	for _, l := range w.allLoaders() {
		l.Load(tx, loaderChunkSends)
	}

	if tick%20 == 0 {
		w.viewerMu.Lock()
		for _, v := range w.viewers {
			v.ViewTime(tim)
		}
		w.viewerMu.Unlock()
	}
	if tick%evictionInterval == 0 {
		w.evictChunks()
	}
	if tick%membershipCheckInterval == 0 {
		w.verifyEntityMembership()
	}
}

// tickBlocksRandomly performs random block ticks in every chunk that has at
// least one viewer.
func (t ticker) tickBlocksRandomly(tx *Tx, tick int64) {
	w := tx.World()
	if w.conf.RandomTickSpeed < 0 {
		return
	}
	var g randUint4
	for pos, c := range w.chunks {
		if len(c.viewers) == 0 || !c.Ready() {
			continue
		}
		cx, cz := int(pos[0])<<4, int(pos[1])<<4
		for j := 0; j < w.conf.RandomTickSpeed; j++ {
			x, z := g.uint4(w.r), g.uint4(w.r)
			y := g.uint7(w.r)
			id, meta := c.Block(x, y, z)
			rid := uint16(id)<<4 | uint16(meta)
			if !randomTickers[rid] {
				continue
			}
			if rb, ok := blockByRuntimeIDOrAir(rid).(RandomTicker); ok {
				rb.RandomTick(cube.Pos{cx + int(x), int(y), cz + int(z)}, tx, w.r)
			}
		}
	}
}

// performNeighbourUpdates ticks every position queued as a result of a
// neighbouring block changing. Updates queued while the pass runs, by the
// handlers themselves, are kept for the next tick.
func (t ticker) performNeighbourUpdates(tx *Tx) {
	w := tx.World()
	limit := len(w.neighbourUpdates)
	for i := 0; i < limit; i++ {
		update := w.neighbourUpdates[i]
		b, err := tx.Block(update.pos)
		if err != nil {
			// The chunk was unloaded after the update was queued.
			continue
		}
		if ticker, ok := b.(NeighbourUpdateTicker); ok {
			ticker.NeighbourUpdateTick(update.pos, update.neighbour, tx)
		}
	}
	if len(w.neighbourUpdates) > limit {
		remaining := w.neighbourUpdates[limit:]
		copy(w.neighbourUpdates, remaining)
		w.neighbourUpdates = w.neighbourUpdates[:len(remaining)]
		return
	}
	w.neighbourUpdates = w.neighbourUpdates[:0]
}

// tickEntities ticks all entities in the world in id order, so ticking is
// deterministic and independent of map iteration order.
func (t ticker) tickEntities(tx *Tx, tick int64) {
	w := tx.World()
	ids := make([]int64, 0, len(w.entities))
	for id := range w.entities {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		e, ok := w.entities[id]
		if !ok {
			// The entity was removed by an earlier entity's tick.
			continue
		}
		e.data.Age++
		if e.ticker != nil {
			e.ticker.Tick(e, tx, tick)
		}
	}
	for _, c := range w.chunks {
		if !c.Ready() || len(c.BlockEntities) == 0 {
			continue
		}
		for bePos, be := range c.BlockEntities {
			if tbe, ok := be.(TickerBlockEntity); ok {
				tbe.Tick(tick, bePos, tx)
			}
		}
	}
}

// randUint4 is a structure used to generate random uint4s and uint7s from
// batched random 64 bit values.
type randUint4 struct {
	x uint64
	n uint8
}

// uint4 returns a random value in the range 0-15.
func (g *randUint4) uint4(r *rand.Rand) uint8 {
	if g.n < 4 {
		g.x = r.Uint64()
		g.n = 64
	}
	val := g.x & 0b1111
	g.x >>= 4
	g.n -= 4
	return uint8(val)
}

// uint7 returns a random value in the range 0-127.
func (g *randUint4) uint7(r *rand.Rand) uint8 {
	if g.n < 7 {
		g.x = r.Uint64()
		g.n = 64
	}
	val := g.x & 0b1111111
	g.x >>= 7
	g.n -= 7
	return uint8(val)
}

// scheduledTickQueue implements the queue for scheduled block updates.
// Entries are ordered by target tick, with the insertion sequence number as
// the tie break, giving deterministic ordering that is independent of the
// timing of the transactions that inserted them.
type scheduledTickQueue struct {
	ticks       []scheduledTick
	currentTick int64
	seq         int64
}

type scheduledTick struct {
	pos   cube.Pos
	b     Block
	bhash uint64
	t     int64
	seq   int64
}

// newScheduledTickQueue creates a queue for scheduled block ticks.
func newScheduledTickQueue(tick int64) *scheduledTickQueue {
	return &scheduledTickQueue{currentTick: tick}
}

// tick applies every queued entry whose target tick is at or before the tick
// passed, in (target tick, insertion sequence) order, up to the budget
// passed. Entries beyond the budget stay queued for the next tick and the
// overflow is logged. Entries scheduled while the pass runs target a future
// tick and are never applied within the same pass.
func (queue *scheduledTickQueue) tick(tx *Tx, tick int64, budget int, log *slog.Logger) {
	queue.currentTick = tick

	w := tx.World()
	due := make([]scheduledTick, 0, 8)
	remaining := queue.ticks[:0]
	for _, t := range queue.ticks {
		if t.t <= tick {
			due = append(due, t)
		} else {
			remaining = append(remaining, t)
		}
	}
	queue.ticks = remaining
	slices.SortFunc(due, func(a, b scheduledTick) int {
		if a.t != b.t {
			return int(a.t - b.t)
		}
		return int(a.seq - b.seq)
	})

	if len(due) > budget {
		log.Warn("scheduled tick budget exceeded, deferring excess", "due", len(due), "budget", budget)
		queue.ticks = append(queue.ticks, due[budget:]...)
		due = due[:budget]
	}

	for _, t := range due {
		b, err := tx.Block(t.pos)
		if err != nil {
			// The chunk was unloaded after the tick was scheduled; the entry
			// is dropped, matching the cancellation a chunk unload implies.
			continue
		}
		if BlockHash(b) != t.bhash {
			// The block changed since the tick was scheduled.
			continue
		}
		if ticker, ok := b.(ScheduledTicker); ok {
			ticker.ScheduledTick(t.pos, tx, w.r)
		}
	}
}

// schedule schedules a block update at the position passed, delay ticks into
// the future. A delay below 1 is clamped to 1, so an entry is never due in
// the tick it was created in. Multiple entries may target the same position;
// each has independent identity.
func (queue *scheduledTickQueue) schedule(pos cube.Pos, b Block, delay int64) {
	queue.seq++
	queue.ticks = append(queue.ticks, scheduledTick{
		pos:   pos,
		b:     b,
		bhash: BlockHash(b),
		t:     queue.currentTick + max(delay, 1),
		seq:   queue.seq,
	})
}

// cancelAt removes all pending entries targeting the position passed,
// returning the number of entries removed.
func (queue *scheduledTickQueue) cancelAt(pos cube.Pos) int {
	before := len(queue.ticks)
	queue.ticks = slices.DeleteFunc(queue.ticks, func(t scheduledTick) bool {
		return t.pos == pos
	})
	return before - len(queue.ticks)
}

// hasChunk checks if any pending entry targets a position within the chunk
// position passed.
func (queue *scheduledTickQueue) hasChunk(pos ChunkPos) bool {
	for _, t := range queue.ticks {
		if chunkPosFromBlockPos(t.pos) == pos {
			return true
		}
	}
	return false
}
