package world

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tidewater-mc/tidewater/server/block/cube"
	"github.com/tidewater-mc/tidewater/server/world/chunk"
)

// World owns the simulated state of a single game session: the loaded chunks,
// the entities living in them, the scheduled tick queue and the pending light
// work. All mutation of a World happens on a single goroutine that consumes
// the world's transaction queue; network connections and other concurrent
// workers interact with the world exclusively through World.Exec. A World is
// ticked automatically once created and stops when closed.
type World struct {
	conf Config

	queue        chan transaction
	queueClosing chan struct{}
	queueing     sync.WaitGroup

	set *Settings

	closing chan struct{}
	running sync.WaitGroup
	o       sync.Once

	// chunks holds all columns currently loaded. Only the simulation
	// goroutine reads or writes this map. chunkCount mirrors its length so
	// that it may be read without entering a transaction.
	chunks     map[ChunkPos]*Column
	chunkCount atomic.Int64

	// entities holds all live entities keyed by their unique id. The world
	// owns the handles; columns hold non-owning references for membership.
	entities     map[int64]*EntityHandle
	lastEntityID int64

	scheduledUpdates *scheduledTickQueue
	// neighbourUpdates holds the positions that must receive a neighbour
	// update tick because a block next to them changed. The queue is drained
	// every tick.
	neighbourUpdates []neighbourUpdate

	// lightQueue is the worklist of pending light updates, processed up to
	// the configured budget each tick. lightPending counts queued updates per
	// chunk so that chunk eviction can detect in-flight light work.
	// deferredLight parks updates that hit a chunk that was not loaded; they
	// are replayed once the chunk becomes ready.
	lightQueue    []lightUpdate
	lightHead     int
	lightPending  map[ChunkPos]int
	deferredLight map[ChunkPos][]lightUpdate

	viewerMu sync.Mutex
	viewers  map[*Loader]Viewer

	loadQueue chan loadTask
	// loadQueueSaturation counts how often load tasks had to be enqueued
	// asynchronously because the worker queue was full, used to rate-limit
	// backpressure warnings.
	loadQueueSaturation atomic.Uint64
	lastSaturationLog   atomic.Uint64
	saveQueue           chan saveTask

	r   *rand.Rand
	tps atomic.Uint64
}

// transaction is a unit of work that may be added to the transaction queue of
// a World. Its Run method is called on the world's simulation goroutine.
type transaction interface {
	Run(w *World)
}

type normalTransaction struct {
	c chan struct{}
	f func(tx *Tx)
}

// Run runs the transaction function on a fresh Tx and closes the done
// channel. The Tx is invalidated before the channel is closed so that no
// caller can observe a usable Tx after the transaction finished.
func (ntx normalTransaction) Run(w *World) {
	tx := &Tx{w: w}
	ntx.f(tx)
	tx.close()
	close(ntx.c)
}

type loadTask struct {
	pos ChunkPos
	col *Column
}

type saveTask struct {
	pos ChunkPos
	c   *chunk.Chunk
}

// New creates a new World with the default Config.
func New() *World {
	var conf Config
	return conf.New()
}

// Exec performs a synchronised transaction f on the World. The transaction
// queue is bounded; Exec blocks while the queue is saturated, applying
// backpressure to the calling worker without ever stalling the simulation
// goroutine itself. Exec returns a channel that is closed once the
// transaction completed.
func (w *World) Exec(f func(tx *Tx)) <-chan struct{} {
	c := make(chan struct{})
	w.queue <- normalTransaction{c: c, f: f}
	return c
}

// handleTransactions continuously reads transactions from the queue and runs
// them. It is the only goroutine that ever mutates world state.
func (w *World) handleTransactions() {
	for {
		select {
		case tx := <-w.queue:
			tx.Run(w)
		case <-w.queueClosing:
			w.queueing.Done()
			return
		}
	}
}

// Name returns the display name of the world.
func (w *World) Name() string {
	w.set.Lock()
	defer w.set.Unlock()
	return w.set.Name
}

// Range returns the range in blocks of the World (min and max Y).
func (w *World) Range() cube.Range {
	return cube.Range{0, chunk.Height - 1}
}

// CurrentTick returns the current tick counter of the world.
func (w *World) CurrentTick() int64 {
	if w == nil {
		return 0
	}
	w.set.Lock()
	defer w.set.Unlock()
	return w.set.CurrentTick
}

// Time returns the current time of the world. The time advances by one every
// tick while the time cycle is enabled.
func (w *World) Time() int {
	if w == nil {
		return 0
	}
	w.set.Lock()
	defer w.set.Unlock()
	return int(w.set.Time)
}

// SetTime sets the time of the world and shows the new time to all viewers.
func (w *World) SetTime(new int) {
	if w == nil {
		return
	}
	w.set.Lock()
	w.set.Time = int64(new)
	w.set.Unlock()
	w.viewerMu.Lock()
	for _, v := range w.viewers {
		v.ViewTime(new)
	}
	w.viewerMu.Unlock()
}

// Spawn returns the default spawn position of the world.
func (w *World) Spawn() cube.Pos {
	w.set.Lock()
	defer w.set.Unlock()
	return w.set.Spawn
}

// TPS returns the current average ticks per second of the world, sampled over
// the last twenty ticks. It may be zero if no samples were recorded yet.
func (w *World) TPS() float64 {
	return math.Float64frombits(w.tps.Load())
}

// column returns the column at the position passed if it is loaded and ready.
// The bool returned is the authoritative answer to "is this position
// currently simulated".
func (w *World) column(pos ChunkPos) (*Column, bool) {
	c, ok := w.chunks[pos]
	if !ok || !c.Ready() {
		return nil, false
	}
	return c, true
}

// requestChunk returns the column at the position passed, creating it and
// scheduling an asynchronous load if it is absent. The returned column may
// not be ready yet; the simulation goroutine never waits for it.
func (w *World) requestChunk(pos ChunkPos) *Column {
	if c, ok := w.chunks[pos]; ok {
		return c
	}
	c := newColumn(chunk.New())
	c.idleSince = w.set.CurrentTick
	w.chunks[pos] = c
	w.chunkCount.Add(1)
	w.scheduleLoad(loadTask{pos: pos, col: c})
	return c
}

// scheduleLoad enqueues a load task for a worker, falling back to an
// asynchronous enqueue when the queue is full so the simulation goroutine
// never blocks on it.
func (w *World) scheduleLoad(task loadTask) {
	select {
	case <-w.closing:
		task.col.markReady()
	case w.loadQueue <- task:
	default:
		go func() {
			select {
			case <-w.closing:
				task.col.markReady()
			case w.loadQueue <- task:
			}
		}()
		w.handleLoadBackpressure()
	}
}

// handleLoadBackpressure records that the load queue was saturated and
// occasionally logs a warning so operators can tune worker counts.
func (w *World) handleLoadBackpressure() {
	n := w.loadQueueSaturation.Add(1)
	last := w.lastSaturationLog.Load()
	if n-last >= 64 && w.lastSaturationLog.CompareAndSwap(last, n) {
		w.conf.Log.Warn("chunk load queue saturated", "pending", len(w.loadQueue), "total", n)
	}
}

// loadWorker continuously processes load tasks, reading chunks from the
// provider or generating them when no stored data exists. Workers terminate
// when the world closes, draining the queue so that no column remains
// unready.
func (w *World) loadWorker() {
	defer w.running.Done()
	for {
		select {
		case task := <-w.loadQueue:
			w.runLoadTask(task)
		case <-w.closing:
			for {
				select {
				case task := <-w.loadQueue:
					task.col.markReady()
				default:
					return
				}
			}
		}
	}
}

// runLoadTask loads or generates a single chunk. The column is always marked
// ready afterwards, even if loading failed, so no goroutine waits forever.
func (w *World) runLoadTask(task loadTask) {
	defer func() {
		if r := recover(); r != nil {
			w.conf.Log.Error("load chunk: panic", "error", fmt.Sprint(r), "X", task.pos[0], "Z", task.pos[1])
		}
		task.col.markReady()
	}()

	c, found, err := w.conf.Provider.LoadChunk(task.pos)
	switch {
	case err == nil && found:
		task.col.Chunk = c
		return
	case errors.Is(err, ErrCorruptChunk):
		// Recoverable: regenerate the chunk instead of failing the load.
		w.conf.Log.Error("load chunk: "+err.Error(), "X", task.pos[0], "Z", task.pos[1])
	case err != nil:
		w.conf.Log.Error("load chunk: "+err.Error(), "X", task.pos[0], "Z", task.pos[1])
		return
	}
	w.conf.Generator.GenerateChunk(task.pos, task.col.Chunk)
	initSkyLight(task.col.Chunk)
	task.col.modified = true
}

// saveWorker writes chunk snapshots handed to it by the simulation goroutine
// to the provider, keeping disk I/O off the tick path.
func (w *World) saveWorker() {
	defer w.running.Done()
	for {
		select {
		case task := <-w.saveQueue:
			w.storeChunk(task)
		case <-w.closing:
			for {
				select {
				case task := <-w.saveQueue:
					w.storeChunk(task)
				default:
					return
				}
			}
		}
	}
}

func (w *World) storeChunk(task saveTask) {
	if err := w.conf.Provider.StoreChunk(task.pos, task.c); err != nil {
		w.conf.Log.Error("save chunk: "+err.Error(), "X", task.pos[0], "Z", task.pos[1])
	}
}

// saveChunk hands a snapshot of the column passed to the save worker if it
// was modified since it was loaded.
func (w *World) saveChunk(pos ChunkPos, c *Column) {
	if w.conf.ReadOnly || !c.modified || !c.Ready() {
		return
	}
	snapshot := *c.Chunk
	select {
	case w.saveQueue <- saveTask{pos: pos, c: &snapshot}:
		c.modified = false
	default:
		// The save queue is saturated; the column stays modified and is
		// retried on the next save pass.
		w.conf.Log.Debug("save queue saturated", "X", pos[0], "Z", pos[1])
	}
}

// unloadChunk evicts the column at the position passed. It fails with
// ErrChunkBusy if entities, loaders, scheduled ticks or pending light work
// still reference the chunk, in which case unloading is retried in a later
// tick.
func (w *World) unloadChunk(pos ChunkPos) error {
	c, ok := w.chunks[pos]
	if !ok {
		return nil
	}
	if len(c.Entities) > 0 {
		return fmt.Errorf("unload chunk %v: %v entities present: %w", pos, len(c.Entities), ErrChunkBusy)
	}
	if w.scheduledUpdates.hasChunk(pos) {
		return fmt.Errorf("unload chunk %v: scheduled ticks pending: %w", pos, ErrChunkBusy)
	}
	if w.lightPending[pos] > 0 || len(w.deferredLight[pos]) > 0 {
		return fmt.Errorf("unload chunk %v: light updates pending: %w", pos, ErrChunkBusy)
	}
	if len(c.loaders) > 0 {
		return fmt.Errorf("unload chunk %v: %v loaders attached: %w", pos, len(c.loaders), ErrChunkBusy)
	}
	w.saveChunk(pos, c)
	delete(w.chunks, pos)
	w.chunkCount.Add(-1)
	return nil
}

// evictChunks attempts to unload columns that have had no loaders for longer
// than the configured grace period. Busy chunks are skipped and retried on a
// later pass.
func (w *World) evictChunks() {
	tick := w.set.CurrentTick
	for pos, c := range w.chunks {
		if len(c.loaders) > 0 || !c.Ready() {
			continue
		}
		if tick-c.idleSince < w.conf.UnloadGracePeriod {
			continue
		}
		if err := w.unloadChunk(pos); err != nil {
			w.conf.Log.Debug("evict chunk: " + err.Error())
		}
	}
}

// blockAt reads the block at the position passed. If the position is not
// within a loaded chunk, ErrUnloadedChunk is returned.
func (w *World) blockAt(pos cube.Pos) (Block, error) {
	if pos.OutOfBounds(w.Range()) {
		return air(), nil
	}
	c, ok := w.column(chunkPosFromBlockPos(pos))
	if !ok {
		return nil, fmt.Errorf("block at %v: %w", pos, ErrUnloadedChunk)
	}
	id, meta := c.Block(uint8(pos[0]&15), uint8(pos[1]), uint8(pos[2]&15))
	return blockByRuntimeIDOrAir(uint16(id)<<4 | uint16(meta)), nil
}

// setBlock writes a block to the position passed. If the position is not
// within a loaded chunk, ErrUnloadedChunk is returned and the world is left
// unchanged. A successful write updates the chunk height map, queues light
// recomputation for the cell, schedules a block tick for blocks that react to
// them and shows the change to all viewers of the chunk.
func (w *World) setBlock(pos cube.Pos, b Block) error {
	if pos.OutOfBounds(w.Range()) {
		return fmt.Errorf("set block at %v: position outside world range: %w", pos, ErrUnloadedChunk)
	}
	if b == nil {
		b = air()
	}
	c, ok := w.column(chunkPosFromBlockPos(pos))
	if !ok {
		return fmt.Errorf("set block at %v: %w", pos, ErrUnloadedChunk)
	}

	x, y, z := uint8(pos[0]&15), uint8(pos[1]), uint8(pos[2]&15)
	id, meta := b.EncodeBlock()
	prevID, prevMeta := c.Block(x, y, z)
	if prevID == id && prevMeta == meta {
		return nil
	}
	c.SetBlock(x, y, z, id, meta)
	c.modified = true

	rid := BlockRuntimeID(b)
	if entityBlocks[rid] {
		c.BlockEntities[pos] = b.(EntityBlock).NewBlockEntity(pos)
	} else {
		delete(c.BlockEntities, pos)
	}

	w.updateHeightMap(c, pos, rid)
	w.enqueueLightUpdates(pos)

	if scheduledBlocks[rid] {
		w.scheduleBlockUpdate(pos, b, 1)
	}
	w.doBlockUpdatesAround(pos)

	c.forEachViewer(func(v Viewer) {
		v.ViewBlockUpdate(pos, b)
	})
	return nil
}

// neighbourUpdate represents a position that needs a neighbour update tick
// because of a block change at the neighbour position.
type neighbourUpdate struct {
	pos, neighbour cube.Pos
}

// doBlockUpdatesAround queues neighbour update ticks on and directly around
// the position passed.
func (w *World) doBlockUpdatesAround(pos cube.Pos) {
	changed := pos
	w.neighbourUpdates = append(w.neighbourUpdates, neighbourUpdate{pos: pos, neighbour: changed})
	pos.Neighbours(func(p cube.Pos) {
		w.neighbourUpdates = append(w.neighbourUpdates, neighbourUpdate{pos: p, neighbour: changed})
	}, w.Range())
}

// updateHeightMap maintains the column height map of the chunk after the
// block at the position passed changed to the runtime id passed. The height
// of a column is one more than the Y value of its highest light obstructing
// block.
func (w *World) updateHeightMap(c *Column, pos cube.Pos, rid uint16) {
	x, z := uint8(pos[0]&15), uint8(pos[2]&15)
	prevHeight := c.Height(x, z)
	height := uint8(pos[1] + 1)

	if lightDiffusion[rid] != 0 {
		if height > prevHeight {
			c.SetHeight(x, z, height)
		}
		return
	}
	if prevHeight != height {
		return
	}
	// The highest obstructing block became transparent: scan down for the
	// next obstructing block to find the new height.
	for y := pos[1] - 1; y >= 0; y-- {
		id, meta := c.Block(x, uint8(y), z)
		if lightDiffusion[uint16(id)<<4|uint16(meta)] != 0 {
			c.SetHeight(x, z, uint8(y+1))
			return
		}
	}
	c.SetHeight(x, z, 0)
}

// lightAt returns the combined light level at the position passed, the
// highest of the sky light and block light channels.
func (w *World) lightAt(pos cube.Pos) (uint8, error) {
	if pos[1] < w.Range().Min() {
		return 0, nil
	}
	if pos[1] > w.Range().Max() {
		return 15, nil
	}
	c, ok := w.column(chunkPosFromBlockPos(pos))
	if !ok {
		return 0, fmt.Errorf("light at %v: %w", pos, ErrUnloadedChunk)
	}
	return c.Light(uint8(pos[0]&15), uint8(pos[1]), uint8(pos[2]&15)), nil
}

// addEntity spawns an entity of the type passed into the world, assigning it
// a fresh id and registering it in the membership set of the chunk containing
// its position. If that chunk is not loaded, it is requested; membership is
// recorded immediately so the membership invariant holds even while the chunk
// data is still being loaded.
func (w *World) addEntity(t EntityType, data EntityData) *EntityHandle {
	w.lastEntityID++
	e := newEntityHandle(w.lastEntityID, t, data)
	w.entities[e.id] = e

	pos := chunkPosFromVec3(data.Pos)
	c := w.requestChunk(pos)
	c.Entities = append(c.Entities, e)
	c.modified = true
	e.chunkPos = pos

	c.forEachViewer(func(v Viewer) {
		v.ViewEntity(e)
	})
	return e
}

// removeEntity despawns the entity passed, removing it from the world and
// from the membership set of its chunk. ErrUnknownEntity is returned if the
// entity is not in the world.
func (w *World) removeEntity(e *EntityHandle) error {
	if _, ok := w.entities[e.id]; !ok {
		return fmt.Errorf("remove entity %v: %w", e.id, ErrUnknownEntity)
	}
	if c, ok := w.chunks[e.chunkPos]; ok {
		if i := slices.Index(c.Entities, e); i != -1 {
			c.Entities = slices.Delete(c.Entities, i, i+1)
			c.modified = true
		}
		c.forEachViewer(func(v Viewer) {
			v.HideEntity(e)
		})
	}
	delete(w.entities, e.id)
	return nil
}

// moveEntity updates the position and velocity of the entity passed. If the
// movement crosses a chunk boundary, the entity's membership moves from the
// old column to the new one in the same step, so no outside observer can see
// the entity in zero or two membership sets. Viewers that see both chunks
// receive a movement update; viewers of only one receive a show or hide.
func (w *World) moveEntity(e *EntityHandle, pos, vel mgl64.Vec3) error {
	if _, ok := w.entities[e.id]; !ok {
		return fmt.Errorf("move entity %v: %w", e.id, ErrUnknownEntity)
	}
	e.data.Pos, e.data.Vel = pos, vel

	oldPos, newPos := e.chunkPos, chunkPosFromVec3(pos)
	if oldPos == newPos {
		if c, ok := w.chunks[oldPos]; ok {
			c.forEachViewer(func(v Viewer) {
				v.ViewEntityMovement(e, pos, vel)
			})
		}
		return nil
	}

	var oldViewers map[Viewer]struct{}
	if old, ok := w.chunks[oldPos]; ok {
		if i := slices.Index(old.Entities, e); i != -1 {
			old.Entities = slices.Delete(old.Entities, i, i+1)
			old.modified = true
		}
		oldViewers = old.viewers
	}
	c := w.requestChunk(newPos)
	c.Entities = append(c.Entities, e)
	c.modified = true
	e.chunkPos = newPos

	for v := range oldViewers {
		if _, ok := c.viewers[v]; !ok {
			v.HideEntity(e)
		}
	}
	for v := range c.viewers {
		if _, ok := oldViewers[v]; ok {
			v.ViewEntityMovement(e, pos, vel)
		} else {
			v.ViewEntity(e)
		}
	}
	return nil
}

// entitiesIn returns the entities whose position is currently within the
// chunk at the position passed.
func (w *World) entitiesIn(pos ChunkPos) []*EntityHandle {
	c, ok := w.chunks[pos]
	if !ok {
		return nil
	}
	return slices.Clone(c.Entities)
}

// verifyEntityMembership checks that every entity in the world is present in
// the membership set of exactly the chunk containing its position. A failed
// check means the single writer invariant was broken; the world cannot
// continue and panics with a diagnostic.
func (w *World) verifyEntityMembership() {
	counts := make(map[int64]int, len(w.entities))
	for pos, c := range w.chunks {
		for _, e := range c.Entities {
			counts[e.id]++
			if e.chunkPos != pos {
				w.conf.Log.Error("entity membership desynchronised", "entity", e.id, "chunk", fmt.Sprint(pos), "expected", fmt.Sprint(e.chunkPos))
				panic(fmt.Sprintf("world: entity %v registered in chunk %v but located in %v", e.id, pos, e.chunkPos))
			}
		}
	}
	for id := range w.entities {
		if counts[id] != 1 {
			w.conf.Log.Error("entity membership desynchronised", "entity", id, "memberships", counts[id])
			panic(fmt.Sprintf("world: entity %v present in %v chunk membership sets", id, counts[id]))
		}
	}
}

// scheduleBlockUpdate schedules a block update at the position passed after
// the delay in ticks passed.
func (w *World) scheduleBlockUpdate(pos cube.Pos, b Block, delay int64) {
	if pos.OutOfBounds(w.Range()) {
		return
	}
	w.scheduledUpdates.schedule(pos, b, delay)
}

// broadcastBlockEntityData shows a change of the extra data of the block
// entity at the position passed to all viewers of its chunk.
func (w *World) broadcastBlockEntityData(pos cube.Pos, be BlockEntity) {
	c, ok := w.chunks[chunkPosFromBlockPos(pos)]
	if !ok {
		return
	}
	c.modified = true
	data := be.EncodeBlockEntity()
	c.forEachViewer(func(v Viewer) {
		v.ViewBlockEntityData(pos, data)
	})
}

// addWorldViewer registers a loader and its viewer with the world, making it
// part of the per-tick view recomputation.
func (w *World) addWorldViewer(l *Loader) {
	w.viewerMu.Lock()
	w.viewers[l] = l.viewer
	w.viewerMu.Unlock()
	l.viewer.ViewTime(w.Time())
}

// removeWorldViewer removes a loader from the world.
func (w *World) removeWorldViewer(l *Loader) {
	w.viewerMu.Lock()
	delete(w.viewers, l)
	w.viewerMu.Unlock()
}

// allLoaders returns all loaders currently registered with the world.
func (w *World) allLoaders() []*Loader {
	w.viewerMu.Lock()
	defer w.viewerMu.Unlock()
	loaders := make([]*Loader, 0, len(w.viewers))
	for l := range w.viewers {
		loaders = append(loaders, l)
	}
	return loaders
}

// addViewer attaches a loader to the column passed. All entities currently in
// the column are shown to the loader's viewer.
func (w *World) addViewer(c *Column, l *Loader) {
	if l.viewer != nil {
		c.viewers[l.viewer] = struct{}{}
	}
	c.loaders = append(c.loaders, l)
	for _, e := range c.Entities {
		l.viewer.ViewEntity(e)
	}
}

// removeViewer detaches a loader from the chunk at the position passed,
// hiding all of its entities from the loader's viewer.
func (w *World) removeViewer(pos ChunkPos, l *Loader) {
	c, ok := w.chunks[pos]
	if !ok {
		return
	}
	if i := slices.Index(c.loaders, l); i != -1 {
		c.loaders = slices.Delete(c.loaders, i, i+1)
	}
	delete(c.viewers, l.viewer)
	if l.viewer != nil {
		for _, e := range c.Entities {
			l.viewer.HideEntity(e)
		}
	}
	if len(c.loaders) == 0 {
		c.idleSince = w.set.CurrentTick
	}
}

// LoadedChunkCount returns the number of chunks currently kept in memory by
// the world.
func (w *World) LoadedChunkCount() int {
	return int(w.chunkCount.Load())
}

// Save saves all loaded chunks and the world settings to the provider.
func (w *World) Save() {
	<-w.Exec(func(tx *Tx) {
		w.saveAll()
	})
}

// saveAll hands snapshots of all modified columns to the save worker and
// stores the world settings.
func (w *World) saveAll() {
	if w.conf.ReadOnly {
		return
	}
	w.conf.Log.Debug("saving chunks in memory to disk")
	for pos, c := range w.chunks {
		w.saveChunk(pos, c)
	}
	w.conf.Provider.SaveSettings(w.set)
}

// Close closes the world, saving all loaded chunks and stopping the tick
// loop. Close blocks until all background workers finished.
func (w *World) Close() error {
	w.o.Do(w.close)
	return nil
}

func (w *World) close() {
	<-w.Exec(func(tx *Tx) {
		w.saveAll()
	})

	close(w.closing)
	w.running.Wait()

	close(w.queueClosing)
	w.queueing.Wait()

	w.conf.Log.Debug("closing provider")
	if err := w.conf.Provider.Close(); err != nil {
		w.conf.Log.Error("close world provider: " + err.Error())
	}
}
