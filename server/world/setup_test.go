package world

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/tidewater-mc/tidewater/server/block/cube"
)

// Test blocks registered once for the whole package. The ids mirror the ones
// used by the block package, but the implementations live here so the tests
// can observe tick callbacks.
type testAir struct{}

func (testAir) EncodeBlock() (uint8, uint8) { return 0, 0 }
func (testAir) LightDiffusionLevel() uint8  { return 0 }

type testStone struct{}

func (testStone) EncodeBlock() (uint8, uint8) { return 1, 0 }

type testLeaves struct{}

func (testLeaves) EncodeBlock() (uint8, uint8) { return 18, 0 }
func (testLeaves) LightDiffusionLevel() uint8  { return 1 }

type testTorch struct{}

func (testTorch) EncodeBlock() (uint8, uint8) { return 50, 0 }
func (testTorch) LightDiffusionLevel() uint8  { return 0 }
func (testTorch) LightEmissionLevel() uint8   { return 14 }

// tickLog records the order in which scheduled, random and neighbour update
// ticks fire. Tests reset it before use.
var tickLog struct {
	sync.Mutex
	scheduled []cube.Pos
	random    []cube.Pos
	neighbour []neighbourUpdate
}

func resetTickLog() {
	tickLog.Lock()
	tickLog.scheduled = tickLog.scheduled[:0]
	tickLog.random = tickLog.random[:0]
	tickLog.neighbour = tickLog.neighbour[:0]
	tickLog.Unlock()
}

func scheduledTicks() []cube.Pos {
	tickLog.Lock()
	defer tickLog.Unlock()
	return append([]cube.Pos(nil), tickLog.scheduled...)
}

func neighbourTicks() []neighbourUpdate {
	tickLog.Lock()
	defer tickLog.Unlock()
	return append([]neighbourUpdate(nil), tickLog.neighbour...)
}

type testFuse struct{}

func (testFuse) EncodeBlock() (uint8, uint8) { return 70, 0 }
func (testFuse) LightDiffusionLevel() uint8  { return 0 }
func (testFuse) ScheduledTick(pos cube.Pos, tx *Tx, _ *rand.Rand) {
	tickLog.Lock()
	tickLog.scheduled = append(tickLog.scheduled, pos)
	tickLog.Unlock()
}

// testChain re-schedules itself every time it fires, so tests can verify
// that a tick scheduled during a pass does not fire within the same pass.
type testChain struct{}

func (testChain) EncodeBlock() (uint8, uint8) { return 71, 0 }
func (testChain) LightDiffusionLevel() uint8  { return 0 }
func (testChain) ScheduledTick(pos cube.Pos, tx *Tx, _ *rand.Rand) {
	tickLog.Lock()
	tickLog.scheduled = append(tickLog.scheduled, pos)
	tickLog.Unlock()
	tx.ScheduleBlockUpdate(pos, testChain{}, 1)
}

// testSupported records the neighbour update ticks it receives, so tests can
// verify that block changes notify the blocks around them.
type testSupported struct{}

func (testSupported) EncodeBlock() (uint8, uint8) { return 73, 0 }
func (testSupported) LightDiffusionLevel() uint8  { return 0 }
func (testSupported) NeighbourUpdateTick(pos, changedNeighbour cube.Pos, tx *Tx) {
	tickLog.Lock()
	tickLog.neighbour = append(tickLog.neighbour, neighbourUpdate{pos: pos, neighbour: changedNeighbour})
	tickLog.Unlock()
}

type testSprout struct{}

func (testSprout) EncodeBlock() (uint8, uint8) { return 72, 0 }
func (testSprout) LightDiffusionLevel() uint8  { return 0 }
func (testSprout) RandomTick(pos cube.Pos, tx *Tx, _ *rand.Rand) {
	tickLog.Lock()
	tickLog.random = append(tickLog.random, pos)
	tickLog.Unlock()
}

type testChestEntity struct {
	pos   cube.Pos
	Items int
}

func (e *testChestEntity) EncodeBlockEntity() map[string]any {
	return map[string]any{"id": "chest", "items": e.Items}
}

type testChest struct{}

func (testChest) EncodeBlock() (uint8, uint8) { return 54, 0 }
func (testChest) LightDiffusionLevel() uint8  { return 0 }
func (testChest) NewBlockEntity(pos cube.Pos) BlockEntity {
	return &testChestEntity{pos: pos}
}

var registerOnce sync.Once

func registerTestBlocks() {
	registerOnce.Do(func() {
		RegisterBlock(testAir{})
		RegisterBlock(testStone{})
		RegisterBlock(testLeaves{})
		RegisterBlock(testTorch{})
		RegisterBlock(testFuse{})
		RegisterBlock(testChain{})
		RegisterBlock(testSupported{})
		RegisterBlock(testSprout{})
		RegisterBlock(testChest{})
	})
}

// newTestWorld creates a world that does not tick on its own, so tests can
// drive ticking explicitly.
func newTestWorld(t *testing.T, conf Config) *World {
	t.Helper()
	registerTestBlocks()
	if conf.Log == nil {
		conf.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if conf.TickInterval == 0 {
		conf.TickInterval = time.Hour
	}
	w := conf.New()
	t.Cleanup(func() {
		_ = w.Close()
	})
	return w
}

// loadChunkSync requests the chunk at the position passed and blocks until
// its data is available.
func loadChunkSync(t *testing.T, w *World, pos ChunkPos) {
	t.Helper()
	var c *Column
	<-w.Exec(func(tx *Tx) {
		c = w.requestChunk(pos)
	})
	c.waitReady()
}

// runTick performs a single world tick synchronously.
func runTick(w *World) {
	<-w.Exec(func(tx *Tx) {
		ticker{}.tick(tx)
	})
}

// drainLight processes pending light updates until the worklist is empty.
func drainLight(w *World) {
	<-w.Exec(func(tx *Tx) {
		w.tickLight(1 << 20)
	})
}
