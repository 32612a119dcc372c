package world

import (
	"testing"

	"github.com/tidewater-mc/tidewater/server/block/cube"
)

// blockLightAt reads the block light channel directly, bypassing the
// combined Tx.Light value.
func blockLightAt(w *World, pos cube.Pos) uint8 {
	var v uint8
	<-w.Exec(func(tx *Tx) {
		c, ok := w.column(chunkPosFromBlockPos(pos))
		if !ok {
			return
		}
		v = c.BlockLight(uint8(pos[0]&15), uint8(pos[1]), uint8(pos[2]&15))
	})
	return v
}

func skyLightAt(w *World, pos cube.Pos) uint8 {
	var v uint8
	<-w.Exec(func(tx *Tx) {
		c, ok := w.column(chunkPosFromBlockPos(pos))
		if !ok {
			return
		}
		v = c.SkyLight(uint8(pos[0]&15), uint8(pos[1]), uint8(pos[2]&15))
	})
	return v
}

func TestLightTorchGradient(t *testing.T) {
	w := newTestWorld(t, Config{})
	loadChunkSync(t, w, ChunkPos{0, 0})

	torch := cube.Pos{8, 40, 8}
	<-w.Exec(func(tx *Tx) {
		if err := tx.SetBlock(torch, testTorch{}); err != nil {
			t.Errorf("set torch: %v", err)
		}
	})
	drainLight(w)

	if v := blockLightAt(w, torch); v != 14 {
		t.Fatalf("light at torch: got %v, want 14", v)
	}
	// Light decays by one per block of air.
	for d := 1; d <= 5; d++ {
		pos := torch.Add(cube.Pos{d, 0, 0})
		want := uint8(14 - d)
		if v := blockLightAt(w, pos); v != want {
			t.Errorf("light at distance %v: got %v, want %v", d, v, want)
		}
	}
	// Diagonal distance is the manhattan distance of the two offsets.
	if v := blockLightAt(w, torch.Add(cube.Pos{2, 0, 3})); v != 14-5 {
		t.Errorf("light at diagonal: got %v, want %v", v, 14-5)
	}
}

func TestLightRemovalDarkens(t *testing.T) {
	w := newTestWorld(t, Config{})
	loadChunkSync(t, w, ChunkPos{0, 0})

	torch := cube.Pos{8, 40, 8}
	<-w.Exec(func(tx *Tx) {
		_ = tx.SetBlock(torch, testTorch{})
	})
	drainLight(w)
	if v := blockLightAt(w, torch.Add(cube.Pos{3, 0, 0})); v != 11 {
		t.Fatalf("light before removal: got %v, want 11", v)
	}

	<-w.Exec(func(tx *Tx) {
		_ = tx.SetBlock(torch, nil)
	})
	drainLight(w)

	for _, pos := range []cube.Pos{torch, torch.Add(cube.Pos{3, 0, 0}), torch.Add(cube.Pos{0, 5, 0})} {
		if v := blockLightAt(w, pos); v != 0 {
			t.Errorf("light at %v after removal: got %v, want 0", pos, v)
		}
	}
}

func TestLightIdempotent(t *testing.T) {
	w := newTestWorld(t, Config{})
	loadChunkSync(t, w, ChunkPos{0, 0})

	torch := cube.Pos{4, 40, 4}
	<-w.Exec(func(tx *Tx) {
		_ = tx.SetBlock(torch, testTorch{})
		_ = tx.SetBlock(cube.Pos{6, 40, 4}, testStone{})
	})
	drainLight(w)

	before := make([]uint8, 10)
	for d := range before {
		before[d] = blockLightAt(w, torch.Add(cube.Pos{0, 0, d}))
	}
	// Re-enqueueing the same cells must not change any value.
	<-w.Exec(func(tx *Tx) {
		w.enqueueLightUpdates(torch)
	})
	drainLight(w)
	for d := range before {
		if v := blockLightAt(w, torch.Add(cube.Pos{0, 0, d})); v != before[d] {
			t.Errorf("light at distance %v changed from %v to %v", d, before[d], v)
		}
	}
}

func TestLightValuesInRange(t *testing.T) {
	w := newTestWorld(t, Config{})
	loadChunkSync(t, w, ChunkPos{0, 0})

	<-w.Exec(func(tx *Tx) {
		_ = tx.SetBlock(cube.Pos{8, 40, 8}, testTorch{})
		_ = tx.SetBlock(cube.Pos{9, 40, 8}, testTorch{})
		_ = tx.SetBlock(cube.Pos{8, 41, 8}, testStone{})
	})
	drainLight(w)

	<-w.Exec(func(tx *Tx) {
		for x := 4; x <= 12; x++ {
			for y := 36; y <= 44; y++ {
				v, err := tx.Light(cube.Pos{x, y, 8})
				if err != nil {
					t.Errorf("light at (%v,%v): %v", x, y, err)
					continue
				}
				if v > 15 {
					t.Errorf("light at (%v,%v) out of range: %v", x, y, v)
				}
			}
		}
	})
}

func TestSkyLightOcclusion(t *testing.T) {
	w := newTestWorld(t, Config{})
	loadChunkSync(t, w, ChunkPos{0, 0})

	// A roof of stone blocks the sky column below it.
	roof := cube.Pos{8, 60, 8}
	<-w.Exec(func(tx *Tx) {
		_ = tx.SetBlock(roof, testStone{})
	})
	drainLight(w)

	if v := skyLightAt(w, roof.Add(cube.Pos{0, 1, 0})); v != 15 {
		t.Errorf("sky light above roof: got %v, want 15", v)
	}
	below := roof.Add(cube.Pos{0, -1, 0})
	if v := skyLightAt(w, below); v >= 15 {
		t.Errorf("sky light below roof: got %v, want below 15", v)
	}
}

func TestLightBudgetDefersWork(t *testing.T) {
	w := newTestWorld(t, Config{LightUpdateBudget: 1})
	loadChunkSync(t, w, ChunkPos{0, 0})

	<-w.Exec(func(tx *Tx) {
		_ = tx.SetBlock(cube.Pos{8, 40, 8}, testTorch{})
	})
	// A budget of one cannot finish the propagation in a single pass.
	<-w.Exec(func(tx *Tx) {
		w.tickLight(w.conf.LightUpdateBudget)
	})
	var pending int
	<-w.Exec(func(tx *Tx) {
		pending = len(w.lightQueue) - w.lightHead
	})
	if pending == 0 {
		t.Fatalf("expected pending light work after exhausted budget")
	}
	drainLight(w)
	if v := blockLightAt(w, cube.Pos{10, 40, 8}); v != 12 {
		t.Errorf("light after drain: got %v, want 12", v)
	}
}

// TestDeferredLightReplayOnLoad verifies that light work crossing into an
// unloaded chunk is parked and replayed once that chunk loads.
func TestDeferredLightReplayOnLoad(t *testing.T) {
	w := newTestWorld(t, Config{})
	loadChunkSync(t, w, ChunkPos{0, 0})

	// A torch on the chunk border spills light into the unloaded neighbour.
	torch := cube.Pos{15, 10, 8}
	<-w.Exec(func(tx *Tx) {
		if err := tx.SetBlock(torch, testTorch{}); err != nil {
			t.Errorf("set torch: %v", err)
		}
	})
	drainLight(w)

	var parked int
	<-w.Exec(func(tx *Tx) {
		parked = len(w.deferredLight[ChunkPos{1, 0}])
	})
	if parked == 0 {
		t.Fatalf("no light work parked for the unloaded neighbour chunk")
	}

	loadChunkSync(t, w, ChunkPos{1, 0})
	drainLight(w)

	var still bool
	<-w.Exec(func(tx *Tx) {
		_, still = w.deferredLight[ChunkPos{1, 0}]
	})
	if still {
		t.Fatalf("parked light work not replayed after the chunk loaded")
	}
	if got := blockLightAt(w, cube.Pos{16, 10, 8}); got != 13 {
		t.Fatalf("block light across the chunk border: %v, want 13", got)
	}
}
