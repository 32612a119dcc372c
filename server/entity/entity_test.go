package entity_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tidewater-mc/tidewater/server/block"
	"github.com/tidewater-mc/tidewater/server/entity"
	"github.com/tidewater-mc/tidewater/server/world"
	"github.com/tidewater-mc/tidewater/server/world/generator"
)

func newTickingWorld(t *testing.T) *world.World {
	t.Helper()
	w := world.Config{
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Generator: generator.NewFlat(block.Bedrock{}, block.Dirt{}, block.Grass{}),
	}.New()
	t.Cleanup(func() {
		_ = w.Close()
	})

	l := world.NewLoader(1, w, world.NopViewer{})
	<-w.Exec(func(tx *world.Tx) {
		l.Move(tx, mgl64.Vec3{8, 0, 8})
	})
	waitFor(t, func() bool {
		return l.AmountLoaded() == 9
	})
	return w
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not reached within deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestItemFallsAndSettles(t *testing.T) {
	w := newTickingWorld(t)

	var item *world.EntityHandle
	<-w.Exec(func(tx *world.Tx) {
		item = tx.AddEntity(entity.ItemType{ID: 1, Count: 3}, world.EntityData{Pos: mgl64.Vec3{8.5, 20, 8.5}})
	})

	// The flat world surface is at y=3, so the item must come to rest just
	// above it at y=4.
	waitFor(t, func() bool {
		var settled bool
		<-w.Exec(func(tx *world.Tx) {
			pos, vel := item.Position(), item.Velocity()
			settled = pos[1] == 4 && vel[1] == 0
		})
		return settled
	})
}

func TestItemDespawnsAfterLifetime(t *testing.T) {
	w := newTickingWorld(t)

	var item *world.EntityHandle
	<-w.Exec(func(tx *world.Tx) {
		// Age the item so it is past its lifetime on the next tick.
		item = tx.AddEntity(entity.ItemType{ID: 1, Count: 1}, world.EntityData{
			Pos: mgl64.Vec3{8.5, 10, 8.5},
			Age: 6000,
		})
	})

	waitFor(t, func() bool {
		var removed bool
		<-w.Exec(func(tx *world.Tx) {
			removed = len(tx.EntitiesIn(world.ChunkPos{0, 0})) == 0
		})
		return removed
	})

	// The handle was despawned: removing it again must report it unknown.
	<-w.Exec(func(tx *world.Tx) {
		if err := tx.RemoveEntity(item); !errors.Is(err, world.ErrUnknownEntity) {
			t.Errorf("removing the despawned item: %v, want ErrUnknownEntity", err)
		}
	})
}

func TestPlayerSpawnData(t *testing.T) {
	w := newTickingWorld(t)

	data := entity.NewPlayerData("steve", w)
	if data.Name != "steve" {
		t.Fatalf("player name: %v", data.Name)
	}
	spawn := w.Spawn()
	want := mgl64.Vec3{float64(spawn[0]) + 0.5, float64(spawn[1]) + 0.5, float64(spawn[2]) + 0.5}
	if data.Pos != want {
		t.Fatalf("player spawn position: %v, want %v", data.Pos, want)
	}
}
