package chunk

import (
	"strings"
	"testing"
)

func TestSetBlockRoundtrip(t *testing.T) {
	c := New()
	c.SetBlock(3, 50, 9, 17, 5)
	if id, meta := c.Block(3, 50, 9); id != 17 || meta != 5 {
		t.Fatalf("read back id %v meta %v, want 17/5", id, meta)
	}
	// Neighbouring cells must be unaffected by the packed metadata write.
	if id, meta := c.Block(3, 51, 9); id != 0 || meta != 0 {
		t.Fatalf("adjacent cell changed: id %v meta %v", id, meta)
	}
	if id, meta := c.Block(3, 49, 9); id != 0 || meta != 0 {
		t.Fatalf("adjacent cell changed: id %v meta %v", id, meta)
	}
}

func TestNibblePacking(t *testing.T) {
	var a nibbleArray
	for i := uint16(0); i < 8; i++ {
		a.set(i, uint8(i)+8)
	}
	for i := uint16(0); i < 8; i++ {
		if got := a.at(i); got != uint8(i)+8 {
			t.Fatalf("nibble %v: got %v, want %v", i, got, uint8(i)+8)
		}
	}
	// Values above 15 are truncated to their low nibble.
	a.set(0, 0x1f)
	if got := a.at(0); got != 0x0f {
		t.Fatalf("truncated nibble: got %v, want 15", got)
	}
}

func TestNewChunkFullSkyLight(t *testing.T) {
	c := New()
	for _, y := range []uint8{0, 64, 127} {
		if v := c.SkyLight(8, y, 8); v != 15 {
			t.Fatalf("sky light of new chunk at y=%v: %v, want 15", y, v)
		}
		if v := c.BlockLight(8, y, 8); v != 0 {
			t.Fatalf("block light of new chunk at y=%v: %v, want 0", y, v)
		}
	}
	if !c.Empty() {
		t.Fatalf("new chunk not empty")
	}
}

func TestLightCombines(t *testing.T) {
	c := New()
	c.SetSkyLight(1, 1, 1, 4)
	c.SetBlockLight(1, 1, 1, 9)
	if v := c.Light(1, 1, 1); v != 9 {
		t.Fatalf("combined light: %v, want 9", v)
	}
	c.SetSkyLight(1, 1, 1, 12)
	if v := c.Light(1, 1, 1); v != 12 {
		t.Fatalf("combined light: %v, want 12", v)
	}
}

func TestHighestBlock(t *testing.T) {
	c := New()
	if y := c.HighestBlock(2, 2); y != 0 {
		t.Fatalf("highest block of empty column: %v, want 0", y)
	}
	c.SetBlock(2, 10, 2, 1, 0)
	c.SetBlock(2, 60, 2, 1, 0)
	if y := c.HighestBlock(2, 2); y != 60 {
		t.Fatalf("highest block: %v, want 60", y)
	}
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	c := New()
	c.SetBlock(0, 0, 0, 7, 0)
	c.SetBlock(15, 127, 15, 54, 3)
	c.SetBlockLight(4, 40, 4, 14)
	c.SetSkyLight(4, 41, 4, 3)
	c.SetHeight(9, 9, 42)

	d, err := DecodeChunk(c.Encode())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if id, meta := d.Block(15, 127, 15); id != 54 || meta != 3 {
		t.Fatalf("decoded block: id %v meta %v, want 54/3", id, meta)
	}
	if v := d.BlockLight(4, 40, 4); v != 14 {
		t.Fatalf("decoded block light: %v, want 14", v)
	}
	if v := d.SkyLight(4, 41, 4); v != 3 {
		t.Fatalf("decoded sky light: %v, want 3", v)
	}
	if h := d.Height(9, 9); h != 42 {
		t.Fatalf("decoded height: %v, want 42", h)
	}
}

func TestDecodeErrors(t *testing.T) {
	data := New().Encode()

	if _, err := DecodeChunk(data[:len(data)-1]); err == nil {
		t.Fatalf("decoding truncated payload succeeded")
	}
	if _, err := DecodeChunk(append(data, 0)); err == nil {
		t.Fatalf("decoding oversized payload succeeded")
	}

	bad := append([]byte(nil), data...)
	bad[0] = 99
	_, err := DecodeChunk(bad)
	if err == nil {
		t.Fatalf("decoding unknown version succeeded")
	}
	if !strings.Contains(err.Error(), "version") {
		t.Fatalf("unknown version error: %v", err)
	}
}
