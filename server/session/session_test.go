package session

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	_ "github.com/tidewater-mc/tidewater/server/block"
	"github.com/tidewater-mc/tidewater/server/world"
)

// fakeConn is an in-memory Conn. Messages written by the session are buffered
// in out; inbound client messages are fed through in.
type fakeConn struct {
	in  chan []byte
	out chan []byte

	once   sync.Once
	closed chan struct{}

	// skipped buffers outbound messages read but not matched by readUntil, so
	// that a later readUntil can still find them regardless of the order the
	// session queued them in.
	skipped []map[string]any
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 4096),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-c.in:
		return 1, data, nil
	case <-c.closed:
		return 0, nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	select {
	case <-c.closed:
		return net.ErrClosed
	default:
	}
	select {
	case c.out <- data:
	default:
		// Tests that do not drain the connection must not deadlock the
		// session's writer.
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() {
		close(c.closed)
	})
	return nil
}

// command sends a client command to the session.
func (c *fakeConn) command(t *testing.T, cmd map[string]any) {
	t.Helper()
	data, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("encode command: %v", err)
	}
	select {
	case c.in <- data:
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not read the command")
	}
}

// readUntil returns the first outbound message pred matches, failing the test
// if none arrives within the timeout. Messages read but not matched stay
// available to later readUntil calls, so assertions do not depend on the
// order in which the session queued its messages.
func (c *fakeConn) readUntil(t *testing.T, pred func(msg map[string]any) bool) map[string]any {
	t.Helper()
	for i, msg := range c.skipped {
		if pred(msg) {
			c.skipped = append(c.skipped[:i], c.skipped[i+1:]...)
			return msg
		}
	}
	deadline := time.After(10 * time.Second)
	for {
		select {
		case data := <-c.out:
			var msg map[string]any
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("decode outbound message %q: %v", data, err)
			}
			if pred(msg) {
				return msg
			}
			c.skipped = append(c.skipped, msg)
		case <-deadline:
			t.Fatalf("expected outbound message never arrived")
		}
	}
}

func msgType(want string) func(msg map[string]any) bool {
	return func(msg map[string]any) bool {
		return msg["type"] == want
	}
}

func reply(want, commandID string) func(msg map[string]any) bool {
	return func(msg map[string]any) bool {
		return msg["type"] == want && msg["command_id"] == commandID
	}
}

func newSessionWorld(t *testing.T) *world.World {
	t.Helper()
	w := world.Config{
		Log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}.New()
	t.Cleanup(func() {
		_ = w.Close()
	})
	return w
}

func joinSession(t *testing.T, w *world.World) (*Session, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	s := Config{
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Name:       "tester",
		ViewRadius: 1,
	}.New(conn, w)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s, conn
}

func TestSessionJoinStreamsChunks(t *testing.T) {
	w := newSessionWorld(t)
	_, conn := joinSession(t, w)

	msg := conn.readUntil(t, msgType("chunk"))
	if msg["payload"] == nil || msg["payload"] == "" {
		t.Fatalf("chunk message carries no payload: %v", msg)
	}
}

func TestSessionMoveAck(t *testing.T) {
	w := newSessionWorld(t)
	s, conn := joinSession(t, w)

	conn.command(t, map[string]any{"id": "m1", "type": "move", "to": [3]float64{4, 65, 4}})
	conn.readUntil(t, reply("ack", "m1"))

	var pos [3]float64
	<-w.Exec(func(tx *world.Tx) {
		p := s.Player().Position()
		pos = [3]float64{p[0], p[1], p[2]}
	})
	if pos != ([3]float64{4, 65, 4}) {
		t.Fatalf("player position after move: %v", pos)
	}
}

func TestSessionSetAndQueryBlock(t *testing.T) {
	w := newSessionWorld(t)
	_, conn := joinSession(t, w)

	// Wait until the centre chunk was sent, so the write targets a loaded
	// chunk.
	conn.readUntil(t, func(msg map[string]any) bool {
		return msg["type"] == "chunk" && msg["x"] == float64(0) && msg["z"] == float64(0)
	})

	conn.command(t, map[string]any{"id": "s1", "type": "set_block", "pos": [3]int{1, 30, 1}, "block": map[string]any{"id": 1}})
	conn.readUntil(t, reply("ack", "s1"))

	// The write is also broadcast to the session as a viewer of the chunk.
	conn.readUntil(t, func(msg map[string]any) bool {
		if msg["type"] != "block_update" {
			return false
		}
		b := msg["block"].(map[string]any)
		return b["id"] == float64(1)
	})

	conn.command(t, map[string]any{"id": "q1", "type": "query_block", "pos": [3]int{1, 30, 1}})
	msg := conn.readUntil(t, reply("block_result", "q1"))
	if got := msg["block"].(map[string]any)["id"]; got != float64(1) {
		t.Fatalf("queried block id: %v, want 1", got)
	}
}

func TestSessionQueryBlockUnloaded(t *testing.T) {
	w := newSessionWorld(t)
	_, conn := joinSession(t, w)

	conn.command(t, map[string]any{"id": "q1", "type": "query_block", "pos": [3]int{100000, 30, 100000}})
	msg := conn.readUntil(t, reply("error", "q1"))
	if msg["message"] == "" {
		t.Fatalf("error reply carries no message")
	}
}

func TestSessionScheduleAndCancelTicks(t *testing.T) {
	w := newSessionWorld(t)
	_, conn := joinSession(t, w)

	conn.readUntil(t, func(msg map[string]any) bool {
		return msg["type"] == "chunk" && msg["x"] == float64(0) && msg["z"] == float64(0)
	})

	conn.command(t, map[string]any{"id": "t1", "type": "schedule_tick", "pos": [3]int{2, 30, 2}, "delay": 1000})
	conn.readUntil(t, reply("ack", "t1"))

	conn.command(t, map[string]any{"id": "c1", "type": "cancel_ticks", "pos": [3]int{2, 30, 2}})
	msg := conn.readUntil(t, reply("ack", "c1"))
	if got := msg["count"]; got != float64(1) {
		t.Fatalf("cancelled %v ticks, want 1", got)
	}
}

func TestSessionSetRadiusValidation(t *testing.T) {
	w := newSessionWorld(t)
	_, conn := joinSession(t, w)

	conn.command(t, map[string]any{"id": "r1", "type": "set_radius", "radius": 0})
	conn.readUntil(t, reply("error", "r1"))

	conn.command(t, map[string]any{"id": "r2", "type": "set_radius", "radius": 2})
	conn.readUntil(t, reply("ack", "r2"))
}

// TestSessionSetRadiusCapped verifies that a radius request above the
// configured maximum is capped rather than rejected.
func TestSessionSetRadiusCapped(t *testing.T) {
	w := newSessionWorld(t)
	conn := newFakeConn()
	s := Config{
		Log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		Name:          "tester",
		ViewRadius:    1,
		MaxViewRadius: 2,
	}.New(conn, w)
	t.Cleanup(func() {
		_ = s.Close()
	})

	conn.command(t, map[string]any{"id": "r1", "type": "set_radius", "radius": 30})
	conn.readUntil(t, reply("ack", "r1"))

	loaded := func() int {
		var n int
		<-w.Exec(func(*world.Tx) {
			n = s.loader.AmountLoaded()
		})
		return n
	}
	// The capped radius of 2 settles the view at a 5x5 square.
	deadline := time.Now().Add(10 * time.Second)
	for loaded() != 25 {
		if time.Now().After(deadline) {
			t.Fatalf("view never reached 25 chunks: %v loaded", loaded())
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(300 * time.Millisecond)
	if got := loaded(); got != 25 {
		t.Fatalf("view grew past the capped radius: %v chunks", got)
	}
}

func TestSessionUnknownCommand(t *testing.T) {
	w := newSessionWorld(t)
	_, conn := joinSession(t, w)

	conn.command(t, map[string]any{"id": "u1", "type": "fly"})
	conn.readUntil(t, reply("error", "u1"))
}

func TestSessionMalformedCommand(t *testing.T) {
	w := newSessionWorld(t)
	_, conn := joinSession(t, w)

	conn.in <- []byte("{not json")
	conn.readUntil(t, msgType("error"))
}

func TestSessionClose(t *testing.T) {
	w := newSessionWorld(t)
	s, _ := joinSession(t, w)

	player := s.Player()
	if err := s.Close(); err != nil {
		t.Fatalf("close session: %v", err)
	}
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("Done not closed after Close")
	}
	// Close is idempotent.
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	<-w.Exec(func(tx *world.Tx) {
		if err := tx.RemoveEntity(player); !errors.Is(err, world.ErrUnknownEntity) {
			t.Errorf("player still in world after session close: %v", err)
		}
	})
}

func TestSessionClosesOnConnError(t *testing.T) {
	w := newSessionWorld(t)
	s, conn := joinSession(t, w)

	_ = conn.Close()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not close after its connection failed")
	}
}
