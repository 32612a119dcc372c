package server

import (
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidewater-mc/tidewater/server/block"
	"github.com/tidewater-mc/tidewater/server/world/chunkdb"
	"github.com/tidewater-mc/tidewater/server/world/generator"
)

func startServer(t *testing.T, conf Config) *Server {
	t.Helper()
	if conf.Log == nil {
		conf.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if conf.Address == "" {
		conf.Address = "127.0.0.1:0"
	}
	if conf.Generator == nil {
		conf.Generator = generator.NewFlat(block.Bedrock{}, block.Dirt{}, block.Grass{})
	}
	srv := conf.New()
	if err := srv.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() {
		_ = srv.Close()
	})
	return srv
}

func joinURL(srv *Server, name string) string {
	u := url.URL{Scheme: "ws", Host: srv.listener.Addr().String(), Path: "/join"}
	if name != "" {
		u.RawQuery = "name=" + name
	}
	return u.String()
}

func waitForCount(t *testing.T, srv *Server, want int) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for srv.PlayerCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("player count: %v, want %v", srv.PlayerCount(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServerJoinLeave(t *testing.T) {
	srv := startServer(t, Config{})

	conn, _, err := websocket.DefaultDialer.Dial(joinURL(srv, "alice"), nil)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	waitForCount(t, srv, 1)

	// The session streams world state to the client once joined.
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	if _, data, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read first message: %v", err)
	} else if len(data) == 0 {
		t.Fatalf("empty first message")
	}

	_ = conn.Close()
	waitForCount(t, srv, 0)
}

func TestServerJoinRequiresName(t *testing.T) {
	srv := startServer(t, Config{})

	_, resp, err := websocket.DefaultDialer.Dial(joinURL(srv, ""), nil)
	if err == nil {
		t.Fatalf("join without a name succeeded")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Fatalf("join without a name: response %+v", resp)
	}
}

func TestServerEnforcesPlayerLimit(t *testing.T) {
	srv := startServer(t, Config{MaxPlayers: 1})

	conn, _, err := websocket.DefaultDialer.Dial(joinURL(srv, "alice"), nil)
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	defer conn.Close()
	waitForCount(t, srv, 1)

	_, resp, err := websocket.DefaultDialer.Dial(joinURL(srv, "bob"), nil)
	if err == nil {
		t.Fatalf("join beyond the player limit succeeded")
	}
	if resp == nil || resp.StatusCode != 503 {
		t.Fatalf("join beyond the player limit: response %+v", resp)
	}
	if srv.MaxPlayerCount() != 1 {
		t.Fatalf("max player count: %v, want 1", srv.MaxPlayerCount())
	}
}

func TestServerPlayerNamesSorted(t *testing.T) {
	srv := startServer(t, Config{})

	for _, name := range []string{"carol", "alice", "bob"} {
		conn, _, err := websocket.DefaultDialer.Dial(joinURL(srv, name), nil)
		if err != nil {
			t.Fatalf("join %v: %v", name, err)
		}
		defer conn.Close()
	}
	waitForCount(t, srv, 3)

	names := srv.playerNames()
	want := []string{"alice", "bob", "carol"}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("player names: %v, want %v", names, want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.Network.Address == "" {
		t.Errorf("default address empty")
	}
	if !c.World.SaveData || c.World.Folder == "" {
		t.Errorf("default world persistence not configured")
	}
	if c.Players.MaximumChunkRadius <= 0 {
		t.Errorf("default chunk radius: %v", c.Players.MaximumChunkRadius)
	}
}

func TestUserConfigProvider(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	uc := DefaultConfig()
	uc.World.Folder = filepath.Join(t.TempDir(), "world")
	conf, err := uc.Config(log)
	if err != nil {
		t.Fatalf("convert config: %v", err)
	}
	db, ok := conf.WorldProvider.(*chunkdb.DB)
	if !ok {
		t.Fatalf("provider is %T, want *chunkdb.DB", conf.WorldProvider)
	}
	_ = db.Close()

	uc.World.SaveData = false
	conf, err = uc.Config(log)
	if err != nil {
		t.Fatalf("convert config: %v", err)
	}
	if conf.WorldProvider != nil {
		t.Fatalf("provider set with persistence disabled: %T", conf.WorldProvider)
	}
}
