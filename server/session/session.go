// Package session connects a network client to a world. A Session translates
// inbound client commands into world transactions and implements world.Viewer
// to stream world changes back to the client.
package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidewater-mc/tidewater/server/entity"
	"github.com/tidewater-mc/tidewater/server/world"
)

// Conn is the subset of a network connection a Session needs. It is
// implemented by *websocket.Conn.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Compile time check to make sure *websocket.Conn implements Conn.
var _ Conn = (*websocket.Conn)(nil)

// Config holds the settings of a new Session.
type Config struct {
	// Log is the logger the session writes to. Defaults to slog.Default().
	Log *slog.Logger
	// Name is the display name of the session's player entity.
	Name string
	// ViewRadius is the chunk radius kept loaded around the player. Defaults
	// to 8, capped at MaxViewRadius.
	ViewRadius int
	// MaxViewRadius is the highest view radius the client may request through
	// set_radius; requests above it are capped rather than rejected. Defaults
	// to 32.
	MaxViewRadius int
	// OutboundQueueSize is the number of outbound messages buffered before
	// the session gives up and disconnects the client. Defaults to 512.
	OutboundQueueSize int
}

// New spawns a session for the connection passed into the world. The player
// entity and its chunk loader are created in a single transaction, so the
// client is fully joined once New returns.
func (conf Config) New(conn Conn, w *world.World) *Session {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.MaxViewRadius == 0 {
		conf.MaxViewRadius = 32
	}
	if conf.ViewRadius == 0 {
		conf.ViewRadius = 8
	}
	if conf.ViewRadius > conf.MaxViewRadius {
		conf.ViewRadius = conf.MaxViewRadius
	}
	if conf.OutboundQueueSize == 0 {
		conf.OutboundQueueSize = 512
	}
	s := &Session{
		id:       uuid.New(),
		conf:     conf,
		conn:     conn,
		w:        w,
		outbound: make(chan []byte, conf.OutboundQueueSize),
		closed:   make(chan struct{}),
	}
	s.log = conf.Log.With("session", s.id.String(), "name", conf.Name)

	<-w.Exec(func(tx *world.Tx) {
		s.player = tx.AddEntity(entity.PlayerType{}, entity.NewPlayerData(conf.Name, w))
		s.loader = world.NewLoader(conf.ViewRadius, w, s)
		s.loader.Move(tx, s.player.Position())
	})
	go s.readLoop()
	go s.writeLoop()
	s.log.Info("session joined", "radius", conf.ViewRadius)
	return s
}

// Session is a player connection to a world. All of its world.Viewer methods
// are called on the world's simulation goroutine; outbound messages are
// buffered and written by the session's own writer goroutine so that a slow
// client can never stall the simulation.
type Session struct {
	id   uuid.UUID
	conf Config
	log  *slog.Logger
	conn Conn
	w    *world.World

	player *world.EntityHandle
	loader *world.Loader

	outbound chan []byte
	dropped  atomic.Uint64

	once   sync.Once
	closed chan struct{}
}

// ID returns the unique id of the session.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Done returns a channel that is closed once the session closed, either by a
// call to Close or by its connection failing.
func (s *Session) Done() <-chan struct{} {
	return s.closed
}

// Player returns the handle of the session's player entity.
func (s *Session) Player() *world.EntityHandle {
	return s.player
}

// Close disconnects the client and removes the player and its loader from
// the world in a single transaction. Close is idempotent.
func (s *Session) Close() error {
	s.once.Do(func() {
		close(s.closed)
		<-s.w.Exec(func(tx *world.Tx) {
			s.loader.Close(tx)
			if err := tx.RemoveEntity(s.player); err != nil && !errors.Is(err, world.ErrUnknownEntity) {
				s.log.Error("remove player: " + err.Error())
			}
		})
		_ = s.conn.Close()
		s.log.Info("session closed", "dropped_messages", s.dropped.Load())
	})
	return nil
}

// readLoop reads inbound messages from the connection and applies them as
// world transactions until the connection fails or the session closes.
func (s *Session) readLoop() {
	defer s.Close()
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closed:
			default:
				s.log.Debug("read connection: " + err.Error())
			}
			return
		}
		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.sendError("", "malformed command: "+err.Error())
			continue
		}
		s.handleCommand(cmd)
	}
}

// writeLoop writes buffered outbound messages to the connection until the
// session closes.
func (s *Session) writeLoop() {
	for {
		select {
		case data := <-s.outbound:
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.log.Debug("write connection: " + err.Error())
				go s.Close()
				return
			}
		case <-s.closed:
			return
		}
	}
}

// send queues an outbound message. If the outbound queue is saturated, the
// client is too slow to keep up with the simulation and is disconnected
// rather than allowed to block it.
func (s *Session) send(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("encode message: " + err.Error())
		return
	}
	select {
	case s.outbound <- data:
	case <-s.closed:
	default:
		s.dropped.Add(1)
		s.log.Warn("outbound queue saturated, disconnecting")
		go s.Close()
	}
}

// sendError sends an error message in response to the command with the id
// passed.
func (s *Session) sendError(commandID, msg string) {
	s.send(errorMessage{Type: "error", CommandID: commandID, Message: msg})
}
