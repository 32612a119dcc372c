// Package server ties the world simulation, the network listener and the
// query responder together into a runnable game server.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidewater-mc/tidewater/server/query"
	"github.com/tidewater-mc/tidewater/server/session"
	"github.com/tidewater-mc/tidewater/server/world"
)

// Server is a complete game server. It owns a single World and accepts
// websocket connections that become player sessions in it.
type Server struct {
	conf Config
	w    *world.World

	httpSrv  *http.Server
	listener net.Listener
	query    *query.Server

	smu      sync.RWMutex
	sessions map[uuid.UUID]*session.Session

	once sync.Once
}

// New creates a Server with the default Config.
func New() *Server {
	var conf Config
	return conf.New()
}

// World returns the world the server simulates.
func (srv *Server) World() *world.World {
	return srv.w
}

// PlayerCount returns the number of sessions currently connected.
func (srv *Server) PlayerCount() int {
	srv.smu.RLock()
	defer srv.smu.RUnlock()
	return len(srv.sessions)
}

// MaxPlayerCount returns the configured player limit, or the current player
// count plus one if no limit was set.
func (srv *Server) MaxPlayerCount() int {
	if srv.conf.MaxPlayers == 0 {
		return srv.PlayerCount() + 1
	}
	return srv.conf.MaxPlayers
}

// Listen starts accepting connections on the configured address. It returns
// once the listener is bound; connections are handled on background
// goroutines until the server closes.
func (srv *Server) Listen() error {
	listener, err := net.Listen("tcp", srv.conf.Address)
	if err != nil {
		return err
	}
	srv.listener = listener

	if srv.conf.QueryAddress != "" {
		q, err := query.Listen(srv.conf.QueryAddress, srv.conf.Log)
		if err != nil {
			srv.conf.Log.Error("start query responder: " + err.Error())
		} else {
			srv.query = q
		}
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/join", func(rw http.ResponseWriter, r *http.Request) {
		srv.handleJoin(upgrader, rw, r)
	})
	srv.httpSrv = &http.Server{Handler: mux}

	go func() {
		if err := srv.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.conf.Log.Error("serve listener: " + err.Error())
		}
	}()
	srv.conf.Log.Info("server listening", "addr", listener.Addr().String())
	return nil
}

// handleJoin upgrades an HTTP request to a websocket connection and spawns a
// session for it.
func (srv *Server) handleJoin(upgrader websocket.Upgrader, rw http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(rw, "missing name", http.StatusBadRequest)
		return
	}
	if srv.conf.MaxPlayers > 0 && srv.PlayerCount() >= srv.conf.MaxPlayers {
		http.Error(rw, "server full", http.StatusServiceUnavailable)
		return
	}
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		srv.conf.Log.Debug("upgrade connection: " + err.Error())
		return
	}
	s := (session.Config{
		Log:           srv.conf.Log,
		Name:          name,
		ViewRadius:    min(srv.conf.MaxChunkRadius, 8),
		MaxViewRadius: srv.conf.MaxChunkRadius,
	}).New(conn, srv.w)

	srv.smu.Lock()
	srv.sessions[s.ID()] = s
	srv.smu.Unlock()
	go srv.reapSession(s)
}

// reapSession removes the session from the server's set once it closed.
func (srv *Server) reapSession(s *session.Session) {
	<-s.Done()
	srv.smu.Lock()
	delete(srv.sessions, s.ID())
	srv.smu.Unlock()
}

// playerNames returns the names of all connected sessions in sorted order.
func (srv *Server) playerNames() []string {
	srv.smu.RLock()
	names := make([]string, 0, len(srv.sessions))
	for _, s := range srv.sessions {
		names = append(names, s.Player().Name())
	}
	srv.smu.RUnlock()
	sort.Strings(names)
	return names
}

// registerQueryServer exposes the Server instance to the query responder.
func registerQueryServer(srv *Server) {
	query.RegisterProvider(func(host string, port int) query.Data {
		return query.Data{
			HostName:    srv.conf.Name,
			WorldName:   srv.w.Name(),
			PlayerCount: srv.PlayerCount(),
			MaxPlayers:  srv.MaxPlayerCount(),
			HostIP:      host,
			HostPort:    port,
			PlayerNames: srv.playerNames(),
		}
	})
}

// Close shuts the server down: the listener stops accepting connections, all
// sessions are disconnected and the world is saved and closed. Close is
// idempotent.
func (srv *Server) Close() error {
	srv.once.Do(srv.close)
	return nil
}

func (srv *Server) close() {
	srv.conf.Log.Info("server shutting down")
	if srv.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		if err := srv.httpSrv.Shutdown(ctx); err != nil {
			srv.conf.Log.Error("shutdown listener: " + err.Error())
		}
	}
	if srv.query != nil {
		_ = srv.query.Close()
	}

	srv.smu.Lock()
	sessions := make([]*session.Session, 0, len(srv.sessions))
	for _, s := range srv.sessions {
		sessions = append(sessions, s)
	}
	srv.smu.Unlock()
	for _, s := range sessions {
		_ = s.Close()
	}

	if err := srv.w.Close(); err != nil {
		srv.conf.Log.Error("close world: " + err.Error())
	}
}
