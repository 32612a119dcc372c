package query

import (
	"errors"
	"log/slog"
	"net"
)

const (
	queryTypeHandshake   = 0x09
	queryTypeInformation = 0x00
)

var (
	querySplitNum  = [...]byte{'S', 'P', 'L', 'I', 'T', 'N', 'U', 'M', 0x00}
	queryPlayerKey = [...]byte{0x00, 0x01, 'p', 'l', 'a', 'y', 'e', 'r', '_', 0x00, 0x00}
	queryVersion   = [...]byte{0xfe, 0xfd}
)

// Listen starts a query responder on the UDP address passed. The responder
// runs until Close is called on the returned Server.
func Listen(address string, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	conn, err := net.ListenPacket("udp", address)
	if err != nil {
		return nil, err
	}
	local, _ := net.ResolveUDPAddr("udp", conn.LocalAddr().String())
	host, port := "", 0
	if local != nil {
		port = local.Port
		if local.IP != nil && !local.IP.IsUnspecified() {
			host = local.IP.String()
		}
	}
	s := &Server{conn: &packetConn{PacketConn: conn, log: log, host: host, port: port}, log: log}
	go s.serve()
	return s, nil
}

// Server responds to query requests on a UDP socket.
type Server struct {
	conn *packetConn
	log  *slog.Logger
}

// Addr returns the local address the responder listens on.
func (s *Server) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// serve reads datagrams until the socket closes. All query handling happens
// inside packetConn.ReadFrom; any non-query datagrams that arrive on the
// socket are ignored.
func (s *Server) serve() {
	buf := make([]byte, 1500)
	for {
		_, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Debug("query responder: " + err.Error())
			}
			return
		}
	}
}

// Close closes the responder's socket.
func (s *Server) Close() error {
	return s.conn.Close()
}
