// Package sock gives server and client a single capability interface over
// plain TCP and TLS connections, so neither has to branch on which kind it
// holds. It replaces a virtual-base-class BaseSocket/Socket/SslSocket
// hierarchy with one Go interface and two thin implementations.
package sock

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"
)

// Socket is the uniform read/write/close/deadline surface both the server
// connection state machine and the client transaction drive. Close is
// idempotent and safe to call concurrently with a blocked Read or Write on
// another goroutine — used by a deadline watcher and by Client.Abort to
// unblock I/O in flight.
type Socket interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)

	SetDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error

	CloseRead() error
	CloseWrite() error
	Close() error

	LocalAddr() net.Addr
	RemoteAddr() net.Addr

	IsTLS() bool
	ConnectionState() tls.ConnectionState
}

// socket wraps a net.Conn (plain or *tls.Conn) with an idempotent Close.
type socket struct {
	conn   net.Conn
	isTLS  bool
	once   sync.Once
	closed error
}

func wrap(conn net.Conn, isTLS bool) *socket {
	return &socket{conn: conn, isTLS: isTLS}
}

func (s *socket) Read(p []byte) (int, error)  { return s.conn.Read(p) }
func (s *socket) Write(p []byte) (int, error) { return s.conn.Write(p) }

func (s *socket) SetDeadline(t time.Time) error      { return s.conn.SetDeadline(t) }
func (s *socket) SetReadDeadline(t time.Time) error  { return s.conn.SetReadDeadline(t) }
func (s *socket) SetWriteDeadline(t time.Time) error { return s.conn.SetWriteDeadline(t) }

// CloseRead shuts down the read half when the underlying conn supports it
// (a *net.TCPConn does); otherwise it falls back to a full Close.
func (s *socket) CloseRead() error {
	if cr, ok := s.conn.(interface{ CloseRead() error }); ok {
		return cr.CloseRead()
	}
	return s.Close()
}

// CloseWrite shuts down the write half when the underlying conn supports
// it; otherwise it falls back to a full Close.
func (s *socket) CloseWrite() error {
	if cw, ok := s.conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return s.Close()
}

func (s *socket) Close() error {
	s.once.Do(func() {
		s.closed = s.conn.Close()
	})
	return s.closed
}

func (s *socket) LocalAddr() net.Addr  { return s.conn.LocalAddr() }
func (s *socket) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

func (s *socket) IsTLS() bool { return s.isTLS }

func (s *socket) ConnectionState() tls.ConnectionState {
	if tc, ok := s.conn.(*tls.Conn); ok {
		return tc.ConnectionState()
	}
	return tls.ConnectionState{}
}

// WrapPlain adapts an already-connected or already-accepted plain net.Conn
// into a Socket.
func WrapPlain(conn net.Conn) Socket {
	return wrap(conn, false)
}

// WrapTLS adapts an accepted net.Conn into a server-side TLS Socket. The
// handshake itself is performed (or deferred, per tls.Config) by
// tls.Server the first time Read or Write is called.
func WrapTLS(conn net.Conn, cfg *tls.Config) Socket {
	return wrap(tls.Server(conn, cfg), true)
}

// DialPlain dials a plain TCP connection to addr.
func DialPlain(ctx context.Context, network, addr string) (Socket, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	return wrap(conn, false), nil
}

// DialTLS dials addr and performs a TLS handshake using cfg before
// returning.
func DialTLS(ctx context.Context, network, addr string, cfg *tls.Config) (Socket, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	tconn := tls.Client(conn, cfg)
	if err := tconn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return wrap(tconn, true), nil
}
