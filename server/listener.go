package server

import (
	"errors"
	"net"
	"strings"
	"sync"

	"github.com/arnebr/httpcore/sock"
	"github.com/sirupsen/logrus"
)

// Listener binds a TCP listener and services it with a pool of worker
// goroutines, each blocked in Accept() on the same net.Listener — the
// idiomatic-Go stand-in for N reactor threads sharing one acceptor, since
// the kernel already arbitrates which goroutine's Accept() wins each
// incoming connection.
type Listener struct {
	ln      net.Listener
	opts    Options
	handler Handler
	log     *logrus.Entry

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewListener binds addr and returns a Listener ready for Serve. It warns
// (via logrus) if TLS is enabled on port 80 or disabled on port 443,
// mirroring the source's HttpServer constructor warnings.
func NewListener(addr string, opts Options, handler Handler) (*Listener, error) {
	log := opts.logger().WithField("component", "server.Listener")
	warnPortMismatch(log, addr, opts.TLSConfig != nil)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	return &Listener{ln: ln, opts: opts, handler: handler, log: log}, nil
}

func warnPortMismatch(log *logrus.Entry, addr string, tlsEnabled bool) {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		port = addr
	}
	if tlsEnabled && (port == "80" || port == "http") {
		log.Warn("TLS enabled but listening on port 80, this is not recommended")
	}
	if !tlsEnabled && (port == "443" || port == "https") {
		log.Warn("TLS disabled but listening on port 443, this is not recommended")
	}
}

// Addr returns the listener's bound network address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Serve spawns opts.WorkerCount goroutines that all Accept() on the shared
// listener and hand each accepted connection to a fresh server connection
// goroutine. It returns immediately; call Stop to shut the pool down.
func (l *Listener) Serve() {
	workers := l.opts.workerCount()
	l.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go l.acceptLoop()
	}
}

func (l *Listener) acceptLoop() {
	defer l.wg.Done()
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection") {
				return
			}
			l.log.WithError(err).Warn("accept failed")
			continue
		}

		var sk sock.Socket
		if l.opts.TLSConfig != nil {
			sk = sock.WrapTLS(conn, l.opts.TLSConfig)
		} else {
			sk = sock.WrapPlain(conn)
		}

		c := newConn(sk, l.handler, l.opts)
		go c.serve()
	}
}

// Stop closes the listener, which unblocks every worker's Accept() with a
// closed-network-connection error that the workers treat as their exit
// signal, then waits for all of them to return.
func (l *Listener) Stop() error {
	var err error
	l.stopOnce.Do(func() {
		err = l.ln.Close()
	})
	l.wg.Wait()
	return err
}
