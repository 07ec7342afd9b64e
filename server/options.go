// Package server is the accept loop and per-connection state machine: a
// small goroutine-per-connection rendering of the source's asio reactor
// (N worker threads sharing one acceptor, one connection object per
// accepted socket, a single deadline timer per op instead of a pump loop).
package server

import (
	"crypto/tls"
	"time"

	"github.com/arnebr/httpcore/httpmsg"
	"github.com/sirupsen/logrus"
)

// Options configures a Listener.
type Options struct {
	// WorkerCount is how many goroutines call Accept() on the shared
	// listener. Defaults to 4 when zero.
	WorkerCount int

	// TLSConfig, when non-nil, makes the listener accept TLS connections.
	TLSConfig *tls.Config

	// Limits bounds parsed request sizes; see httpmsg.Limits.
	Limits httpmsg.Limits

	// ReadBufferSize is how many bytes each Read call requests from the
	// socket. Defaults to 8192.
	ReadBufferSize int

	// ReadTimeout/WriteTimeout bound each connection's per-request read and
	// per-response write phases. Zero means no deadline.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Logger receives structured connection lifecycle entries. Defaults to
	// logrus.StandardLogger().
	Logger *logrus.Logger
}

func (o Options) workerCount() int {
	if o.WorkerCount > 0 {
		return o.WorkerCount
	}
	return 4
}

func (o Options) readBufferSize() int {
	if o.ReadBufferSize > 0 {
		return o.ReadBufferSize
	}
	return 8192
}

func (o Options) limits() httpmsg.Limits {
	if o.Limits.MaxContentLength > 0 {
		return o.Limits
	}
	return httpmsg.DefaultLimits
}

func (o Options) logger() *logrus.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.StandardLogger()
}

// DefaultBodyMemLimit is the in-memory ceiling for a connection's
// accumulation buffer before it spills to disk (iobuf.Buffer).
const DefaultBodyMemLimit = 4 * 1024 * 1024

// Handler handles one fully-parsed request and returns the response to
// serialize, or an error (turned into a response by httperr.Wrap at the
// call site).
type Handler func(req *httpmsg.Request) (*httpmsg.Response, error)
