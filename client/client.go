// Package client is the transaction half of the library: a one-shot
// Request function and a reusable Client, both driving the same
// resolve -> dial -> optional TLS handshake -> write -> read-until-parsed
// protocol the source's HttpClient ran on a single asio reactor, rendered
// here as ordinary blocking calls guarded by a context deadline instead of
// a deadline_timer and a pump loop.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/arnebr/httpcore/client/timing"
	"github.com/arnebr/httpcore/httpmsg"
	"github.com/arnebr/httpcore/iobuf"
	"github.com/arnebr/httpcore/sock"
	"github.com/google/uuid"
	"golang.org/x/net/idna"
)

// Client runs HTTP transactions sequentially: at most one is in flight at
// a time, and Do is not safe to call concurrently with itself. It is safe
// to call Abort concurrently with an in-flight Do, which is the whole
// point of the atomic flag and socket field below.
type Client struct {
	opts        Options
	aborted     atomic.Bool
	sock        atomic.Pointer[sock.Socket]
	lastMetrics atomic.Value // timing.Metrics
}

// LastMetrics returns the timing breakdown of the most recently completed
// Do call, or false if none has completed yet.
func (c *Client) LastMetrics() (timing.Metrics, bool) {
	v := c.lastMetrics.Load()
	if v == nil {
		return timing.Metrics{}, false
	}
	return v.(timing.Metrics), true
}

// New returns a Client configured by the (at most one) supplied Options.
func New(opts ...Options) *Client {
	c := &Client{}
	if len(opts) > 0 {
		c.opts = opts[0]
	}
	return c
}

// SetTimeout changes the per-transaction deadline used by subsequent Do
// calls. It persists across calls until changed again.
func (c *Client) SetTimeout(d time.Duration) {
	c.opts.Timeout = d
}

// Abort cancels whatever transaction is currently in flight by closing
// its socket; Do observes this on its next blocking call and returns
// ErrAborted. A Client may be reused for another Do after Abort.
func (c *Client) Abort() {
	c.aborted.Store(true)
	if s := c.sock.Load(); s != nil {
		(*s).Close()
	}
}

// Request is the one-shot entry point: build a Client, run one
// transaction against host:port, and discard the Client.
func Request(ctx context.Context, req *httpmsg.Request, host, port string, timeout time.Duration) (*httpmsg.Response, error) {
	c := New(Options{Timeout: timeout})
	return c.Do(ctx, req, host, port)
}

// Do runs one request/response transaction against host:port. The
// request, socket, and abort flag are all fresh for this call; SetTimeout's
// duration is the only thing carried over from a previous Do.
func (c *Client) Do(ctx context.Context, req *httpmsg.Request, host, port string) (resp *httpmsg.Response, err error) {
	c.aborted.Store(false)
	metrics := timing.NewTimer()
	log := c.opts.logger().WithField("txn", uuid.New().String())
	defer func() {
		metrics.EndTotal()
		c.lastMetrics.Store(metrics.Metrics())
	}()

	scheme := req.Scheme
	if scheme == "" {
		scheme = c.opts.Scheme
	}
	if scheme == "" {
		scheme = "http"
	}
	req.Scheme = scheme
	if port == "" {
		port = scheme
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeoutOrForever())
	defer cancel()

	normalizedHost, err := normalizeHost(host)
	if err != nil {
		return nil, fmt.Errorf("client: normalizing host %q: %w", host, err)
	}

	sk, err := c.dial(ctx, scheme, normalizedHost, port, metrics)
	if err != nil {
		classified := c.classify(ctx, err)
		log.WithError(classified).Debug("dial failed")
		return nil, classified
	}
	c.sock.Store(&sk)
	defer func() {
		sk.Close()
		c.sock.Store(nil)
	}()

	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			sk.Close()
		case <-watchDone:
		}
	}()
	defer close(watchDone)

	if _, err := req.WriteTo(writerFunc(sk.Write)); err != nil {
		classified := c.classify(ctx, err)
		log.WithError(classified).Debug("write failed")
		return nil, classified
	}
	metrics.StartTTFB()

	resp, err = c.readResponse(sk, metrics)
	if err != nil {
		classified := c.classify(ctx, err)
		log.WithError(classified).Debug("read failed")
		return nil, classified
	}
	return resp, nil
}

func (c *Client) timeoutOrForever() time.Duration {
	if c.opts.Timeout > 0 {
		return c.opts.Timeout
	}
	return 365 * 24 * time.Hour
}

// classify turns a raw I/O error observed after a socket Close into the
// signal that actually caused it: an aborted call, an elapsed deadline, or
// (if neither fired) the error verbatim.
func (c *Client) classify(ctx context.Context, err error) error {
	if c.aborted.Load() {
		return ErrAborted
	}
	if ctx.Err() != nil {
		return ErrTimeout
	}
	return err
}

func (c *Client) dial(ctx context.Context, scheme, host, port string, metrics *timing.Timer) (sock.Socket, error) {
	addr := net.JoinHostPort(host, port)

	metrics.StartDNS()
	if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
		return nil, fmt.Errorf("client: resolving %q: %w", host, err)
	}
	metrics.EndDNS()

	metrics.StartTCP()
	if scheme != "https" {
		sk, err := sock.DialPlain(ctx, "tcp", addr)
		metrics.EndTCP()
		return sk, err
	}

	cfg := c.opts.TLSConfig
	if cfg == nil {
		cfg = &tls.Config{}
	} else {
		cfg = cfg.Clone()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}

	metrics.StartTLS()
	sk, err := sock.DialTLS(ctx, "tcp", addr, cfg)
	metrics.EndTCP()
	metrics.EndTLS()
	return sk, err
}

// readResponse reads from sk until httpmsg.ParseResponse accepts a full
// response, switching to read-to-close framing the moment the socket
// reports EOF, exactly as ParseResponse's socketStillReadable contract
// expects.
func (c *Client) readResponse(sk sock.Socket, metrics *timing.Timer) (*httpmsg.Response, error) {
	buf := iobuf.New(iobuf.DefaultMemLimit)
	defer buf.Close()

	readChunk := make([]byte, 8192)
	socketStillReadable := true
	first := true

	for {
		data := buf.Unconsumed()
		if data == nil && buf.IsSpilled() {
			return nil, errors.New("client: response exceeded buffer limit")
		}

		resp, _, err := httpmsg.ParseResponse(data, socketStillReadable)
		if err == nil {
			if c.opts.OnProgress != nil {
				c.opts.OnProgress(0)
			}
			return resp, nil
		}
		if !errors.Is(err, httpmsg.ErrIncomplete) {
			return nil, err
		}

		n, readErr := sk.Read(readChunk)
		if n > 0 {
			if first {
				metrics.EndTTFB()
				first = false
			}
			buf.Write(readChunk[:n])
			if c.opts.OnProgress != nil {
				c.opts.OnProgress(n)
			}
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				return nil, readErr
			}
			socketStillReadable = false
			if n == 0 {
				resp, _, err := httpmsg.ParseResponse(buf.Unconsumed(), false)
				if err != nil {
					return nil, fmt.Errorf("client: reading response: %w", readErr)
				}
				if c.opts.OnProgress != nil {
					c.opts.OnProgress(0)
				}
				return resp, nil
			}
		}
		if c.aborted.Load() {
			return nil, ErrAborted
		}
	}
}

// normalizeHost passes internationalized hostnames through IDNA so the
// resolver sees plain ASCII; pure-ASCII hosts pass through unchanged.
func normalizeHost(host string) (string, error) {
	for i := 0; i < len(host); i++ {
		if host[i] >= 0x80 {
			return idna.Lookup.ToASCII(host)
		}
	}
	return host, nil
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
