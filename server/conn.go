package server

import (
	"errors"
	"time"

	"github.com/arnebr/httpcore/httperr"
	"github.com/arnebr/httpcore/httpmsg"
	"github.com/arnebr/httpcore/iobuf"
	"github.com/arnebr/httpcore/sock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// conn drives one accepted socket through READING -> PARSING -> DISPATCH ->
// WRITING_HEADERS -> WRITING_BODY -> DONE -> CLOSING, entirely on its own
// goroutine. Nothing about it is shared with any other connection, so
// there is no strand or mutex guarding its state — matching the "no two
// callbacks for the same connection run in parallel" guarantee the source
// gets from a strand, by construction rather than by locking.
type conn struct {
	sock    sock.Socket
	handler Handler
	opts    Options
	buf     *iobuf.Buffer
	log     *logrus.Entry
}

func newConn(sk sock.Socket, handler Handler, opts Options) *conn {
	id := uuid.New()
	limit := opts.limits().MaxContentLength + DefaultBodyMemLimit
	return &conn{
		sock:    sk,
		handler: handler,
		opts:    opts,
		buf:     iobuf.New(int64(limit)),
		log:     opts.logger().WithField("conn", id.String()),
	}
}

// serve runs the connection's entire lifetime: repeatedly parse and
// dispatch requests until a response demands the connection close, the
// peer goes away, or a parse failure forces a teardown.
func (c *conn) serve() {
	defer c.sock.Close()
	defer c.buf.Close()

	c.log.WithField("remote", c.sock.RemoteAddr()).Debug("accepted connection")

	readChunk := make([]byte, c.opts.readBufferSize())

	for {
		req, consumed, err := c.parseNext(readChunk)
		if err != nil {
			if !errors.Is(err, errConnectionClosed) {
				c.log.WithError(err).Debug("closing connection")
			}
			return
		}

		c.buf.Advance(int64(consumed))
		c.buf.Compact()

		resp := httperr.Wrap(httperr.Handler(c.handler), req)
		mustClose := resp.Header.Get("Content-Length") == ""

		if err := c.writeResponse(resp); err != nil {
			c.log.WithError(err).Debug("write failed")
			return
		}

		if mustClose {
			c.sock.CloseWrite()
			return
		}
	}
}

var errConnectionClosed = errors.New("server: connection closed")

// parseNext reads from the socket until one full request has been parsed
// out of the connection's buffer, retaining any unconsumed tail (a
// pipelined follow-on request) for the next call instead of discarding it.
func (c *conn) parseNext(readChunk []byte) (*httpmsg.Request, int, error) {
	if d := c.opts.ReadTimeout; d != 0 {
		c.sock.SetReadDeadline(time.Now().Add(d))
	}

	for {
		data := c.buf.Unconsumed()
		if data == nil && c.buf.IsSpilled() {
			c.writeBestEffort400("request too large")
			return nil, 0, errors.New("server: request exceeded buffer limit")
		}

		req, consumed, err := httpmsg.ParseRequestLimit(data, c.opts.limits())
		if err == nil {
			return req, consumed, nil
		}
		if !errors.Is(err, httpmsg.ErrIncomplete) {
			c.log.WithError(err).Debug("parse error")
			if errors.Is(err, httpmsg.ErrTooLarge) {
				c.writeResponse(httperr.RequestEntityTooLarge(req, err.Error()).Response())
			} else {
				c.writeBestEffort400(err.Error())
			}
			return nil, 0, err
		}

		n, readErr := c.sock.Read(readChunk)
		if n > 0 {
			c.buf.Write(readChunk[:n])
		}
		if readErr != nil {
			if n == 0 {
				return nil, 0, errConnectionClosed
			}
			return nil, 0, readErr
		}
	}
}

// writeBestEffort400 writes a 400 response ignoring any write error, since
// the connection is being torn down regardless of whether this makes it
// onto the wire.
func (c *conn) writeBestEffort400(detail string) {
	resp := httpmsg.NewResponse(400)
	resp.SetBody(httpmsg.NewFixedBody([]byte("Bad Request: "+detail), "text/plain"))
	c.writeResponse(resp)
}

func (c *conn) writeResponse(resp *httpmsg.Response) error {
	if d := c.opts.WriteTimeout; d != 0 {
		c.sock.SetWriteDeadline(time.Now().Add(d))
	}

	if _, err := resp.WriteTo(writerFunc(c.sock.Write)); err != nil {
		return err
	}

	if !resp.Body.IsStreamed() {
		return nil
	}

	for {
		chunk, more := resp.Body.ReadChunk()
		if !more {
			return nil
		}
		if _, err := c.sock.Write(chunk); err != nil {
			return err
		}
	}
}

// writerFunc adapts a Write method value to io.Writer.
type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
