package httpmsg

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/arnebr/httpcore/uri"
)

// Limits bounds how much a parsed message is allowed to claim.
type Limits struct {
	// MaxContentLength is the largest Content-Length value, in bytes, that
	// ParseRequestLimit accepts before rejecting the request with
	// ErrTooLarge. The source capped this at 7 digits (9,999,999 bytes);
	// kept as the default here. A Content-Length of more than 7 digits is
	// rejected whatever this is set to.
	MaxContentLength int
}

// DefaultLimits matches the source's hardcoded 7-digit Content-Length cap.
var DefaultLimits = Limits{MaxContentLength: 9_999_999}

// Request is a parsed or to-be-serialized HTTP request.
type Request struct {
	Method  string
	URI     string // request-target, as sent on the wire
	Scheme  string // client-side hint: "http" or "https"
	Version string
	Header  Header
	Body    Body
}

// NewRequest builds a Request ready to be populated with headers and a
// body. u is resolved into the request-target and a Host header, mirroring
// the source's HttpRequest(method, Uri) constructor.
func NewRequest(method string, u *uri.URI) *Request {
	r := &Request{
		Method:  method,
		URI:     u.PathString(),
		Scheme:  u.Scheme,
		Version: "HTTP/1.1",
		Header:  Header{},
		Body:    EmptyBody(),
	}
	r.Header.Set("Host", u.HostPort())
	return r
}

// SetBody attaches b to r, populating Content-Type/Content-Length as
// appropriate for the body's kind.
func (r *Request) SetBody(b Body) {
	r.Body = b
	switch b.kind {
	case bodyFixed:
		r.Header.Set("Content-Type", b.contentType)
		r.Header.Set("Content-Length", strconv.Itoa(len(b.fixed)))
	case bodyStreamed:
		r.Header.Set("Content-Type", b.contentType)
		r.Header.Del("Content-Length")
	case bodyEmpty:
		r.Header.Del("Content-Length")
	}
}

// ParseRequest parses one request from buf using DefaultLimits. See
// ParseRequestLimit.
func ParseRequest(buf []byte) (*Request, int, error) {
	return ParseRequestLimit(buf, DefaultLimits)
}

// ParseRequestLimit consumes one request from the head of buf, which holds
// the unconsumed tail of everything read from the connection so far. On
// success it returns the parsed request and the number of bytes consumed;
// the caller advances its buffer cursor by that count, leaving any
// pipelined tail in place for the next parse.
//
// It fails with ErrIncomplete when buf does not yet hold a full request, or
// with an error wrapping ErrInvalid (ErrTooLarge in particular) when it
// never will. On the latter, the returned *Request may still be partially
// populated (method and request-target, if those parsed) for use in a
// diagnostic response.
func ParseRequestLimit(buf []byte, limits Limits) (*Request, int, error) {
	pos := 0

	line, next, ok := readLine(buf, pos)
	if !ok {
		return nil, 0, ErrIncomplete
	}
	pos = next

	fields := strings.Fields(string(line))
	if len(fields) != 3 {
		return nil, 0, invalidf("malformed request line: %q", line)
	}
	req := &Request{Method: fields[0], URI: fields[1], Version: fields[2], Header: Header{}}
	if req.Version != "HTTP/1.0" && req.Version != "HTTP/1.1" {
		return req, 0, invalidf("unsupported HTTP version: %q", req.Version)
	}

	pos, err := parseHeaderLines(buf, pos, req.Header)
	if err != nil {
		return req, 0, err
	}

	clStr, hasCL := req.Header["Content-Length"]
	if !hasCL {
		req.Body = EmptyBody()
		return req, pos, nil
	}

	if len(clStr) > 7 {
		return req, 0, fmt.Errorf("content-length %q has too many digits: %w", clStr, ErrTooLarge)
	}
	contentLength, err := strconv.Atoi(clStr)
	if err != nil || contentLength < 0 {
		return req, 0, invalidf("invalid Content-Length: %q", clStr)
	}
	if contentLength > limits.MaxContentLength {
		return req, 0, fmt.Errorf("content-length %d exceeds limit %d: %w", contentLength, limits.MaxContentLength, ErrTooLarge)
	}

	if len(buf) < pos+contentLength {
		return req, 0, ErrIncomplete
	}
	body := make([]byte, contentLength)
	copy(body, buf[pos:pos+contentLength])
	req.Body = NewFixedBody(body, req.Header.Get("Content-Type"))
	pos += contentLength

	return req, pos, nil
}

// WriteTo serializes r's start line and headers, then its body if Fixed.
// For a Streamed body, it writes the start line and headers only; the
// caller drives the chunk loop (see Body.ReadChunk) and is responsible for
// writing those bytes itself.
func (r *Request) WriteTo(w io.Writer) (int64, error) {
	var total int64

	n, err := fmt.Fprintf(w, "%s %s %s\r\n", r.Method, r.URI, r.Version)
	total += int64(n)
	if err != nil {
		return total, err
	}

	n64, err := writeHeaders(w, r.Header)
	total += n64
	if err != nil {
		return total, err
	}

	if r.Body.kind == bodyFixed {
		nw, err := w.Write(r.Body.fixed)
		total += int64(nw)
		if err != nil {
			return total, err
		}
	}

	return total, nil
}
