package httpmsg

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Response is a parsed or to-be-serialized HTTP response.
type Response struct {
	Status     uint16
	StatusText string
	Version    string
	Header     Header
	Body       Body
}

// NewResponse builds a Response with status's default reason phrase,
// HTTP/1.1, an empty header map and an empty body.
func NewResponse(status uint16) *Response {
	return &Response{
		Status:     status,
		StatusText: ReasonPhrase(status),
		Version:    "HTTP/1.1",
		Header:     Header{},
		Body:       EmptyBody(),
	}
}

// SetBody attaches b to resp, populating Content-Type/Content-Length as
// appropriate for the body's kind.
func (resp *Response) SetBody(b Body) {
	resp.Body = b
	switch b.kind {
	case bodyFixed:
		resp.Header.Set("Content-Type", b.contentType)
		resp.Header.Set("Content-Length", strconv.Itoa(len(b.fixed)))
	case bodyStreamed:
		resp.Header.Set("Content-Type", b.contentType)
		resp.Header.Del("Content-Length")
	case bodyEmpty:
		resp.Header.Del("Content-Length")
	}
}

// IsSuccess reports whether Status is in the 2xx range.
func (resp *Response) IsSuccess() bool {
	return resp.Status >= 200 && resp.Status < 300
}

// ParseResponse consumes one response from the head of buf. When
// Content-Length is absent, framing falls back to read-to-close: the
// parser returns ErrIncomplete while socketStillReadable is true (the peer
// might still be sending), and once the caller reports EOF
// (socketStillReadable == false) the remainder of buf becomes the body.
func ParseResponse(buf []byte, socketStillReadable bool) (*Response, int, error) {
	pos := 0

	line, next, ok := readLine(buf, pos)
	if !ok {
		return nil, 0, ErrIncomplete
	}
	pos = next

	fields := strings.SplitN(string(line), " ", 3)
	if len(fields) != 3 {
		return nil, 0, invalidf("malformed status line: %q", line)
	}
	status, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return nil, 0, invalidf("malformed status code: %q", fields[1])
	}
	resp := &Response{
		Version:    fields[0],
		Status:     uint16(status),
		StatusText: strings.TrimRight(fields[2], " \t"),
		Header:     Header{},
	}
	if resp.Version != "HTTP/1.0" && resp.Version != "HTTP/1.1" {
		return resp, 0, invalidf("unsupported HTTP version: %q", resp.Version)
	}

	pos, err = parseHeaderLines(buf, pos, resp.Header)
	if err != nil {
		return resp, 0, err
	}

	clStr, hasCL := resp.Header["Content-Length"]
	if hasCL {
		contentLength, err := strconv.Atoi(clStr)
		if err != nil || contentLength < 0 {
			return resp, 0, invalidf("invalid Content-Length: %q", clStr)
		}
		if len(buf) < pos+contentLength {
			return resp, 0, ErrIncomplete
		}
		body := make([]byte, contentLength)
		copy(body, buf[pos:pos+contentLength])
		resp.Body = NewFixedBody(body, resp.Header.Get("Content-Type"))
		return resp, pos + contentLength, nil
	}

	if socketStillReadable {
		return resp, 0, ErrIncomplete
	}
	body := append([]byte(nil), buf[pos:]...)
	resp.Body = NewFixedBody(body, resp.Header.Get("Content-Type"))
	return resp, len(buf), nil
}

// WriteTo serializes resp's start line and headers, then its body if
// Fixed. For a Streamed body, it writes the start line and headers only;
// the caller drives the chunk loop and closes the connection once
// exhausted.
func (resp *Response) WriteTo(w io.Writer) (int64, error) {
	var total int64

	n, err := fmt.Fprintf(w, "%s %d %s\r\n", resp.Version, resp.Status, resp.StatusText)
	total += int64(n)
	if err != nil {
		return total, err
	}

	n64, err := writeHeaders(w, resp.Header)
	total += n64
	if err != nil {
		return total, err
	}

	if resp.Body.kind == bodyFixed {
		nw, err := w.Write(resp.Body.fixed)
		total += int64(nw)
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// writeHeaders writes each header as "Name: value\r\n" followed by a blank
// line, validating names and values before anything is written.
func writeHeaders(w io.Writer, h Header) (int64, error) {
	if err := h.Validate(); err != nil {
		return 0, err
	}
	var total int64
	for name, value := range h {
		n, err := fmt.Fprintf(w, "%s: %s\r\n", name, value)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	n, err := io.WriteString(w, "\r\n")
	total += int64(n)
	return total, err
}

// statusText maps status codes to their RFC reason phrase, following the
// source's statusTextFor switch.
var statusText = map[uint16]string{
	100: "Continue",
	101: "Switching Protocols",
	102: "Processing",

	200: "OK",
	201: "Created",
	202: "Accepted",
	203: "Non-Authorative Information",
	204: "No Content",
	205: "Reset Content",
	206: "Partial Content",
	207: "Multi-Status",
	208: "Already Reported",
	226: "IM Used",
	250: "Low on Storage Space",

	300: "Multiple Choices",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	305: "Use Proxy",
	306: "Switch Proxy",
	307: "Temporary Redirect",
	308: "Permanent Redirect",

	400: "Bad Request",
	401: "Unauthorized",
	402: "Payment Required",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	407: "Proxy Authentication Required",
	408: "Request Timeout",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	412: "Precondition Failed",
	413: "Request Entity Too Large",
	414: "Request-URI Too Long",
	415: "Unsupported Media Type",
	416: "Requested Range Not Satisfiable",
	417: "Expectation Failed",

	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
	505: "HTTP Version Not Supported",
}

// ReasonPhrase returns the standard reason phrase for status, or a generic
// placeholder for codes this table doesn't name.
func ReasonPhrase(status uint16) string {
	if text, ok := statusText[status]; ok {
		return text
	}
	return fmt.Sprintf("status code %d", status)
}
