package httpmsg

import (
	"bytes"
	"testing"

	"github.com/arnebr/httpcore/uri"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestSimple(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nHost: example.org\r\n\r\n"
	req, n, err := ParseRequest([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/", req.URI)
	assert.Equal(t, "HTTP/1.1", req.Version)
	assert.Equal(t, "example.org", req.Header.Get("Host"))
	assert.True(t, req.Body.IsEmpty())
}

func TestParseRequestBareNewline(t *testing.T) {
	raw := "GET / HTTP/1.1\nHost: example.org\n\n"
	req, n, err := ParseRequest([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Equal(t, "example.org", req.Header.Get("Host"))
}

func TestParseRequestIncompleteNoBlankLine(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nHost: example.org\r\n"
	_, _, err := ParseRequest([]byte(raw))
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestParseRequestIncompleteNoFirstLine(t *testing.T) {
	raw := "GET / HTTP/1.1"
	_, _, err := ParseRequest([]byte(raw))
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestParseRequestIncompleteBody(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc"
	_, _, err := ParseRequest([]byte(raw))
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestParseRequestWithBody(t *testing.T) {
	raw := "POST /submit HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"
	req, n, err := ParseRequest([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Equal(t, "hello", string(req.Body.Bytes()))
}

func TestParseRequestRetainsPipelinedTail(t *testing.T) {
	first := "GET /a HTTP/1.1\r\nHost: x\r\n\r\n"
	second := "GET /b HTTP/1.1\r\nHost: x\r\n\r\n"
	req, n, err := ParseRequest([]byte(first + second))
	require.NoError(t, err)
	assert.Equal(t, "/a", req.URI)
	assert.Equal(t, len(first), n)

	req2, n2, err := ParseRequest([]byte((first + second)[n:]))
	require.NoError(t, err)
	assert.Equal(t, "/b", req2.URI)
	assert.Equal(t, len(second), n2)
}

func TestParseRequestInvalidVersion(t *testing.T) {
	raw := "GET / HTTP/2.0\r\n\r\n"
	_, _, err := ParseRequest([]byte(raw))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseRequestMissingColon(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nBadHeaderLine\r\n\r\n"
	_, _, err := ParseRequest([]byte(raw))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseRequestContentLengthTooLarge(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nContent-Length: 99999999999999\r\n\r\n"
	_, _, err := ParseRequest([]byte(raw))
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseRequestContentLengthOverLimit(t *testing.T) {
	req, _, err := ParseRequestLimit([]byte("POST / HTTP/1.1\r\nContent-Length: 100\r\n\r\n"), Limits{MaxContentLength: 10})
	assert.ErrorIs(t, err, ErrTooLarge)
	require.NotNil(t, req)
	assert.Equal(t, "POST", req.Method)
}

func TestRequestWriteToRoundTrip(t *testing.T) {
	req := NewRequest("GET", mustParseURI(t, "http://example.org:1337/foo/bar"))
	var buf bytes.Buffer
	_, err := req.WriteTo(&buf)
	require.NoError(t, err)

	parsed, n, err := ParseRequest(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, buf.Len(), n)
	assert.Equal(t, "GET", parsed.Method)
	assert.Equal(t, "/foo/bar", parsed.URI)
	assert.Equal(t, "example.org:1337", parsed.Header.Get("Host"))
}

func TestParseResponseWithContentLength(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Type: text/plain\r\nContent-Length: 11\r\n\r\nHello world"
	resp, n, err := ParseResponse([]byte(raw), true)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.EqualValues(t, 200, resp.Status)
	assert.Equal(t, "OK", resp.StatusText)
	assert.Equal(t, "Hello world", string(resp.Body.Bytes()))
	assert.True(t, resp.IsSuccess())
}

func TestParseResponseReadToClose(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\n\r\nsome body bytes"
	_, _, err := ParseResponse([]byte(raw), true)
	assert.ErrorIs(t, err, ErrIncomplete, "must wait for close when no Content-Length")

	resp, n, err := ParseResponse([]byte(raw), false)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Equal(t, "some body bytes", string(resp.Body.Bytes()))
}

func TestParseResponse204NoContentLength(t *testing.T) {
	raw := "HTTP/1.1 204 No Content\r\n\r\n"
	resp, _, err := ParseResponse([]byte(raw), false)
	require.NoError(t, err)
	assert.EqualValues(t, 204, resp.Status)
	assert.Equal(t, "", resp.Header.Get("Content-Length"))
}

func TestResponseWriteToRoundTrip(t *testing.T) {
	resp := NewResponse(200)
	resp.SetBody(NewFixedBody([]byte("Hello world"), "text/plain"))

	var buf bytes.Buffer
	_, err := resp.WriteTo(&buf)
	require.NoError(t, err)

	parsed, n, err := ParseResponse(buf.Bytes(), false)
	require.NoError(t, err)
	assert.Equal(t, buf.Len(), n)
	assert.Equal(t, "Hello world", string(parsed.Body.Bytes()))
	assert.Equal(t, "text/plain", parsed.Header.Get("Content-Type"))
}

func TestBodyExclusivityPanics(t *testing.T) {
	streamed := NewStreamedBody(func() ([]byte, bool) { return nil, false }, "text/plain")
	assert.Panics(t, func() { streamed.Bytes() })

	fixed := NewFixedBody([]byte("x"), "text/plain")
	assert.Panics(t, func() { fixed.ReadChunk() })
}

func TestChunkTerminality(t *testing.T) {
	chunks := [][]byte{[]byte("1\n"), []byte("2\n")}
	i := 0
	b := NewStreamedBody(func() ([]byte, bool) {
		if i >= len(chunks) {
			return nil, false
		}
		c := chunks[i]
		i++
		return c, true
	}, "text/plain")

	c1, more := b.ReadChunk()
	assert.True(t, more)
	assert.Equal(t, "1\n", string(c1))

	c2, more := b.ReadChunk()
	assert.True(t, more)
	assert.Equal(t, "2\n", string(c2))

	_, more = b.ReadChunk()
	assert.False(t, more)
	_, more = b.ReadChunk()
	assert.False(t, more, "must keep signalling done once exhausted")
}

func TestReadFullBodyFromChunks(t *testing.T) {
	chunks := []string{"1\n", "2\n", "3\n"}
	i := 0
	b := NewStreamedBody(func() ([]byte, bool) {
		if i >= len(chunks) {
			return nil, false
		}
		c := []byte(chunks[i])
		i++
		return c, true
	}, "text/plain")

	full := b.ReadFullBodyFromChunks()
	assert.Equal(t, "1\n2\n3\n", string(full))
	assert.Equal(t, "1\n2\n3\n", string(b.ReadFullBodyFromChunks()), "idempotent once drained")
}

func TestHeaderValidateRejectsBadFieldValue(t *testing.T) {
	h := Header{"X-Bad": "has\x00null"}
	assert.Error(t, h.Validate())
}

func TestReasonPhraseKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "OK", ReasonPhrase(200))
	assert.Equal(t, "Not Found", ReasonPhrase(404))
	assert.Contains(t, ReasonPhrase(599), "599")
}

func mustParseURI(t *testing.T, s string) *uri.URI {
	t.Helper()
	u, err := uri.Parse(s)
	require.NoError(t, err)
	return u
}
