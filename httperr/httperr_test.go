package httperr

import (
	"errors"
	"testing"

	"github.com/arnebr/httpcore/httpmsg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest() *httpmsg.Request {
	return &httpmsg.Request{Method: "GET", URI: "/foo/bar", Version: "HTTP/1.1", Header: httpmsg.Header{}}
}

func TestErrorResponseBody(t *testing.T) {
	req := sampleRequest()
	err := NotFound(req)
	resp := err.Response()

	assert.EqualValues(t, 404, resp.Status)
	body := string(resp.Body.Bytes())
	assert.Contains(t, body, "Method: GET")
	assert.Contains(t, body, "Path:   /foo/bar")
}

func TestUnauthorizedHeader(t *testing.T) {
	req := sampleRequest()
	err := Unauthorized(req, "Skynet")
	resp := err.Response()

	assert.EqualValues(t, 401, resp.Status)
	assert.Equal(t, `Basic realm="Skynet"`, resp.Header.Get("WWW-Authenticate"))
}

func TestWrapPassesThroughSuccess(t *testing.T) {
	req := sampleRequest()
	want := httpmsg.NewResponse(200)

	resp := Wrap(func(r *httpmsg.Request) (*httpmsg.Response, error) {
		return want, nil
	}, req)

	assert.Same(t, want, resp)
}

func TestWrapConvertsTypedError(t *testing.T) {
	req := sampleRequest()

	resp := Wrap(func(r *httpmsg.Request) (*httpmsg.Response, error) {
		return nil, MethodNotAllowed(req)
	}, req)

	assert.EqualValues(t, 405, resp.Status)
}

func TestWrapConvertsGenericError(t *testing.T) {
	req := sampleRequest()

	resp := Wrap(func(r *httpmsg.Request) (*httpmsg.Response, error) {
		return nil, errors.New("boom")
	}, req)

	assert.EqualValues(t, 500, resp.Status)
	assert.Contains(t, string(resp.Body.Bytes()), "boom")
}

func TestWrapRecoversPanic(t *testing.T) {
	req := sampleRequest()

	resp := Wrap(func(r *httpmsg.Request) (*httpmsg.Response, error) {
		panic("handler exploded")
	}, req)

	assert.EqualValues(t, 500, resp.Status)
	assert.Contains(t, string(resp.Body.Bytes()), "handler exploded")
}

func TestErrorIsMatchesByStatus(t *testing.T) {
	req := sampleRequest()
	a := NotFound(req)
	b := NotFound(req)
	require.True(t, errors.Is(a, b))

	c := BadRequest(req, "nope")
	assert.False(t, errors.Is(a, c))
}
