// Package httperr is the domain error taxonomy: errors that already know
// the HTTP status and headers they should produce, plus Wrap, which turns
// whatever a handler returned (or panicked with) into a *httpmsg.Response.
package httperr

import (
	"errors"
	"fmt"

	"github.com/arnebr/httpcore/httpmsg"
)

// Error carries an HTTP status, optional response headers, the request it
// was raised for (used to build the diagnostic body) and a message.
type Error struct {
	Status  uint16
	Header  httpmsg.Header
	Request *httpmsg.Request
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports equality by Status, matching errors.Is(err, httperr.NotFound(req)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Status == t.Status
}

// body reproduces the source's diagnostic body format: the message,
// followed by a blank line and the method/path of the request that
// triggered it.
func (e *Error) body() string {
	method, path := "", ""
	if e.Request != nil {
		method = e.Request.Method
		path = e.Request.URI
	}
	return fmt.Sprintf("%s\n\nMethod: %s\nPath:   %s", e.Message, method, path)
}

// Response builds the *httpmsg.Response this error describes: e.Status,
// e.Header, and a text/plain diagnostic body.
func (e *Error) Response() *httpmsg.Response {
	resp := httpmsg.NewResponse(e.Status)
	for name, value := range e.Header {
		resp.Header.Set(name, value)
	}
	resp.SetBody(httpmsg.NewFixedBody([]byte(e.body()), "text/plain"))
	return resp
}

func newError(status uint16, req *httpmsg.Request, message string) *Error {
	if message == "" {
		message = httpmsg.ReasonPhrase(status)
	}
	return &Error{Status: status, Header: httpmsg.Header{}, Request: req, Message: message}
}

// BadRequest returns a 400 error.
func BadRequest(req *httpmsg.Request, message string) *Error {
	return newError(400, req, message)
}

// Unauthorized returns a 401 error carrying a WWW-Authenticate challenge
// for the given Basic auth realm, mirroring the source's nonstandard
// HttpUnauthorized (which always challenges for Basic).
func Unauthorized(req *httpmsg.Request, realm string) *Error {
	e := newError(401, req, "")
	e.Header.Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", realm))
	return e
}

// NotFound returns a 404 error.
func NotFound(req *httpmsg.Request) *Error {
	return newError(404, req, "")
}

// MethodNotAllowed returns a 405 error.
func MethodNotAllowed(req *httpmsg.Request) *Error {
	return newError(405, req, "")
}

// RequestEntityTooLarge returns a 413 error, used when a request's
// Content-Length exceeds the configured limit.
func RequestEntityTooLarge(req *httpmsg.Request, message string) *Error {
	return newError(413, req, message)
}

// InternalServerError returns a 500 error.
func InternalServerError(req *httpmsg.Request, message string) *Error {
	return newError(500, req, message)
}

// Handler is the shape a router.Route's handler implements: given a
// request, produce a response or an error.
type Handler func(req *httpmsg.Request) (*httpmsg.Response, error)

// Wrap invokes handler and turns its result into a response:
//   - (resp, nil) passes resp through unchanged.
//   - (nil, err) where err is an *Error builds that error's Response().
//   - (nil, err) for any other error builds a 500 with a generic body.
//   - a panic inside handler is recovered and turned into a generic 500,
//     so a broken handler never takes the connection goroutine down with it.
func Wrap(handler Handler, req *httpmsg.Request) (resp *httpmsg.Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = genericError(req, fmt.Sprintf("panic: %v", r))
		}
	}()

	result, err := handler(req)
	if err == nil {
		return result
	}

	var httpErr *Error
	if errors.As(err, &httpErr) {
		return httpErr.Response()
	}
	return genericError(req, err.Error())
}

func genericError(req *httpmsg.Request, detail string) *httpmsg.Response {
	resp := httpmsg.NewResponse(500)
	resp.SetBody(httpmsg.NewFixedBody([]byte("Internal server error: "+detail), "text/plain"))
	return resp
}
