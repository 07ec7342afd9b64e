// Package router is the small dispatcher that sits between a server
// connection and user handlers: an ordered list of (URI regex, allowed
// method set, handler) matched first-URI-then-first-method, with a
// found-a-URI-but-not-this-method flag to tell a 404 from a 405.
package router

import (
	"regexp"

	"github.com/arnebr/httpcore/httperr"
	"github.com/arnebr/httpcore/httpmsg"
)

// Handler handles one dispatched request. captures holds the regex's
// parenthesized subgroups, positionally, excluding the full match.
type Handler func(req *httpmsg.Request, captures []string) (*httpmsg.Response, error)

// Route pairs a URI pattern and an optional method restriction with the
// handler that serves it. An empty Methods set means any method matches.
type Route struct {
	Pattern *regexp.Regexp
	Methods map[string]struct{}
	Handler Handler
}

// Matches reports whether method is acceptable for this route. An empty
// Methods set accepts any method.
func (r Route) Matches(method string) bool {
	if len(r.Methods) == 0 {
		return true
	}
	_, ok := r.Methods[method]
	return ok
}

// NewRoute builds a Route from a regex pattern and a list of accepted
// methods (empty means any method). The pattern is anchored at both ends,
// so it must match the whole request-target.
func NewRoute(pattern string, methods []string, handler Handler) Route {
	methodSet := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		methodSet[m] = struct{}{}
	}
	return Route{Pattern: regexp.MustCompile("^(?:" + pattern + ")$"), Methods: methodSet, Handler: handler}
}

// Router is an ordered list of Routes. The first route whose pattern
// matches the request-target wins; among routes whose pattern matches,
// the first whose method set accepts the request's method wins.
type Router struct {
	Routes []Route
}

// Add appends route to the router.
func (rt *Router) Add(route Route) {
	rt.Routes = append(rt.Routes, route)
}

// Handle is a convenience that builds and appends a Route in one call.
func (rt *Router) Handle(pattern string, methods []string, handler Handler) {
	rt.Add(NewRoute(pattern, methods, handler))
}

// Dispatch finds the first route matching req and invokes its handler with
// the regex's captures. It returns an *httperr.Error wrapping 404 if no
// route's pattern matched the request-target, or 405 if some route's
// pattern matched but none of those routes accepted the method.
func (rt *Router) Dispatch(req *httpmsg.Request) (*httpmsg.Response, error) {
	foundURIMatch := false
	for _, route := range rt.Routes {
		match := route.Pattern.FindStringSubmatch(req.URI)
		if match == nil {
			continue
		}
		if !route.Matches(req.Method) {
			foundURIMatch = true
			continue
		}
		return route.Handler(req, match[1:])
	}

	if foundURIMatch {
		return nil, httperr.MethodNotAllowed(req)
	}
	return nil, httperr.NotFound(req)
}
