// Package uri parses and reassembles the subset of URI syntax this library
// needs: scheme, optional userinfo, host, optional port, path, query and
// fragment. It deliberately does not percent-decode anything; that is left
// to the caller (see QueryParameters).
package uri

import (
	"errors"
	"strings"

	"golang.org/x/net/idna"
)

// ErrNoScheme is returned by Parse when the input has no "://" separator.
var ErrNoScheme = errors.New("uri: no scheme (missing \"://\")")

// URI is a parsed URI. All fields are stored exactly as they appeared on
// the wire, with no percent-decoding applied.
type URI struct {
	Scheme   string
	User     string
	Password string
	Host     string
	Port     string
	Path     string // always non-empty after Parse; defaults to "/"
	Query    string // without the leading "?"
	Fragment string // without the leading "#"
}

// npos mirrors C++'s std::string::npos: a sentinel larger than any real
// index, so that "not found" sorts after every real position. Using -1 for
// "not found" (the usual Go convention) would invert the direction of the
// boundary comparisons below, so this parser follows the original's
// npos convention instead.
const npos = int(^uint(0) >> 1)

// Parse splits s into a URI following:
//
//	<scheme> "://" [ <user> [ ":" <password> ] "@" ] <host> [ ":" <port> ]
//	                [ "/" <path> ] [ "?" <query> ] [ "#" <fragment> ]
//
// It returns ErrNoScheme if s has no "://".
func Parse(s string) (*URI, error) {
	schemeEnd := strings.Index(s, "://")
	if schemeEnd < 0 {
		return nil, ErrNoScheme
	}

	u := &URI{Scheme: s[:schemeEnd]}
	readPos := schemeEnd + 3

	slashPos := indexFrom(s, '/', readPos)
	atPos := indexFrom(s, '@', readPos)
	if slashPos != npos && atPos > slashPos {
		atPos = npos // this '@' belongs to the path, not the userinfo
	}

	if atPos != npos {
		auth := s[readPos:atPos]
		if colon := strings.IndexByte(auth, ':'); colon < 0 {
			u.User = auth
		} else {
			u.User = auth[:colon]
			u.Password = auth[colon+1:]
		}
		readPos = atPos + 1
	}

	portPos := indexFrom(s, ':', readPos)
	if slashPos != npos && portPos > slashPos {
		portPos = npos // this ':' is past the authority, e.g. in the path
	}

	queryPos := indexFrom(s, '?', readPos)
	fragPos := indexFrom(s, '#', readPos)
	if fragPos != npos && queryPos > fragPos {
		queryPos = npos // this '?' is past the fragment marker
	}
	if (queryPos != npos && slashPos > queryPos) || (fragPos != npos && slashPos > fragPos) {
		slashPos = npos // this '/' is past query/fragment, not the path start
	}

	endHost := firstOf(slashPos, queryPos, fragPos, len(s))

	if portPos != npos && (slashPos == npos || slashPos >= portPos) {
		u.Host = s[readPos:portPos]
		u.Port = s[portPos+1 : endHost]
	} else {
		u.Host = s[readPos:endHost]
	}
	readPos = endHost

	endPath := firstOf(queryPos, fragPos, len(s))
	if slashPos != npos && endPath > slashPos {
		u.Path = s[readPos:endPath]
		readPos = endPath
	} else {
		u.Path = "/"
	}

	endQuery := firstOf(fragPos, len(s))
	if queryPos != npos && endQuery > queryPos {
		u.Query = s[readPos+1 : endQuery]
		readPos = endQuery
	}

	if fragPos != npos {
		u.Fragment = s[readPos+1:]
	}

	return u, nil
}

// indexFrom returns the index of the first occurrence of b in s at or after
// from, or npos if there is none.
func indexFrom(s string, b byte, from int) int {
	if from > len(s) {
		return npos
	}
	if i := strings.IndexByte(s[from:], b); i >= 0 {
		return i + from
	}
	return npos
}

// firstOf returns the first of vs that is not npos, or the last value in vs
// (the "end of string" fallback) if all are npos.
func firstOf(vs ...int) int {
	for _, v := range vs[:len(vs)-1] {
		if v != npos {
			return v
		}
	}
	return vs[len(vs)-1]
}

// defaultPort reports whether port is the well-known default for scheme,
// either spelled numerically or by service name.
func defaultPort(scheme, port string) bool {
	switch scheme {
	case "http":
		return port == "http" || port == "80"
	case "https":
		return port == "https" || port == "443"
	}
	return false
}

// PathString returns path [ "?" query ] [ "#" fragment ] — the request
// target a client sends after the method, or a server sees before routing.
func (u *URI) PathString() string {
	var b strings.Builder
	b.WriteString(u.Path)
	if u.Query != "" {
		b.WriteByte('?')
		b.WriteString(u.Query)
	}
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.Fragment)
	}
	return b.String()
}

// String reassembles u into a URI string. Port is omitted when it equals
// the scheme's default port.
func (u *URI) String() string {
	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	if u.User != "" {
		b.WriteString(u.User)
		if u.Password != "" {
			b.WriteByte(':')
			b.WriteString(u.Password)
		}
		b.WriteByte('@')
	}
	b.WriteString(u.Host)
	if u.Port != "" && !defaultPort(u.Scheme, u.Port) {
		b.WriteByte(':')
		b.WriteString(u.Port)
	}
	b.WriteString(u.PathString())
	return b.String()
}

// QueryParameters decodes Query into a key->value mapping. It splits on
// "&", then on the first "=" within each item; an item without "=" yields
// an empty value. Later keys overwrite earlier ones. No percent-decoding
// is performed — callers that need it must decode the returned values
// themselves.
func (u *URI) QueryParameters() map[string]string {
	result := make(map[string]string)
	if u.Query == "" {
		return result
	}
	for _, item := range strings.Split(u.Query, "&") {
		if item == "" {
			continue
		}
		if eq := strings.IndexByte(item, '='); eq >= 0 {
			result[item[:eq]] = item[eq+1:]
		} else {
			result[item] = ""
		}
	}
	return result
}

// NormalizedHost returns Host passed through IDNA normalization so that
// internationalized domain names can be handed to a DNS resolver. Hosts
// that are already pure ASCII pass through unchanged; this never alters
// the Host field itself, so String() still round-trips the original input.
func (u *URI) NormalizedHost() (string, error) {
	for i := 0; i < len(u.Host); i++ {
		if u.Host[i] >= 0x80 {
			return idna.Lookup.ToASCII(u.Host)
		}
	}
	return u.Host, nil
}

// HostPort returns Host with Port appended (as "host:port") when Port is
// set, matching the Host header value a client sends for a parsed URI.
func (u *URI) HostPort() string {
	if u.Port == "" {
		return u.Host
	}
	return u.Host + ":" + u.Port
}
