package httpmsg

import "golang.org/x/net/http/httpguts"

// Header is a request/response header map. Unlike net/http's Header, names
// are matched case-sensitively and each name holds a single value: setting
// a name twice overwrites the first value (last-write-wins), just like the
// plain std::map<string,string> this is grounded on. Callers that want
// canonical casing (e.g. always "Content-Type") are responsible for writing
// it consistently themselves.
type Header map[string]string

// Get returns the value for name, or "" if absent.
func (h Header) Get(name string) string {
	return h[name]
}

// Set assigns value to name, replacing any previous value.
func (h Header) Set(name, value string) {
	h[name] = value
}

// Del removes name from the header map.
func (h Header) Del(name string) {
	delete(h, name)
}

// Validate checks every name/value pair against RFC 7230 token and
// field-value syntax. It is called before serialization, so a handler that
// builds a malformed header produces a typed error instead of corrupting
// the wire bytes downstream.
func (h Header) Validate() error {
	for name, value := range h {
		if !httpguts.ValidHeaderFieldName(name) {
			return &headerError{field: "name", value: name}
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return &headerError{field: "value", value: value}
		}
	}
	return nil
}

type headerError struct {
	field string
	value string
}

func (e *headerError) Error() string {
	return "httpmsg: invalid header " + e.field + ": " + e.value
}
