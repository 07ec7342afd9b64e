package httpmsg

// bodyKind tags which variant a Body currently holds.
type bodyKind int

const (
	bodyFixed bodyKind = iota
	bodyStreamed
	bodyEmpty
)

// Body is a request or response body: a fixed byte slice, a chunk-producing
// function, or empty. Exactly one of these holds at a time.
type Body struct {
	kind        bodyKind
	fixed       []byte
	next        func() ([]byte, bool)
	done        bool
	contentType string
}

// NewFixedBody returns a Body holding the given bytes. When attached to a
// message via (*Request).SetBody or (*Response).SetBody, contentType and
// len(data) populate Content-Type and Content-Length.
func NewFixedBody(data []byte, contentType string) Body {
	return Body{kind: bodyFixed, fixed: data, contentType: contentType}
}

// NewStreamedBody returns a Body whose bytes are produced on demand by
// next, which returns the next chunk and whether more chunks follow. A
// streamed body never gets a Content-Length; the wire framing is
// write-then-close.
func NewStreamedBody(next func() ([]byte, bool), contentType string) Body {
	return Body{kind: bodyStreamed, next: next, contentType: contentType}
}

// EmptyBody returns a zero-length body.
func EmptyBody() Body {
	return Body{kind: bodyEmpty}
}

// IsStreamed reports whether b is a chunk-producing body.
func (b *Body) IsStreamed() bool {
	return b.kind == bodyStreamed
}

// IsEmpty reports whether b carries no bytes at all.
func (b *Body) IsEmpty() bool {
	return b.kind == bodyEmpty || (b.kind == bodyFixed && len(b.fixed) == 0)
}

// Bytes returns the body's fixed content. It panics if b is Streamed —
// reading the whole body at once only makes sense once it has been
// collapsed with ReadFullBodyFromChunks.
func (b *Body) Bytes() []byte {
	if b.kind == bodyStreamed {
		panic("httpmsg: Bytes() called on a streamed body")
	}
	return b.fixed
}

// ReadChunk returns the next chunk of a Streamed body, or (nil, false) once
// the producer has signalled completion. It panics if b is not Streamed.
// Once exhausted, every further call also returns (nil, false).
func (b *Body) ReadChunk() ([]byte, bool) {
	if b.kind != bodyStreamed {
		panic("httpmsg: ReadChunk() called on a non-streamed body")
	}
	if b.done {
		return nil, false
	}
	chunk, more := b.next()
	if !more {
		b.done = true
		return nil, false
	}
	return chunk, true
}

// ReadFullBodyFromChunks drains a Streamed body into a Fixed one and
// returns the collected bytes. Calling it on an already-Fixed body just
// returns its bytes; it is idempotent either way.
func (b *Body) ReadFullBodyFromChunks() []byte {
	if b.kind != bodyStreamed {
		return b.fixed
	}
	var collected []byte
	for {
		chunk, more := b.ReadChunk()
		if !more {
			break
		}
		collected = append(collected, chunk...)
	}
	b.kind = bodyFixed
	b.fixed = collected
	b.next = nil
	return collected
}
