// Package iobuf implements a growing byte buffer that accumulates inbound
// connection bytes and response bodies read to EOF. Past a configurable
// memory ceiling it spills to a temporary file, so a slow client or a large
// read-to-close body cannot force unbounded heap growth.
package iobuf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
)

// DefaultMemLimit is the memory threshold used when a Buffer is created with
// a non-positive limit.
const DefaultMemLimit = 4 * 1024 * 1024 // 4 MiB

// Buffer accumulates written bytes in memory until it grows past its
// configured limit, then spills the remainder to a temp file. It also
// tracks a consumed-bytes cursor so a parser can mark how much of the
// accumulated data it has turned into a complete message, leaving the rest
// (a pipelined tail, or a not-yet-complete message) in place for the next
// read.
//
// A Buffer is safe for concurrent Write and Close calls, matching the
// connection goroutine writing while a timeout watcher closes it out from
// under it.
type Buffer struct {
	mu       sync.Mutex
	mem      bytes.Buffer
	file     *os.File
	path     string
	size     int64
	consumed int64
	limit    int64
	closed   bool
}

// New creates a Buffer that spills to disk once its in-memory portion would
// exceed limit bytes. A non-positive limit uses DefaultMemLimit.
func New(limit int64) *Buffer {
	if limit <= 0 {
		limit = DefaultMemLimit
	}
	return &Buffer{limit: limit}
}

// Write appends p, spilling the buffer to a temp file the first time the
// in-memory portion would grow past its limit.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, fmt.Errorf("iobuf: write to closed buffer")
	}

	if b.file == nil && int64(b.mem.Len()+len(p)) <= b.limit {
		n, err := b.mem.Write(p)
		b.size += int64(n)
		return n, err
	}

	if b.file == nil {
		tmp, err := os.CreateTemp("", "httpcore-buffer-*.tmp")
		if err != nil {
			return 0, fmt.Errorf("iobuf: spilling to disk: %w", err)
		}
		b.file = tmp
		b.path = tmp.Name()
		if b.mem.Len() > 0 {
			if _, err := tmp.Write(b.mem.Bytes()); err != nil {
				b.closeLocked()
				return 0, fmt.Errorf("iobuf: spilling to disk: %w", err)
			}
			b.mem.Reset()
		}
	}

	n, err := b.file.Write(p)
	b.size += int64(n)
	if err != nil {
		return n, fmt.Errorf("iobuf: writing to spill file: %w", err)
	}
	return n, nil
}

// Len returns the number of unconsumed bytes currently held.
func (b *Buffer) Len() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size - b.consumed
}

// IsSpilled reports whether the buffer has written any data to a temp file.
func (b *Buffer) IsSpilled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file != nil
}

// Unconsumed returns the bytes written so far but not yet marked consumed
// by Advance. Callers that need to parse from the buffer's current position
// use this. The returned slice shares the buffer's memory and is valid only
// until the next Write, Advance or Compact. Once the buffer has spilled it
// returns nil, since a message codec operates on an in-memory tail by
// design.
func (b *Buffer) Unconsumed() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file != nil {
		return nil
	}
	full := b.mem.Bytes()
	if b.consumed >= int64(len(full)) {
		return nil
	}
	return full[b.consumed:]
}

// Advance marks n more bytes, starting at the current cursor, as consumed.
// It is used after a successful parse to retain any unconsumed tail (a
// pipelined follow-on request, or the start of the next one) instead of
// discarding it.
func (b *Buffer) Advance(n int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consumed += n
	if b.consumed == b.size {
		b.resetLocked()
	}
}

// Compact drops already-consumed bytes from the front of the in-memory
// buffer, so a connection reused across many requests does not keep
// re-scanning old bytes or growing without bound even though nothing has
// spilled.
func (b *Buffer) Compact() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.file != nil || b.consumed == 0 {
		return
	}
	remaining := b.mem.Bytes()[b.consumed:]
	tail := append([]byte(nil), remaining...)
	b.mem.Reset()
	b.mem.Write(tail)
	b.size -= b.consumed
	b.consumed = 0
}

func (b *Buffer) resetLocked() {
	b.mem.Reset()
	b.size = 0
	b.consumed = 0
}

// Reader returns a fresh reader over everything written (ignoring the
// consumed cursor), used once a body buffer is complete and ready to be
// handed to a caller.
func (b *Buffer) Reader() (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("iobuf: read from closed buffer")
	}

	if b.file != nil {
		if err := b.file.Sync(); err != nil {
			return nil, fmt.Errorf("iobuf: syncing spill file: %w", err)
		}
		f, err := os.Open(b.path)
		if err != nil {
			return nil, fmt.Errorf("iobuf: reopening spill file: %w", err)
		}
		return f, nil
	}
	return io.NopCloser(bytes.NewReader(b.mem.Bytes())), nil
}

// Close releases the buffer's resources, removing its spill file if any.
// Safe to call more than once.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeLocked()
}

func (b *Buffer) closeLocked() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if b.file != nil {
		err := b.file.Close()
		if rmErr := os.Remove(b.path); rmErr != nil && err == nil {
			err = rmErr
		}
		b.file = nil
		b.path = ""
		if err != nil {
			return fmt.Errorf("iobuf: closing spill file: %w", err)
		}
	}
	return nil
}
