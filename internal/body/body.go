// Package body implements the request/response payload value: either
// a complete byte buffer, or a lazy, finite, non-restartable sequence of
// byte buffers with an optional known length. A streaming Body takes
// exclusive ownership of its source reader and is consumed exactly once.
package body

import "io"

// Kind tags which variant a Body holds.
type Kind int

const (
	// KindEmpty carries no bytes.
	KindEmpty Kind = iota
	// KindBuffer carries a complete, already-materialized byte slice.
	KindBuffer
	// KindStream carries a lazy io.Reader, optionally of known length.
	KindStream
)

// Body is an immutable-once-constructed value representing a request or
// response payload. The zero value is the empty body.
type Body struct {
	kind   Kind
	buf    []byte
	stream io.Reader
	length *int64
}

// Empty returns the empty body.
func Empty() Body { return Body{kind: KindEmpty} }

// FromBytes wraps a complete in-memory buffer. Its length is always known.
func FromBytes(b []byte) Body {
	return Body{kind: KindBuffer, buf: b}
}

// FromString wraps a complete string payload.
func FromString(s string) Body {
	return FromBytes([]byte(s))
}

// FromStream wraps a lazy reader. length is nil when the total size is
// not known ahead of time; only streaming bodies may leave it unset.
func FromStream(r io.Reader, length *int64) Body {
	return Body{kind: KindStream, stream: r, length: length}
}

// Kind reports which variant this Body holds.
func (b Body) Kind() Kind { return b.kind }

// IsEmpty reports whether the body carries zero bytes. A streaming body
// of unknown length is never considered empty.
func (b Body) IsEmpty() bool {
	switch b.kind {
	case KindEmpty:
		return true
	case KindBuffer:
		return len(b.buf) == 0
	default:
		return b.length != nil && *b.length == 0
	}
}

// Bytes returns the buffered payload and true, or nil/false if this body
// is not a complete buffer (empty bodies return an empty, non-nil slice).
func (b Body) Bytes() ([]byte, bool) {
	switch b.kind {
	case KindEmpty:
		return []byte{}, true
	case KindBuffer:
		return b.buf, true
	default:
		return nil, false
	}
}

// Len returns the total byte length and whether it is known. A buffered
// or empty body always has a known length.
func (b Body) Len() (int64, bool) {
	switch b.kind {
	case KindEmpty:
		return 0, true
	case KindBuffer:
		return int64(len(b.buf)), true
	default:
		if b.length == nil {
			return 0, false
		}
		return *b.length, true
	}
}

// Reader returns a single-pass io.Reader over the body's bytes, regardless
// of which variant it holds. Calling it on a streaming body consumes the
// underlying source; it must not be called twice.
func (b Body) Reader() io.Reader {
	switch b.kind {
	case KindEmpty:
		return io.LimitReader(nil, 0)
	case KindBuffer:
		return &byteReader{b: b.buf}
	default:
		return b.stream
	}
}

// byteReader avoids importing bytes.Reader just to satisfy io.Reader over
// a slice we already own.
type byteReader struct {
	b   []byte
	off int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.off >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.off:])
	r.off += n
	return n, nil
}
