// Package chunked adapts a plain byte stream into S3's aws-chunked signed
// transport encoding by composing internal/body's Body abstraction with
// internal/signer's chunk-signing continuation — a lazy sequence built by
// composition, not a callback chain.
package chunked

import (
	"io"

	"github.com/prn-tf/awscore/internal/signer"
)

type state int

const (
	stateHeader state = iota
	stateBody
	stateTail
	stateEnd
)

// Reader wraps a source io.Reader, emitting the aws-chunked wire format:
// each up-to-64KiB slice framed with its own chunk signature, terminated
// by a zero-length signed chunk. It implements the WriteHeader ->
// WriteBody -> WriteTail -> ... -> End state machine, with
// each state's emitted bytes observable in that strict order.
type Reader struct {
	src    io.Reader
	signer *signer.Signer
	state  state

	chunkData *signer.ChunkedSigningData
	pending   []byte // the current chunk's data, held between WriteHeader and WriteBody
	out       []byte // bytes not yet returned to the caller for the current state
	readBuf   [signer.ChunkSize]byte

	srcErr error // sticky error from the underlying source, surfaced once out drains
}

// NewReader returns a Reader that frames src's bytes as aws-chunked,
// continuing the rolling signature state seed started by
// Signer.StartSigningChunks.
func NewReader(src io.Reader, s *signer.Signer, seed *signer.ChunkedSigningData) *Reader {
	return &Reader{src: src, signer: s, chunkData: seed, state: stateHeader}
}

// ContentSize computes the exact aws-chunked encoded length a body of
// originalLength bytes will produce, without reading it.
func ContentSize(originalLength int64) int64 { return signer.ContentSize(originalLength) }

func (r *Reader) Read(p []byte) (int, error) {
	for {
		if len(r.out) > 0 {
			n := copy(p, r.out)
			r.out = r.out[n:]
			return n, nil
		}
		if r.state == stateEnd {
			if r.srcErr != nil && r.srcErr != io.EOF {
				return 0, r.srcErr
			}
			return 0, io.EOF
		}
		if err := r.advance(); err != nil {
			return 0, err
		}
	}
}

// advance runs exactly one state transition, populating r.out with that
// state's emitted bytes.
func (r *Reader) advance() error {
	switch r.state {
	case stateHeader:
		return r.writeHeader()
	case stateBody:
		r.out = r.pending
		r.pending = nil
		r.state = stateTail
		return nil
	case stateTail:
		r.out = []byte("\r\n")
		r.state = stateHeader
		return nil
	default:
		return io.EOF
	}
}

func (r *Reader) writeHeader() error {
	n, err := io.ReadFull(r.src, r.readBuf[:])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return err
	}
	chunk := r.readBuf[:n]

	if n == 0 {
		r.srcErr = err
		r.chunkData = r.signer.SignChunk(nil, r.chunkData)
		r.out = signer.FrameTerminalChunk(r.chunkData)
		r.state = stateEnd
		return nil
	}

	buf := make([]byte, n)
	copy(buf, chunk)

	r.chunkData = r.signer.SignChunk(buf, r.chunkData)
	r.out = signer.ChunkHeaderLine(buf, r.chunkData)
	r.pending = buf
	r.state = stateBody
	return nil
}
