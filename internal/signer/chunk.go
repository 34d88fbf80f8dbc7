package signer

import (
	"strconv"
	"strings"
	"time"

	"github.com/prn-tf/awscore/internal/transport"
)

// ChunkSize is the fixed 64 KiB window S3 aws-chunked signing slices the
// body into.
const ChunkSize = 64 * 1024

// chunkHeaderOverhead is the byte cost every chunk's framing line adds
// beyond its size-in-hex digits and its data: the ";" separator (1),
// "chunk-signature=" (16), the 64 hex-character signature (64), and the
// header line's trailing CRLF (2).
const chunkHeaderOverhead = 1 + 16 + 64 + 2

// chunkStringToSignAlgorithm prefixes a chunk's string-to-sign, distinct
// from the request-level AlgorithmV4.
const chunkStringToSignAlgorithm = "AWS4-HMAC-SHA256-PAYLOAD"

// StartSigningChunks signs the request headers for an s3 aws-chunked
// upload and derives the rolling ChunkedSigningData the first SignChunk
// call advances from. The caller must already have set
// content-encoding: aws-chunked and x-amz-decoded-content-length on
// headers before calling this.
func (s *Signer) StartSigningChunks(rawURL, method string, headers transport.Header, date time.Time) (transport.Header, *ChunkedSigningData, error) {
	out, err := s.SignHeaders(rawURL, method, headers, BodyDescriptor{Kind: BodyS3Chunked}, false, date)
	if err != nil {
		return transport.Header{}, nil, err
	}
	if s.Credential.IsAnonymous() {
		return out, nil, nil
	}

	dt := pickDate(date)
	datetime := dt.Format(DateTimeFormat)
	date8 := datetime[:8]

	seed := &ChunkedSigningData{
		Signature:  seedSignature(out.Get(HeaderAuthorization)),
		DateTime:   datetime,
		Date:       date8,
		Region:     s.Region,
		Service:    s.Service,
		SigningKey: SigningKey(s.Credential.SecretAccessKey, date8, s.Region, s.Service),
	}
	return out, seed, nil
}

// seedSignature pulls the "Signature=<hex>" trailer out of an
// Authorization header value, which seeds the first chunk's prev_sig.
func seedSignature(authHeader string) string {
	const marker = "Signature="
	i := strings.LastIndex(authHeader, marker)
	if i < 0 {
		return ""
	}
	return authHeader[i+len(marker):]
}

// SignChunk advances prev across one data chunk, returning the
// ChunkedSigningData whose Signature is that chunk's chunk-signature
//. chunk may be empty only for the terminal frame, which
// callers build with FrameTerminalChunk instead of this method.
func (s *Signer) SignChunk(chunk []byte, prev *ChunkedSigningData) *ChunkedSigningData {
	scope := Scope(prev.Date, prev.Region, prev.Service)
	sts := chunkStringToSignAlgorithm + "\n" +
		prev.DateTime + "\n" +
		scope + "\n" +
		prev.Signature + "\n" +
		EmptyStringSHA256 + "\n" +
		sha256Hex(chunk)

	return &ChunkedSigningData{
		Signature:  Signature(prev.SigningKey, sts),
		DateTime:   prev.DateTime,
		Date:       prev.Date,
		Region:     prev.Region,
		Service:    prev.Service,
		SigningKey: prev.SigningKey,
	}
}

// ChunkHeaderLine is the "<size-in-hex>;chunk-signature=<sig>\r\n" line
// that opens a data chunk's frame.
func ChunkHeaderLine(chunk []byte, signed *ChunkedSigningData) []byte {
	return []byte(strconv.FormatInt(int64(len(chunk)), 16) + ";chunk-signature=" + signed.Signature + "\r\n")
}

// FrameChunk wire-frames a signed data chunk: its header line followed by
// the chunk bytes and a trailing CRLF.
func FrameChunk(chunk []byte, signed *ChunkedSigningData) []byte {
	header := ChunkHeaderLine(chunk, signed)
	out := make([]byte, 0, len(header)+len(chunk)+2)
	out = append(out, header...)
	out = append(out, chunk...)
	out = append(out, '\r', '\n')
	return out
}

// FrameTerminalChunk wire-frames the zero-length closing chunk, which
// carries an additional trailing CRLF beyond the header line.
func FrameTerminalChunk(signed *ChunkedSigningData) []byte {
	header := "0;chunk-signature=" + signed.Signature + "\r\n"
	out := make([]byte, 0, len(header)+2)
	out = append(out, header...)
	out = append(out, '\r', '\n')
	return out
}

// ContentSize computes the exact aws-chunked encoded length for a body
// of originalLength bytes, without materializing any chunk, so callers
// can set content-length ahead of transmission.
func ContentSize(originalLength int64) int64 {
	var total int64
	remaining := originalLength
	for remaining > 0 {
		n := remaining
		if n > ChunkSize {
			n = ChunkSize
		}
		total += n + frameHeaderLen(n) + 2
		remaining -= n
	}
	total += frameHeaderLen(0) + 2
	return total
}

func frameHeaderLen(chunkLen int64) int64 {
	return int64(len(strconv.FormatInt(chunkLen, 16))) + chunkHeaderOverhead
}
