// Package checksum computes request body checksums over a single pass:
// the full crc32/crc32c/sha1/sha256/md5 set AWS services accept, each
// resolved to its wire header name and base64-encoded value.
package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"hash"
	"hash/crc32"
	"io"
)

// Algorithm identifies a supported checksum function.
type Algorithm string

const (
	CRC32  Algorithm = "CRC32"
	CRC32C Algorithm = "CRC32C"
	SHA1   Algorithm = "SHA1"
	SHA256 Algorithm = "SHA256"
	MD5    Algorithm = "MD5"
)

// HeaderName returns the wire header the algorithm's value is attached
// under. MD5 uses the legacy content-md5 header; the rest use the
// documented x-amz-checksum-* family.
func (a Algorithm) HeaderName() string {
	if a == MD5 {
		return "content-md5"
	}
	return "x-amz-checksum-" + string(toLowerASCII(string(a)))
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func newHasher(a Algorithm) (hash.Hash, bool) {
	switch a {
	case CRC32:
		return crc32.NewIEEE(), true
	case CRC32C:
		return crc32.New(crc32.MakeTable(crc32.Castagnoli)), true
	case SHA1:
		return sha1.New(), true
	case SHA256:
		return sha256.New(), true
	case MD5:
		return md5.New(), true
	default:
		return nil, false
	}
}

// Compute reads r to completion and returns the base64-encoded checksum
// value for algorithm, along with the total byte count read.
//
// crc32/crc32c values are base64 of the 4-byte big-endian CRC; the
// hash-based algorithms are base64 of the raw digest.
func Compute(a Algorithm, r io.Reader) (value string, n int64, err error) {
	h, ok := newHasher(a)
	if !ok {
		return "", 0, ErrUnsupportedAlgorithm
	}
	n, err = io.Copy(h, r)
	if err != nil {
		return "", 0, err
	}
	return encode(a, h), n, nil
}

// encode returns the base64 wire value for a completed hash. hash/crc32's
// Sum already appends the big-endian 4-byte digest, so crc32/crc32c need
// no special casing beyond sharing this path with the hash-based algorithms.
func encode(a Algorithm, h hash.Hash) string {
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Reader wraps an io.Reader and accumulates a checksum alongside a
// SHA-256 payload hash while bytes are consumed, mirroring
// crypto.HashReader's single-pass design so the encoder never needs a
// second pass over the body to both sign and checksum it.
type Reader struct {
	src      io.Reader
	alg      Algorithm
	h        hash.Hash
	sha256   hash.Hash
	size     int64
	finished bool
}

// NewReader wraps src, computing alg and a SHA-256 payload hash together.
func NewReader(src io.Reader, alg Algorithm) (*Reader, error) {
	h, ok := newHasher(alg)
	if !ok {
		return nil, ErrUnsupportedAlgorithm
	}
	return &Reader{src: src, alg: alg, h: h, sha256: sha256.New()}, nil
}

func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 {
		r.h.Write(p[:n])
		r.sha256.Write(p[:n])
		r.size += int64(n)
	}
	if err == io.EOF {
		r.finished = true
	}
	return n, err
}

// Value returns the checksum value computed so far; call only after the
// wrapped reader has been fully drained.
func (r *Reader) Value() string { return encode(r.alg, r.h) }

// PayloadSHA256 returns the hex-lower SHA-256 of everything read so far.
func (r *Reader) PayloadSHA256() string {
	sum := r.sha256.Sum(nil)
	const hextable = "0123456789abcdef"
	out := make([]byte, len(sum)*2)
	for i, b := range sum {
		out[i*2] = hextable[b>>4]
		out[i*2+1] = hextable[b&0x0f]
	}
	return string(out)
}

// Size returns the number of bytes read so far.
func (r *Reader) Size() int64 { return r.size }

// Done reports whether the source has been fully drained.
func (r *Reader) Done() bool { return r.finished }
