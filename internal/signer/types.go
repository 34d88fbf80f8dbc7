// Package signer implements AWS Signature Version 4 and SigV4a request
// signing: canonical request construction, the string-to-sign, the
// SigV4 HMAC key-derivation chain, SigV4a's deterministic ECDSA keypair,
// and per-chunk signing for S3's aws-chunked streaming transport.
// Package sigverify runs the same algorithm in the opposite direction,
// to check signatures instead of producing them.
package signer

import (
	"time"

	"github.com/prn-tf/awscore/internal/transport"
)

// Algorithm identifiers for the Authorization header / string-to-sign.
const (
	AlgorithmV4  = "AWS4-HMAC-SHA256"
	AlgorithmV4A = "AWS4-ECDSA-P256-SHA256"

	scopeTerminator = "aws4_request"

	// DateTimeFormat is the "YYYYMMDD'T'HHmmss'Z'" wire format.
	DateTimeFormat = "20060102T150405Z"
	// DateFormat is DateTimeFormat's first 8 characters.
	DateFormat = "20060102"
)

// Header name constants used throughout the package.
const (
	HeaderHost            = "host"
	HeaderAuthorization   = "authorization"
	HeaderAmzDate         = "x-amz-date"
	HeaderContentSHA256   = "x-amz-content-sha256"
	HeaderSecurityToken   = "x-amz-security-token"
	HeaderRegionSet       = "x-amz-region-set"
	HeaderDecodedLength   = "x-amz-decoded-content-length"
	HeaderContentEncoding = "content-encoding"
)

// unsignableHeaders are excluded from the canonical headers block even if
// present in the caller-supplied header set.
var unsignableHeaders = map[string]bool{
	"authorization":  true,
	"content-length": true,
	"expect":         true,
	"user-agent":     true,
}

// BodyKind tags the payload-hash strategy for a signing call.
type BodyKind int

const (
	BodyEmpty BodyKind = iota
	BodyString
	BodyBytes
	BodyBuffer
	BodyUnsignedPayload
	BodyS3Chunked
)

// BodyDescriptor tells the signer how to compute the payload hash without
// requiring it to read a full Body value.
type BodyDescriptor struct {
	Kind BodyKind
	// Raw holds the payload bytes for BodyString/BodyBytes/BodyBuffer.
	Raw []byte
}

// SigningData is the frozen snapshot of everything the canonical request
// and string-to-sign are computed from.
type SigningData struct {
	URL            string
	Method         string
	HashedPayload  string
	DateTime       string // YYYYMMDD'T'HHmmss'Z'
	Date           string // first 8 chars of DateTime
	HeadersToSign  map[string]string // lower-cased name -> value
	SignedHeaders  string            // sorted, semicolon-joined lower-cased names
	UnsignedURL    string            // may carry presigning query params
}

// ChunkedSigningData is the rolling state carried across aws-chunked
// SignChunk calls.
type ChunkedSigningData struct {
	Signature  string
	DateTime   string
	Date       string
	Region     string
	Service    string
	SigningKey []byte
}

// Scope returns "<date>/<region>/<service>/aws4_request".
func Scope(date, region, service string) string {
	return date + "/" + region + "/" + service + "/" + scopeTerminator
}

// ScopeV4A returns "<date>/<service>/aws4_request" (SigV4a omits region).
func ScopeV4A(date, service string) string {
	return date + "/" + service + "/" + scopeTerminator
}

// Signer signs HttpRequests against a fixed credential, region, and
// service signing name.
type Signer struct {
	Credential Credential
	Region     string
	Service    string
}

// New returns a Signer bound to cred/region/service.
func New(cred Credential, region, service string) *Signer {
	return &Signer{Credential: cred, Region: region, Service: service}
}

// pickDate returns the wall-clock time when date is the zero Time, so
// call sites can pin a date for deterministic tests.
func pickDate(date time.Time) time.Time {
	if date.IsZero() {
		return time.Now().UTC()
	}
	return date.UTC()
}

// cloneHeaders returns a copy of h so the signer never mutates the
// caller's header set in place.
func cloneHeaders(h transport.Header) transport.Header { return h.Clone() }
