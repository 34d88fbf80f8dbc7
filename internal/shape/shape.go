// Package shape defines the contract code-generated service shapes must
// satisfy to be encoded into a request and decoded out of a response.
// The request encoder and response decoder in internal/protocol operate
// entirely through this contract; they never know about a concrete
// operation's Go type.
package shape

import (
	"net/url"

	"github.com/prn-tf/awscore/internal/body"
)

// Options carries the per-shape flags the encoder consults.
type Options struct {
	// ChecksumRequired means a checksum header must always be attached.
	ChecksumRequired bool

	// ChecksumHeader, when non-empty, names the algorithm (e.g. "CRC32")
	// a ChecksumRequired shape computes; a caller-set
	// x-amz-sdk-checksum-algorithm header still takes precedence.
	ChecksumHeader string

	// MD5ChecksumHeader means the shape supports content-md5 fallback
	// when the service's calculate_md5 feature flag is set.
	MD5ChecksumHeader bool

	// AllowStreaming means the shape's payload may be a streaming Body.
	AllowStreaming bool

	// AllowChunkedStreaming means the shape tolerates a streaming Body
	// with unknown length (aws-chunked transfer).
	AllowChunkedStreaming bool

	// RawPayload means the shape's body is an opaque byte/stream payload
	// rather than a structured document (e.g. S3 PutObject).
	RawPayload bool
}

// EncodableShape is implemented by generated operation input types.
type EncodableShape interface {
	// ShapeOptions returns the shape's encoding flags.
	ShapeOptions() Options

	// Validate performs total input validation before encoding begins.
	Validate() error
}

// XMLShape is implemented by shapes that encode/decode through the
// REST-XML or Query/EC2-Query protocols, which need a root element name
// and an optional namespace.
type XMLShape interface {
	// XMLRootNodeName returns the root element name for the document.
	XMLRootNodeName() string

	// XMLNamespace returns the shape-declared XML namespace, or "" to
	// fall back to the service's default namespace.
	XMLNamespace() string
}

// DecodableShape is implemented by generated operation output types.
type DecodableShape interface {
	// ShapeOptions returns the shape's decoding flags.
	ShapeOptions() Options
}

// PathShape supplies values for the {name} placeholders of an operation's
// path template. Values are raw; the encoder percent-escapes them.
type PathShape interface {
	PathParameters() map[string]string
}

// QueryShape supplies query-string parameters appended to the request URL.
type QueryShape interface {
	QueryParameters() url.Values
}

// HeaderShape supplies extra request headers bound from shape members.
type HeaderShape interface {
	HeaderParameters() map[string]string
}

// HostPrefixShape supplies a prefix prepended to the endpoint authority
// (e.g. "<AccountId>." for account-scoped endpoints).
type HostPrefixShape interface {
	HostPrefix() string
}

// DocumentShape supplies the structured body document the protocol
// encoders serialize. Values may be string, bool, integer and float
// kinds, time.Time, []byte, []any, or nested map[string]any.
type DocumentShape interface {
	Document() map[string]any
}

// PayloadShape supplies the raw body for shapes whose Options declare
// RawPayload; the encoder transmits it as-is.
type PayloadShape interface {
	Payload() body.Body
}

// DocumentDecodable is implemented by output shapes that populate
// themselves from a decoded body document.
type DocumentDecodable interface {
	DecodeDocument(doc map[string]any) error
}

// HeaderDecodable is implemented by output shapes that bind members from
// response headers.
type HeaderDecodable interface {
	DecodeHeaders(headers map[string]string) error
}

// PayloadDecodable is implemented by output shapes that take the raw
// response body (streaming or buffered) instead of a parsed document.
type PayloadDecodable interface {
	DecodePayload(b body.Body) error
}
