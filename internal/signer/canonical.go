package signer

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"

	"github.com/prn-tf/awscore/internal/transport"
)

// EmptyStringSHA256 is the hex-lower SHA-256 of the empty string,
// used as the payload hash for empty bodies.
const EmptyStringSHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// UnsignedPayload is the literal hash value for an unsigned-payload body.
const UnsignedPayload = "UNSIGNED-PAYLOAD"

// StreamingPayload is the literal hash value for an S3 aws-chunked body.
const StreamingPayload = "STREAMING-AWS4-HMAC-SHA256-PAYLOAD"

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// hashedPayload resolves a BodyDescriptor to the literal/hash the
// canonical request's final line carries.
//
// s3 requests default to UNSIGNED-PAYLOAD when the caller supplies
// BodyEmpty without an explicit hash.
func (s *Signer) hashedPayload(desc BodyDescriptor) string {
	switch desc.Kind {
	case BodyUnsignedPayload:
		return UnsignedPayload
	case BodyS3Chunked:
		return StreamingPayload
	case BodyString, BodyBytes, BodyBuffer:
		return sha256Hex(desc.Raw)
	default: // BodyEmpty
		if s.Service == "s3" {
			return UnsignedPayload
		}
		return EmptyStringSHA256
	}
}

// canonicalURI returns the URI-encoded canonical path: for
// the "s3" signing name, the raw path is URI-encoded once while
// preserving "/" (covering S3's wider reserved set +@()&$=:,'!*); for
// every other service, the already-percent-encoded path is encoded a
// second time while preserving "/" (because most services' paths arrive
// already escaped by the caller's path templating).
func (s *Signer) canonicalURI(u *url.URL) string {
	path := u.EscapedPath()
	if s.Service == "s3" {
		path = u.Path
	}
	if path == "" {
		return "/"
	}
	return encodeSegments(path, s3PathEscape)
}

// encodeSegments escapes each "/"-delimited path segment with escape,
// rejoining with "/" so the separator itself is never encoded.
func encodeSegments(path string, escape func(string) string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = escape(seg)
	}
	return strings.Join(segments, "/")
}

// s3PathEscape percent-encodes everything outside the unreserved set,
// which covers S3's extra reserved characters +@()&$=:,'!* and, applied
// to an already-escaped path, implements the second encoding pass the
// other services require (the '%' of each existing escape is re-encoded).
func s3PathEscape(segment string) string {
	var b strings.Builder
	for i := 0; i < len(segment); i++ {
		c := segment[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteString(percentEncodeByte(c))
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

func percentEncodeByte(c byte) string {
	const hextable = "0123456789ABCDEF"
	return string([]byte{'%', hextable[c>>4], hextable[c&0x0f]})
}

// canonicalQueryString sorts the unsigned URL's query by name then value
// and percent-encodes each with the conservative reserved set.
// X-Amz-Signature is excluded so a presigned URL can be
// re-verified without the signature itself participating.
func canonicalQueryString(raw string) string {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return ""
	}
	delete(values, "X-Amz-Signature")
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []string
	for _, k := range keys {
		vs := append([]string(nil), values[k]...)
		sort.Strings(vs)
		for _, v := range vs {
			pairs = append(pairs, queryEscape(k)+"="+queryEscape(v))
		}
	}
	return strings.Join(pairs, "&")
}

// queryEscape percent-encodes with the RFC 3986 unreserved set; unlike
// net/url's query escaping it encodes a space as %20 rather than "+".
func queryEscape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteString(percentEncodeByte(c))
	}
	return b.String()
}

// canonicalHeaders builds the sorted, blank-line-terminated canonical
// headers block and the semicolon-joined signed-headers list, excluding
// the unsignable headers.
func canonicalHeaders(h transport.Header) (block string, signedHeaders string) {
	names := make([]string, 0, len(h.Keys()))
	for _, k := range h.Keys() {
		lk := strings.ToLower(k)
		if unsignableHeaders[lk] {
			continue
		}
		names = append(names, lk)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		value := collapseWhitespace(h.Get(name))
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(value)
		b.WriteByte('\n')
	}
	return b.String(), strings.Join(names, ";")
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// canonicalRequest assembles the six-line canonical request.
func canonicalRequest(method, uri, query, headersBlock, signedHeaders, hashedPayload string) string {
	return method + "\n" +
		uri + "\n" +
		query + "\n" +
		headersBlock + "\n" +
		signedHeaders + "\n" +
		hashedPayload
}
