// Package sigverify verifies AWS Signature Version 4 requests server-side:
// it re-derives the canonical request from an incoming http.Request and
// checks the presented signature in constant time. The demo endpoint and
// the integration tests use it to prove the client-side signer produces
// signatures a real service would accept — the signing algorithm run
// backward.
package sigverify

import (
	"crypto/hmac"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prn-tf/awscore/internal/signer"
)

var (
	// ErrMissingAuthorization indicates a request with neither an
	// Authorization header nor presigned query parameters.
	ErrMissingAuthorization = errors.New("sigverify: request is not signed")

	// ErrMalformedAuthorization indicates an Authorization header or
	// presigned query that could not be parsed.
	ErrMalformedAuthorization = errors.New("sigverify: malformed authorization")

	// ErrSignatureMismatch indicates the recomputed signature differs
	// from the presented one.
	ErrSignatureMismatch = errors.New("sigverify: signature does not match")

	// ErrUnknownAccessKey indicates no secret is registered for the
	// presented access key.
	ErrUnknownAccessKey = errors.New("sigverify: unknown access key")

	// ErrExpired indicates a presigned URL past its X-Amz-Expires window.
	ErrExpired = errors.New("sigverify: presigned URL expired")
)

var (
	credentialRe    = regexp.MustCompile(`Credential=([^/]+)/(\d{8})/([^/]+)/([^/]+)/aws4_request`)
	signedHeadersRe = regexp.MustCompile(`SignedHeaders=([^,\s]+)`)
	signatureRe     = regexp.MustCompile(`Signature=([a-f0-9]{64})`)
)

// SignedValues is the parsed signature material of an incoming request.
type SignedValues struct {
	AccessKey     string
	Date          string // YYYYMMDD scope date
	Region        string
	Service       string
	SignedHeaders []string
	Signature     string
	Presigned     bool
	Expires       int64 // seconds, presigned only
}

// Parse extracts the signature material from r: the Authorization header
// for header-signed requests, or the X-Amz-* query parameters for
// presigned URLs.
func Parse(r *http.Request) (*SignedValues, error) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return parseAuthorizationHeader(auth)
	}
	if r.URL.Query().Get("X-Amz-Algorithm") == signer.AlgorithmV4 {
		return parsePresignedQuery(r)
	}
	return nil, ErrMissingAuthorization
}

func parseAuthorizationHeader(auth string) (*SignedValues, error) {
	if !strings.HasPrefix(auth, signer.AlgorithmV4) {
		return nil, fmt.Errorf("%w: unsupported algorithm", ErrMalformedAuthorization)
	}
	cred := credentialRe.FindStringSubmatch(auth)
	if cred == nil {
		return nil, fmt.Errorf("%w: bad credential", ErrMalformedAuthorization)
	}
	sh := signedHeadersRe.FindStringSubmatch(auth)
	if sh == nil {
		return nil, fmt.Errorf("%w: missing signed headers", ErrMalformedAuthorization)
	}
	sig := signatureRe.FindStringSubmatch(auth)
	if sig == nil {
		return nil, fmt.Errorf("%w: missing signature", ErrMalformedAuthorization)
	}

	headers := strings.Split(sh[1], ";")
	if !sort.StringsAreSorted(headers) {
		return nil, fmt.Errorf("%w: signed headers not sorted", ErrMalformedAuthorization)
	}

	return &SignedValues{
		AccessKey:     cred[1],
		Date:          cred[2],
		Region:        cred[3],
		Service:       cred[4],
		SignedHeaders: headers,
		Signature:     sig[1],
	}, nil
}

func parsePresignedQuery(r *http.Request) (*SignedValues, error) {
	q := r.URL.Query()
	credParts := strings.Split(q.Get("X-Amz-Credential"), "/")
	if len(credParts) != 5 || credParts[4] != "aws4_request" {
		return nil, fmt.Errorf("%w: bad presigned credential", ErrMalformedAuthorization)
	}
	sig := q.Get("X-Amz-Signature")
	if len(sig) != 64 {
		return nil, fmt.Errorf("%w: missing presigned signature", ErrMalformedAuthorization)
	}
	expires, err := strconv.ParseInt(q.Get("X-Amz-Expires"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad expires", ErrMalformedAuthorization)
	}

	var headers []string
	if raw := q.Get("X-Amz-SignedHeaders"); raw != "" {
		headers = strings.Split(raw, ";")
	}
	return &SignedValues{
		AccessKey:     credParts[0],
		Date:          credParts[1],
		Region:        credParts[2],
		Service:       credParts[3],
		SignedHeaders: headers,
		Signature:     sig,
		Presigned:     true,
		Expires:       expires,
	}, nil
}

// Verify recomputes the request's signature with secretAccessKey and
// compares it against the presented one in constant time. payloadHash is
// the value the x-amz-content-sha256 header carried (or the literal the
// signer would have defaulted to).
func Verify(r *http.Request, sv *SignedValues, secretAccessKey, payloadHash string) error {
	canonical := canonicalRequest(r, sv, payloadHash)

	datetime := requestDateTime(r, sv)
	scope := signer.Scope(sv.Date, sv.Region, sv.Service)
	sts := signer.StringToSign(signer.AlgorithmV4, datetime, scope, canonical)
	key := signer.SigningKey(secretAccessKey, sv.Date, sv.Region, sv.Service)
	expected := signer.Signature(key, sts)

	if !hmac.Equal([]byte(expected), []byte(sv.Signature)) {
		return ErrSignatureMismatch
	}
	if sv.Presigned {
		issued, err := time.Parse(signer.DateTimeFormat, datetime)
		if err != nil {
			return fmt.Errorf("%w: bad date", ErrMalformedAuthorization)
		}
		if time.Now().UTC().After(issued.Add(time.Duration(sv.Expires) * time.Second)) {
			return ErrExpired
		}
	}
	return nil
}

// PayloadHash reads the request's declared payload hash, defaulting the
// way clients do: the empty-body hash for read methods, UNSIGNED-PAYLOAD
// otherwise.
func PayloadHash(r *http.Request) string {
	if h := r.Header.Get("x-amz-content-sha256"); h != "" {
		return h
	}
	if h := r.URL.Query().Get("X-Amz-Content-Sha256"); h != "" {
		return h
	}
	// Presigned URLs sign the payload as UNSIGNED-PAYLOAD.
	if r.URL.Query().Get("X-Amz-Algorithm") != "" {
		return signer.UnsignedPayload
	}
	if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodDelete {
		return signer.EmptyStringSHA256
	}
	return signer.UnsignedPayload
}

func requestDateTime(r *http.Request, sv *SignedValues) string {
	if d := r.Header.Get("x-amz-date"); d != "" {
		return d
	}
	if d := r.URL.Query().Get("X-Amz-Date"); d != "" {
		return d
	}
	return sv.Date + "T000000Z"
}

// canonicalRequest rebuilds the canonical request the client must have
// signed, using only the headers the signature declares.
func canonicalRequest(r *http.Request, sv *SignedValues, payloadHash string) string {
	var headersBlock strings.Builder
	for _, name := range sv.SignedHeaders {
		value := r.Header.Get(name)
		if strings.EqualFold(name, "host") {
			value = r.Host
		}
		// net/http strips Content-Length out of the header map.
		if strings.EqualFold(name, "content-length") && r.ContentLength >= 0 {
			value = strconv.FormatInt(r.ContentLength, 10)
		}
		headersBlock.WriteString(strings.ToLower(name))
		headersBlock.WriteByte(':')
		headersBlock.WriteString(strings.Join(strings.Fields(value), " "))
		headersBlock.WriteByte('\n')
	}

	return r.Method + "\n" +
		canonicalURI(r.URL, sv.Service) + "\n" +
		canonicalQuery(r.URL.Query()) + "\n" +
		headersBlock.String() + "\n" +
		strings.Join(sv.SignedHeaders, ";") + "\n" +
		payloadHash
}

// canonicalURI mirrors the client signer's path encoding: s3 paths are
// encoded once from their raw form, other services' already-escaped
// paths are encoded a second time.
func canonicalURI(u *url.URL, service string) string {
	path := u.EscapedPath()
	if service == "s3" {
		path = u.Path
	}
	if path == "" {
		return "/"
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = escapeAll(seg)
	}
	return strings.Join(segments, "/")
}

// escapeAll percent-encodes every byte outside the unreserved set.
func escapeAll(seg string) string {
	var b strings.Builder
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteString(fmt.Sprintf("%%%02X", c))
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

func canonicalQuery(q map[string][]string) string {
	delete(q, "X-Amz-Signature")
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []string
	for _, k := range keys {
		vs := append([]string(nil), q[k]...)
		sort.Strings(vs)
		for _, v := range vs {
			pairs = append(pairs, escapeAll(k)+"="+escapeAll(v))
		}
	}
	return strings.Join(pairs, "&")
}
