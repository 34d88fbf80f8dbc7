package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/prn-tf/awscore/internal/awserr"
	"github.com/prn-tf/awscore/internal/transport"
)

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// SigningKey derives the SigV4 key chain: HMAC(HMAC(HMAC(HMAC("AWS4"+
// secret, date), region), service), "aws4_request").
func SigningKey(secretAccessKey, date, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretAccessKey), []byte(date))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte(scopeTerminator))
}

// StringToSign builds "<algorithm>\n<datetime>\n<scope>\n<hex(sha256(canonicalRequest))>".
func StringToSign(algorithm, datetime, scope, canonicalReq string) string {
	return algorithm + "\n" + datetime + "\n" + scope + "\n" + sha256Hex([]byte(canonicalReq))
}

// Signature computes hex(HMAC(signingKey, stringToSign)).
func Signature(signingKey []byte, stringToSign string) string {
	return hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))
}

func parseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", awserr.ErrInvalidURL, raw)
	}
	return u, nil
}

// SignHeaders computes signed headers for an HTTP request.
// It guarantees host, x-amz-date, x-amz-content-sha256, authorization,
// and (when a session token is present) x-amz-security-token are set on
// the returned header set. An anonymous credential short-circuits to an
// unsigned-but-well-formed request with no authorization header.
func (s *Signer) SignHeaders(rawURL, method string, headers transport.Header, desc BodyDescriptor, omitSecurityToken bool, date time.Time) (transport.Header, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		return transport.Header{}, err
	}

	out := cloneHeaders(headers)
	dt := pickDate(date)
	datetime := dt.Format(DateTimeFormat)
	hashed := s.hashedPayload(desc)

	out.Set(HeaderHost, u.Host)
	out.Set(HeaderAmzDate, datetime)
	out.Set(HeaderContentSHA256, hashed)
	if s.Credential.SessionToken != "" && !omitSecurityToken {
		out.Set(HeaderSecurityToken, s.Credential.SessionToken)
	}

	if s.Credential.IsAnonymous() {
		return out, nil
	}

	headersBlock, signedHeaders := canonicalHeaders(out)
	sd := &SigningData{
		URL:           rawURL,
		Method:        method,
		HashedPayload: hashed,
		DateTime:      datetime,
		Date:          datetime[:8],
		SignedHeaders: signedHeaders,
	}
	cr := canonicalRequest(sd.Method, s.canonicalURI(u), canonicalQueryString(u.RawQuery), headersBlock, sd.SignedHeaders, sd.HashedPayload)

	scope := Scope(sd.Date, s.Region, s.Service)
	sts := StringToSign(AlgorithmV4, sd.DateTime, scope, cr)
	key := SigningKey(s.Credential.SecretAccessKey, sd.Date, s.Region, s.Service)
	sig := Signature(key, sts)

	out.Set(HeaderAuthorization, fmt.Sprintf(
		"%s Credential=%s/%s,SignedHeaders=%s,Signature=%s",
		AlgorithmV4, s.Credential.AccessKeyID, scope, sd.SignedHeaders, sig,
	))
	return out, nil
}

// SignURL produces a presigned URL whose query string carries the
// signature. expires is the X-Amz-Expires value in seconds.
func (s *Signer) SignURL(rawURL, method string, headers transport.Header, desc BodyDescriptor, expires time.Duration, omitSecurityToken bool, date time.Time) (string, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		return "", err
	}

	dt := pickDate(date)
	datetime := dt.Format(DateTimeFormat)
	date8 := datetime[:8]
	scope := Scope(date8, s.Region, s.Service)

	q := u.Query()
	q.Set("X-Amz-Algorithm", AlgorithmV4)
	if !s.Credential.IsAnonymous() {
		q.Set("X-Amz-Credential", s.Credential.AccessKeyID+"/"+scope)
	}
	q.Set("X-Amz-Date", datetime)
	q.Set("X-Amz-Expires", strconv.FormatInt(int64(expires/time.Second), 10))
	if s.Credential.SessionToken != "" && !omitSecurityToken {
		q.Set("X-Amz-Security-Token", s.Credential.SessionToken)
	}

	signHeaders := cloneHeaders(headers)
	signHeaders.Set(HeaderHost, u.Host)

	_, signedHeaders := canonicalHeaders(signHeaders)
	q.Set("X-Amz-SignedHeaders", signedHeaders)
	u.RawQuery = q.Encode()

	sd := &SigningData{
		URL:           u.String(),
		Method:        method,
		HashedPayload: s.hashedPayload(desc),
		DateTime:      datetime,
		Date:          date8,
		SignedHeaders: signedHeaders,
		UnsignedURL:   rawURL,
	}

	if s.Credential.IsAnonymous() {
		return sd.URL, nil
	}

	cr := canonicalRequest(sd.Method, s.canonicalURI(u), canonicalQueryString(u.RawQuery), headersBlockFor(signHeaders), sd.SignedHeaders, sd.HashedPayload)
	sts := StringToSign(AlgorithmV4, sd.DateTime, scope, cr)
	key := SigningKey(s.Credential.SecretAccessKey, sd.Date, s.Region, s.Service)
	sig := Signature(key, sts)

	q = u.Query()
	q.Set("X-Amz-Signature", sig)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func headersBlockFor(h transport.Header) string {
	block, _ := canonicalHeaders(h)
	return block
}
