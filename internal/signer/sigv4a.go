package signer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prn-tf/awscore/internal/signer/v4a"
	"github.com/prn-tf/awscore/internal/transport"
)

// SignHeadersV4A is SignHeaders' SigV4a counterpart: the scope omits the
// region, and the header set additionally carries a comma-joined
// x-amz-region-set instead of a single signing region.
func (s *Signer) SignHeadersV4A(rawURL, method string, headers transport.Header, desc BodyDescriptor, regions []string, omitSecurityToken bool, date time.Time) (transport.Header, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		return transport.Header{}, err
	}

	out := cloneHeaders(headers)
	dt := pickDate(date)
	datetime := dt.Format(DateTimeFormat)
	hashed := s.hashedPayload(desc)
	regionSet := strings.Join(regions, ",")

	out.Set(HeaderHost, u.Host)
	out.Set(HeaderAmzDate, datetime)
	out.Set(HeaderContentSHA256, hashed)
	out.Set(HeaderRegionSet, regionSet)
	if s.Credential.SessionToken != "" && !omitSecurityToken {
		out.Set(HeaderSecurityToken, s.Credential.SessionToken)
	}

	if s.Credential.IsAnonymous() {
		return out, nil
	}

	priv, err := v4a.DerivePrivateKey(s.Credential.AccessKeyID, s.Credential.SecretAccessKey)
	if err != nil {
		return transport.Header{}, err
	}

	headersBlock, signedHeaders := canonicalHeaders(out)
	date8 := datetime[:8]
	scope := ScopeV4A(date8, s.Service)
	cr := canonicalRequest(method, s.canonicalURI(u), canonicalQueryString(u.RawQuery), headersBlock, signedHeaders, hashed)
	sts := StringToSign(AlgorithmV4A, datetime, scope, cr)

	sig, err := v4a.Sign(priv, sts)
	if err != nil {
		return transport.Header{}, err
	}

	out.Set(HeaderAuthorization, fmt.Sprintf(
		"%s Credential=%s/%s,SignedHeaders=%s,Signature=%s",
		AlgorithmV4A, s.Credential.AccessKeyID, scope, signedHeaders, sig,
	))
	return out, nil
}

// SignURLV4A is SignURL's SigV4a counterpart.
func (s *Signer) SignURLV4A(rawURL, method string, headers transport.Header, desc BodyDescriptor, regions []string, expires time.Duration, omitSecurityToken bool, date time.Time) (string, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		return "", err
	}

	dt := pickDate(date)
	datetime := dt.Format(DateTimeFormat)
	date8 := datetime[:8]
	scope := ScopeV4A(date8, s.Service)
	regionSet := strings.Join(regions, ",")

	q := u.Query()
	q.Set("X-Amz-Algorithm", AlgorithmV4A)
	if !s.Credential.IsAnonymous() {
		q.Set("X-Amz-Credential", s.Credential.AccessKeyID+"/"+scope)
	}
	q.Set("X-Amz-Date", datetime)
	q.Set("X-Amz-Expires", strconv.FormatInt(int64(expires/time.Second), 10))
	q.Set("X-Amz-Region-Set", regionSet)
	if s.Credential.SessionToken != "" && !omitSecurityToken {
		q.Set("X-Amz-Security-Token", s.Credential.SessionToken)
	}

	signHeaders := cloneHeaders(headers)
	signHeaders.Set(HeaderHost, u.Host)
	_, signedHeaders := canonicalHeaders(signHeaders)
	q.Set("X-Amz-SignedHeaders", signedHeaders)
	u.RawQuery = q.Encode()

	if s.Credential.IsAnonymous() {
		return u.String(), nil
	}

	priv, err := v4a.DerivePrivateKey(s.Credential.AccessKeyID, s.Credential.SecretAccessKey)
	if err != nil {
		return "", err
	}

	hashed := s.hashedPayload(desc)
	cr := canonicalRequest(method, s.canonicalURI(u), canonicalQueryString(u.RawQuery), headersBlockFor(signHeaders), signedHeaders, hashed)
	sts := StringToSign(AlgorithmV4A, datetime, scope, cr)

	sig, err := v4a.Sign(priv, sts)
	if err != nil {
		return "", err
	}

	q = u.Query()
	q.Set("X-Amz-Signature", sig)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
