package signer

import (
	"encoding/hex"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prn-tf/awscore/internal/transport"
)

func fixedDate(t *testing.T) time.Time {
	t.Helper()
	d, err := time.Parse(DateTimeFormat, "20150830T123600Z")
	require.NoError(t, err)
	return d
}

func TestSignHeaders_SetsGuaranteedHeaders(t *testing.T) {
	s := New(Credential{AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY"}, "us-east-1", "service")
	headers := transport.NewHeader()

	out, err := s.SignHeaders("https://example.amazonaws.com/", "GET", headers, BodyDescriptor{Kind: BodyEmpty}, false, fixedDate(t))
	require.NoError(t, err)

	require.Equal(t, "example.amazonaws.com", out.Get(HeaderHost))
	require.Equal(t, "20150830T123600Z", out.Get(HeaderAmzDate))
	require.Equal(t, EmptyStringSHA256, out.Get(HeaderContentSHA256))
	require.True(t, out.Has(HeaderAuthorization))
	require.Regexp(t, regexp.MustCompile(`^AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/20150830/us-east-1/service/aws4_request,SignedHeaders=host;x-amz-content-sha256;x-amz-date,Signature=[0-9a-f]{64}$`), out.Get(HeaderAuthorization))
}

func TestSignHeaders_Deterministic(t *testing.T) {
	s := New(Credential{AccessKeyID: "AKID", SecretAccessKey: "secret"}, "us-west-2", "s3")
	headers := transport.NewHeader()
	date := fixedDate(t)

	a, err := s.SignHeaders("https://bucket.s3.amazonaws.com/key", "PUT", headers, BodyDescriptor{Kind: BodyEmpty}, false, date)
	require.NoError(t, err)
	b, err := s.SignHeaders("https://bucket.s3.amazonaws.com/key", "PUT", headers, BodyDescriptor{Kind: BodyEmpty}, false, date)
	require.NoError(t, err)

	require.Equal(t, a.Get(HeaderAuthorization), b.Get(HeaderAuthorization))
}

func TestSignHeaders_AnonymousCredentialIsUnsigned(t *testing.T) {
	s := New(Credential{}, "us-east-1", "service")
	out, err := s.SignHeaders("https://example.amazonaws.com/", "GET", transport.NewHeader(), BodyDescriptor{Kind: BodyEmpty}, false, fixedDate(t))
	require.NoError(t, err)
	require.False(t, out.Has(HeaderAuthorization))
	require.Equal(t, "example.amazonaws.com", out.Get(HeaderHost))
}

func TestSignHeaders_InvalidURL(t *testing.T) {
	s := New(Credential{AccessKeyID: "AKID", SecretAccessKey: "secret"}, "us-east-1", "service")
	_, err := s.SignHeaders("not a url", "GET", transport.NewHeader(), BodyDescriptor{Kind: BodyEmpty}, false, fixedDate(t))
	require.Error(t, err)
}

func TestSignHeaders_S3DefaultsToUnsignedPayload(t *testing.T) {
	s := New(Credential{AccessKeyID: "AKID", SecretAccessKey: "secret"}, "us-east-1", "s3")
	out, err := s.SignHeaders("https://bucket.s3.amazonaws.com/key", "PUT", transport.NewHeader(), BodyDescriptor{Kind: BodyEmpty}, false, fixedDate(t))
	require.NoError(t, err)
	require.Equal(t, UnsignedPayload, out.Get(HeaderContentSHA256))
}

func TestSignURL_IncludesExpectedQueryParams(t *testing.T) {
	s := New(Credential{AccessKeyID: "AKID", SecretAccessKey: "secret"}, "us-east-1", "service")
	u, err := s.SignURL("https://example.amazonaws.com/resource", "GET", transport.NewHeader(), BodyDescriptor{Kind: BodyUnsignedPayload}, 15*time.Minute, false, fixedDate(t))
	require.NoError(t, err)
	require.Contains(t, u, "X-Amz-Algorithm=AWS4-HMAC-SHA256")
	require.Contains(t, u, "X-Amz-Credential=AKID%2F20150830%2Fus-east-1%2Fservice%2Faws4_request")
	require.Contains(t, u, "X-Amz-Expires=900")
	require.Contains(t, u, "X-Amz-Signature=")
	require.NotContains(t, u, "X-Amz-Security-Token")
}

func TestSignURL_AnonymousOmitsSignature(t *testing.T) {
	s := New(Credential{}, "us-east-1", "service")
	u, err := s.SignURL("https://example.amazonaws.com/resource", "GET", transport.NewHeader(), BodyDescriptor{Kind: BodyUnsignedPayload}, time.Minute, false, fixedDate(t))
	require.NoError(t, err)
	require.NotContains(t, u, "X-Amz-Signature=")
}

func TestCanonicalURI_S3EncodesRawPathOnce(t *testing.T) {
	s := New(Credential{}, "us-east-1", "s3")
	u, err := url.Parse("https://bucket.s3.amazonaws.com/my%20key%2Bplus")
	require.NoError(t, err)
	require.Equal(t, "/my%20key%2Bplus", s.canonicalURI(u))
}

func TestCanonicalURI_NonS3DoubleEncodes(t *testing.T) {
	s := New(Credential{}, "us-east-1", "service")
	u, err := url.Parse("https://example.amazonaws.com/a%20b")
	require.NoError(t, err)
	require.Equal(t, "/a%2520b", s.canonicalURI(u))
}

func TestSignature_MatchesAWSV4TestVector(t *testing.T) {
	// The documented "get-vanilla" vector: GET https://example.amazonaws.com/
	// at 20150830T123600Z in us-east-1/service with only host and
	// x-amz-date signed.
	canonical := "GET\n/\n\nhost:example.amazonaws.com\nx-amz-date:20150830T123600Z\n\nhost;x-amz-date\n" + EmptyStringSHA256
	sts := StringToSign(AlgorithmV4, "20150830T123600Z", Scope("20150830", "us-east-1", "service"), canonical)
	key := SigningKey("wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY", "20150830", "us-east-1", "service")
	require.Equal(t,
		"5fa00fa31553b73ebf1942676e86291e8372ff2a2260956d9b8aae1d763fbf31",
		Signature(key, sts))
}

func TestSigningKey_MatchesReferenceVector(t *testing.T) {
	key := SigningKey("wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY", "20150830", "us-east-1", "iam")
	require.Equal(t, "c4afb1cc5771d871763a393e44b703571b55cc28424d1a5e86da6ed3c154a4b9", hex.EncodeToString(key))
	sig := Signature(key, "test")
	require.Len(t, sig, 64)
}
