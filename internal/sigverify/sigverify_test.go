package sigverify

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prn-tf/awscore/internal/signer"
	"github.com/prn-tf/awscore/internal/transport"
)

const (
	testAccessKey = "AKIDEXAMPLE"
	testSecretKey = "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY"
)

func TestVerify_HeaderSignedRoundTrip(t *testing.T) {
	s := signer.New(signer.Credential{AccessKeyID: testAccessKey, SecretAccessKey: testSecretKey}, "us-east-1", "service")

	payload := []byte(`{"Name":"thing"}`)
	headers := transport.NewHeader()
	signed, err := s.SignHeaders("https://example.amazonaws.com/things/42?versionId=v1", "POST", headers,
		signer.BodyDescriptor{Kind: signer.BodyBytes, Raw: payload}, false, time.Time{})
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "https://example.amazonaws.com/things/42?versionId=v1", nil)
	for _, k := range signed.Keys() {
		r.Header.Set(k, signed.Get(k))
	}
	r.Host = signed.Get("host")

	sv, err := Parse(r)
	require.NoError(t, err)
	require.Equal(t, testAccessKey, sv.AccessKey)
	require.Equal(t, "us-east-1", sv.Region)
	require.Equal(t, "service", sv.Service)
	require.False(t, sv.Presigned)

	require.NoError(t, Verify(r, sv, testSecretKey, PayloadHash(r)))
	require.ErrorIs(t, Verify(r, sv, "wrong-secret", PayloadHash(r)), ErrSignatureMismatch)
}

func TestVerify_TamperedHeaderFails(t *testing.T) {
	s := signer.New(signer.Credential{AccessKeyID: testAccessKey, SecretAccessKey: testSecretKey}, "us-east-1", "service")

	headers := transport.NewHeader()
	headers.Set("x-custom", "original")
	signed, err := s.SignHeaders("https://example.amazonaws.com/", "GET", headers,
		signer.BodyDescriptor{Kind: signer.BodyEmpty}, false, time.Time{})
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "https://example.amazonaws.com/", nil)
	for _, k := range signed.Keys() {
		r.Header.Set(k, signed.Get(k))
	}
	r.Host = signed.Get("host")
	r.Header.Set("x-custom", "tampered")

	sv, err := Parse(r)
	require.NoError(t, err)
	require.ErrorIs(t, Verify(r, sv, testSecretKey, PayloadHash(r)), ErrSignatureMismatch)
}

func TestVerify_PresignedRoundTrip(t *testing.T) {
	s := signer.New(signer.Credential{AccessKeyID: testAccessKey, SecretAccessKey: testSecretKey}, "us-east-1", "s3")

	u, err := s.SignURL("https://bucket.s3.amazonaws.com/key.txt", "GET", transport.NewHeader(),
		signer.BodyDescriptor{Kind: signer.BodyUnsignedPayload}, 3600*time.Second, false, time.Now().UTC())
	require.NoError(t, err)

	r := httptest.NewRequest("GET", u, nil)
	r.Host = "bucket.s3.amazonaws.com"

	sv, err := Parse(r)
	require.NoError(t, err)
	require.True(t, sv.Presigned)
	require.Equal(t, int64(3600), sv.Expires)

	require.NoError(t, Verify(r, sv, testSecretKey, signer.UnsignedPayload))
}

func TestVerify_ExpiredPresignedURL(t *testing.T) {
	s := signer.New(signer.Credential{AccessKeyID: testAccessKey, SecretAccessKey: testSecretKey}, "us-east-1", "s3")

	stale := time.Now().UTC().Add(-2 * time.Hour)
	u, err := s.SignURL("https://bucket.s3.amazonaws.com/key.txt", "GET", transport.NewHeader(),
		signer.BodyDescriptor{Kind: signer.BodyUnsignedPayload}, time.Hour, false, stale)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", u, nil)
	r.Host = "bucket.s3.amazonaws.com"

	sv, err := Parse(r)
	require.NoError(t, err)
	require.ErrorIs(t, Verify(r, sv, testSecretKey, signer.UnsignedPayload), ErrExpired)
}

func TestParse_Unsigned(t *testing.T) {
	r := httptest.NewRequest("GET", "https://example.amazonaws.com/", nil)
	_, err := Parse(r)
	require.ErrorIs(t, err, ErrMissingAuthorization)
}

func TestParse_MalformedAuthorization(t *testing.T) {
	r := httptest.NewRequest("GET", "https://example.amazonaws.com/", nil)
	r.Header.Set("Authorization", "AWS4-HMAC-SHA256 Credential=broken")
	_, err := Parse(r)
	require.ErrorIs(t, err, ErrMalformedAuthorization)
}
