package envcreds

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prn-tf/awscore/internal/credentials"
	"github.com/prn-tf/awscore/internal/logging"
)

type stubDoer struct{ resp string }

func (s stubDoer) Do(*http.Request) (*http.Response, error) {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(s.resp))}, nil
}

func fakeEnv(values map[string]string) func(string) string {
	return func(k string) string { return values[k] }
}

func TestProvider_RetrieveReadsAccessKeyAndSecret(t *testing.T) {
	p := &Provider{Getenv: fakeEnv(map[string]string{
		envAccessKeyID:     "AKIDEXAMPLE",
		envSecretAccessKey: "secret",
		envSessionToken:    "token",
	})}

	got, err := p.Retrieve(context.Background(), logging.Nop())
	require.NoError(t, err)
	require.Equal(t, "AKIDEXAMPLE", got.AccessKeyID)
	require.Equal(t, "secret", got.SecretAccessKey)
	require.Equal(t, "token", got.SessionToken)
}

func TestProvider_RetrieveReturnsErrNoProviderWhenMissingSecret(t *testing.T) {
	p := &Provider{Getenv: fakeEnv(map[string]string{envAccessKeyID: "AKIDEXAMPLE"})}

	_, err := p.Retrieve(context.Background(), logging.Nop())
	require.True(t, errors.Is(err, credentials.ErrNoProvider))
}

func TestProvider_RetrieveReturnsErrNoProviderWhenEmpty(t *testing.T) {
	p := &Provider{Getenv: fakeEnv(nil)}

	_, err := p.Retrieve(context.Background(), logging.Nop())
	require.True(t, errors.Is(err, credentials.ErrNoProvider))
}

func TestProvider_RetrieveDelegatesToWebIdentityWhenConfigured(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "token")
	require.NoError(t, err)
	_, err = f.WriteString("identity-token")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	p := &Provider{
		Getenv: fakeEnv(map[string]string{
			envRoleARN:         "arn:aws:iam::123456789012:role/demo",
			envWebIdentityFile: f.Name(),
		}),
		STSHTTP: stubDoer{resp: `<AssumeRoleWithWebIdentityResponse>
  <AssumeRoleWithWebIdentityResult>
    <Credentials>
      <AccessKeyId>ASIAWEBIDENTITY</AccessKeyId>
      <SecretAccessKey>secretvalue</SecretAccessKey>
      <SessionToken>tokenvalue</SessionToken>
      <Expiration>2030-01-01T00:00:00Z</Expiration>
    </Credentials>
  </AssumeRoleWithWebIdentityResult>
</AssumeRoleWithWebIdentityResponse>`},
	}

	got, err := p.Retrieve(context.Background(), logging.Nop())
	require.NoError(t, err)
	require.Equal(t, "ASIAWEBIDENTITY", got.AccessKeyID)
	require.False(t, errors.Is(err, credentials.ErrNoProvider))
}

func TestNew_DefaultsToOSGetenv(t *testing.T) {
	p := New()
	require.NotNil(t, p.Getenv)
}
