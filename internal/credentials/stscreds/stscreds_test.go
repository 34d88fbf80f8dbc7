package stscreds

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prn-tf/awscore/internal/awserr"
	"github.com/prn-tf/awscore/internal/credentials"
	"github.com/prn-tf/awscore/internal/credentials/staticcreds"
	"github.com/prn-tf/awscore/internal/logging"
)

type stubDoer struct {
	resp       string
	statusCode int
	lastReq    *http.Request
	lastBody   string
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	s.lastReq = req
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		s.lastBody = string(b)
	}
	status := s.statusCode
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(s.resp)),
	}, nil
}

const assumeRoleXML = `<AssumeRoleResponse>
  <AssumeRoleResult>
    <Credentials>
      <AccessKeyId>ASIAEXAMPLE</AccessKeyId>
      <SecretAccessKey>secretvalue</SecretAccessKey>
      <SessionToken>tokenvalue</SessionToken>
      <Expiration>2030-01-01T00:00:00Z</Expiration>
    </Credentials>
  </AssumeRoleResult>
</AssumeRoleResponse>`

const assumeRoleErrorXML = `<ErrorResponse>
  <Error>
    <Code>AccessDenied</Code>
    <Message>not authorized</Message>
  </Error>
</ErrorResponse>`

func TestAssumeRoleProvider_RetrieveSignsAndDecodes(t *testing.T) {
	doer := &stubDoer{resp: assumeRoleXML}
	src := staticcreds.New(credentials.Credential{AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "secret"})
	p := &AssumeRoleProvider{
		RoleARN:         "arn:aws:iam::123456789012:role/demo",
		RoleSessionName: "session",
		Source:          src,
		HTTP:            doer,
	}

	got, err := p.Retrieve(context.Background(), logging.Nop())
	require.NoError(t, err)
	require.Equal(t, "ASIAEXAMPLE", got.AccessKeyID)
	require.Equal(t, "secretvalue", got.SecretAccessKey)
	require.Equal(t, "tokenvalue", got.SessionToken)

	require.NotNil(t, doer.lastReq)
	require.NotEmpty(t, doer.lastReq.Header.Get("Authorization"))
	require.Contains(t, doer.lastReq.Header.Get("Authorization"), "AWS4-HMAC-SHA256")

	form, err := url.ParseQuery(doer.lastBody)
	require.NoError(t, err)
	require.Equal(t, "AssumeRole", form.Get("Action"))
	require.Equal(t, "arn:aws:iam::123456789012:role/demo", form.Get("RoleArn"))
}

func TestAssumeRoleProvider_ErrorResponseIsSurfaced(t *testing.T) {
	doer := &stubDoer{resp: assumeRoleErrorXML, statusCode: http.StatusForbidden}
	src := staticcreds.New(credentials.Credential{AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "secret"})
	p := &AssumeRoleProvider{
		RoleARN:         "arn:aws:iam::123456789012:role/demo",
		RoleSessionName: "session",
		Source:          src,
		HTTP:            doer,
	}

	_, err := p.Retrieve(context.Background(), logging.Nop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "AccessDenied")
}

func TestAssumeRoleWithWebIdentityProvider_ReadsTokenAndDoesNotSign(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "token")
	require.NoError(t, err)
	_, err = f.WriteString("web-identity-token-value\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	doer := &stubDoer{resp: `<AssumeRoleWithWebIdentityResponse>
  <AssumeRoleWithWebIdentityResult>
    <Credentials>
      <AccessKeyId>ASIAWEBIDENTITY</AccessKeyId>
      <SecretAccessKey>secretvalue</SecretAccessKey>
      <SessionToken>tokenvalue</SessionToken>
      <Expiration>2030-01-01T00:00:00Z</Expiration>
    </Credentials>
  </AssumeRoleWithWebIdentityResult>
</AssumeRoleWithWebIdentityResponse>`}

	p := &AssumeRoleWithWebIdentityProvider{
		RoleARN:         "arn:aws:iam::123456789012:role/demo",
		RoleSessionName: "session",
		TokenFilePath:   f.Name(),
		HTTP:            doer,
	}

	got, err := p.Retrieve(context.Background(), logging.Nop())
	require.NoError(t, err)
	require.Equal(t, "ASIAWEBIDENTITY", got.AccessKeyID)

	require.Empty(t, doer.lastReq.Header.Get("Authorization"))
	form, err := url.ParseQuery(doer.lastBody)
	require.NoError(t, err)
	require.Equal(t, "web-identity-token-value", form.Get("WebIdentityToken"))
}

func TestAssumeRoleWithWebIdentityProvider_MissingTokenFileWraps(t *testing.T) {
	p := &AssumeRoleWithWebIdentityProvider{
		RoleARN:       "arn:aws:iam::123456789012:role/demo",
		TokenFilePath: "/nonexistent/path/token",
		HTTP:          &stubDoer{resp: assumeRoleXML},
	}

	_, err := p.Retrieve(context.Background(), logging.Nop())
	require.Error(t, err)
	require.ErrorIs(t, err, awserr.ErrTokenIdFileFailedToLoad)
}
