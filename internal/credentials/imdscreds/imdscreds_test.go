package imdscreds

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prn-tf/awscore/internal/logging"
)

type routedDoer struct {
	t *testing.T
}

func (d routedDoer) Do(req *http.Request) (*http.Response, error) {
	switch {
	case req.Method == http.MethodPut && req.URL.Path == tokenPath:
		require.Equal(d.t, "21600", req.Header.Get(tokenTTLLabel))
		return respond(http.StatusOK, "imds-token-value"), nil
	case req.Method == http.MethodGet && req.URL.Path == rolePath:
		require.Equal(d.t, "imds-token-value", req.Header.Get(tokenHeader))
		return respond(http.StatusOK, "demo-role"), nil
	case req.Method == http.MethodGet && req.URL.Path == rolePath+"demo-role":
		return respond(http.StatusOK, `{"Code":"Success","AccessKeyId":"ASIAIMDS","SecretAccessKey":"secretvalue","Token":"tokenvalue","Expiration":"2030-01-01T00:00:00Z"}`), nil
	default:
		return respond(http.StatusNotFound, "not found"), nil
	}
}

func respond(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestProvider_RetrieveFollowsTokenRoleCredentialChain(t *testing.T) {
	p := &Provider{HTTP: routedDoer{t: t}}
	got, err := p.Retrieve(context.Background(), logging.Nop())
	require.NoError(t, err)
	require.Equal(t, "ASIAIMDS", got.AccessKeyID)
	require.Equal(t, "secretvalue", got.SecretAccessKey)
	require.Equal(t, "tokenvalue", got.SessionToken)
}

type tokenFailsDoer struct{ t *testing.T }

func (d tokenFailsDoer) Do(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodPut {
		return respond(http.StatusForbidden, ""), nil
	}
	if req.URL.Path == rolePath {
		require.Empty(d.t, req.Header.Get(tokenHeader))
		return respond(http.StatusOK, "demo-role"), nil
	}
	return respond(http.StatusOK, `{"Code":"Success","AccessKeyId":"ASIAIMDS","SecretAccessKey":"s","Token":"t","Expiration":"2030-01-01T00:00:00Z"}`), nil
}

func TestProvider_RetrieveFallsBackToIMDSv1WhenTokenFails(t *testing.T) {
	p := &Provider{HTTP: tokenFailsDoer{t: t}}
	got, err := p.Retrieve(context.Background(), logging.Nop())
	require.NoError(t, err)
	require.Equal(t, "ASIAIMDS", got.AccessKeyID)
}

func TestProvider_RetrieveNoRoleAttachedErrors(t *testing.T) {
	p := &Provider{HTTP: noRoleDoer{}}
	_, err := p.Retrieve(context.Background(), logging.Nop())
	require.Error(t, err)
}

type noRoleDoer struct{}

func (noRoleDoer) Do(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodPut {
		return respond(http.StatusOK, "tok"), nil
	}
	return respond(http.StatusOK, ""), nil
}
