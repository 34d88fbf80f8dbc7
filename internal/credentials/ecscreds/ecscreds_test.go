package ecscreds

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prn-tf/awscore/internal/credentials"
	"github.com/prn-tf/awscore/internal/logging"
)

type stubDoer struct {
	t       *testing.T
	wantURL string
	resp    string
}

func (s stubDoer) Do(req *http.Request) (*http.Response, error) {
	require.Equal(s.t, s.wantURL, req.URL.String())
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(s.resp))}, nil
}

func TestProvider_RetrieveReturnsErrNoProviderWhenUriUnset(t *testing.T) {
	p := &Provider{Getenv: func(string) string { return "" }}
	_, err := p.Retrieve(context.Background(), logging.Nop())
	require.True(t, errors.Is(err, credentials.ErrNoProvider))
}

func TestProvider_RetrieveFetchesFromRelativeURI(t *testing.T) {
	p := &Provider{
		Getenv: func(k string) string {
			if k == envRelativeURI {
				return "/v2/credentials/abcd-1234"
			}
			return ""
		},
		HTTP: stubDoer{
			t:       t,
			wantURL: defaultHost + "/v2/credentials/abcd-1234",
			resp:    `{"AccessKeyId":"ASIAECS","SecretAccessKey":"secretvalue","Token":"tokenvalue","Expiration":"2030-01-01T00:00:00Z"}`,
		},
	}

	got, err := p.Retrieve(context.Background(), logging.Nop())
	require.NoError(t, err)
	require.Equal(t, "ASIAECS", got.AccessKeyID)
	require.Equal(t, "secretvalue", got.SecretAccessKey)
	require.Equal(t, "tokenvalue", got.SessionToken)
}
