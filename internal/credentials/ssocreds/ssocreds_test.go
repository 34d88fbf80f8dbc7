package ssocreds

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prn-tf/awscore/internal/logging"
)

func writeTokenCache(t *testing.T, dir string, cfg Config, tok Token) {
	key, err := cfg.CacheKey()
	require.NoError(t, err)
	raw, err := json.Marshal(tok)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, key+".json"), raw, 0o600))
}

type routeDoer struct {
	roleCredsResp string
	refreshResp   string
	sawBearer     string
}

func (d *routeDoer) Do(req *http.Request) (*http.Response, error) {
	if strings.HasSuffix(req.URL.Path, "/token") {
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(d.refreshResp))}, nil
	}
	d.sawBearer = req.Header.Get("x-amz-sso_bearer_token")
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(d.roleCredsResp))}, nil
}

func TestProvider_RetrieveUsesCachedTokenWithoutRefresh(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		SSOSessionName: "my-session",
		Region:         "us-east-1",
		AccountID:      "123456789012",
		RoleName:       "demo-role",
		CacheDir:       dir,
	}
	writeTokenCache(t, dir, cfg, Token{
		AccessToken: "cached-access-token",
		ExpiresAt:   time.Now().Add(2 * time.Hour),
		StartURL:    "https://example.awsapps.com/start",
	})

	doer := &routeDoer{roleCredsResp: `{"roleCredentials":{"accessKeyId":"ASIASSO","secretAccessKey":"secretvalue","sessionToken":"tokenvalue","expiration":1893456000000}}`}
	cfg.HTTP = doer
	p := New(cfg)

	got, err := p.Retrieve(context.Background(), logging.Nop())
	require.NoError(t, err)
	require.Equal(t, "ASIASSO", got.AccessKeyID)
	require.Equal(t, "cached-access-token", doer.sawBearer)
}

func TestProvider_RetrieveRefreshesNearExpiry(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		SSOSessionName: "my-session",
		Region:         "us-east-1",
		AccountID:      "123456789012",
		RoleName:       "demo-role",
		CacheDir:       dir,
	}
	writeTokenCache(t, dir, cfg, Token{
		AccessToken:           "stale-token",
		ExpiresAt:             time.Now().Add(time.Minute),
		RefreshToken:          "refresh-me",
		ClientID:              "client-id",
		ClientSecret:          "client-secret",
		RegistrationExpiresAt: time.Now().Add(24 * time.Hour),
	})

	doer := &routeDoer{
		refreshResp:   `{"accessToken":"fresh-token","refreshToken":"refresh-me-2","expiresIn":3600}`,
		roleCredsResp: `{"roleCredentials":{"accessKeyId":"ASIASSO","secretAccessKey":"secretvalue","sessionToken":"tokenvalue","expiration":1893456000000}}`,
	}
	cfg.HTTP = doer
	p := New(cfg)

	got, err := p.Retrieve(context.Background(), logging.Nop())
	require.NoError(t, err)
	require.Equal(t, "ASIASSO", got.AccessKeyID)
	require.Equal(t, "fresh-token", doer.sawBearer)
}

func TestProvider_RetrieveExpiredClientRegistrationErrors(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		SSOSessionName: "my-session",
		CacheDir:       dir,
	}
	writeTokenCache(t, dir, cfg, Token{
		AccessToken:           "stale-token",
		ExpiresAt:             time.Now().Add(time.Minute),
		RefreshToken:          "refresh-me",
		ClientID:              "client-id",
		ClientSecret:          "client-secret",
		RegistrationExpiresAt: time.Now().Add(-time.Hour),
	})
	p := New(cfg)

	_, err := p.Retrieve(context.Background(), logging.Nop())
	require.ErrorIs(t, err, ErrClientRegistrationExpired)
}

func TestConfig_CacheKeyPrefersSessionNameOverStartURL(t *testing.T) {
	cfg := Config{SSOSessionName: "my-session", StartURL: "https://example.awsapps.com/start"}
	key, err := cfg.CacheKey()
	require.NoError(t, err)
	require.Equal(t, sha1Hex("my-session"), key)
}

func TestConfig_CacheKeyMissingConfigErrors(t *testing.T) {
	_, err := (Config{}).CacheKey()
	require.ErrorIs(t, err, ErrSSOConfigMissing)
}
