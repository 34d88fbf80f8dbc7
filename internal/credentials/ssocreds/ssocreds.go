// Package ssocreds implements the SSO credential provider:
// locating a cached SSO token under ~/.aws/sso/cache, refreshing it via
// the SSO-OIDC CreateToken refresh grant when it is close to expiry,
// and exchanging it for role credentials via SSO GetRoleCredentials.
// The cache file name is the SHA-1 of the session name (modern format)
// or the start URL (legacy format), per AWS's own cache-key scheme.
package ssocreds

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/prn-tf/awscore/internal/awserr"
	"github.com/prn-tf/awscore/internal/credentials"
	"github.com/prn-tf/awscore/internal/logging"
)

// refreshLeadTime mirrors credentials.ssoLeadTime: a cached token within
// this window of expiry is eligible for a refresh-token exchange.
const refreshLeadTime = 15 * time.Minute

const defaultCacheDir = "~/.aws/sso/cache"

// HTTPDoer is the minimal interface ssocreds needs from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ErrSSOConfigMissing signals the profile referenced neither a legacy
// sso_start_url nor a modern sso_session.
var ErrSSOConfigMissing = fmt.Errorf("ssocreds: sso configuration missing")

// ErrClientRegistrationExpired signals a cached token's OIDC client
// registration has expired and cannot be used to refresh.
var ErrClientRegistrationExpired = fmt.Errorf("ssocreds: client registration expired")

// Token is the on-disk SSO token cache shape.
type Token struct {
	AccessToken           string    `json:"accessToken"`
	ExpiresAt             time.Time `json:"expiresAt"`
	Region                string    `json:"region"`
	StartURL              string    `json:"startUrl"`
	RefreshToken          string    `json:"refreshToken,omitempty"`
	ClientID              string    `json:"clientId,omitempty"`
	ClientSecret          string    `json:"clientSecret,omitempty"`
	RegistrationExpiresAt time.Time `json:"registrationExpiresAt,omitempty"`
}

// Config selects how the SSO token is located and exchanged.
type Config struct {
	// SSOSessionName is the modern [sso-session <name>] cache key; when
	// set it takes priority over StartURL for cache-key derivation.
	SSOSessionName string
	// StartURL is the legacy per-profile sso_start_url, used as the
	// cache key when SSOSessionName is empty.
	StartURL string

	Region       string
	AccountID    string
	RoleName     string
	SSOEndpoint  string // defaults to "https://portal.sso.<region>.amazonaws.com"
	OIDCEndpoint string // defaults to "https://oidc.<region>.amazonaws.com"

	CacheDir string
	HTTP     HTTPDoer
}

// Provider resolves temporary role credentials from a cached SSO
// session.
type Provider struct {
	Config Config
}

// New returns a Provider for the given SSO configuration.
func New(cfg Config) *Provider { return &Provider{Config: cfg} }

// CacheKey returns the cache-file basename (without extension): the
// modern format hashes the session name, the legacy format hashes the
// start URL.
func (c Config) CacheKey() (string, error) {
	switch {
	case c.SSOSessionName != "":
		return sha1Hex(c.SSOSessionName), nil
	case c.StartURL != "":
		return sha1Hex(c.StartURL), nil
	default:
		return "", ErrSSOConfigMissing
	}
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (c Config) cacheDir() (string, error) {
	dir := c.CacheDir
	if dir == "" {
		dir = defaultCacheDir
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", fmt.Errorf("ssocreds: expand cache dir: %w", err)
	}
	return expanded, nil
}

func (c Config) ssoEndpoint() string {
	if c.SSOEndpoint != "" {
		return c.SSOEndpoint
	}
	return "https://portal.sso." + c.Region + ".amazonaws.com"
}

func (c Config) oidcEndpoint() string {
	if c.OIDCEndpoint != "" {
		return c.OIDCEndpoint
	}
	return "https://oidc." + c.Region + ".amazonaws.com"
}

func (c Config) httpClient() HTTPDoer {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 15 * time.Second}
}

// LoadToken reads and parses the cached token file for this
// configuration.
func (c Config) LoadToken() (Token, error) {
	key, err := c.CacheKey()
	if err != nil {
		return Token{}, err
	}
	dir, err := c.cacheDir()
	if err != nil {
		return Token{}, err
	}
	path := filepath.Join(dir, key+".json")

	raw, err := os.ReadFile(path)
	if err != nil {
		return Token{}, fmt.Errorf("ssocreds: read token cache %s: %w", path, err)
	}
	var tok Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return Token{}, fmt.Errorf("ssocreds: decode token cache %s: %w", path, err)
	}
	return tok, nil
}

// SaveToken writes tok back to the cache file, used after a successful
// refresh so the new access token and expiry persist across process
// restarts.
func (c Config) SaveToken(tok Token) error {
	key, err := c.CacheKey()
	if err != nil {
		return err
	}
	dir, err := c.cacheDir()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("ssocreds: marshal token cache: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, key+".json"), raw, 0o600)
}

type createTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// RefreshIfNeeded exchanges tok's refresh token for a new access token
// via SSO-OIDC CreateToken when tok is within refreshLeadTime of expiry,
// a refresh token is present, and the client registration has not
// expired.
func (c Config) RefreshIfNeeded(ctx context.Context, tok Token) (Token, error) {
	if !tok.ExpiresAt.Before(time.Now().Add(refreshLeadTime)) {
		return tok, nil
	}
	if tok.RefreshToken == "" || tok.ClientID == "" || tok.ClientSecret == "" {
		return tok, nil
	}
	if !tok.RegistrationExpiresAt.IsZero() && tok.RegistrationExpiresAt.Before(time.Now()) {
		return Token{}, ErrClientRegistrationExpired
	}

	payload, err := json.Marshal(map[string]string{
		"clientId":     tok.ClientID,
		"clientSecret": tok.ClientSecret,
		"grantType":    "refresh_token",
		"refreshToken": tok.RefreshToken,
	})
	if err != nil {
		return Token{}, fmt.Errorf("ssocreds: marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oidcEndpoint()+"/token", bytes.NewReader(payload))
	if err != nil {
		return Token{}, awserr.Wrap(err, "ssocreds: build refresh request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Token{}, awserr.Wrap(err, "ssocreds: refresh request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Token{}, awserr.Wrap(err, "ssocreds: read refresh response")
	}

	var out createTokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Token{}, awserr.Wrap(err, "ssocreds: decode refresh response")
	}
	if resp.StatusCode >= 300 || out.Error != "" {
		return Token{}, fmt.Errorf("ssocreds: refresh failed: %s: %s", out.Error, out.ErrorDesc)
	}

	refreshed := tok
	refreshed.AccessToken = out.AccessToken
	if out.RefreshToken != "" {
		refreshed.RefreshToken = out.RefreshToken
	}
	refreshed.ExpiresAt = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	return refreshed, nil
}

type roleCredentialsResponse struct {
	RoleCredentials struct {
		AccessKeyId     string `json:"accessKeyId"`
		SecretAccessKey string `json:"secretAccessKey"`
		SessionToken    string `json:"sessionToken"`
		Expiration      int64  `json:"expiration"`
	} `json:"roleCredentials"`
	Message string `json:"message"`
}

// Retrieve loads the cached SSO token (refreshing it if eligible) and
// exchanges it for role credentials via GetRoleCredentials.
func (p *Provider) Retrieve(ctx context.Context, _ logging.Logger) (credentials.ExpiringCredential, error) {
	c := p.Config
	tok, err := c.LoadToken()
	if err != nil {
		return credentials.ExpiringCredential{}, err
	}

	tok, err = c.RefreshIfNeeded(ctx, tok)
	if err != nil {
		return credentials.ExpiringCredential{}, err
	}
	if tok != (Token{}) {
		_ = c.SaveToken(tok)
	}

	q := url.Values{}
	q.Set("role_name", c.RoleName)
	q.Set("account_id", c.AccountID)
	endpoint := c.ssoEndpoint() + "/federation/credentials?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return credentials.ExpiringCredential{}, awserr.Wrap(err, "ssocreds: build role credentials request")
	}
	req.Header.Set("x-amz-sso_bearer_token", tok.AccessToken)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return credentials.ExpiringCredential{}, awserr.Wrap(err, "ssocreds: role credentials request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return credentials.ExpiringCredential{}, awserr.Wrap(err, "ssocreds: read role credentials response")
	}

	var out roleCredentialsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return credentials.ExpiringCredential{}, awserr.Wrap(err, "ssocreds: decode role credentials response")
	}
	if resp.StatusCode >= 300 {
		return credentials.ExpiringCredential{}, fmt.Errorf("ssocreds: role credentials request returned status %d: %s", resp.StatusCode, out.Message)
	}

	return credentials.ExpiringCredential{
		Credential: credentials.Credential{
			AccessKeyID:     out.RoleCredentials.AccessKeyId,
			SecretAccessKey: out.RoleCredentials.SecretAccessKey,
			SessionToken:    out.RoleCredentials.SessionToken,
		},
		Expiration: time.UnixMilli(out.RoleCredentials.Expiration),
	}, nil
}

// Shutdown is a no-op; this provider holds no long-lived resources.
func (p *Provider) Shutdown() error { return nil }
