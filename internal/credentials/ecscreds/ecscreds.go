// Package ecscreds implements the EcsContainer credential provider
//, active only when AWS_CONTAINER_CREDENTIALS_RELATIVE_URI
// is set, fetching temporary credentials from the ECS task metadata
// endpoint. Grounded on imdscreds' shape — a single fixed-path JSON GET
// against a well-known link-local host.
package ecscreds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prn-tf/awscore/internal/awserr"
	"github.com/prn-tf/awscore/internal/credentials"
	"github.com/prn-tf/awscore/internal/logging"
)

const (
	envRelativeURI = "AWS_CONTAINER_CREDENTIALS_RELATIVE_URI"
	defaultHost    = "http://169.254.170.2"
)

// HTTPDoer is the minimal interface ecscreds needs from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Provider fetches temporary credentials from the ECS task metadata
// credentials endpoint.
type Provider struct {
	Host   string
	Getenv func(string) string
	HTTP   HTTPDoer
}

// New returns a Provider reading AWS_CONTAINER_CREDENTIALS_RELATIVE_URI
// from the real process environment.
func New() *Provider { return &Provider{Getenv: os.Getenv} }

type ecsCredentialsResponse struct {
	AccessKeyId     string `json:"AccessKeyId"`
	SecretAccessKey string `json:"SecretAccessKey"`
	Token           string `json:"Token"`
	Expiration      string `json:"Expiration"`
}

func (p *Provider) getenv(key string) string {
	if p.Getenv != nil {
		return p.Getenv(key)
	}
	return os.Getenv(key)
}

func (p *Provider) host() string {
	if p.Host != "" {
		return p.Host
	}
	return defaultHost
}

func (p *Provider) httpClient() HTTPDoer {
	if p.HTTP != nil {
		return p.HTTP
	}
	return &http.Client{Timeout: 5 * time.Second}
}

// Retrieve returns ErrNoProvider when AWS_CONTAINER_CREDENTIALS_RELATIVE_URI
// is unset, so the chain selector advances to the next provider.
func (p *Provider) Retrieve(ctx context.Context, _ logging.Logger) (credentials.ExpiringCredential, error) {
	relativeURI := p.getenv(envRelativeURI)
	if relativeURI == "" {
		return credentials.ExpiringCredential{}, credentials.ErrNoProvider
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.host()+relativeURI, nil)
	if err != nil {
		return credentials.ExpiringCredential{}, awserr.Wrap(err, "ecscreds: build request")
	}

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return credentials.ExpiringCredential{}, awserr.Wrap(err, "ecscreds: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return credentials.ExpiringCredential{}, awserr.Wrap(err, "ecscreds: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return credentials.ExpiringCredential{}, fmt.Errorf("ecscreds: request returned status %d", resp.StatusCode)
	}

	var out ecsCredentialsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return credentials.ExpiringCredential{}, awserr.Wrap(err, "ecscreds: decode response")
	}

	exp, err := time.Parse(time.RFC3339, out.Expiration)
	if err != nil {
		exp = time.Now().Add(time.Hour)
	}
	return credentials.ExpiringCredential{
		Credential: credentials.Credential{
			AccessKeyID:     out.AccessKeyId,
			SecretAccessKey: out.SecretAccessKey,
			SessionToken:    out.Token,
		},
		Expiration: exp,
	}, nil
}

// Shutdown is a no-op; this provider holds no long-lived resources.
func (p *Provider) Shutdown() error { return nil }
