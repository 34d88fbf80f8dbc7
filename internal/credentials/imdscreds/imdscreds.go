// Package imdscreds implements the EC2 InstanceMetadata credential
// provider: IMDSv2 token-gated requests with an IMDSv1
// fallback, grounded on stscreds' pattern of hand-rolling a small,
// fixed-shape HTTP client for a single metadata service rather than
// pulling in a general-purpose IMDS client.
package imdscreds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prn-tf/awscore/internal/awserr"
	"github.com/prn-tf/awscore/internal/credentials"
	"github.com/prn-tf/awscore/internal/logging"
)

const (
	defaultHost   = "http://169.254.169.254"
	tokenPath     = "/latest/api/token"
	tokenTTLLabel = "x-aws-ec2-metadata-token-ttl-seconds"
	tokenHeader   = "x-aws-ec2-metadata-token"
	rolePath      = "/latest/meta-data/iam/security-credentials/"
	defaultTTL    = "21600"
)

// HTTPDoer is the minimal interface imdscreds needs from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Provider fetches temporary credentials from the EC2 instance metadata
// service.
type Provider struct {
	Host string
	HTTP HTTPDoer
}

// New returns a Provider pointed at the default IMDS host.
func New() *Provider { return &Provider{} }

type roleCredentialsResponse struct {
	AccessKeyId     string `json:"AccessKeyId"`
	SecretAccessKey string `json:"SecretAccessKey"`
	Token           string `json:"Token"`
	Expiration      string `json:"Expiration"`
	Code            string `json:"Code"`
	Message         string `json:"Message"`
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

// Retrieve fetches an IMDSv2 token (falling back to unauthenticated
// IMDSv1 requests if the token call fails), discovers the instance
// role, and fetches that role's temporary credentials.
func (p *Provider) Retrieve(ctx context.Context, _ logging.Logger) (credentials.ExpiringCredential, error) {
	client := p.httpClient()
	token, tokenErr := p.fetchToken(ctx, client)

	roleName, err := p.fetchRoleName(ctx, client, token)
	if err != nil {
		return credentials.ExpiringCredential{}, err
	}

	var out roleCredentialsResponse
	if err := p.fetchJSON(ctx, client, token, rolePath+roleName, &out); err != nil {
		return credentials.ExpiringCredential{}, err
	}
	if out.Code != "" && out.Code != "Success" {
		return credentials.ExpiringCredential{}, fmt.Errorf("imdscreds: %s: %s", out.Code, out.Message)
	}

	exp, err := time.Parse(time.RFC3339, out.Expiration)
	if err != nil {
		exp = time.Now().Add(time.Hour)
	}

	_ = tokenErr // IMDSv1 fallback: absence of a token is not itself fatal.
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

func (p *Provider) fetchToken(ctx context.Context, client HTTPDoer) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.host()+tokenPath, nil)
	if err != nil {
		return "", awserr.Wrap(err, "imdscreds: build token request")
	}
	req.Header.Set(tokenTTLLabel, defaultTTL)

	resp, err := client.Do(req)
	if err != nil {
		return "", awserr.Wrap(err, "imdscreds: token request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", awserr.Wrap(err, "imdscreds: read token response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("imdscreds: token request returned status %d", resp.StatusCode)
	}
	return strings.TrimSpace(string(body)), nil
}

func (p *Provider) fetchRoleName(ctx context.Context, client HTTPDoer, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.host()+rolePath, nil)
	if err != nil {
		return "", awserr.Wrap(err, "imdscreds: build role request")
	}
	if token != "" {
		req.Header.Set(tokenHeader, token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", awserr.Wrap(err, "imdscreds: role discovery request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", awserr.Wrap(err, "imdscreds: read role response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("imdscreds: role discovery returned status %d", resp.StatusCode)
	}

	roles := strings.Fields(string(body))
	if len(roles) == 0 {
		return "", fmt.Errorf("imdscreds: no instance role attached")
	}
	return roles[0], nil
}

func (p *Provider) fetchJSON(ctx context.Context, client HTTPDoer, token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.host()+path, nil)
	if err != nil {
		return awserr.Wrap(err, "imdscreds: build credentials request")
	}
	if token != "" {
		req.Header.Set(tokenHeader, token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return awserr.Wrap(err, "imdscreds: credentials request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return awserr.Wrap(err, "imdscreds: read credentials response")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("imdscreds: credentials request returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return awserr.Wrap(err, "imdscreds: decode credentials response")
	}
	return nil
}
