// Package envcreds implements the environment-variable credential
// provider: AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN,
// with a web-identity delegation to stscreds when AWS_ROLE_ARN and
// AWS_WEB_IDENTITY_TOKEN_FILE are both set.
package envcreds

import (
	"context"
	"os"
	"time"

	"github.com/prn-tf/awscore/internal/credentials"
	"github.com/prn-tf/awscore/internal/credentials/stscreds"
	"github.com/prn-tf/awscore/internal/logging"
)

const (
	envAccessKeyID     = "AWS_ACCESS_KEY_ID"
	envSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	envSessionToken    = "AWS_SESSION_TOKEN"
	envRoleARN         = "AWS_ROLE_ARN"
	envWebIdentityFile = "AWS_WEB_IDENTITY_TOKEN_FILE"
	envRoleSessionName = "AWS_ROLE_SESSION_NAME"
)

// Provider reads credentials out of the process environment, optionally
// delegating to AssumeRoleWithWebIdentity when a web-identity token file
// is configured.
type Provider struct {
	// Getenv defaults to os.Getenv; overridable for tests.
	Getenv func(string) string
	// STSHTTP overrides the HTTP client used for the web-identity
	// delegation's STS call; nil uses stscreds' own default.
	STSHTTP stscreds.HTTPDoer
}

// New returns an Environment provider reading from the real process
// environment.
func New() *Provider {
	return &Provider{Getenv: os.Getenv}
}

func (p *Provider) getenv(key string) string {
	if p.Getenv != nil {
		return p.Getenv(key)
	}
	return os.Getenv(key)
}

// Retrieve returns ErrNoProvider when AWS_ACCESS_KEY_ID or
// AWS_SECRET_ACCESS_KEY is unset, so the chain selector advances to the
// next provider.
func (p *Provider) Retrieve(ctx context.Context, logger logging.Logger) (credentials.ExpiringCredential, error) {
	roleARN := p.getenv(envRoleARN)
	tokenFile := p.getenv(envWebIdentityFile)
	if roleARN != "" && tokenFile != "" {
		wi := &stscreds.AssumeRoleWithWebIdentityProvider{
			RoleARN:         roleARN,
			RoleSessionName: p.roleSessionName(),
			TokenFilePath:   tokenFile,
			HTTP:            p.STSHTTP,
		}
		return wi.Retrieve(ctx, logger)
	}

	accessKeyID := p.getenv(envAccessKeyID)
	secretAccessKey := p.getenv(envSecretAccessKey)
	if accessKeyID == "" || secretAccessKey == "" {
		return credentials.ExpiringCredential{}, credentials.ErrNoProvider
	}

	return credentials.ExpiringCredential{
		Credential: credentials.Credential{
			AccessKeyID:     accessKeyID,
			SecretAccessKey: secretAccessKey,
			SessionToken:    p.getenv(envSessionToken),
		},
		Expiration: farFuture(),
	}, nil
}

func (p *Provider) roleSessionName() string {
	if n := p.getenv(envRoleSessionName); n != "" {
		return n
	}
	return "awscore-session"
}

// Shutdown is a no-op; the Environment provider holds no resources.
func (p *Provider) Shutdown() error { return nil }

func farFuture() time.Time { return time.Now().Add(24 * 365 * time.Hour) }
