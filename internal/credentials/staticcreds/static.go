// Package staticcreds implements the fixed-triple credential provider.
package staticcreds

import (
	"context"
	"time"

	"github.com/prn-tf/awscore/internal/credentials"
	"github.com/prn-tf/awscore/internal/logging"
)

// Provider always returns the same credential it was constructed with.
type Provider struct {
	cred credentials.Credential
}

// New returns a Provider that always yields cred.
func New(cred credentials.Credential) *Provider {
	return &Provider{cred: cred}
}

// Retrieve returns the fixed credential with a far-future expiration,
// since a static credential never rotates.
func (p *Provider) Retrieve(_ context.Context, _ logging.Logger) (credentials.ExpiringCredential, error) {
	return credentials.ExpiringCredential{
		Credential: p.cred,
		Expiration: time.Now().Add(24 * 365 * time.Hour),
	}, nil
}

// Shutdown is a no-op; a static provider holds no resources.
func (p *Provider) Shutdown() error { return nil }
