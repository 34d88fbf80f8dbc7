// Package credentials defines the Credential/ExpiringCredential value
// types and the Provider contract every credential source implements,
// a uniform fetch/shutdown contract over swappable backends.
package credentials

import (
	"context"
	"time"

	"github.com/prn-tf/awscore/internal/awserr"
	"github.com/prn-tf/awscore/internal/logging"
	"github.com/prn-tf/awscore/internal/signer"
)

// Credential is re-exported from the signer package so callers never need
// to import both; the signer is the most primitive consumer of the type.
type Credential = signer.Credential

// ExpiringCredential pairs a Credential with the absolute instant it stops
// being valid.
type ExpiringCredential struct {
	Credential
	Expiration time.Time
}

// LeadTime is how far ahead of Expiration a credential is already treated
// as expired, so a rotating cache refreshes before the old one is
// rejected by the service.
const LeadTime = 5 * time.Minute

// SSOLeadTime is the longer lead time SSO refresh-eligible tokens use.
const SSOLeadTime = 15 * time.Minute

const leadTime = LeadTime
const ssoLeadTime = SSOLeadTime

// ExpiringWithin reports whether ec will no longer be valid at least lead
// from now.
func (ec ExpiringCredential) ExpiringWithin(now time.Time, lead time.Duration) bool {
	return !ec.Expiration.After(now.Add(lead))
}

// Provider is the uniform contract every credential source implements
// -> credential" and "shutdown()").
type Provider interface {
	Retrieve(ctx context.Context, logger logging.Logger) (ExpiringCredential, error)
	Shutdown() error
}

// ErrNoProvider signals a provider had nothing to offer (e.g. missing
// environment variables) and the runtime selector should advance to the
// next provider in the chain.
var ErrNoProvider = awserr.ErrNoProvider
