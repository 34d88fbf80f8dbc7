// Package chain implements the credential provider runtime selector:
// an ordered list of provider factories
// tried in turn, advancing past any provider that reports
// credentials.ErrNoProvider and falling back to an anonymous static
// credential if the list is exhausted.
package chain

import (
	"context"
	"errors"

	"github.com/prn-tf/awscore/internal/credentials"
	"github.com/prn-tf/awscore/internal/credentials/staticcreds"
	"github.com/prn-tf/awscore/internal/logging"
)

// Selector tries each candidate provider in order and retains the first
// that successfully yields a credential for the lifetime of the chain.
type Selector struct {
	Candidates []credentials.Provider

	resolved credentials.Provider
}

// New returns a Selector over candidates, tried in order.
func New(candidates ...credentials.Provider) *Selector {
	return &Selector{Candidates: candidates}
}

// Retrieve tries each unresolved candidate in order; once one succeeds
// it is pinned for all subsequent calls. A provider's ErrNoProvider
// advances to the next candidate; any other error aborts the search and
// is returned. An exhausted list falls back to an anonymous static
// credential so the request is still dispatched, unsigned.
func (s *Selector) Retrieve(ctx context.Context, logger logging.Logger) (credentials.ExpiringCredential, error) {
	if s.resolved != nil {
		return s.resolved.Retrieve(ctx, logger)
	}

	for _, candidate := range s.Candidates {
		cred, err := candidate.Retrieve(ctx, logger)
		if err == nil {
			s.resolved = candidate
			return cred, nil
		}
		if errors.Is(err, credentials.ErrNoProvider) {
			continue
		}
		return credentials.ExpiringCredential{}, err
	}

	s.resolved = staticcreds.New(credentials.Credential{})
	return s.resolved.Retrieve(ctx, logger)
}

// Shutdown shuts down whichever candidate was resolved, if any.
func (s *Selector) Shutdown() error {
	if s.resolved == nil {
		return nil
	}
	return s.resolved.Shutdown()
}
