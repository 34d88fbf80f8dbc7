// Package rotating wraps any credentials.Provider in a single-flight,
// expiry-aware cache built on golang.org/x/sync/singleflight, so
// concurrent callers share one upstream fetch per rotation instead of
// each refreshing independently.
package rotating

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/prn-tf/awscore/internal/credentials"
	"github.com/prn-tf/awscore/internal/logging"
)

// leadTime is the general-purpose rotation lead time; callers
// needing the longer SSO-specific lead time should wrap their SSO
// provider with that lead time baked into its own expiry bookkeeping
// instead of overriding this cache's threshold.
const leadTime = credentials.LeadTime

// Cache wraps an inner provider with a single in-flight-fetch slot so
// concurrent callers observe exactly one upstream fetch per rotation.
type Cache struct {
	inner credentials.Provider
	group singleflight.Group

	mu      sync.Mutex
	current credentials.ExpiringCredential
	have    bool

	cancel context.CancelFunc
}

// New wraps inner in a rotating cache.
func New(inner credentials.Provider) *Cache {
	return &Cache{inner: inner}
}

// Retrieve returns the cached credential if it will remain valid for at
// least leadTime; otherwise it performs (or joins) a single upstream
// fetch and caches the result.
func (c *Cache) Retrieve(ctx context.Context, logger logging.Logger) (credentials.ExpiringCredential, error) {
	c.mu.Lock()
	if c.have && !c.current.ExpiringWithin(nowFunc(), leadTime) {
		cred := c.current
		c.mu.Unlock()
		return cred, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("credential", func() (any, error) {
		fetchCtx, cancel := context.WithCancel(ctx)
		c.mu.Lock()
		c.cancel = cancel
		c.mu.Unlock()
		defer cancel()

		cred, err := c.inner.Retrieve(fetchCtx, logger)
		if err != nil {
			return credentials.ExpiringCredential{}, err
		}

		c.mu.Lock()
		c.current = cred
		c.have = true
		c.mu.Unlock()
		return cred, nil
	})
	if err != nil {
		return credentials.ExpiringCredential{}, err
	}
	return v.(credentials.ExpiringCredential), nil
}

// Shutdown cancels any in-flight refresh and then shuts down the inner
// provider.
func (c *Cache) Shutdown() error {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return c.inner.Shutdown()
}

// nowFunc is overridable in tests that need to control "now" precisely;
// production code always uses the wall clock.
var nowFunc = time.Now
