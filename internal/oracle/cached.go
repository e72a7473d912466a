package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/ravenmarkets/raven-engine/pkg/cache"
	"github.com/ravenmarkets/raven-engine/pkg/types"
)

// CachedSource wraps a Source with a short-TTL cache so repeated latch
// attempts inside one keeper sweep do not hammer the upstream endpoint.
// The TTL must stay well below any max_age a caller would pass.
type CachedSource struct {
	source Source
	cache  cache.Cache
	ttl    time.Duration
}

// NewCachedSource creates a caching wrapper around a price source.
func NewCachedSource(source Source, c cache.Cache, ttl time.Duration) *CachedSource {
	return &CachedSource{
		source: source,
		cache:  c,
		ttl:    ttl,
	}
}

// GetPrice returns a cached observation when fresh, fetching otherwise.
// Errors are never cached.
func (c *CachedSource) GetPrice(ctx context.Context, feedID string) (*types.OraclePrice, error) {
	cacheKey := fmt.Sprintf("price:%s", feedID)

	if c.cache != nil {
		if cached, ok := c.cache.Get(cacheKey); ok {
			if price, ok := cached.(*types.OraclePrice); ok {
				return price, nil
			}
		}
	}

	price, err := c.source.GetPrice(ctx, feedID)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(cacheKey, price, c.ttl)
	}

	return price, nil
}
