package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ravenmarkets/raven-engine/pkg/types"
)

// countingSource records fetches so cache hit behavior is observable.
type countingSource struct {
	price *types.OraclePrice
	err   error
	calls int
}

func (s *countingSource) GetPrice(ctx context.Context, feedID string) (*types.OraclePrice, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.price, nil
}

// mapCache is a minimal Cache for tests; entries never expire.
type mapCache struct {
	entries map[string]interface{}
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]interface{})}
}

func (c *mapCache) Get(key string) (interface{}, bool) {
	v, ok := c.entries[key]
	return v, ok
}

func (c *mapCache) Set(key string, value interface{}, ttl time.Duration) bool {
	c.entries[key] = value
	return true
}

func (c *mapCache) Delete(key string) { delete(c.entries, key) }
func (c *mapCache) Clear()            { c.entries = make(map[string]interface{}) }
func (c *mapCache) Close()            {}

func TestCachedSource_Hit(t *testing.T) {
	src := &countingSource{price: &types.OraclePrice{FeedID: testFeedID, Price: 100}}
	cached := NewCachedSource(src, newMapCache(), time.Minute)

	for i := 0; i < 3; i++ {
		price, err := cached.GetPrice(context.Background(), testFeedID)
		if err != nil {
			t.Fatalf("GetPrice() error = %v", err)
		}
		if price.Price != 100 {
			t.Errorf("price = %d", price.Price)
		}
	}

	if src.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", src.calls)
	}
}

func TestCachedSource_DistinctFeeds(t *testing.T) {
	src := &countingSource{price: &types.OraclePrice{Price: 100}}
	cached := NewCachedSource(src, newMapCache(), time.Minute)

	if _, err := cached.GetPrice(context.Background(), "feed-a"); err != nil {
		t.Fatalf("GetPrice() error = %v", err)
	}
	if _, err := cached.GetPrice(context.Background(), "feed-b"); err != nil {
		t.Fatalf("GetPrice() error = %v", err)
	}

	if src.calls != 2 {
		t.Errorf("upstream calls = %d, want 2", src.calls)
	}
}

func TestCachedSource_ErrorsNotCached(t *testing.T) {
	src := &countingSource{err: types.ErrOracle}
	cached := NewCachedSource(src, newMapCache(), time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cached.GetPrice(context.Background(), testFeedID); !errors.Is(err, types.ErrOracle) {
			t.Fatalf("GetPrice() error = %v, want %v", err, types.ErrOracle)
		}
	}
	if src.calls != 2 {
		t.Errorf("upstream calls = %d, want 2 (errors must not be cached)", src.calls)
	}

	// Once the upstream recovers the next call succeeds and is cached.
	src.err = nil
	src.price = &types.OraclePrice{Price: 42}
	for i := 0; i < 2; i++ {
		if _, err := cached.GetPrice(context.Background(), testFeedID); err != nil {
			t.Fatalf("GetPrice() error = %v", err)
		}
	}
	if src.calls != 3 {
		t.Errorf("upstream calls = %d, want 3", src.calls)
	}
}

func TestCachedSource_NilCache(t *testing.T) {
	src := &countingSource{price: &types.OraclePrice{Price: 7}}
	cached := NewCachedSource(src, nil, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cached.GetPrice(context.Background(), testFeedID); err != nil {
			t.Fatalf("GetPrice() error = %v", err)
		}
	}
	if src.calls != 2 {
		t.Errorf("upstream calls = %d, want 2", src.calls)
	}
}
