package cache

import "time"

// Cache is a TTL cache for hot read paths (oracle prices, feed metadata).
type Cache interface {
	// Get retrieves a value from the cache.
	Get(key string) (interface{}, bool)

	// Set stores a value with a TTL. Returns false if the value was dropped.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete removes a value from the cache.
	Delete(key string)

	// Clear removes all values from the cache.
	Clear()

	// Close releases cache resources.
	Close()
}
