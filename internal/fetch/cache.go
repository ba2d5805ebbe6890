// Package fetch wraps outbound HTTP calls with rate limiting, a single
// server-guided retry, and time-bounded response memoization.
package fetch

import (
	"net/url"
	"sync"
	"time"
)

// Cache is a (key) -> (value, expiry) store for fetched response bodies.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
}

// Key builds the deterministic cache key for an endpoint and its parameters.
// url.Values.Encode sorts by key, so equal parameter sets always collide.
func Key(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}

type cacheEntry struct {
	expiry time.Time
	body   []byte
}

// MemoryCache provides thread-safe in-memory caching of response bodies.
type MemoryCache struct {
	entries map[string]cacheEntry
	now     func() time.Time
	mu      sync.RWMutex
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get retrieves a body from the cache if it exists and hasn't expired.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}
	if c.now().After(entry.expiry) {
		return nil, false
	}
	return entry.body, true
}

// Set stores a body in the cache.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		body:   value,
		expiry: c.now().Add(ttl),
	}
}

// Prune removes expired entries and reports how many remain.
func (c *MemoryCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiry) {
			delete(c.entries, key)
		}
	}
	return len(c.entries)
}
