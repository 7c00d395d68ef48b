package utils

import (
	"sync"
	"time"
)

// StateCache is a simple in-memory TTL cache for rendered state payloads
// keyed by entity id. It is thread-safe and designed for small hot-path
// usage (e.g., skipping republish of unchanged states).
type StateCache struct {
	mu   sync.Mutex
	ttl  time.Duration
	data map[string]entry
}

type entry struct {
	v  string
	at time.Time
}

// NewStateCache creates a new cache with the given TTL. If ttl <= 0, it defaults to 1h.
func NewStateCache(ttl time.Duration) *StateCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &StateCache{ttl: ttl, data: make(map[string]entry, 256)}
}

// GetState returns the cached payload if it exists and hasn't expired.
func (c *StateCache) GetState(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[key]
	if !ok {
		return "", false
	}
	if time.Since(e.at) > c.ttl {
		delete(c.data, key)
		return "", false
	}
	return e.v, true
}

// SetState stores the payload with the current timestamp.
func (c *StateCache) SetState(key, v string) {
	c.mu.Lock()
	c.data[key] = entry{v: v, at: time.Now()}
	c.mu.Unlock()
}

// SetTTL updates the cache TTL for subsequent get checks.
func (c *StateCache) SetTTL(ttl time.Duration) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	c.mu.Lock()
	c.ttl = ttl
	c.mu.Unlock()
}
