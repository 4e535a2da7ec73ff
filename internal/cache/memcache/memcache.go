// Package memcache provides an in-process snapshot cache with TTL expiry.
// It backs tests and single-node deployments without Redis.
package memcache

import (
	"context"
	"sync"
	"time"

	"github.com/zenon-tools/pricefeed/internal/cache"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a mutex-guarded map with per-key expiry.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

var _ cache.Cache = (*Cache)(nil)

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// WithClock overrides the time source. Used by tests to force expiry.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().After(e.expiresAt) {
		return nil, cache.ErrMiss
	}
	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	c.entries[key] = entry{value: stored, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *Cache) Ping(context.Context) error { return nil }
