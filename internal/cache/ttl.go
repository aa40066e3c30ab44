// Package cache provides a small get-or-compute cache with per-entry expiry.
//
// Entries are advisory: a reader may observe a value up to one TTL old.
package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL caches values of type V by string key.
type TTL[V any] struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[string]entry[V]
	group singleflight.Group
}

// New returns a cache whose entries live for ttl. A non-positive ttl disables caching.
func New[V any](ttl time.Duration) *TTL[V] {
	return &TTL[V]{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]entry[V]),
	}
}

// WithClock replaces the time source, mainly for tests.
func (c *TTL[V]) WithClock(now func() time.Time) *TTL[V] {
	if now != nil {
		c.now = now
	}
	return c
}

// Get returns the cached value for key if it has not expired.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(item.expiresAt) {
		var zero V
		return zero, false
	}
	return item.value, true
}

// GetOrCompute returns the cached value for key, calling compute on a miss.
// Concurrent misses for the same key share a single compute call. Errors are not cached.
func (c *TTL[V]) GetOrCompute(key string, compute func() (V, error)) (V, error) {
	if value, ok := c.Get(key); ok {
		return value, nil
	}

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		if value, ok := c.Get(key); ok {
			return value, nil
		}
		value, err := compute()
		if err != nil {
			return value, err
		}
		c.Set(key, value)
		return value, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result.(V), nil
}

// Set stores value under key.
func (c *TTL[V]) Set(key string, value V) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.items[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate drops the given keys.
func (c *TTL[V]) Invalidate(keys ...string) {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.items, key)
	}
	c.mu.Unlock()
}

// Purge drops every entry.
func (c *TTL[V]) Purge() {
	c.mu.Lock()
	c.items = make(map[string]entry[V])
	c.mu.Unlock()
}
