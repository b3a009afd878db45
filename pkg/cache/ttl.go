// Package cache provides a small clock-driven TTL cache
package cache

import (
	"sync"
	"time"

	"github.com/jzx17/crmclient/pkg/types"
)

// entry is a cached value with the time it was stored
type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

// TTL is a map whose entries expire ttl after they were stored.
// Expired entries are treated as absent on read and overwritten on the next
// Set; there is no background sweep and no size bound.
type TTL[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	ttl     time.Duration
	clock   types.Clock
}

// NewTTL creates a TTL cache. A nil clock uses real time.
func NewTTL[K comparable, V any](ttl time.Duration, clock types.Clock) *TTL[K, V] {
	return &TTL[K, V]{
		entries: make(map[K]entry[V]),
		ttl:     ttl,
		clock:   types.OrRealClock(clock),
	}
}

// TTL returns the configured lifetime of an entry
func (c *TTL[K, V]) TTL() time.Duration {
	return c.ttl
}

// Get returns the value for key if it is present and younger than the TTL
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.clock.Since(e.fetchedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, replacing any previous entry
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, fetchedAt: c.clock.Now()}
}

// Delete removes key; absent keys are ignored
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry
func (c *TTL[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len returns the number of stored entries, expired ones included
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
