// Package cache provides a bounded, TTL-aware LRU cache used for provider
// responses and orchestrated search results. Entries are evicted by capacity
// (least recently used first) and treated as absent once older than the TTL.
// Both policies apply independently: an expired entry keeps occupying capacity
// until it falls off the LRU end or is overwritten.
package cache

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry[V any] struct {
	value   V
	written time.Time
}

// TTLCache is a fixed-capacity LRU cache with logical expiry on read.
// It is safe for concurrent use.
type TTLCache[V any] struct {
	mu  sync.Mutex
	lru *lru.Cache[string, entry[V]]
	ttl time.Duration
	now func() time.Time
}

// NewTTL creates a TTLCache with the given capacity and time-to-live.
// A non-positive ttl disables expiry.
func NewTTL[V any](capacity int, ttl time.Duration) (*TTLCache[V], error) {
	inner, err := lru.New[string, entry[V]](capacity)
	if err != nil {
		return nil, err
	}
	return &TTLCache[V]{lru: inner, ttl: ttl, now: time.Now}, nil
}

// Get returns the value for key. A hit refreshes recency. An entry older
// than the TTL is reported absent without refreshing its recency; it still
// counts toward capacity until evicted.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.lru.Peek(key)
	if !ok {
		return zero, false
	}
	if c.ttl > 0 && c.now().Sub(e.written) >= c.ttl {
		return zero, false
	}
	c.lru.Get(key) // mark most recently used
	return e.value, true
}

// Put inserts or updates key. Updating an existing key refreshes recency
// and the write timestamp without growing the cache; inserting beyond
// capacity evicts the least recently used entry first.
func (c *TTLCache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, entry[V]{value: value, written: c.now()})
}

// Contains reports whether key is physically present, expired or not.
func (c *TTLCache[V]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Contains(key)
}

// Len returns the number of entries currently held, including expired ones.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Purge drops all entries.
func (c *TTLCache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Key builds a deterministic cache key from its parts.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
