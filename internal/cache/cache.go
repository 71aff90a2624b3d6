// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

// Package cache provides the TTL+LRU result caches. Each purpose
// (ingested record, search response, ticket insights) gets its own
// independently sized cache so eviction pressure on one never touches the
// others. The cache is a pure performance layer: every correctness property
// of the system holds with all caches disabled.
package cache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Stats reports cumulative hit/miss counters.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Len    int   `json:"len"`
}

// Cache is a bounded TTL+LRU cache for one purpose. A nil *Cache (or one
// built with capacity <= 0) is valid and always misses, which is how the
// cache is disabled.
type Cache[V any] struct {
	lru    *expirable.LRU[string, V]
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache holding at most capacity entries, each expiring ttl
// after insertion. capacity <= 0 disables the cache entirely.
func New[V any](capacity int, ttl time.Duration) *Cache[V] {
	if capacity <= 0 {
		return nil
	}
	return &Cache[V]{
		lru: expirable.NewLRU[string, V](capacity, nil, ttl),
	}
}

// Get returns the cached value and refreshes its recency. Expired or absent
// keys count as misses.
func (c *Cache[V]) Get(key string) (V, bool) {
	if c == nil {
		var zero V
		return zero, false
	}

	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Put stores a value, evicting the least recently used entry at capacity.
func (c *Cache[V]) Put(key string, value V) {
	if c == nil {
		return
	}
	c.lru.Add(key, value)
}

// Purge drops every entry. Counters are preserved.
func (c *Cache[V]) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

// Stats returns cumulative counters and the current entry count.
func (c *Cache[V]) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Len:    c.lru.Len(),
	}
}
