// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 LogLens Contributors

package cache_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglens-dev/loglens/internal/cache"
)

func TestCache_HitMissCounters(t *testing.T) {
	c := cache.New[string](4, time.Minute)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Put("a", "value-a")

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "value-a", v)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Len)
}

func TestCache_LRUEviction(t *testing.T) {
	c := cache.New[int](2, time.Minute)

	c.Put("a", 1)
	c.Put("b", 2)

	// Touch "a" so "b" becomes the eviction victim.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestCache_TTLExpiry(t *testing.T) {
	c := cache.New[int](4, 20*time.Millisecond)

	c.Put("a", 1)
	_, ok := c.Get("a")
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)

	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestCache_Purge(t *testing.T) {
	c := cache.New[int](4, time.Minute)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Purge()

	assert.Equal(t, 0, c.Stats().Len)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestCache_DisabledAlwaysMisses(t *testing.T) {
	// capacity 0 disables the cache; all operations are safe no-ops.
	c := cache.New[string](0, time.Minute)
	require.Nil(t, c)

	c.Put("a", "value")
	_, ok := c.Get("a")
	assert.False(t, ok)
	c.Purge()
	assert.Equal(t, cache.Stats{}, c.Stats())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := cache.New[int](64, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%8)
				c.Put(key, i)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	stats := c.Stats()
	assert.Equal(t, int64(1600), stats.Hits+stats.Misses)
}
