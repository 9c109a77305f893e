package storage

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetSet(t *testing.T) {
	c := NewCache(DefaultCacheConfig())
	require.True(t, c.Enabled())

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", 42)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_Expiry(t *testing.T) {
	c := NewCache(CacheConfig{Enabled: true, TTL: 20 * time.Millisecond, Size: 8})

	c.Set("k", "v")
	_, ok := c.Get("k")
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry older than the TTL should read as a miss")
}

func TestCache_Disabled(t *testing.T) {
	c := NewCache(CacheConfig{Enabled: false})
	assert.False(t, c.Enabled())

	c.Set("k", "v")
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	c.Clear()
}

func TestCached(t *testing.T) {
	c := NewCache(DefaultCacheConfig())
	calls := 0
	load := func() (string, error) {
		calls++
		return "value", nil
	}

	v, err := cached(c, "key", load)
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	v, err = cached(c, "key", load)
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, calls, "second read should be served from the cache")

	_, err = cached(c, "failing", func() (string, error) { return "", errors.New("boom") })
	assert.Error(t, err)
	_, ok := c.Get("failing")
	assert.False(t, ok, "failed loads must not be cached")
}

func TestCache_ExpiredEntryEvictedOnRead(t *testing.T) {
	c := NewCache(CacheConfig{Enabled: true, TTL: time.Minute, Size: 8})
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.Set("k", "v")
	clock = clock.Add(59 * time.Second)
	_, ok := c.Get("k")
	require.True(t, ok)

	clock = clock.Add(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_SizeBound(t *testing.T) {
	c := NewCache(CacheConfig{Enabled: true, TTL: time.Minute, Size: 2})
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok, "least recently used entry should be evicted")
}

func TestCache_NoBackgroundGoroutines(t *testing.T) {
	before := runtime.NumGoroutine()

	for i := 0; i < 50; i++ {
		store, err := NewFileStorage(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, store.Close())
		NewCache(DefaultCacheConfig())
	}

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+2
	}, time.Second, 10*time.Millisecond, "opening and closing backends should not leave goroutines behind")
}
