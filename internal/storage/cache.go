package storage

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultCacheTTL is how long a cached read stays fresh
	DefaultCacheTTL = 5 * time.Minute
	// DefaultCacheSize bounds the number of cached reads per backend
	DefaultCacheSize = 256
)

// CacheConfig configures a backend's read cache
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Size    int
}

// DefaultCacheConfig returns an enabled cache with default TTL and size
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{Enabled: true, TTL: DefaultCacheTTL, Size: DefaultCacheSize}
}

// Cache is a bounded TTL cache of backend reads. Entries older than the
// TTL read as misses and are evicted on that read; no background goroutine
// is involved. A disabled cache never stores anything. Each backend owns
// its own Cache.
type Cache struct {
	lru *lru.Cache[string, cacheEntry]
	ttl time.Duration
	now func() time.Time
}

type cacheEntry struct {
	value   any
	expires time.Time
}

// NewCache creates a cache from cfg. A zero TTL or size falls back to the
// defaults.
func NewCache(cfg CacheConfig) *Cache {
	if !cfg.Enabled {
		return &Cache{}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.Size <= 0 {
		cfg.Size = DefaultCacheSize
	}
	// lru.New fails only for a non-positive size
	l, _ := lru.New[string, cacheEntry](cfg.Size)
	return &Cache{lru: l, ttl: cfg.TTL, now: time.Now}
}

// Enabled reports whether the cache stores values
func (c *Cache) Enabled() bool {
	return c != nil && c.lru != nil
}

// Get returns the value stored under key if it is present and fresh
func (c *Cache) Get(key string) (any, bool) {
	if !c.Enabled() {
		return nil, false
	}
	entry, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expires) {
		c.lru.Remove(key)
		return nil, false
	}
	return entry.value, true
}

// Set stores value under key
func (c *Cache) Set(key string, value any) {
	if !c.Enabled() {
		return
	}
	c.lru.Add(key, cacheEntry{value: value, expires: c.now().Add(c.ttl)})
}

// Clear drops every entry
func (c *Cache) Clear() {
	if !c.Enabled() {
		return
	}
	c.lru.Purge()
}

// Len returns the number of entries, including expired ones not yet read
func (c *Cache) Len() int {
	if !c.Enabled() {
		return 0
	}
	return c.lru.Len()
}

// cached returns the typed value under key, or calls load, stores its result
// and returns it
func cached[T any](c *Cache, key string, load func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}
