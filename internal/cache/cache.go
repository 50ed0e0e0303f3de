// SPDX-License-Identifier: MIT

// Package cache provides a TTL cache for analysis results, keyed by content
// digest. Backends: in-memory with a background sweep, Redis, or disabled.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/reeldoc/reeldoc/internal/metrics"
)

// Cache is a TTL key-value store shared by the transcription and generation
// stages. Values are opaque byte slices; callers serialize before Set.
type Cache interface {
	// Get returns the value stored under key, or false when absent or expired.
	Get(key string) ([]byte, bool)
	// Set stores value under key for the given lifetime.
	Set(key string, value []byte, ttl time.Duration)
	// Delete drops key if present.
	Delete(key string)
	// Clear drops every entry.
	Clear()
	// Stats reports the backend's counters since it was opened.
	Stats() Stats
	// Close releases backend resources. Safe to call more than once.
	Close() error
}

// Stats holds cache performance counters.
type Stats struct {
	Hits        int64 // Get calls answered from the cache
	Misses      int64 // Get calls that found nothing usable
	Sets        int64 // values written
	Evictions   int64 // expired entries removed by the sweep
	CurrentSize int   // live entries right now
}

// Key derives a cache key from its input parts. Same parts, same key; the
// digest keeps arbitrary prompt and transcript text out of backend key space.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0}) // separator so ("ab","c") != ("a","bc")
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Open creates a cache for the configured backend: "none", "memory" or "redis".
func Open(backend string, redisCfg RedisConfig, logger zerolog.Logger) (Cache, error) {
	switch backend {
	case "", "none":
		return NewNoOpCache(), nil
	case "memory":
		return NewMemoryCache(time.Minute), nil
	case "redis":
		return NewRedisCache(redisCfg, logger)
	default:
		return nil, fmt.Errorf("unknown cache backend: %q", backend)
	}
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// expired entries are left in place until the sweep or the next Get on their
// key; Get never returns them.
func (e *entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// memoryCache is the in-process Cache backend.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry

	stop      chan struct{}
	closeOnce sync.Once

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64
}

// NewMemoryCache creates an in-memory cache that sweeps expired entries every
// sweepInterval. An interval <= 0 disables the sweep; entries then linger
// until overwritten, which is fine for short-lived processes and tests.
func NewMemoryCache(sweepInterval time.Duration) Cache {
	c := &memoryCache{
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
	}
	if sweepInterval > 0 {
		go c.sweep(sweepInterval)
	}
	return c
}

func (c *memoryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, found := c.entries[key]
	c.mu.RUnlock()

	// e is replaced wholesale on Set, never mutated, so reading it after
	// RUnlock is safe.
	if !found || e.expired(time.Now()) {
		c.misses.Add(1)
		metrics.IncCacheRequest("memory", "miss")
		return nil, false
	}

	c.hits.Add(1)
	metrics.IncCacheRequest("memory", "hit")
	return e.value, true
}

func (c *memoryCache) Set(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = &entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
	c.sets.Add(1)
}

func (c *memoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *memoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

func (c *memoryCache) Stats() Stats {
	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Sets:        c.sets.Load(),
		Evictions:   c.evictions.Load(),
		CurrentSize: size,
	}
}

// Close stops the sweep goroutine. Closing the channel instead of sending on
// it keeps repeated Close calls from blocking.
func (c *memoryCache) Close() error {
	c.closeOnce.Do(func() { close(c.stop) })
	return nil
}

// sweep drops expired entries every interval until Close.
func (c *memoryCache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.evictions.Add(c.deleteExpired(time.Now()))
		case <-c.stop:
			return
		}
	}
}

func (c *memoryCache) deleteExpired(now time.Time) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int64
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// noOpCache is the backend for cache.backend "none": misses on every Get.
type noOpCache struct{}

// NewNoOpCache creates a cache that stores nothing.
func NewNoOpCache() Cache {
	return &noOpCache{}
}

func (c *noOpCache) Get(string) ([]byte, bool)         { return nil, false }
func (c *noOpCache) Set(string, []byte, time.Duration) {}
func (c *noOpCache) Delete(string)                     {}
func (c *noOpCache) Clear()                            {}
func (c *noOpCache) Stats() Stats                      { return Stats{} }
func (c *noOpCache) Close() error                      { return nil }
