// SPDX-License-Identifier: MIT

// Package cache provides TTL caching for upstream snapshots and analysis
// results, with in-memory and Redis backends.
package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// Cache is the backend-agnostic TTL cache.
type Cache interface {
	// Get retrieves a value. The second return is false when the key is
	// missing or expired.
	Get(key string) (any, bool)
	// Set stores a value with the given TTL.
	Set(key string, value any, ttl time.Duration)
	// Delete removes a single key.
	Delete(key string)
	// Clear removes everything.
	Clear()
	// Stats returns counters for the status endpoint.
	Stats() Stats
}

// Stats holds cache counters.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Sets        int64 `json:"sets"`
	Evictions   int64 `json:"evictions"`
	CurrentSize int   `json:"current_size"`
}

// Key prefixes. Snapshot keys carry the ticker, analysis keys carry a
// caller-built identity (ticker plus period, or a search topic hash).
const (
	prefixSnapshot = "snapshot:"
	prefixAnalysis = "analysis:"
)

// SnapshotKey returns the cache key for a ticker's upstream snapshot.
func SnapshotKey(ticker string) string { return prefixSnapshot + ticker }

// AnalysisKey returns the cache key for a stored analysis identity.
func AnalysisKey(id string) string { return prefixAnalysis + id }

type entry struct {
	value     any
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool { return now.After(e.expiresAt) }

// MemoryCache is the in-process cache backend.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64

	stop chan struct{}
	once sync.Once
}

// NewMemory creates an in-memory cache. When cleanupInterval is positive a
// janitor goroutine evicts expired entries on that interval; call Stop to
// terminate it.
func NewMemory(cleanupInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.janitor(cleanupInterval)
	}
	return c
}

func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, found := c.entries[key]
	c.mu.RUnlock()

	if !found || e.expired(time.Now()) {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.value, true
}

func (c *MemoryCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = &entry{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	c.sets.Add(1)
}

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

func (c *MemoryCache) Stats() Stats {
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

func (c *MemoryCache) deleteExpired() int {
	now := time.Now()

	c.mu.Lock()
	count := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			count++
		}
	}
	c.mu.Unlock()

	c.evictions.Add(int64(count))
	return count
}

func (c *MemoryCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stop:
			return
		}
	}
}

// Stop terminates the janitor goroutine. Safe to call more than once.
func (c *MemoryCache) Stop() {
	c.once.Do(func() { close(c.stop) })
}

type noOpCache struct{}

// NewNoOp returns a cache that stores nothing.
func NewNoOp() Cache { return &noOpCache{} }

func (noOpCache) Get(string) (any, bool)         { return nil, false }
func (noOpCache) Set(string, any, time.Duration) {}
func (noOpCache) Delete(string)                  {}
func (noOpCache) Clear()                         {}
func (noOpCache) Stats() Stats                   { return Stats{} }
