// Package cache provides the default in-memory response cache.
// In production, this could be backed by a dedicated cache service; the
// orchestrator only depends on the narrow CacheStore port.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/mongshilymom/legalai-engine/internal/domain"
)

type item struct {
	entry     domain.CacheEntry
	size      int64
	expiresAt time.Time
}

// InMemory is a thread-safe in-memory response cache with per-entry TTL.
// It also keeps the cumulative counters the analytics engine samples.
type InMemory struct {
	mu          sync.RWMutex
	items       map[string]item
	cleanupTick time.Duration

	hits        int64
	misses      int64
	sizeBytes   int64
	costSavings float64

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new in-memory cache. cleanupTick controls how often
// expired entries are swept out.
func New(cleanupTick time.Duration) *InMemory {
	c := &InMemory{
		items:       make(map[string]item),
		cleanupTick: cleanupTick,
		done:        make(chan struct{}),
	}
	// Background cleanup goroutine
	go c.cleanup()
	return c
}

// Get retrieves an entry. A miss (absent or expired) returns nil with a
// nil error. Each hit accrues the entry's original cost as savings.
func (c *InMemory) Get(_ context.Context, key, _ string, _ map[string]string) (*domain.CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok || time.Now().After(it.expiresAt) {
		c.misses++
		return nil, nil
	}
	c.hits++
	c.costSavings += it.entry.Cost
	entry := it.entry
	return &entry, nil
}

// Set stores an entry under key with the given TTL. Writing an existing
// key replaces the previous entry (last write wins).
func (c *InMemory) Set(_ context.Context, key string, entry *domain.CacheEntry, _ string, _ map[string]string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.items[key]; ok {
		c.sizeBytes -= old.size
	}
	size := entrySize(entry)
	c.items[key] = item{
		entry:     *entry,
		size:      size,
		expiresAt: time.Now().Add(ttl),
	}
	c.sizeBytes += size
	return nil
}

// Delete removes an entry from the cache.
func (c *InMemory) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if it, ok := c.items[key]; ok {
		c.sizeBytes -= it.size
		delete(c.items, key)
	}
}

// Stats returns the cumulative cache counters.
func (c *InMemory) Stats() domain.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return domain.CacheStats{
		Hits:        c.hits,
		Misses:      c.misses,
		Entries:     int64(len(c.items)),
		SizeBytes:   c.sizeBytes,
		CostSavings: c.costSavings,
	}
}

// Close stops the background cleanup goroutine.
func (c *InMemory) Close() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}

// cleanup periodically removes expired entries.
func (c *InMemory) cleanup() {
	ticker := time.NewTicker(c.cleanupTick)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for k, it := range c.items {
				if now.After(it.expiresAt) {
					c.sizeBytes -= it.size
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		}
	}
}

// entrySize approximates the stored footprint of an entry.
func entrySize(e *domain.CacheEntry) int64 {
	return int64(len(e.Content) + len(e.Provider) + 64)
}
