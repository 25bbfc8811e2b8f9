// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package cache provides the catalogue's in-process, bounded, TTL-based cache
tiers.

Core Responsibility:

  - Tiering: Entity, Search, and Tag reads are cached in three independent
    instances, each with its own default TTL and shared key-count ceiling.
  - Invalidation: writes to the catalogue invalidate by key substring, using
    DeleteMatching rather than tracking individual keys, since a write may
    affect an unbounded number of cached search result pages.
  - Best-effort semantics: a cache miss, a failed Set, or an expired read
    never surfaces as an error to the caller — it degrades to "go read the
    store", matching the stance that the cache is an optimisation, not a
    correctness boundary.

Each tier wraps a dgraph-io/ristretto cache, bounded by CACHE_MAX_KEYS-derived
counters and cost, giving O(1) admission/eviction under concurrent load.
Ristretto itself does not expose key enumeration, so a sync.RWMutex-guarded
key index (a map[string]struct{}) is kept alongside it, used only to support
DeleteMatching's substring scan and Stats()'s key count. A background
time.Ticker goroutine — the same shape as [middleware.RateLimit]'s cleanup
loop — periodically reconciles the index against ristretto's live entries,
dropping index entries whose backing value has already expired or been
evicted, so there is never a second source of truth for values.
*/
package cache

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Stats reports point-in-time cache tier occupancy and hit/miss counters.
type Stats struct {
	Keys   int   `json:"keys"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Cache is a single bounded TTL tier backed by ristretto.
//
// All methods are safe for concurrent use. Get/Set never return an error: a
// failed Set (e.g. rejected by the ristretto admission policy) just means
// the value isn't cached, and callers fall back to the store.
type Cache struct {
	name       string
	defaultTTL time.Duration
	maxKeys    int64

	ring *ristretto.Cache

	mu    sync.RWMutex
	index map[string]struct{}

	hits   int64
	misses int64

	logger *slog.Logger
}

// New constructs a Cache tier named name with the given default TTL and key
// ceiling. Start must be called to begin the periodic index reconciliation.
func New(name string, defaultTTL time.Duration, maxKeys int64, logger *slog.Logger) (*Cache, error) {
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	ring, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxKeys * 10,
		MaxCost:     maxKeys,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &Cache{
		name:       name,
		defaultTTL: defaultTTL,
		maxKeys:    maxKeys,
		ring:       ring,
		index:      make(map[string]struct{}),
		logger:     logger,
	}, nil
}

// Get returns the cached value for key and whether it was present.
func (c *Cache) Get(key string) (any, bool) {
	value, found := c.ring.Get(key)
	if !found {
		c.bumpMiss()
		return nil, false
	}
	c.bumpHit()
	return value, true
}

// Set stores value under key using the tier's default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores value under key with an explicit TTL override. A rejection
// by the underlying admission policy is silently ignored: the key is still
// recorded in the index so a subsequent DeleteMatching sweep cleans it up
// once reconciliation notices it is absent from ristretto.
func (c *Cache) SetTTL(key string, value any, ttl time.Duration) {
	c.ring.SetWithTTL(key, value, 1, ttl)
	c.ring.Wait()

	c.mu.Lock()
	c.index[key] = struct{}{}
	c.mu.Unlock()
}

// DeleteMatching removes every cached key containing substr.
func (c *Cache) DeleteMatching(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.index {
		if strings.Contains(key, substr) {
			delete(c.index, key)
			c.ring.Del(key)
			removed++
		}
	}
	return removed
}

// Delete removes a single key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.index, key)
	c.mu.Unlock()
	c.ring.Del(key)
}

// Stats reports the current occupancy and hit/miss counters for this tier.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	keys := len(c.index)
	hits, misses := c.hits, c.misses
	c.mu.RUnlock()

	return Stats{
		Keys:   keys,
		Hits:   hits,
		Misses: misses,
	}
}

// Start launches the periodic index-reconciliation sweep. It stops once ctx
// is done.
func (c *Cache) Start(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.reconcile()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// reconcile drops index entries whose backing value has already expired or
// been evicted from ristretto, keeping Stats()/DeleteMatching honest.
func (c *Cache) reconcile() {
	c.mu.Lock()
	stale := make([]string, 0)
	for key := range c.index {
		if _, found := c.ring.Get(key); !found {
			stale = append(stale, key)
		}
	}
	for _, key := range stale {
		delete(c.index, key)
	}
	c.mu.Unlock()

	if len(stale) > 0 && c.logger != nil {
		c.logger.Debug("cache_sweep", slog.String("tier", c.name), slog.Int("expired", len(stale)))
	}
}

func (c *Cache) bumpHit() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
}

func (c *Cache) bumpMiss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
}

// Tiers bundles the three cache instances the catalogue depends on.
type Tiers struct {
	Entity *Cache
	Search *Cache
	Tag    *Cache
}

// NewTiers constructs the Entity, Search, and Tag cache tiers from config
// values and starts their periodic sweeps against ctx.
func NewTiers(ctx context.Context, entityTTL, searchTTL, tagTTL time.Duration, maxKeys int, logger *slog.Logger) (*Tiers, error) {
	entity, err := New("entity", entityTTL, int64(maxKeys), logger)
	if err != nil {
		return nil, err
	}
	search, err := New("search", searchTTL, int64(maxKeys), logger)
	if err != nil {
		return nil, err
	}
	tag, err := New("tag", tagTTL, int64(maxKeys), logger)
	if err != nil {
		return nil, err
	}

	const sweepInterval = 60 * time.Second
	entity.Start(ctx, sweepInterval)
	search.Start(ctx, sweepInterval)
	tag.Start(ctx, sweepInterval)

	return &Tiers{Entity: entity, Search: search, Tag: tag}, nil
}
