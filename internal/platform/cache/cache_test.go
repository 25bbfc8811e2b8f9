// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package cache_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira/internal/platform/cache"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

/*
TestCache_SetGet confirms a stored value is returned verbatim and a miss
reports false rather than a zero value masquerading as a hit.
*/
func TestCache_SetGet(t *testing.T) {
	c, err := cache.New("test", time.Minute, 100, discardLogger())
	require.NoError(t, err)

	c.Set("manhwa:1", "solo leveling")

	value, ok := c.Get("manhwa:1")
	require.True(t, ok)
	assert.Equal(t, "solo leveling", value)

	_, ok = c.Get("manhwa:missing")
	assert.False(t, ok)
}

/*
TestCache_TTLExpiry confirms a key set with a short TTL stops being served
once it has expired.
*/
func TestCache_TTLExpiry(t *testing.T) {
	c, err := cache.New("test", time.Minute, 100, discardLogger())
	require.NoError(t, err)

	c.SetTTL("manhwa:1", "solo leveling", 20*time.Millisecond)

	_, ok := c.Get("manhwa:1")
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)

	_, ok = c.Get("manhwa:1")
	assert.False(t, ok)
}

/*
TestCache_DeleteMatching confirms invalidation is scoped to keys containing
the given substring, leaving unrelated keys untouched.
*/
func TestCache_DeleteMatching(t *testing.T) {
	c, err := cache.New("test", time.Minute, 100, discardLogger())
	require.NoError(t, err)

	c.Set("search:q=tower", "page1")
	c.Set("search:q=solo", "page2")
	c.Set("entity:1", "row1")

	removed := c.DeleteMatching("search:")
	assert.Equal(t, 2, removed)

	_, ok := c.Get("search:q=tower")
	assert.False(t, ok)
	_, ok = c.Get("entity:1")
	assert.True(t, ok)
}

/*
TestCache_Stats confirms hit/miss counters and key occupancy track actual
Get/Set activity.
*/
func TestCache_Stats(t *testing.T) {
	c, err := cache.New("test", time.Minute, 100, discardLogger())
	require.NoError(t, err)

	c.Set("a", 1)
	c.Get("a")
	c.Get("missing")

	stats := c.Stats()
	assert.Equal(t, 1, stats.Keys)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

/*
TestCache_Start_ReconcilesExpiredKeys confirms the periodic sweep eventually
drops an index entry whose backing value has already expired, so Stats()
never over-reports occupancy indefinitely.
*/
func TestCache_Start_ReconcilesExpiredKeys(t *testing.T) {
	c, err := cache.New("test", time.Minute, 100, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx, 20*time.Millisecond)

	c.SetTTL("stale", "value", 10*time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, 0, c.Stats().Keys)
}
