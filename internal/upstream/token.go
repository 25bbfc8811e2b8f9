// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package upstream

import (
	"context"
	"strings"
	"sync"
	"time"
)

// tokenLifetime is how long a session token issued by Upstream remains valid.
const tokenLifetime = 15 * time.Minute

// refreshMargin is how far ahead of expiry the client proactively refreshes,
// so a fetched token is never used within the last minute of its life.
const refreshMargin = 1 * time.Minute

// sessionToken is a single-writer, many-reader cache for the Upstream
// session token. Only the refresh path writes to it; readers take a
// read lock. Refreshes themselves are serialised by Client.tokenRefreshMu
// (see ensureToken), not by this lock.
type sessionToken struct {
	mu        sync.RWMutex
	value     string
	expiresAt time.Time
}

// valid reports whether the cached token has at least refreshMargin left
// before it expires.
func (t *sessionToken) valid() (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.value == "" {
		return "", false
	}
	if time.Until(t.expiresAt) <= refreshMargin {
		return "", false
	}
	return t.value, true
}

// set installs a freshly issued token, starting its lifetime clock now.
func (t *sessionToken) set(value string) {
	t.mu.Lock()
	t.value = value
	t.expiresAt = time.Now().Add(tokenLifetime)
	t.mu.Unlock()
}

// clear discards the cached token, forcing the next ensure to refresh.
func (t *sessionToken) clear() {
	t.mu.Lock()
	t.value = ""
	t.expiresAt = time.Time{}
	t.mu.Unlock()
}

// ensureToken returns a token valid for at least refreshMargin, refreshing
// via login if needed. Concurrent callers serialise on c.tokenRefreshMu and
// re-check the cached token once they hold it, so at most one login is
// outstanding at a time.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	if tok, ok := c.token.valid(); ok {
		return tok, nil
	}

	c.tokenRefreshMu.Lock()
	defer c.tokenRefreshMu.Unlock()

	// Re-check: another goroutine may have refreshed while we waited for the lock.
	if tok, ok := c.token.valid(); ok {
		return tok, nil
	}

	return c.login(ctx)
}

// protectedPathPrefixes and protectedPathPattern implement the "protected
// path" matching described in §4.4: `/user`, `/manga/draft`, `/upload`, and
// the wildcard-segment form `/chapter/*/read`.
var protectedPathPrefixes = []string{"/user", "/manga/draft", "/upload"}

func isProtectedPath(path string) bool {
	for _, prefix := range protectedPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	// /chapter/*/read
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 3 && segments[0] == "chapter" && segments[2] == "read" {
		return true
	}

	return false
}
