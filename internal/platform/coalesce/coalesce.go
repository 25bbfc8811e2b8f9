// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package coalesce collapses concurrent identical requests into a single
in-flight call.

Core Responsibility:

  - Request collapsing: Coalesce(key, producer) ensures at most one producer
    runs per key at a time; concurrent callers for the same key wait for
    and share that single outcome instead of each triggering their own
    (usually expensive, usually a Store or Upstream round-trip) work.

Built on golang.org/x/sync/singleflight, the same dependency used for this
exact purpose by blampe-rreading-glasses' Controller ("group singleflight.Group").
singleflight.Group.Do natively satisfies the register/run/deregister-after-
observable contract; Pending/IsPending/Reset are a thin mutex-guarded
bookkeeping layer added around it since singleflight itself exposes no
introspection.
*/
package coalesce

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Group coalesces concurrent calls for the same key into a single producer
// invocation. The zero value is not usable; construct with New.
type Group struct {
	group singleflight.Group

	mu      sync.Mutex
	pending map[string]struct{}
}

// New constructs an empty coalescing Group.
func New() *Group {
	return &Group{pending: make(map[string]struct{})}
}

// Coalesce runs producer for key if no call is currently in flight for that
// key; otherwise it waits for the in-flight call and returns its outcome.
// Deregistration of key from the pending set happens after the outcome is
// observable on every exit path (singleflight's own callback fires before
// Do returns to the newly-unblocked waiters).
func (g *Group) Coalesce(key string, producer func() (any, error)) (any, error) {
	g.markPending(key)
	defer g.clearPending(key)

	value, err, _ := g.group.Do(key, producer)
	return value, err
}

// Pending reports how many distinct keys currently have an in-flight producer.
func (g *Group) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// IsPending reports whether key currently has an in-flight producer.
func (g *Group) IsPending(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, found := g.pending[key]
	return found
}

// Reset clears any cached singleflight call state and the pending-key set.
// Intended for use between test cases only.
func (g *Group) Reset() {
	g.group = singleflight.Group{}
	g.mu.Lock()
	g.pending = make(map[string]struct{})
	g.mu.Unlock()
}

func (g *Group) markPending(key string) {
	g.mu.Lock()
	g.pending[key] = struct{}{}
	g.mu.Unlock()
}

func (g *Group) clearPending(key string) {
	g.mu.Lock()
	delete(g.pending, key)
	g.mu.Unlock()
}
