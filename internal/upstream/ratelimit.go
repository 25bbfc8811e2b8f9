// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package upstream

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/taibuivan/yomira/internal/platform/apperr"
)

// globalCooldownSeconds is the retry-after value reported once the global
// limiter is exhausted (§4.4 "cool-down window of 60 s").
const globalCooldownSeconds = 60

// endpointOverlay describes a named endpoint's own rate ceiling, enforced
// before the global limiter.
type endpointOverlay struct {
	limiter           *rate.Limiter
	retryAfterSeconds int
}

// limiterSet holds the global limiter plus any per-endpoint overlays.
//
// Exhaustion never blocks the caller: the specification treats RateLimited
// as the only backpressure surface, so every check is a non-blocking Allow().
type limiterSet struct {
	global *rate.Limiter

	mu       sync.Mutex
	overlays map[string]*endpointOverlay
}

// newLimiterSet builds the limiter set described by §4.4: a 5 rps global
// ceiling, a "login" overlay of 30 per 3600 s, and a "random" overlay of
// 60 per 60 s.
func newLimiterSet() *limiterSet {
	return &limiterSet{
		global: rate.NewLimiter(rate.Limit(5), 5),
		overlays: map[string]*endpointOverlay{
			"login": {
				limiter:           rate.NewLimiter(rate.Limit(30.0/3600.0), 30),
				retryAfterSeconds: 3600,
			},
			"random": {
				limiter:           rate.NewLimiter(rate.Limit(60.0/60.0), 60),
				retryAfterSeconds: 60,
			},
		},
	}
}

// Allow enforces the named endpoint's overlay (if any) before the global
// limiter, returning a [apperr.RateLimited] the moment either is exhausted.
func (l *limiterSet) Allow(endpoint string) error {
	l.mu.Lock()
	overlay, hasOverlay := l.overlays[endpoint]
	l.mu.Unlock()

	if hasOverlay {
		if !overlay.limiter.Allow() {
			return apperr.RateLimited(overlay.retryAfterSeconds)
		}
	}

	if !l.global.Allow() {
		return apperr.RateLimited(globalCooldownSeconds)
	}

	return nil
}
