// Package ratelimit implements a sliding-window-log rate limiter keyed by
// arbitrary strings (client IPs or hashed email addresses). The product
// requirement is "at most N requests in any rolling window", which the
// timestamp log implements exactly; a token bucket would only approximate
// it.
package ratelimit

import (
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/seo-audit-service/internal/audit"
	"github.com/JakeFAU/seo-audit-service/internal/hash/sha256"
)

// Limiter tracks per-key request timestamps. All access is serialized by
// one mutex; concurrent admission checks on the same key must not both
// observe the same remaining slot.
type Limiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	clock   audit.Clock
}

// New creates a Limiter using the provided clock.
func New(clock audit.Clock) *Limiter {
	return &Limiter{
		windows: make(map[string][]time.Time),
		clock:   clock,
	}
}

// Allow reports whether a request for key is admitted under the given
// limit and window, recording the request timestamp when it is.
// Timestamps older than the window are purged before the check.
func (l *Limiter) Allow(key string, limit int, window time.Duration) bool {
	now := l.clock.Now()
	cutoff := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	log := l.windows[key]
	idx := 0
	for idx < len(log) && !log[idx].After(cutoff) {
		idx++
	}
	log = log[idx:]

	if len(log) >= limit {
		l.windows[key] = log
		return false
	}
	l.windows[key] = append(log, now)
	return true
}

// ResetAfter returns how long until the oldest recorded timestamp for key
// leaves the window, suitable for a Retry-After hint. Zero means the key
// has no recorded requests.
func (l *Limiter) ResetAfter(key string, window time.Duration) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	log := l.windows[key]
	if len(log) == 0 {
		return 0
	}
	remaining := log[0].Add(window).Sub(l.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// EmailKey derives a stable limiter key from an email address so raw
// addresses never appear in the limiter map.
func EmailKey(email string) string {
	return sha256.Hex([]byte(strings.ToLower(strings.TrimSpace(email))))
}
