package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestLimiter() (*Limiter, *fakeClock) {
	clk := &fakeClock{now: time.Unix(1700000000, 0).UTC()}
	return New(clk), clk
}

func TestAllowUpToLimitThenDeny(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter()
	const limit = 5

	for i := 0; i < limit; i++ {
		require.True(t, l.Allow("203.0.113.9", limit, time.Hour), "request %d should be admitted", i+1)
	}
	require.False(t, l.Allow("203.0.113.9", limit, time.Hour), "request over the limit must be denied")

	// Another key has its own window.
	require.True(t, l.Allow("203.0.113.10", limit, time.Hour))
}

func TestWindowSlides(t *testing.T) {
	t.Parallel()

	l, clk := newTestLimiter()
	window := time.Hour

	require.True(t, l.Allow("k", 2, window))
	clk.advance(30 * time.Minute)
	require.True(t, l.Allow("k", 2, window))
	require.False(t, l.Allow("k", 2, window))

	// The first timestamp leaves the window; one slot reopens.
	clk.advance(31 * time.Minute)
	require.True(t, l.Allow("k", 2, window))
	require.False(t, l.Allow("k", 2, window))
}

func TestResetAfterHint(t *testing.T) {
	t.Parallel()

	l, clk := newTestLimiter()
	window := time.Hour

	require.Zero(t, l.ResetAfter("k", window))

	require.True(t, l.Allow("k", 1, window))
	require.Equal(t, time.Hour, l.ResetAfter("k", window))

	clk.advance(40 * time.Minute)
	require.Equal(t, 20*time.Minute, l.ResetAfter("k", window))

	clk.advance(21 * time.Minute)
	require.Zero(t, l.ResetAfter("k", window))
}

func TestConcurrentAdmissionNeverOverAdmits(t *testing.T) {
	t.Parallel()

	l, _ := newTestLimiter()
	const limit = 50
	const attempts = 200

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared", limit, time.Hour) {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, limit, admitted)
}

func TestEmailKeyNormalizes(t *testing.T) {
	t.Parallel()

	require.Equal(t, EmailKey("User@Example.com "), EmailKey("user@example.com"))
	require.NotEqual(t, EmailKey("a@example.com"), EmailKey("b@example.com"))
	require.Len(t, EmailKey("a@example.com"), 64)
}
