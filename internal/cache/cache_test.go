package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/seo-audit-service/internal/audit"
)

// fakeClock is an adjustable clock for expiry tests.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestCache(t *testing.T) (*Cache, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: time.Unix(1700000000, 0).UTC()}
	c, err := New(Config{Dir: t.TempDir(), DefaultTTL: 2 * time.Hour}, clk)
	require.NoError(t, err)
	return c, clk
}

func TestKeyNormalizesURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, Key("https://Acme.Test/Path/"), Key("https://acme.test/path"))
	require.NotEqual(t, Key("https://acme.test/a"), Key("https://acme.test/b"))
	require.Len(t, Key("https://acme.test"), 64)
}

func TestSetGetRoundTrip(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t)
	result := audit.Result{Success: true, OverallScore: 77}

	require.True(t, c.Set("https://acme.test", result, time.Hour))

	got, ok := c.Get("https://acme.test")
	require.True(t, ok)
	require.Equal(t, 77, got.OverallScore)

	// Normalized variants hit the same entry.
	got, ok = c.Get("https://ACME.test/")
	require.True(t, ok)
	require.Equal(t, 77, got.OverallScore)

	_, ok = c.Get("https://other.test")
	require.False(t, ok)
}

func TestGetExpiresLazily(t *testing.T) {
	t.Parallel()

	c, clk := newTestCache(t)
	require.True(t, c.Set("https://acme.test", audit.Result{Success: true}, time.Hour))

	clk.advance(59 * time.Minute)
	_, ok := c.Get("https://acme.test")
	require.True(t, ok)

	clk.advance(2 * time.Minute)
	_, ok = c.Get("https://acme.test")
	require.False(t, ok, "entry past TTL must not be returned")

	// The expired file was removed on read.
	require.Equal(t, 0, c.Stats().ItemCount)
}

func TestGetRemovesCorruptEntries(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Unix(1700000000, 0).UTC()}
	dir := t.TempDir()
	c, err := New(Config{Dir: dir, DefaultTTL: time.Hour}, clk)
	require.NoError(t, err)

	path := filepath.Join(dir, Key("https://acme.test")+".json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, ok := c.Get("https://acme.test")
	require.False(t, ok)

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err), "corrupt entry must be deleted")
}

func TestSurvivesRestart(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{now: time.Unix(1700000000, 0).UTC()}
	dir := t.TempDir()

	c1, err := New(Config{Dir: dir, DefaultTTL: time.Hour}, clk)
	require.NoError(t, err)
	require.True(t, c1.Set("https://acme.test", audit.Result{Success: true, OverallScore: 50}, 0))

	c2, err := New(Config{Dir: dir, DefaultTTL: time.Hour}, clk)
	require.NoError(t, err)
	got, ok := c2.Get("https://acme.test")
	require.True(t, ok)
	require.Equal(t, 50, got.OverallScore)
}

func TestDeleteClearStats(t *testing.T) {
	t.Parallel()

	c, clk := newTestCache(t)
	require.True(t, c.Set("https://a.test", audit.Result{Success: true}, time.Hour))
	require.True(t, c.Set("https://b.test", audit.Result{Success: true}, time.Minute))
	require.True(t, c.Set("https://c.test", audit.Result{Success: true}, time.Hour))

	require.True(t, c.Delete("https://a.test"))
	require.False(t, c.Delete("https://a.test"))

	clk.advance(2 * time.Minute)
	stats := c.Stats()
	require.Equal(t, 2, stats.ItemCount)
	require.Equal(t, 1, stats.ExpiredCount)
	require.Greater(t, stats.SizeBytes, int64(0))

	require.Equal(t, 1, c.CleanupExpired())
	require.Equal(t, 1, c.Stats().ItemCount)

	require.Equal(t, 1, c.Clear())
	require.Equal(t, 0, c.Stats().ItemCount)
}
