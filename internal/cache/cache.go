// Package cache implements a file-backed result cache with TTL expiry.
// Entries survive process restarts within their TTL window; expiry is
// lazy and corrupt entries self-heal by deletion on read.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JakeFAU/seo-audit-service/internal/audit"
	"github.com/JakeFAU/seo-audit-service/internal/hash/sha256"
	"github.com/JakeFAU/seo-audit-service/internal/telemetry"
)

// Config captures the parameters for the file cache.
type Config struct {
	// Dir is the directory where cache entries are stored.
	Dir string `mapstructure:"dir"`
	// DefaultTTL applies when Set is called with a zero TTL.
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

// Stats summarizes the cache contents.
type Stats struct {
	ItemCount    int   `json:"item_count"`
	ExpiredCount int   `json:"expired_count"`
	SizeBytes    int64 `json:"size_bytes"`
}

// Cache stores audit results as JSON files keyed by a digest of the
// normalized URL.
type Cache struct {
	dir        string
	defaultTTL time.Duration
	clock      audit.Clock
}

// entry is the on-disk envelope around a cached result.
type entry struct {
	URL       string       `json:"url"`
	Data      audit.Result `json:"data"`
	CachedAt  int64        `json:"cached_at"`
	ExpiresAt int64        `json:"expires_at"`
}

// New creates a file cache rooted at cfg.Dir, creating the directory if
// needed.
func New(cfg Config, clock audit.Clock) (*Cache, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 2 * time.Hour
	}
	return &Cache{dir: cfg.Dir, defaultTTL: cfg.DefaultTTL, clock: clock}, nil
}

// Key derives the cache key from a URL: lowercase, trailing slash
// stripped, SHA-256 hex digest.
func Key(url string) string {
	normalized := strings.TrimRight(strings.ToLower(url), "/")
	return sha256.Hex([]byte(normalized))
}

func (c *Cache) path(url string) string {
	return filepath.Join(c.dir, Key(url)+".json")
}

// Get returns the cached result for url, or ok=false on miss. An expired
// or undecodable entry is removed and treated as a miss.
func (c *Cache) Get(url string) (audit.Result, bool) {
	path := c.path(url)
	raw, err := os.ReadFile(path)
	if err != nil {
		telemetry.ObserveCacheOp("get", "miss")
		return audit.Result{}, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		_ = os.Remove(path)
		telemetry.ObserveCacheOp("get", "corrupt")
		return audit.Result{}, false
	}
	if c.clock.Now().Unix() > e.ExpiresAt {
		_ = os.Remove(path)
		telemetry.ObserveCacheOp("get", "expired")
		return audit.Result{}, false
	}
	telemetry.ObserveCacheOp("get", "hit")
	return e.Data, true
}

// Set stores the result for url with the given TTL (DefaultTTL when zero).
// It reports whether the write succeeded.
func (c *Cache) Set(url string, result audit.Result, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	now := c.clock.Now()
	e := entry{
		URL:       url,
		Data:      result,
		CachedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
	raw, err := json.Marshal(e)
	if err != nil {
		telemetry.ObserveCacheOp("set", "error")
		return false
	}
	if err := os.WriteFile(c.path(url), raw, 0o600); err != nil {
		telemetry.ObserveCacheOp("set", "error")
		return false
	}
	telemetry.ObserveCacheOp("set", "ok")
	return true
}

// Delete removes the entry for url, reporting whether one existed.
func (c *Cache) Delete(url string) bool {
	return os.Remove(c.path(url)) == nil
}

// Clear removes all cache entries and returns how many were deleted.
func (c *Cache) Clear() int {
	cleared := 0
	for _, path := range c.entryPaths() {
		if os.Remove(path) == nil {
			cleared++
		}
	}
	return cleared
}

// Stats reports item count, expired count and total size in bytes.
func (c *Cache) Stats() Stats {
	var stats Stats
	now := c.clock.Now().Unix()
	for _, path := range c.entryPaths() {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		stats.ItemCount++
		stats.SizeBytes += info.Size()

		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var e entry
		if err := json.Unmarshal(raw, &e); err != nil || now > e.ExpiresAt {
			stats.ExpiredCount++
		}
	}
	return stats
}

// CleanupExpired proactively removes expired and corrupt entries. It is
// not required for correctness; Get already expires lazily.
func (c *Cache) CleanupExpired() int {
	removed := 0
	now := c.clock.Now().Unix()
	for _, path := range c.entryPaths() {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var e entry
		if err := json.Unmarshal(raw, &e); err == nil && now <= e.ExpiresAt {
			continue
		}
		if os.Remove(path) == nil {
			removed++
		}
	}
	return removed
}

func (c *Cache) entryPaths() []string {
	matches, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return nil
	}
	return matches
}
