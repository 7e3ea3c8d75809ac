// Package statscache keeps the process-wide statistics snapshots with
// stale-but-available semantics: a failed refresh records the error for
// display but never discards data already shown.
package statscache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"moviechat/internal/ragclient"
)

const (
	keySummary  = "summary"
	keyDetailed = "detailed"
)

// Fetcher is the slice of the backend client the cache needs.
type Fetcher interface {
	Stats(ctx context.Context) (ragclient.StatsSummary, error)
	DetailedStats(ctx context.Context) (ragclient.DetailedStats, error)
}

// Cache stores the summary and detailed snapshots. Snapshots never expire on
// their own; they are replaced wholesale by an explicit refresh.
type Cache struct {
	mu          sync.Mutex
	snapshots   *gocache.Cache
	lastUpdated time.Time
	lastErr     error

	fetcher Fetcher
	logger  *zap.Logger
}

func New(fetcher Fetcher, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		snapshots: gocache.New(gocache.NoExpiration, 0),
		fetcher:   fetcher,
		logger:    logger,
	}
}

// RefreshSummary fetches a fresh summary snapshot. On failure the previous
// snapshot stays in place and the error is recorded for display.
func (c *Cache) RefreshSummary(ctx context.Context) (ragclient.StatsSummary, error) {
	snapshot, err := c.fetcher.Stats(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lastErr = err
		c.logger.Warn("summary stats refresh failed", zap.Error(err))
		return ragclient.StatsSummary{}, err
	}
	c.snapshots.Set(keySummary, snapshot, gocache.NoExpiration)
	c.lastUpdated = time.Now()
	c.lastErr = nil
	return snapshot, nil
}

// RefreshDetailed fetches a fresh detailed snapshot with the same
// keep-on-failure behavior as RefreshSummary.
func (c *Cache) RefreshDetailed(ctx context.Context) (ragclient.DetailedStats, error) {
	snapshot, err := c.fetcher.DetailedStats(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lastErr = err
		c.logger.Warn("detailed stats refresh failed", zap.Error(err))
		return ragclient.DetailedStats{}, err
	}
	c.snapshots.Set(keyDetailed, snapshot, gocache.NoExpiration)
	c.lastUpdated = time.Now()
	c.lastErr = nil
	return snapshot, nil
}

// Summary returns the cached summary snapshot, possibly stale.
func (c *Cache) Summary() (ragclient.StatsSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.snapshots.Get(keySummary); ok {
		return v.(ragclient.StatsSummary), true
	}
	return ragclient.StatsSummary{}, false
}

// Detailed returns the cached detailed snapshot, possibly stale.
func (c *Cache) Detailed() (ragclient.DetailedStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.snapshots.Get(keyDetailed); ok {
		return v.(ragclient.DetailedStats), true
	}
	return ragclient.DetailedStats{}, false
}

// LastUpdated is the time of the most recent successful refresh.
func (c *Cache) LastUpdated() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUpdated
}

// LastError is the most recent refresh failure, or nil after a success.
func (c *Cache) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}
