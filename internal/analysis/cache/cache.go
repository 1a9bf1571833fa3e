// Package cache memoizes analysis reports in Redis. Keys are derived from a
// SHA-256 of the exact input text, and concurrent misses for the same text
// are collapsed with singleflight.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/text-analyzer/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "analysis:"

// Store is the key-value backend. *pkgredis.Client satisfies it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
	CountByPattern(ctx context.Context, pattern string) (int64, error)
}

// Stats reports cache effectiveness since process start.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Keys    int64   `json:"keys"`
}

type ReportCache struct {
	store     Store
	ttl       time.Duration
	namespace string
	group     singleflight.Group
	logger    *slog.Logger
	hits      atomic.Int64
	misses    atomic.Int64
}

// New creates a cache. namespace separates entries produced under different
// settings (for example the translation target language).
func New(store Store, ttl time.Duration, namespace string) *ReportCache {
	return &ReportCache{
		store:     store,
		ttl:       ttl,
		namespace: namespace,
		logger:    logger.WithComponent("analysis-cache"),
	}
}

// Get looks text up. Backend and decoding errors count as misses.
func (c *ReportCache) Get(ctx context.Context, text string) (*analysis.Report, bool) {
	key := c.key(text)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, pkgredis.ErrMiss) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var report analysis.Report
	if err := json.Unmarshal(data, &report); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", key)
	return &report, true
}

// Set stores report under text. Failures are logged, never returned.
func (c *ReportCache) Set(ctx context.Context, text string, report *analysis.Report) {
	key := c.key(text)
	data, err := json.Marshal(report)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached report for text or computes, stores and
// returns it. The boolean reports a cache hit.
func (c *ReportCache) GetOrCompute(
	ctx context.Context,
	text string,
	compute func() (*analysis.Report, error),
) (*analysis.Report, bool, error) {
	if report, ok := c.Get(ctx, text); ok {
		return report, true, nil
	}
	key := c.key(text)
	val, err, _ := c.group.Do(key, func() (any, error) {
		report, err := compute()
		if err != nil {
			return nil, err
		}
		// reports built on a translation fallback are not stored
		if report.TranslationWarning == "" {
			c.Set(ctx, text, report)
		}
		return report, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*analysis.Report), false, nil
}

// Invalidate deletes every cached report and returns how many were removed.
func (c *ReportCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating analysis cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// Stats returns hit and miss counters plus the number of stored keys. A
// failed key count is logged and reported as zero.
func (c *ReportCache) Stats(ctx context.Context) Stats {
	s := Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	keys, err := c.store.CountByPattern(ctx, keyPrefix+"*")
	if err != nil {
		c.logger.Warn("counting cache keys failed", "error", err)
	}
	s.Keys = keys
	return s
}

func (c *ReportCache) key(text string) string {
	hash := sha256.Sum256([]byte(c.namespace + "\x00" + text))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
