package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/refty/hamcounter/internal/adapter/metrics"
	"github.com/refty/hamcounter/internal/domain"
)

const countKeyPrefix = "hamcounter:count:"

// CountCache stores the run count per local day with a short TTL. The TTL
// bounds staleness if an invalidation is lost.
type CountCache struct {
	rdb     goredis.Cmdable
	ttl     time.Duration
	metrics *metrics.CacheMetrics
}

var _ domain.CountCache = (*CountCache)(nil)

func NewCountCache(rdb goredis.Cmdable, ttl time.Duration, m *metrics.CacheMetrics) *CountCache {
	return &CountCache{rdb: rdb, ttl: ttl, metrics: m}
}

func countKey(day string) string {
	return countKeyPrefix + day
}

func (c *CountCache) Get(ctx context.Context, day string) (int64, bool, error) {
	count, err := c.rdb.Get(ctx, countKey(day)).Int64()
	if errors.Is(err, goredis.Nil) {
		c.metrics.Misses.Inc()
		return 0, false, nil
	}
	if err != nil {
		c.metrics.Errors.WithLabelValues("get").Inc()
		return 0, false, fmt.Errorf("failed to read cached count: %w", err)
	}
	c.metrics.Hits.Inc()
	return count, true, nil
}

func (c *CountCache) Set(ctx context.Context, day string, count int64) error {
	if err := c.rdb.Set(ctx, countKey(day), count, c.ttl).Err(); err != nil {
		c.metrics.Errors.WithLabelValues("set").Inc()
		return fmt.Errorf("failed to cache count: %w", err)
	}
	return nil
}

func (c *CountCache) Invalidate(ctx context.Context, day string) error {
	if err := c.rdb.Del(ctx, countKey(day)).Err(); err != nil {
		c.metrics.Errors.WithLabelValues("invalidate").Inc()
		return fmt.Errorf("failed to invalidate cached count: %w", err)
	}
	c.metrics.Invalidations.Inc()
	return nil
}
