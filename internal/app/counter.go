package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/refty/hamcounter/internal/domain"
)

const countQueryTimeout = 10 * time.Second

// DailyCounter answers "how many runs started today" in a fixed timezone.
// Results go through an optional cache, and concurrent misses for the same
// day share one database query. Every Invalidate starts a new generation: a
// query begun in an older generation is never joined by later callers and
// never writes its result to the cache.
type DailyCounter struct {
	runs       domain.RunRepository
	cache      domain.CountCache
	loc        *time.Location
	clock      clockwork.Clock
	group      singleflight.Group
	generation atomic.Uint64
}

var _ domain.TodayCounter = (*DailyCounter)(nil)

// NewDailyCounter accepts a nil cache.
func NewDailyCounter(runs domain.RunRepository, cache domain.CountCache, loc *time.Location, clock clockwork.Clock) *DailyCounter {
	if cache == nil {
		cache = noopCache{}
	}
	return &DailyCounter{runs: runs, cache: cache, loc: loc, clock: clock}
}

// Bounds returns the start of today and the start of tomorrow in UTC.
func (c *DailyCounter) Bounds() (time.Time, time.Time) {
	return domain.DayBounds(c.clock.Now(), c.loc)
}

func (c *DailyCounter) TodayCount(ctx context.Context) (int64, error) {
	now := c.clock.Now()
	day := domain.DayKey(now, c.loc)

	if count, ok, err := c.cache.Get(ctx, day); err != nil {
		slog.WarnContext(ctx, "Count cache read failed, querying database", "day", day, "error", err)
	} else if ok {
		return count, nil
	}

	gen := c.generation.Load()
	key := day + "#" + strconv.FormatUint(gen, 10)
	ch := c.group.DoChan(key, func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), countQueryTimeout)
		defer cancel()
		return c.query(qctx, now, day, gen)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return 0, res.Err
		}
		return res.Val.(int64), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (c *DailyCounter) query(ctx context.Context, now time.Time, day string, gen uint64) (int64, error) {
	start, end := domain.DayBounds(now, c.loc)
	count, err := c.runs.CountRunsBetween(ctx, start, domain.LastInstant(end))
	if err != nil {
		return 0, fmt.Errorf("count today's runs: %w", err)
	}

	if c.generation.Load() != gen {
		return count, nil
	}
	if err := c.cache.Set(ctx, day, count); err != nil {
		slog.WarnContext(ctx, "Count cache write failed", "day", day, "error", err)
		return count, nil
	}
	// An insert landed while the value was being written.
	if c.generation.Load() != gen {
		if err := c.cache.Invalidate(ctx, day); err != nil {
			slog.WarnContext(ctx, "Count cache invalidation failed", "day", day, "error", err)
		}
	}
	return count, nil
}

// Invalidate drops the cached count for the day containing at.
func (c *DailyCounter) Invalidate(ctx context.Context, at time.Time) {
	day := domain.DayKey(at, c.loc)
	c.generation.Add(1)
	if err := c.cache.Invalidate(ctx, day); err != nil {
		slog.WarnContext(ctx, "Count cache invalidation failed", "day", day, "error", err)
	}
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (int64, bool, error) { return 0, false, nil }
func (noopCache) Set(context.Context, string, int64) error         { return nil }
func (noopCache) Invalidate(context.Context, string) error         { return nil }
