package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/refty/hamcounter/internal/adapter/metrics"
	"github.com/refty/hamcounter/internal/domain"
)

type mockRunRepo struct {
	insertRunFn        func(ctx context.Context, run domain.Run) (domain.Run, error)
	countRunsBetweenFn func(ctx context.Context, from, to time.Time) (int64, error)
	previousRunFn      func(ctx context.Context) (domain.Run, error)
}

func (m *mockRunRepo) InsertRun(ctx context.Context, run domain.Run) (domain.Run, error) {
	if m.insertRunFn != nil {
		return m.insertRunFn(ctx, run)
	}
	return run, nil
}

func (m *mockRunRepo) CountRunsBetween(ctx context.Context, from, to time.Time) (int64, error) {
	if m.countRunsBetweenFn != nil {
		return m.countRunsBetweenFn(ctx, from, to)
	}
	return 0, errors.New("not implemented")
}

func (m *mockRunRepo) PreviousRun(ctx context.Context) (domain.Run, error) {
	if m.previousRunFn != nil {
		return m.previousRunFn(ctx)
	}
	return domain.Run{}, domain.ErrRunNotFound
}

type mockSprintRepo struct {
	insertSprintFn func(ctx context.Context, sprint domain.Sprint) (domain.Sprint, error)
}

func (m *mockSprintRepo) InsertSprint(ctx context.Context, sprint domain.Sprint) (domain.Sprint, error) {
	if m.insertSprintFn != nil {
		return m.insertSprintFn(ctx, sprint)
	}
	return sprint, nil
}

// memoryCache is a map-backed CountCache that records invalidations.
type memoryCache struct {
	mu          sync.Mutex
	values      map[string]int64
	invalidated []string
	getErr      error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: make(map[string]int64)}
}

func (c *memoryCache) Get(_ context.Context, day string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return 0, false, c.getErr
	}
	v, ok := c.values[day]
	return v, ok, nil
}

func (c *memoryCache) Set(_ context.Context, day string, count int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[day] = count
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, day string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, day)
	c.invalidated = append(c.invalidated, day)
	return nil
}

type mockPublisher struct {
	mu   sync.Mutex
	runs []domain.Run
}

func (p *mockPublisher) PublishRun(run domain.Run) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = append(p.runs, run)
}

func (p *mockPublisher) published() []domain.Run {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Run(nil), p.runs...)
}

type mockNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *mockNotifier) Notify(_ context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, message)
	return nil
}

func (n *mockNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type channelFeed chan domain.Run

func (f channelFeed) Runs() <-chan domain.Run { return f }

func newTestMetrics() *metrics.Set {
	return metrics.NewSet(prometheus.NewRegistry())
}

var tokyo = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		panic(err)
	}
	return loc
}()
