package wheel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/refty/hamcounter/internal/domain"
)

const (
	DefaultPollInterval = time.Millisecond
	submitQueueSize     = 64
)

// Sampler reads the photo reflector: 1 while the wheel reflects, 0 while the
// magnet passes.
type Sampler interface {
	Sample() (int, error)
}

// Sink receives completed runs and sprints.
type Sink interface {
	SubmitRun(ctx context.Context, run domain.Run) error
	SubmitSprint(ctx context.Context, sprint domain.Sprint) error
}

type MonitorConfig struct {
	Sampler      Sampler
	Sink         Sink
	Clock        clockwork.Clock
	PollInterval time.Duration
	Tracker      *Tracker
	Sprints      *SprintBuilder // optional
}

// Monitor polls a sampler, feeds the tracker and submits what it produces.
// Submissions happen on a separate goroutine so a slow server never delays
// sampling; when the queue is full the submission is dropped.
type Monitor struct {
	sampler  Sampler
	sink     Sink
	clock    clockwork.Clock
	interval time.Duration
	tracker  *Tracker
	sprints  *SprintBuilder
	queue    chan func(context.Context) error
}

func NewMonitor(cfg MonitorConfig) *Monitor {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		sampler:  cfg.Sampler,
		sink:     cfg.Sink,
		clock:    cfg.Clock,
		interval: interval,
		tracker:  cfg.Tracker,
		sprints:  cfg.Sprints,
		queue:    make(chan func(context.Context) error, submitQueueSize),
	}
}

// Run samples until ctx is cancelled, then drains queued submissions.
func (m *Monitor) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.submitLoop()
	}()
	defer func() {
		close(m.queue)
		wg.Wait()
	}()

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.flushSprint(m.clock.Now().Add(m.breakGap()))
			return nil
		case <-ticker.Chan():
			if err := m.poll(); err != nil {
				return err
			}
		}
	}
}

func (m *Monitor) poll() error {
	state, err := m.sampler.Sample()
	if err != nil {
		return fmt.Errorf("read sensor: %w", err)
	}
	now := m.clock.Now()

	if run, ok := m.tracker.Observe(state, now); ok {
		slog.Debug("Rotation", "seconds", run.Seconds, "speed", run.Speed)
		m.enqueue("run", func(ctx context.Context) error { return m.sink.SubmitRun(ctx, run) })
		if m.sprints != nil {
			if sprint, ok := m.sprints.Add(run); ok {
				m.enqueueSprint(sprint)
			}
		}
	}
	m.flushSprint(now)
	return nil
}

func (m *Monitor) flushSprint(now time.Time) {
	if m.sprints == nil {
		return
	}
	if sprint, ok := m.sprints.Flush(now); ok {
		m.enqueueSprint(sprint)
	}
}

func (m *Monitor) breakGap() time.Duration {
	if m.sprints == nil {
		return 0
	}
	return m.sprints.gap
}

func (m *Monitor) enqueueSprint(sprint domain.Sprint) {
	slog.Info("Sprint finished", "count", sprint.Count, "average_speed", sprint.AverageSpeed)
	m.enqueue("sprint", func(ctx context.Context) error { return m.sink.SubmitSprint(ctx, sprint) })
}

func (m *Monitor) enqueue(kind string, submit func(context.Context) error) {
	select {
	case m.queue <- submit:
	default:
		slog.Warn("Submission queue full, dropping", "kind", kind)
	}
}

func (m *Monitor) submitLoop() {
	for submit := range m.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := submit(ctx); err != nil {
			slog.Error("Failed to submit", "error", err)
		}
		cancel()
	}
}
