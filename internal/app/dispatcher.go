package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/refty/hamcounter/internal/adapter/metrics"
	"github.com/refty/hamcounter/internal/domain"
	"github.com/refty/hamcounter/internal/platform/correlation"
)

const alertTimeout = 15 * time.Second

// Dispatcher reacts to each inserted run: it drops the cached count for the
// run's day, hands the run to the realtime gateway and starts the alert check.
type Dispatcher struct {
	counter   *DailyCounter
	publisher domain.RunPublisher
	alerter   *Alerter
	clock     clockwork.Clock
	metrics   *metrics.FeedMetrics

	alerts sync.WaitGroup
}

// NewDispatcher accepts a nil alerter.
func NewDispatcher(counter *DailyCounter, publisher domain.RunPublisher, alerter *Alerter, clock clockwork.Clock, m *metrics.FeedMetrics) *Dispatcher {
	return &Dispatcher{
		counter:   counter,
		publisher: publisher,
		alerter:   alerter,
		clock:     clock,
		metrics:   m,
	}
}

// Run consumes feed until it closes or ctx is cancelled, then waits for
// in-flight alert checks.
func (d *Dispatcher) Run(ctx context.Context, feed domain.RunFeed) error {
	defer d.alerts.Wait()

	runs := feed.Runs()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case run, ok := <-runs:
			if !ok {
				return domain.ErrFeedClosed
			}
			d.Dispatch(ctx, run)
		}
	}
}

// Dispatch handles one inserted run.
func (d *Dispatcher) Dispatch(ctx context.Context, run domain.Run) {
	ctx, _ = correlation.Ensure(ctx)
	start := d.clock.Now()

	d.counter.Invalidate(ctx, run.From)
	d.publisher.PublishRun(run)

	d.metrics.DispatchDuration.Observe(d.clock.Since(start).Seconds())
	slog.DebugContext(ctx, "Run dispatched", "run_id", run.ID)

	if d.alerter == nil {
		return
	}
	d.alerts.Add(1)
	go func() {
		defer d.alerts.Done()
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
		defer cancel()
		if err := d.alerter.Check(actx); err != nil {
			slog.ErrorContext(actx, "Activity alert failed", "run_id", run.ID, "error", err)
		}
	}()
}

// Wait blocks until every started alert check has finished.
func (d *Dispatcher) Wait() {
	d.alerts.Wait()
}
