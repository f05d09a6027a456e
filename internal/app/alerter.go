package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/refty/hamcounter/internal/adapter/metrics"
	"github.com/refty/hamcounter/internal/domain"
)

const alertText = "ハムが走っています！！\n ハムの様子を見に行きましょう！\n"

// Alert outcomes recorded in metrics.
const (
	outcomeSent     = "sent"
	outcomeRecent   = "recent"
	outcomeFirstRun = "first_run"
	outcomeDisabled = "disabled"
	outcomeFailed   = "failed"
)

// Alerter notifies when the wheel starts turning again after a quiet gap.
type Alerter struct {
	runs     domain.RunRepository
	notifier domain.Notifier
	clock    clockwork.Clock
	gap      time.Duration
	message  string
	metrics  *metrics.AlertMetrics
}

type AlerterConfig struct {
	Runs         domain.RunRepository
	Notifier     domain.Notifier
	Clock        clockwork.Clock
	Gap          time.Duration
	DashboardURL string
	Metrics      *metrics.AlertMetrics
}

func NewAlerter(cfg AlerterConfig) *Alerter {
	return &Alerter{
		runs:     cfg.Runs,
		notifier: cfg.Notifier,
		clock:    cfg.Clock,
		gap:      cfg.Gap,
		message:  alertText + cfg.DashboardURL,
		metrics:  cfg.Metrics,
	}
}

// Check runs after each insert. It looks at the run before the newest one and
// sends a single notification if that run ended at least gap ago. Delivery is
// attempted once.
func (a *Alerter) Check(ctx context.Context) error {
	previous, err := a.runs.PreviousRun(ctx)
	if errors.Is(err, domain.ErrRunNotFound) {
		a.record(outcomeFirstRun)
		return nil
	}
	if err != nil {
		a.record(outcomeFailed)
		return fmt.Errorf("load previous run: %w", err)
	}

	idle := a.clock.Now().Sub(previous.To)
	if idle < a.gap {
		a.record(outcomeRecent)
		return nil
	}

	err = a.notifier.Notify(ctx, a.message)
	switch {
	case errors.Is(err, domain.ErrAlertsDisabled):
		a.record(outcomeDisabled)
		return nil
	case err != nil:
		a.record(outcomeFailed)
		a.metrics.Failed.Inc()
		return fmt.Errorf("send alert: %w", err)
	}

	a.record(outcomeSent)
	a.metrics.Sent.Inc()
	slog.InfoContext(ctx, "Activity alert sent", "idle", idle.Round(time.Second))
	return nil
}

func (a *Alerter) record(outcome string) {
	a.metrics.Evaluations.WithLabelValues(outcome).Inc()
}
