package domain

import (
	"context"
	"time"
)

type RunRepository interface {
	InsertRun(ctx context.Context, run Run) (Run, error)
	// CountRunsBetween counts runs with from <= run.From <= to.
	CountRunsBetween(ctx context.Context, from, to time.Time) (int64, error)
	// PreviousRun returns the second most recent run ordered by To, or
	// ErrRunNotFound when fewer than two runs exist.
	PreviousRun(ctx context.Context) (Run, error)
}

type SprintRepository interface {
	InsertSprint(ctx context.Context, sprint Sprint) (Sprint, error)
}

// RunFeed delivers runs as they are inserted.
type RunFeed interface {
	Runs() <-chan Run
}

// CountCache memoises the run count for a local calendar day.
type CountCache interface {
	Get(ctx context.Context, day string) (int64, bool, error)
	Set(ctx context.Context, day string, count int64) error
	Invalidate(ctx context.Context, day string) error
}

// TodayCounter computes the running total for the current local day.
type TodayCounter interface {
	TodayCount(ctx context.Context) (int64, error)
}

// RunPublisher fans inserted runs out to realtime subscribers.
type RunPublisher interface {
	PublishRun(run Run)
}

// Notifier sends the inactivity alert to an external channel.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}
