package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/refty/hamcounter/internal/domain"
)

// Service is the application layer used by the request gateway.
type Service struct {
	runs    domain.RunRepository
	sprints domain.SprintRepository
	counter *DailyCounter
	clock   clockwork.Clock
}

func NewService(runs domain.RunRepository, sprints domain.SprintRepository, counter *DailyCounter, clock clockwork.Clock) *Service {
	return &Service{
		runs:    runs,
		sprints: sprints,
		counter: counter,
		clock:   clock,
	}
}

// RecordRun stores a rotation. The server assigns the ID.
func (s *Service) RecordRun(ctx context.Context, run domain.Run) (domain.Run, error) {
	if run.To.Before(run.From) {
		return domain.Run{}, domain.ErrInvalidRange
	}
	run.ID = uuid.New()
	run.From = run.From.UTC()
	run.To = run.To.UTC()

	stored, err := s.runs.InsertRun(ctx, run)
	if err != nil {
		return domain.Run{}, err
	}
	slog.DebugContext(ctx, "Run recorded", "run_id", stored.ID, "speed", stored.Speed)
	return stored, nil
}

// RecordSprint stores a sprint summary.
func (s *Service) RecordSprint(ctx context.Context, sprint domain.Sprint) (domain.Sprint, error) {
	if sprint.To.Before(sprint.From) {
		return domain.Sprint{}, domain.ErrInvalidRange
	}
	sprint.ID = uuid.New()
	sprint.From = sprint.From.UTC()
	sprint.To = sprint.To.UTC()

	stored, err := s.sprints.InsertSprint(ctx, sprint)
	if err != nil {
		return domain.Sprint{}, err
	}
	slog.DebugContext(ctx, "Sprint recorded", "sprint_id", stored.ID, "count", stored.Count)
	return stored, nil
}

// CountRuns counts runs whose start lies in [from, to].
func (s *Service) CountRuns(ctx context.Context, from, to time.Time) (int64, error) {
	if to.Before(from) {
		return 0, domain.ErrInvalidRange
	}
	count, err := s.runs.CountRunsBetween(ctx, from.UTC(), to.UTC())
	if err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return count, nil
}

// DayCount is today's count together with the day's UTC bounds.
type DayCount struct {
	Count int64     `json:"count"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
}

func (s *Service) Today(ctx context.Context) (DayCount, error) {
	start, end := s.counter.Bounds()
	count, err := s.counter.TodayCount(ctx)
	if err != nil {
		return DayCount{}, err
	}
	return DayCount{Count: count, From: start, To: end}, nil
}
