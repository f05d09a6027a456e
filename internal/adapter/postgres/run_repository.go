package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/refty/hamcounter/internal/domain"
)

const (
	insertRunSQL = `
INSERT INTO runs (id, started_at, ended_at, seconds, speed)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, started_at, ended_at, seconds, speed, created_at`

	countRunsSQL = `
SELECT count(*) FROM runs WHERE started_at >= $1 AND started_at <= $2`

	previousRunSQL = `
SELECT id, started_at, ended_at, seconds, speed, created_at
FROM runs
ORDER BY ended_at DESC, created_at DESC
OFFSET 1 LIMIT 1`
)

type RunRepo struct {
	pool *pgxpool.Pool
}

var _ domain.RunRepository = (*RunRepo)(nil)

func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

func scanRun(row pgx.Row) (domain.Run, error) {
	var run domain.Run
	err := row.Scan(&run.ID, &run.From, &run.To, &run.Seconds, &run.Speed, &run.CreatedAt)
	return run, err
}

func (r *RunRepo) InsertRun(ctx context.Context, run domain.Run) (domain.Run, error) {
	row := r.pool.QueryRow(ctx, insertRunSQL, run.ID, run.From, run.To, run.Seconds, run.Speed)
	stored, err := scanRun(row)
	if err != nil {
		return domain.Run{}, fmt.Errorf("failed to insert run: %w", err)
	}
	return stored, nil
}

func (r *RunRepo) CountRunsBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, countRunsSQL, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

func (r *RunRepo) PreviousRun(ctx context.Context) (domain.Run, error) {
	run, err := scanRun(r.pool.QueryRow(ctx, previousRunSQL))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Run{}, domain.ErrRunNotFound
	}
	if err != nil {
		return domain.Run{}, fmt.Errorf("failed to get previous run: %w", err)
	}
	return run, nil
}
