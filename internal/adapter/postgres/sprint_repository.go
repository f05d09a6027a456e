package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/refty/hamcounter/internal/domain"
)

const insertSprintSQL = `
INSERT INTO sprints (id, started_at, ended_at, count, average_speed)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, started_at, ended_at, count, average_speed, created_at`

type SprintRepo struct {
	pool *pgxpool.Pool
}

var _ domain.SprintRepository = (*SprintRepo)(nil)

func NewSprintRepo(pool *pgxpool.Pool) *SprintRepo {
	return &SprintRepo{pool: pool}
}

func (r *SprintRepo) InsertSprint(ctx context.Context, s domain.Sprint) (domain.Sprint, error) {
	var stored domain.Sprint
	err := r.pool.QueryRow(ctx, insertSprintSQL, s.ID, s.From, s.To, s.Count, s.AverageSpeed).
		Scan(&stored.ID, &stored.From, &stored.To, &stored.Count, &stored.AverageSpeed, &stored.CreatedAt)
	if err != nil {
		return domain.Sprint{}, fmt.Errorf("failed to insert sprint: %w", err)
	}
	return stored, nil
}
