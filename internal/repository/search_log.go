package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studyhall-hq/studyhall/internal/service"
)

// SearchLogRepository records executed searches for tuning threshold and
// limit defaults.
type SearchLogRepository struct {
	db dbtx
}

func NewSearchLogRepository(pool *pgxpool.Pool) *SearchLogRepository {
	return &SearchLogRepository{db: pool}
}

func (r *SearchLogRepository) CreateSearchLog(ctx context.Context, entry service.SearchLogEntry) (string, error) {
	var id string
	err := r.db.QueryRow(ctx,
		`INSERT INTO search_logs (tenant_id, course_tag, query_length, threshold, result_limit, result_count, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		entry.TenantID,
		entry.CourseTag,
		entry.QueryLength,
		entry.Threshold,
		entry.ResultLimit,
		entry.ResultCount,
		entry.DurationMs,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
