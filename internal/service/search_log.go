package service

import "context"

// SearchLogEntry captures an executed search and its outcome.
type SearchLogEntry struct {
	TenantID    *string
	CourseTag   *string
	QueryLength int
	Threshold   float64
	ResultLimit int
	ResultCount int
	DurationMs  int64
}

// SearchLogRepository persists search logs.
type SearchLogRepository interface {
	CreateSearchLog(ctx context.Context, entry SearchLogEntry) (string, error)
}
