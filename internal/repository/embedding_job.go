package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studyhall-hq/studyhall/internal/domain"
)

var ErrEmbeddingJobNotFound = errors.New("embedding job not found")

const embeddingJobColumns = "id, chunk_id, status, retries, error, created_at, processed_at"

// EmbeddingJobRepository persists the retry queue for failed embeddings.
type EmbeddingJobRepository struct {
	db dbtx
}

func NewEmbeddingJobRepository(pool *pgxpool.Pool) *EmbeddingJobRepository {
	return &EmbeddingJobRepository{db: pool}
}

// NewEmbeddingJobRepositoryWithTx binds the repository to an open
// transaction, so ingestion can enqueue retries atomically with its chunks.
func NewEmbeddingJobRepositoryWithTx(tx pgx.Tx) *EmbeddingJobRepository {
	return &EmbeddingJobRepository{db: tx}
}

// scanEmbeddingJob maps one row in embeddingJobColumns order.
func scanEmbeddingJob(row pgx.CollectableRow) (*domain.EmbeddingJob, error) {
	var job domain.EmbeddingJob
	var errMsg pgtype.Text
	if err := row.Scan(&job.ID, &job.ChunkID, &job.Status, &job.Retries, &errMsg, &job.CreatedAt, &job.ProcessedAt); err != nil {
		return nil, err
	}
	job.Error = errMsg.String
	return &job, nil
}

func (r *EmbeddingJobRepository) Create(ctx context.Context, job *domain.EmbeddingJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO embedding_jobs (`+embeddingJobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.ChunkID, job.Status, job.Retries, nullableString(job.Error), job.CreatedAt, job.ProcessedAt,
	)
	return err
}

func (r *EmbeddingJobRepository) GetByID(ctx context.Context, id string) (*domain.EmbeddingJob, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+embeddingJobColumns+` FROM embedding_jobs WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}

	job, err := pgx.CollectOneRow(rows, scanEmbeddingJob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmbeddingJobNotFound
	}
	return job, err
}

// GetPending lists pending jobs oldest-first without claiming them.
func (r *EmbeddingJobRepository) GetPending(ctx context.Context, limit int) ([]*domain.EmbeddingJob, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+embeddingJobColumns+`
		 FROM embedding_jobs
		 WHERE status = $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		domain.EmbeddingJobStatusPending, limit,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanEmbeddingJob)
}

// ClaimPending flips a batch of pending jobs to processing and returns them.
// SKIP LOCKED keeps concurrent workers off the same rows.
func (r *EmbeddingJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.EmbeddingJob, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`UPDATE embedding_jobs
		 SET status = $3, error = NULL, processed_at = NULL
		 WHERE id IN (
			 SELECT id FROM embedding_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 RETURNING `+embeddingJobColumns,
		domain.EmbeddingJobStatusPending, limit, domain.EmbeddingJobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanEmbeddingJob)
}

// UpdateStatus moves a job to status, stamping processed_at on the terminal
// states so the queue records when work finished.
func (r *EmbeddingJobRepository) UpdateStatus(ctx context.Context, id string, status domain.EmbeddingJobStatus, errMsg string) error {
	var processedAt *time.Time
	if status == domain.EmbeddingJobStatusCompleted || status == domain.EmbeddingJobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE embedding_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), processedAt, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmbeddingJobNotFound
	}
	return nil
}

func (r *EmbeddingJobRepository) IncrementRetries(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE embedding_jobs SET retries = retries + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEmbeddingJobNotFound
	}
	return nil
}
