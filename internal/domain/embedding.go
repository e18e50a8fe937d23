package domain

import (
	"fmt"
	"time"
)

// EmbeddingJobStatus tracks a retry job through its lifecycle.
type EmbeddingJobStatus string

const (
	EmbeddingJobStatusPending    EmbeddingJobStatus = "pending"
	EmbeddingJobStatusProcessing EmbeddingJobStatus = "processing"
	EmbeddingJobStatusCompleted  EmbeddingJobStatus = "completed"
	EmbeddingJobStatusFailed     EmbeddingJobStatus = "failed"
)

// valid reports whether s is one of the lifecycle states above.
func (s EmbeddingJobStatus) valid() bool {
	switch s {
	case EmbeddingJobStatusPending, EmbeddingJobStatusProcessing,
		EmbeddingJobStatusCompleted, EmbeddingJobStatusFailed:
		return true
	default:
		return false
	}
}

// EmbeddingJob queues a chunk whose embedding call failed during ingestion.
// Until the job completes the chunk stays vectorless and is invisible to
// search.
type EmbeddingJob struct {
	ID          string
	ChunkID     string
	Status      EmbeddingJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewEmbeddingJob returns a pending job for chunkID.
func NewEmbeddingJob(id, chunkID string, createdAt time.Time) *EmbeddingJob {
	return &EmbeddingJob{
		ID:        id,
		ChunkID:   chunkID,
		Status:    EmbeddingJobStatusPending,
		CreatedAt: createdAt,
	}
}

// ValidateEmbeddingJob rejects jobs that could not be stored or processed.
func ValidateEmbeddingJob(j *EmbeddingJob) error {
	switch {
	case j == nil:
		return fmt.Errorf("embedding job cannot be nil")
	case j.ID == "":
		return fmt.Errorf("embedding job ID is required")
	case j.ChunkID == "":
		return fmt.Errorf("embedding job ChunkID is required")
	case !j.Status.valid():
		return fmt.Errorf("embedding job Status is invalid: %s", j.Status)
	case j.Retries < 0:
		return fmt.Errorf("embedding job Retries cannot be negative")
	}
	return nil
}
