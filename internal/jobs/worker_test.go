package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/studyhall-hq/studyhall/internal/domain"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockEmbeddingJobRepository struct {
	mock.Mock
}

func (m *MockEmbeddingJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.EmbeddingJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EmbeddingJob), args.Error(1)
}

func (m *MockEmbeddingJobRepository) UpdateStatus(ctx context.Context, id string, status domain.EmbeddingJobStatus, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *MockEmbeddingJobRepository) IncrementRetries(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockChunkEmbedder struct {
	mock.Mock
}

func (m *MockChunkEmbedder) EmbedChunk(ctx context.Context, chunkID string) error {
	args := m.Called(ctx, chunkID)
	return args.Error(0)
}

func TestWorker(t *testing.T) {
	t.Run("polls immediately on start", func(t *testing.T) {
		processor := new(MockJobProcessor)
		polled := make(chan struct{})
		processor.On("ProcessJobs", mock.Anything).Run(func(mock.Arguments) {
			close(polled)
		}).Return(nil).Once()

		// An hour-long interval means only the startup poll can fire.
		worker := NewWorker(processor, time.Hour)
		go worker.Start(context.Background())

		select {
		case <-polled:
		case <-time.After(2 * time.Second):
			t.Fatal("worker did not poll on start")
		}
		worker.Stop()
	})

	t.Run("polls until stopped", func(t *testing.T) {
		var polls atomic.Int32
		processor := new(MockJobProcessor)
		processor.On("ProcessJobs", mock.Anything).Run(func(mock.Arguments) {
			polls.Add(1)
		}).Return(nil)

		worker := NewWorker(processor, 20*time.Millisecond)
		go worker.Start(context.Background())

		time.Sleep(110 * time.Millisecond)
		worker.Stop()

		count := polls.Load()
		assert.GreaterOrEqual(t, count, int32(3))

		// No further polls once Stop has returned.
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, count, polls.Load())
	})

	t.Run("stops on context cancellation", func(t *testing.T) {
		processor := new(MockJobProcessor)
		processor.On("ProcessJobs", mock.Anything).Return(nil)

		ctx, cancel := context.WithCancel(context.Background())
		worker := NewWorker(processor, 20*time.Millisecond)

		exited := make(chan struct{})
		go func() {
			worker.Start(ctx)
			close(exited)
		}()

		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case <-exited:
		case <-time.After(2 * time.Second):
			t.Fatal("worker did not exit after context cancellation")
		}
		processor.AssertCalled(t, "ProcessJobs", mock.Anything)
	})

	t.Run("stop is safe to call twice", func(t *testing.T) {
		processor := new(MockJobProcessor)
		processor.On("ProcessJobs", mock.Anything).Return(nil)

		worker := NewWorker(processor, time.Hour)
		go worker.Start(context.Background())

		worker.Stop()
		worker.Stop()
	})
}

func TestEmbeddingWorker_ProcessJobs(t *testing.T) {
	t.Run("does nothing when the queue is empty", func(t *testing.T) {
		repo := new(MockEmbeddingJobRepository)
		embedder := new(MockChunkEmbedder)
		repo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.EmbeddingJob{}, nil)

		worker := NewEmbeddingWorker(repo, embedder)
		assert.NoError(t, worker.ProcessJobs(context.Background()))

		repo.AssertExpectations(t)
		embedder.AssertNotCalled(t, "EmbedChunk", mock.Anything, mock.Anything)
	})

	t.Run("completes a claimed job", func(t *testing.T) {
		repo := new(MockEmbeddingJobRepository)
		embedder := new(MockChunkEmbedder)
		job := &domain.EmbeddingJob{ID: "job-1", ChunkID: "chunk-1", Status: domain.EmbeddingJobStatusProcessing}

		repo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.EmbeddingJob{job}, nil)
		embedder.On("EmbedChunk", mock.Anything, "chunk-1").Return(nil)
		repo.On("UpdateStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusCompleted, "").Return(nil)

		worker := NewEmbeddingWorker(repo, embedder)
		assert.NoError(t, worker.ProcessJobs(context.Background()))

		repo.AssertExpectations(t)
		embedder.AssertExpectations(t)
	})

	t.Run("requeues a failed job below the retry cap", func(t *testing.T) {
		repo := new(MockEmbeddingJobRepository)
		embedder := new(MockChunkEmbedder)
		job := &domain.EmbeddingJob{ID: "job-1", ChunkID: "chunk-1", Status: domain.EmbeddingJobStatusProcessing}

		repo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.EmbeddingJob{job}, nil)
		embedder.On("EmbedChunk", mock.Anything, "chunk-1").Return(errors.New("embedding failed"))
		repo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
		repo.On("UpdateStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusPending, mock.MatchedBy(func(msg string) bool {
			return msg != ""
		})).Return(nil)

		worker := NewEmbeddingWorker(repo, embedder)
		assert.NoError(t, worker.ProcessJobs(context.Background()))

		repo.AssertExpectations(t)
	})

	t.Run("fails a job that exhausts its retries", func(t *testing.T) {
		repo := new(MockEmbeddingJobRepository)
		embedder := new(MockChunkEmbedder)
		job := &domain.EmbeddingJob{ID: "job-1", ChunkID: "chunk-1", Status: domain.EmbeddingJobStatusProcessing, Retries: MaxRetries - 1}

		repo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.EmbeddingJob{job}, nil)
		embedder.On("EmbedChunk", mock.Anything, "chunk-1").Return(errors.New("embedding failed"))
		repo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
		repo.On("UpdateStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusFailed, mock.MatchedBy(func(msg string) bool {
			return msg != ""
		})).Return(nil)

		worker := NewEmbeddingWorker(repo, embedder)
		assert.NoError(t, worker.ProcessJobs(context.Background()))

		repo.AssertExpectations(t)
	})

	t.Run("keeps going when one job of a batch fails", func(t *testing.T) {
		repo := new(MockEmbeddingJobRepository)
		embedder := new(MockChunkEmbedder)
		batch := []*domain.EmbeddingJob{
			{ID: "job-1", ChunkID: "chunk-1", Status: domain.EmbeddingJobStatusProcessing},
			{ID: "job-2", ChunkID: "chunk-2", Status: domain.EmbeddingJobStatusProcessing},
		}

		repo.On("ClaimPending", mock.Anything, claimBatchSize).Return(batch, nil)
		embedder.On("EmbedChunk", mock.Anything, "chunk-1").Return(errors.New("embedding failed"))
		repo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
		repo.On("UpdateStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusPending, mock.Anything).Return(nil)
		embedder.On("EmbedChunk", mock.Anything, "chunk-2").Return(nil)
		repo.On("UpdateStatus", mock.Anything, "job-2", domain.EmbeddingJobStatusCompleted, "").Return(nil)

		worker := NewEmbeddingWorker(repo, embedder)
		assert.NoError(t, worker.ProcessJobs(context.Background()))

		repo.AssertExpectations(t)
		embedder.AssertExpectations(t)
	})

	t.Run("claim errors bubble up", func(t *testing.T) {
		repo := new(MockEmbeddingJobRepository)
		embedder := new(MockChunkEmbedder)
		repo.On("ClaimPending", mock.Anything, claimBatchSize).Return(nil, errors.New("database error"))

		worker := NewEmbeddingWorker(repo, embedder)
		err := worker.ProcessJobs(context.Background())

		assert.ErrorContains(t, err, "failed to claim pending jobs")
		repo.AssertExpectations(t)
	})

	t.Run("fails a job without a chunk reference outright", func(t *testing.T) {
		repo := new(MockEmbeddingJobRepository)
		embedder := new(MockChunkEmbedder)
		job := &domain.EmbeddingJob{ID: "job-1", Status: domain.EmbeddingJobStatusProcessing}

		repo.On("ClaimPending", mock.Anything, claimBatchSize).Return([]*domain.EmbeddingJob{job}, nil)
		repo.On("UpdateStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusFailed, "job has no chunk_id").Return(nil)

		worker := NewEmbeddingWorker(repo, embedder)
		assert.NoError(t, worker.ProcessJobs(context.Background()))

		repo.AssertExpectations(t)
		embedder.AssertNotCalled(t, "EmbedChunk", mock.Anything, mock.Anything)
	})
}
