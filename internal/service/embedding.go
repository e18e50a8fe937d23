package service

import (
	"context"
	"fmt"

	"github.com/studyhall-hq/studyhall/internal/metrics"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingChunkRepository defines the repository interface for embedding backfill
type EmbeddingChunkRepository interface {
	GetByID(ctx context.Context, id string) (*ChunkRecord, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// EmbeddingService re-embeds chunks whose embedding call failed during
// ingestion. It is driven by the background worker.
type EmbeddingService struct {
	client EmbeddingClient
	chunks EmbeddingChunkRepository
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient, chunks EmbeddingChunkRepository) *EmbeddingService {
	return &EmbeddingService{
		client: client,
		chunks: chunks,
	}
}

// EmbedChunk generates and stores the embedding for a stored chunk.
// This method is called by the background worker.
func (s *EmbeddingService) EmbedChunk(ctx context.Context, chunkID string) error {
	chunk, err := s.chunks.GetByID(ctx, chunkID)
	if err != nil {
		return err
	}

	embedding, err := s.client.GenerateEmbedding(ctx, chunk.Content)
	if err != nil {
		metrics.EmbeddingFailuresTotal.Inc()
		return fmt.Errorf("failed to generate embedding: %w", err)
	}

	if err := s.chunks.UpdateEmbedding(ctx, chunkID, embedding); err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}

	return nil
}
