// Package openai generates embeddings through the OpenAI API.
package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	// DefaultEmbeddingModel is the model used when none is configured.
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions matches the output width of text-embedding-3-small.
	DefaultEmbeddingDimensions = 1536
)

// Sustained request rate and burst allowed against the embeddings endpoint
// when no rate is configured. Bulk ingestion fires one request per chunk,
// which trips account limits without a local throttle.
const (
	defaultRequestsPerSecond = 10
	requestBurst             = 30
)

// ErrEmptyText is returned when there is no content to embed.
var ErrEmptyText = errors.New("text cannot be empty")

// embeddingsAPI is the slice of the OpenAI client this package calls.
// Tests swap in a mock.
type embeddingsAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Client generates embeddings and validates their width before anything
// reaches the database.
type Client struct {
	api        embeddingsAPI
	model      openai.EmbeddingModel
	limiter    *rate.Limiter
	dimensions int
}

// Config selects the credentials, model, expected vector width, and the
// sustained request rate against the embeddings endpoint.
type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	RequestsPerSecond   float64
}

// EmbeddingModelFromName maps a configured model name onto the API's model
// type. An empty name selects the default model.
func EmbeddingModelFromName(name string) openai.EmbeddingModel {
	return openai.EmbeddingModel(name)
}

// NewClient creates a client with the default model and dimensions.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	return &Client{
		api:        openai.NewClient(cfg.APIKey),
		model:      model,
		limiter:    rate.NewLimiter(rate.Limit(rps), requestBurst),
		dimensions: dimensions,
	}
}

// GenerateEmbedding embeds a single text.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	embedding := resp.Data[0].Embedding
	if len(embedding) != c.dimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(embedding), c.dimensions)
	}

	return embedding, nil
}
