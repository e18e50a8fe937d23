package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/studyhall-hq/studyhall/internal/domain"
	"github.com/studyhall-hq/studyhall/internal/metrics"
	"github.com/studyhall-hq/studyhall/internal/telemetry"
)

const (
	// DefaultSearchThreshold is the minimum cosine similarity applied when
	// the request does not set one.
	DefaultSearchThreshold = 0.3
	// DefaultSearchLimit is the result count applied when the request does
	// not set one.
	DefaultSearchLimit = 4
	// MaxSearchLimit caps the result count a single request may ask for.
	MaxSearchLimit = 50

	// maxResultContentChars bounds the chunk text returned per result.
	maxResultContentChars = 800
)

// Visibility scopes a query to the chunks an identity may read. Unrestricted
// is set for service identities and disables scoping entirely.
type Visibility struct {
	TenantID     string
	Course       *string
	Unrestricted bool
}

// SearchInput carries one similarity search request.
type SearchInput struct {
	Query     string
	Embedding []float32
	Threshold *float64
	Limit     int
	Course    *string
}

// SearchResult is one matched chunk with its similarity score.
type SearchResult struct {
	ID         string
	Content    string
	Similarity float64
	CourseTag  *string
	FileName   string
	FileKind   domain.FileKind
	IsGlobal   bool
}

// SearchRepositoryInterface defines the repository interface for similarity
// queries.
type SearchRepositoryInterface interface {
	SearchByEmbedding(ctx context.Context, embedding []float32, vis Visibility, threshold float64, limit int) ([]*SearchResult, error)
}

// SearchTenantRepository resolves the tenant behind an authenticated identity.
type SearchTenantRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
}

// EmbeddingServiceInterface defines the interface for embedding generation.
type EmbeddingServiceInterface interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// SearchService answers similarity searches over document chunks.
type SearchService struct {
	repo      SearchRepositoryInterface
	tenants   SearchTenantRepository
	embedding EmbeddingServiceInterface
	logs      SearchLogRepository
}

// NewSearchService creates a new SearchService instance.
func NewSearchService(
	repo SearchRepositoryInterface,
	tenants SearchTenantRepository,
	embedding EmbeddingServiceInterface,
) *SearchService {
	return &SearchService{
		repo:      repo,
		tenants:   tenants,
		embedding: embedding,
	}
}

// NewSearchServiceWithLog additionally records every executed search.
func NewSearchServiceWithLog(
	repo SearchRepositoryInterface,
	tenants SearchTenantRepository,
	embedding EmbeddingServiceInterface,
	logs SearchLogRepository,
) *SearchService {
	return &SearchService{
		repo:      repo,
		tenants:   tenants,
		embedding: embedding,
		logs:      logs,
	}
}

// Search returns the chunks visible to the caller whose similarity to the
// query exceeds the threshold, best match first.
//
// Anonymous callers are rejected before any query runs. A tenant sees its own
// chunks, global chunks tagged with its effective course, and untagged global
// chunks; the effective course is the explicit Course filter when set,
// otherwise the tenant's own course. Service identities search everything.
func (s *SearchService) Search(ctx context.Context, identity domain.Identity, input SearchInput) ([]*SearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		TenantID:  identity.TenantID,
		Operation: "search",
	})
	defer span.End()

	if identity.IsAnonymous() {
		return nil, domain.ErrAuthenticationRequired
	}

	vis := Visibility{Unrestricted: identity.IsService()}
	if !vis.Unrestricted {
		tenant, err := s.tenants.GetByID(ctx, identity.TenantID)
		if err != nil {
			return nil, err
		}
		vis.TenantID = tenant.ID
		vis.Course = input.Course
		if vis.Course == nil {
			vis.Course = tenant.CourseTag
		}
	}

	threshold := DefaultSearchThreshold
	if input.Threshold != nil {
		threshold = *input.Threshold
	}
	if threshold < -1 || threshold > 1 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "similarity threshold must be between -1 and 1")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	embedding := input.Embedding
	if len(embedding) == 0 {
		if strings.TrimSpace(input.Query) == "" {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, "query text or embedding is required")
		}
		var err error
		embedding, err = s.embedding.GenerateEmbedding(ctx, input.Query)
		if err != nil {
			span.SetError(err)
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingFailure, "failed to embed search query", err)
		}
	}

	start := time.Now()
	results, err := s.repo.SearchByEmbedding(ctx, embedding, vis, threshold, limit)
	if err != nil {
		return nil, err
	}
	metrics.SearchesTotal.Inc()

	for _, res := range results {
		res.Content = truncateContent(res.Content, maxResultContentChars)
	}

	s.recordSearchLog(ctx, identity, vis, input, threshold, limit, len(results), time.Since(start))

	return results, nil
}

func (s *SearchService) recordSearchLog(ctx context.Context, identity domain.Identity, vis Visibility, input SearchInput, threshold float64, limit, count int, elapsed time.Duration) {
	if s.logs == nil {
		return
	}

	entry := SearchLogEntry{
		CourseTag:   vis.Course,
		QueryLength: len(input.Query),
		Threshold:   threshold,
		ResultLimit: limit,
		ResultCount: count,
		DurationMs:  elapsed.Milliseconds(),
	}
	if !identity.IsService() {
		tenantID := identity.TenantID
		entry.TenantID = &tenantID
	}

	if _, err := s.logs.CreateSearchLog(ctx, entry); err != nil {
		log.Printf("failed to record search log: %v", err)
	}
}

// truncateContent bounds text to max runes without splitting a rune.
func truncateContent(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
