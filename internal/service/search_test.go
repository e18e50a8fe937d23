package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/studyhall-hq/studyhall/internal/domain"
)

// MockSearchRepository is a mock implementation of SearchRepositoryInterface
type MockSearchRepository struct {
	mock.Mock
}

func (m *MockSearchRepository) SearchByEmbedding(ctx context.Context, embedding []float32, vis Visibility, threshold float64, limit int) ([]*SearchResult, error) {
	args := m.Called(ctx, embedding, vis, threshold, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*SearchResult), args.Error(1)
}

// MockEmbeddingService is a mock implementation of EmbeddingServiceInterface
type MockEmbeddingService struct {
	mock.Mock
}

func (m *MockEmbeddingService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockSearchLogRepository is a mock implementation of SearchLogRepository
type MockSearchLogRepository struct {
	mock.Mock
}

func (m *MockSearchLogRepository) CreateSearchLog(ctx context.Context, entry SearchLogEntry) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

func TestSearchService_Search(t *testing.T) {
	ctx := context.Background()
	queryEmbedding := []float32{0.1, 0.2, 0.3}

	t.Run("returns visible chunks above the threshold, best match first", func(t *testing.T) {
		mockRepo := new(MockSearchRepository)
		mockTenants := new(MockTenantRepository)
		mockEmbedding := new(MockEmbeddingService)
		svc := NewSearchService(mockRepo, mockTenants, mockEmbedding)

		tenant := testTenant("tenant-1", "cs101")
		mockTenants.On("GetByID", mock.Anything, "tenant-1").Return(tenant, nil)
		mockEmbedding.On("GenerateEmbedding", mock.Anything, "what is a binary tree").Return(queryEmbedding, nil)

		// The repository applies the visibility union and threshold; over a
		// corpus of own chunks scoring 0.9, 0.75, 0.5, a course-matched
		// global at 0.8 and an off-course global at 0.6, a 0.7 threshold
		// leaves these three, ordered by similarity.
		matched := []*SearchResult{
			{ID: "own-1", Content: "own chunk", Similarity: 0.9, CourseTag: strPtr("cs101")},
			{ID: "global-1", Content: "course global", Similarity: 0.8, CourseTag: strPtr("cs101"), IsGlobal: true},
			{ID: "own-2", Content: "own chunk two", Similarity: 0.75, CourseTag: strPtr("cs101")},
		}
		threshold := 0.7
		mockRepo.On("SearchByEmbedding", mock.Anything, queryEmbedding, Visibility{TenantID: "tenant-1", Course: tenant.CourseTag}, 0.7, 10).Return(matched, nil)

		results, err := svc.Search(ctx, domain.TenantIdentity("tenant-1"), SearchInput{
			Query:     "what is a binary tree",
			Threshold: &threshold,
			Limit:     10,
		})

		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "own-1", results[0].ID)
		assert.Equal(t, "global-1", results[1].ID)
		assert.Equal(t, "own-2", results[2].ID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("rejects anonymous callers before any query", func(t *testing.T) {
		mockRepo := new(MockSearchRepository)
		mockTenants := new(MockTenantRepository)
		mockEmbedding := new(MockEmbeddingService)
		svc := NewSearchService(mockRepo, mockTenants, mockEmbedding)

		_, err := svc.Search(ctx, domain.Identity{}, SearchInput{Query: "anything"})

		assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
		mockRepo.AssertNotCalled(t, "SearchByEmbedding")
		mockEmbedding.AssertNotCalled(t, "GenerateEmbedding")
	})

	t.Run("service identity searches unrestricted", func(t *testing.T) {
		mockRepo := new(MockSearchRepository)
		mockTenants := new(MockTenantRepository)
		mockEmbedding := new(MockEmbeddingService)
		svc := NewSearchService(mockRepo, mockTenants, mockEmbedding)

		mockEmbedding.On("GenerateEmbedding", mock.Anything, "query").Return(queryEmbedding, nil)
		mockRepo.On("SearchByEmbedding", mock.Anything, queryEmbedding, Visibility{Unrestricted: true}, DefaultSearchThreshold, DefaultSearchLimit).Return([]*SearchResult{}, nil)

		_, err := svc.Search(ctx, domain.ServiceIdentity(), SearchInput{Query: "query"})

		require.NoError(t, err)
		mockTenants.AssertNotCalled(t, "GetByID")
		mockRepo.AssertExpectations(t)
	})

	t.Run("applies default threshold and limit", func(t *testing.T) {
		mockRepo := new(MockSearchRepository)
		mockTenants := new(MockTenantRepository)
		mockEmbedding := new(MockEmbeddingService)
		svc := NewSearchService(mockRepo, mockTenants, mockEmbedding)

		tenant := testTenant("tenant-1", "cs101")
		mockTenants.On("GetByID", mock.Anything, "tenant-1").Return(tenant, nil)
		mockEmbedding.On("GenerateEmbedding", mock.Anything, "query").Return(queryEmbedding, nil)
		mockRepo.On("SearchByEmbedding", mock.Anything, queryEmbedding, mock.Anything, DefaultSearchThreshold, DefaultSearchLimit).Return([]*SearchResult{}, nil)

		_, err := svc.Search(ctx, domain.TenantIdentity("tenant-1"), SearchInput{Query: "query"})

		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("caps the requested limit", func(t *testing.T) {
		mockRepo := new(MockSearchRepository)
		mockTenants := new(MockTenantRepository)
		mockEmbedding := new(MockEmbeddingService)
		svc := NewSearchService(mockRepo, mockTenants, mockEmbedding)

		tenant := testTenant("tenant-1", "cs101")
		mockTenants.On("GetByID", mock.Anything, "tenant-1").Return(tenant, nil)
		mockEmbedding.On("GenerateEmbedding", mock.Anything, "query").Return(queryEmbedding, nil)
		mockRepo.On("SearchByEmbedding", mock.Anything, queryEmbedding, mock.Anything, DefaultSearchThreshold, MaxSearchLimit).Return([]*SearchResult{}, nil)

		_, err := svc.Search(ctx, domain.TenantIdentity("tenant-1"), SearchInput{Query: "query", Limit: 500})

		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("rejects an out-of-range threshold", func(t *testing.T) {
		mockRepo := new(MockSearchRepository)
		mockTenants := new(MockTenantRepository)
		mockEmbedding := new(MockEmbeddingService)
		svc := NewSearchService(mockRepo, mockTenants, mockEmbedding)

		tenant := testTenant("tenant-1", "cs101")
		mockTenants.On("GetByID", mock.Anything, "tenant-1").Return(tenant, nil)

		threshold := 1.5
		_, err := svc.Search(ctx, domain.TenantIdentity("tenant-1"), SearchInput{Query: "query", Threshold: &threshold})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "threshold")
		mockRepo.AssertNotCalled(t, "SearchByEmbedding")
	})

	t.Run("rejects empty query without embedding", func(t *testing.T) {
		mockRepo := new(MockSearchRepository)
		mockTenants := new(MockTenantRepository)
		mockEmbedding := new(MockEmbeddingService)
		svc := NewSearchService(mockRepo, mockTenants, mockEmbedding)

		tenant := testTenant("tenant-1", "cs101")
		mockTenants.On("GetByID", mock.Anything, "tenant-1").Return(tenant, nil)

		_, err := svc.Search(ctx, domain.TenantIdentity("tenant-1"), SearchInput{Query: "   "})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "query text or embedding")
	})

	t.Run("uses a pre-computed embedding without calling the embedder", func(t *testing.T) {
		mockRepo := new(MockSearchRepository)
		mockTenants := new(MockTenantRepository)
		mockEmbedding := new(MockEmbeddingService)
		svc := NewSearchService(mockRepo, mockTenants, mockEmbedding)

		tenant := testTenant("tenant-1", "cs101")
		mockTenants.On("GetByID", mock.Anything, "tenant-1").Return(tenant, nil)
		mockRepo.On("SearchByEmbedding", mock.Anything, queryEmbedding, mock.Anything, DefaultSearchThreshold, DefaultSearchLimit).Return([]*SearchResult{}, nil)

		_, err := svc.Search(ctx, domain.TenantIdentity("tenant-1"), SearchInput{Embedding: queryEmbedding})

		require.NoError(t, err)
		mockEmbedding.AssertNotCalled(t, "GenerateEmbedding")
	})

	t.Run("wraps embedding failure as an embedding service error", func(t *testing.T) {
		mockRepo := new(MockSearchRepository)
		mockTenants := new(MockTenantRepository)
		mockEmbedding := new(MockEmbeddingService)
		svc := NewSearchService(mockRepo, mockTenants, mockEmbedding)

		tenant := testTenant("tenant-1", "cs101")
		mockTenants.On("GetByID", mock.Anything, "tenant-1").Return(tenant, nil)
		mockEmbedding.On("GenerateEmbedding", mock.Anything, "query").Return(nil, errors.New("upstream timeout"))

		_, err := svc.Search(ctx, domain.TenantIdentity("tenant-1"), SearchInput{Query: "query"})

		require.Error(t, err)
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeEmbeddingFailure, domainErr.Code)
		mockRepo.AssertNotCalled(t, "SearchByEmbedding")
	})

	t.Run("explicit course filter overrides the tenant's course", func(t *testing.T) {
		mockRepo := new(MockSearchRepository)
		mockTenants := new(MockTenantRepository)
		mockEmbedding := new(MockEmbeddingService)
		svc := NewSearchService(mockRepo, mockTenants, mockEmbedding)

		tenant := testTenant("tenant-1", "cs101")
		mockTenants.On("GetByID", mock.Anything, "tenant-1").Return(tenant, nil)
		mockEmbedding.On("GenerateEmbedding", mock.Anything, "query").Return(queryEmbedding, nil)
		mockRepo.On("SearchByEmbedding", mock.Anything, queryEmbedding, Visibility{TenantID: "tenant-1", Course: strPtr("math200")}, DefaultSearchThreshold, DefaultSearchLimit).Return([]*SearchResult{}, nil)

		_, err := svc.Search(ctx, domain.TenantIdentity("tenant-1"), SearchInput{Query: "query", Course: strPtr("math200")})

		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("tenant without a course sees only untagged globals", func(t *testing.T) {
		mockRepo := new(MockSearchRepository)
		mockTenants := new(MockTenantRepository)
		mockEmbedding := new(MockEmbeddingService)
		svc := NewSearchService(mockRepo, mockTenants, mockEmbedding)

		tenant := testTenant("tenant-1", "")
		mockTenants.On("GetByID", mock.Anything, "tenant-1").Return(tenant, nil)
		mockEmbedding.On("GenerateEmbedding", mock.Anything, "query").Return(queryEmbedding, nil)
		mockRepo.On("SearchByEmbedding", mock.Anything, queryEmbedding, Visibility{TenantID: "tenant-1", Course: nil}, DefaultSearchThreshold, DefaultSearchLimit).Return([]*SearchResult{}, nil)

		_, err := svc.Search(ctx, domain.TenantIdentity("tenant-1"), SearchInput{Query: "query"})

		require.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("truncates long result content", func(t *testing.T) {
		mockRepo := new(MockSearchRepository)
		mockTenants := new(MockTenantRepository)
		mockEmbedding := new(MockEmbeddingService)
		svc := NewSearchService(mockRepo, mockTenants, mockEmbedding)

		tenant := testTenant("tenant-1", "cs101")
		mockTenants.On("GetByID", mock.Anything, "tenant-1").Return(tenant, nil)
		mockEmbedding.On("GenerateEmbedding", mock.Anything, "query").Return(queryEmbedding, nil)

		long := strings.Repeat("a", 1200)
		mockRepo.On("SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]*SearchResult{
			{ID: "chunk-1", Content: long, Similarity: 0.9},
		}, nil)

		results, err := svc.Search(ctx, domain.TenantIdentity("tenant-1"), SearchInput{Query: "query"})

		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, 800, len([]rune(results[0].Content)))
	})

	t.Run("returns tenant not found for unknown caller", func(t *testing.T) {
		mockRepo := new(MockSearchRepository)
		mockTenants := new(MockTenantRepository)
		mockEmbedding := new(MockEmbeddingService)
		svc := NewSearchService(mockRepo, mockTenants, mockEmbedding)

		mockTenants.On("GetByID", mock.Anything, "ghost").Return(nil, domain.ErrTenantNotFound)

		_, err := svc.Search(ctx, domain.TenantIdentity("ghost"), SearchInput{Query: "query"})

		assert.ErrorIs(t, err, domain.ErrTenantNotFound)
	})
}

func TestSearchService_Search_RecordsLog(t *testing.T) {
	ctx := context.Background()
	queryEmbedding := []float32{0.1, 0.2, 0.3}

	t.Run("records one log entry per executed search", func(t *testing.T) {
		mockRepo := new(MockSearchRepository)
		mockTenants := new(MockTenantRepository)
		mockEmbedding := new(MockEmbeddingService)
		mockLogs := new(MockSearchLogRepository)
		svc := NewSearchServiceWithLog(mockRepo, mockTenants, mockEmbedding, mockLogs)

		tenant := testTenant("tenant-1", "cs101")
		mockTenants.On("GetByID", mock.Anything, "tenant-1").Return(tenant, nil)
		mockEmbedding.On("GenerateEmbedding", mock.Anything, "binary tree").Return(queryEmbedding, nil)
		mockRepo.On("SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]*SearchResult{
			{ID: "chunk-1", Content: "text", Similarity: 0.9},
		}, nil)

		mockLogs.On("CreateSearchLog", mock.Anything, mock.MatchedBy(func(entry SearchLogEntry) bool {
			return entry.TenantID != nil && *entry.TenantID == "tenant-1" &&
				entry.QueryLength == len("binary tree") &&
				entry.ResultCount == 1
		})).Return("log-1", nil)

		_, err := svc.Search(ctx, domain.TenantIdentity("tenant-1"), SearchInput{Query: "binary tree"})

		require.NoError(t, err)
		mockLogs.AssertExpectations(t)
	})

	t.Run("log failure does not fail the search", func(t *testing.T) {
		mockRepo := new(MockSearchRepository)
		mockTenants := new(MockTenantRepository)
		mockEmbedding := new(MockEmbeddingService)
		mockLogs := new(MockSearchLogRepository)
		svc := NewSearchServiceWithLog(mockRepo, mockTenants, mockEmbedding, mockLogs)

		tenant := testTenant("tenant-1", "cs101")
		mockTenants.On("GetByID", mock.Anything, "tenant-1").Return(tenant, nil)
		mockEmbedding.On("GenerateEmbedding", mock.Anything, "query").Return(queryEmbedding, nil)
		mockRepo.On("SearchByEmbedding", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]*SearchResult{}, nil)
		mockLogs.On("CreateSearchLog", mock.Anything, mock.Anything).Return("", errors.New("log table unavailable"))

		_, err := svc.Search(ctx, domain.TenantIdentity("tenant-1"), SearchInput{Query: "query"})

		require.NoError(t, err)
	})
}

func TestTruncateContent(t *testing.T) {
	assert.Equal(t, "short", truncateContent("short", 800))
	assert.Equal(t, strings.Repeat("x", 10), truncateContent(strings.Repeat("x", 50), 10))

	// Multibyte runes are never split.
	truncated := truncateContent(strings.Repeat("é", 20), 10)
	assert.Equal(t, 10, len([]rune(truncated)))
}
