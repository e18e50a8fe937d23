package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/studyhall-hq/studyhall/internal/domain"
	"github.com/studyhall-hq/studyhall/internal/metrics"
	"github.com/studyhall-hq/studyhall/internal/telemetry"
)

// DefaultMaxUploadBytes caps uploads when no limit is configured.
const DefaultMaxUploadBytes = 10 << 20

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// EmbeddingJobRepositoryInterface defines the repository interface for embedding job persistence
type EmbeddingJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// TextExtractor converts uploaded file bytes into plain text.
type TextExtractor interface {
	Text(data []byte, kind domain.FileKind) (string, error)
}

// IngestionObjectStore stores the original uploaded file.
type IngestionObjectStore interface {
	PutObject(ctx context.Context, key, contentType string, data []byte) error
}

// IngestionConfig tunes chunking and the upload size limit.
type IngestionConfig struct {
	Chunking       ChunkConfig
	MaxUploadBytes int64
}

// DefaultIngestionConfig returns the defaults used in production.
func DefaultIngestionConfig() IngestionConfig {
	return IngestionConfig{
		Chunking:       DefaultChunkConfig(),
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
}

// IngestInput carries one document upload.
type IngestInput struct {
	FileName string
	Data     []byte
	Course   *string
}

// IngestReport summarizes one ingestion run. Committed counts chunks stored
// with embeddings; Queued counts chunks stored without one and left to the
// retry worker.
type IngestReport struct {
	StoragePath string
	FileName    string
	TotalChunks int
	Committed   int
	Queued      int
	Failed      []domain.ChunkFailure
}

// IngestionService turns an uploaded file into embedded document chunks.
//
// The file is stored first, then split into fixed-size windows which are
// embedded one by one. A chunk whose embedding call fails is persisted
// without a vector together with a retry job in one transaction, so no chunk
// is ever dropped silently; the run then reports a partial failure naming
// every failed index.
type IngestionService struct {
	chunks    ChunkRepositoryInterface
	tenants   SearchTenantRepository
	store     IngestionObjectStore
	extractor TextExtractor
	embedding EmbeddingServiceInterface
	tx        TxRunner
	uuidGen   UUIDGenerator
	cfg       IngestionConfig
}

// NewIngestionService creates a new IngestionService with default limits.
func NewIngestionService(
	chunks ChunkRepositoryInterface,
	tenants SearchTenantRepository,
	store IngestionObjectStore,
	extractor TextExtractor,
	embedding EmbeddingServiceInterface,
	tx TxRunner,
) *IngestionService {
	return NewIngestionServiceWithConfig(chunks, tenants, store, extractor, embedding, tx, DefaultIngestionConfig(), &DefaultUUIDGenerator{})
}

// NewIngestionServiceWithConfig creates an IngestionService with explicit
// limits and UUID generation (for testing).
func NewIngestionServiceWithConfig(
	chunks ChunkRepositoryInterface,
	tenants SearchTenantRepository,
	store IngestionObjectStore,
	extractor TextExtractor,
	embedding EmbeddingServiceInterface,
	tx TxRunner,
	cfg IngestionConfig,
	uuidGen UUIDGenerator,
) *IngestionService {
	if cfg.Chunking.WindowChars <= 0 {
		cfg.Chunking = DefaultChunkConfig()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &IngestionService{
		chunks:    chunks,
		tenants:   tenants,
		store:     store,
		extractor: extractor,
		embedding: embedding,
		tx:        tx,
		uuidGen:   uuidGen,
		cfg:       cfg,
	}
}

// Ingest stores an uploaded file and persists its embedded chunks. Tenant
// identities ingest private documents owned by themselves and must resolve
// to a course, either the explicit input course or the tenant's own; the
// service identity ingests global documents, restricted to a course when one
// is given. Returns a PartialIngestionError alongside the report when any
// chunk failed to embed.
func (s *IngestionService) Ingest(ctx context.Context, identity domain.Identity, input IngestInput) (*IngestReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Ingest", telemetry.SpanAttributes{
		TenantID:  identity.TenantID,
		Operation: "ingest",
	})
	defer span.End()

	principal, err := ResolvePrincipal(ctx, s.tenants, identity)
	if err != nil {
		return nil, err
	}

	if input.FileName == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "file name is required")
	}

	kind, err := domain.FileKindFromName(input.FileName)
	if err != nil {
		return nil, err
	}

	if int64(len(input.Data)) > s.cfg.MaxUploadBytes {
		return nil, domain.ErrFileTooLarge
	}

	var owner *string
	course := input.Course
	if tenant := principal.Tenant; tenant != nil {
		owner = &tenant.ID
		if course == nil {
			course = tenant.CourseTag
		}
	}

	// Tenant uploads must land under a course, explicit or from the
	// tenant's profile. Only global ingestion may stay untagged.
	if owner != nil && course == nil {
		return nil, domain.ErrMissingCourseTag
	}

	if !domain.Authorize(principal, domain.OpWrite, domain.Resource{OwnerID: owner, CourseTag: course}).Allowed() {
		return nil, domain.ErrForbidden
	}

	text, err := s.extractor.Text(input.Data, kind)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "could not extract document text", err)
	}

	contents := chunkText(text, s.cfg.Chunking)
	if len(contents) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	storagePath := buildStoragePath(owner, s.uuidGen.NewString(), kind)
	if err := s.store.PutObject(ctx, storagePath, contentTypeFor(kind), input.Data); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to store uploaded file", err)
	}

	now := time.Now().UTC()
	report := &IngestReport{
		StoragePath: storagePath,
		FileName:    input.FileName,
		TotalChunks: len(contents),
	}

	for i, content := range contents {
		chunk := &domain.DocumentChunk{
			ID:          s.uuidGen.NewString(),
			TenantID:    owner,
			CourseTag:   course,
			Content:     content,
			FileName:    input.FileName,
			FileKind:    kind,
			StoragePath: storagePath,
			ChunkIndex:  i,
			TotalChunks: len(contents),
			CreatedAt:   now,
		}
		if err := domain.ValidateDocumentChunk(chunk); err != nil {
			return nil, err
		}

		embedding, embedErr := s.embedding.GenerateEmbedding(ctx, content)
		if embedErr == nil {
			chunk.Embedding = embedding
			if err := s.chunks.UpsertChunk(ctx, chunk); err != nil {
				report.Failed = append(report.Failed, domain.ChunkFailure{Index: i, Reason: err.Error()})
				continue
			}
			report.Committed++
			metrics.IngestedChunksTotal.Inc()
			continue
		}

		// Embedding failed: keep the chunk row without its vector and queue
		// a retry so the chunk is never dropped.
		metrics.EmbeddingFailuresTotal.Inc()
		report.Failed = append(report.Failed, domain.ChunkFailure{Index: i, Reason: embedErr.Error()})
		if err := s.queueRetry(ctx, chunk, now); err != nil {
			log.Printf("failed to queue embedding retry for chunk %d of %s: %v", i, storagePath, err)
			continue
		}
		report.Queued++
	}

	if len(report.Failed) > 0 {
		return report, &domain.PartialIngestionError{
			FileName:  input.FileName,
			Committed: report.Committed,
			Failed:    report.Failed,
		}
	}

	return report, nil
}

// queueRetry persists the unembedded chunk and its retry job atomically.
func (s *IngestionService) queueRetry(ctx context.Context, chunk *domain.DocumentChunk, now time.Time) error {
	return s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Chunks().UpsertChunk(ctx, chunk); err != nil {
			return err
		}
		job := domain.NewEmbeddingJob(s.uuidGen.NewString(), chunk.ID, now)
		return repos.EmbeddingJobs().Create(ctx, job)
	})
}

func buildStoragePath(owner *string, id string, kind domain.FileKind) string {
	prefix := "global"
	if owner != nil {
		prefix = *owner
	}
	return fmt.Sprintf("%s/%s.%s", prefix, id, kind)
}

func contentTypeFor(kind domain.FileKind) string {
	switch kind {
	case domain.FileKindPDF:
		return "application/pdf"
	case domain.FileKindDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case domain.FileKindMarkdown:
		return "text/markdown"
	case domain.FileKindHTML:
		return "text/html"
	default:
		return "text/plain"
	}
}
