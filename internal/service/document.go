package service

import (
	"context"
	"log"
	"time"

	"github.com/studyhall-hq/studyhall/internal/domain"
	"github.com/studyhall-hq/studyhall/internal/pagination"
	"github.com/studyhall-hq/studyhall/internal/telemetry"
)

// Document is the per-file aggregate over its chunk rows.
type Document struct {
	StoragePath    string
	TenantID       *string
	CourseTag      *string
	FileName       string
	FileKind       domain.FileKind
	TotalChunks    int
	StoredChunks   int
	EmbeddedChunks int
	CreatedAt      time.Time
}

// IsGlobal reports whether the document belongs to no tenant.
func (d *Document) IsGlobal() bool {
	return d.TenantID == nil
}

// ChunkRecord is a stored chunk row without its embedding vector.
type ChunkRecord struct {
	ID           string
	TenantID     *string
	CourseTag    *string
	Content      string
	HasEmbedding bool
	FileName     string
	FileKind     domain.FileKind
	StoragePath  string
	ChunkIndex   int
	TotalChunks  int
	CreatedAt    time.Time
}

// DocumentPageResult is one page of a document listing.
type DocumentPageResult struct {
	Items      []*Document
	NextCursor string
	HasMore    bool
}

// DocumentListInput carries a document listing request.
type DocumentListInput struct {
	Cursor string
	Limit  int
}

// ChunkRepositoryInterface defines the repository interface for chunk
// persistence.
type ChunkRepositoryInterface interface {
	UpsertChunk(ctx context.Context, chunk *domain.DocumentChunk) error
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
	GetByID(ctx context.Context, id string) (*ChunkRecord, error)
	GetDocument(ctx context.Context, storagePath string) (*Document, error)
	ListDocuments(ctx context.Context, vis Visibility, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	DeleteByStoragePath(ctx context.Context, storagePath string) (int64, error)
}

// DocumentObjectStore defines the object storage operations document
// management needs.
type DocumentObjectStore interface {
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// DocumentService handles listing, download, and deletion of ingested
// documents.
type DocumentService struct {
	chunks  ChunkRepositoryInterface
	tenants SearchTenantRepository
	store   DocumentObjectStore
}

// NewDocumentService creates a new DocumentService instance.
func NewDocumentService(chunks ChunkRepositoryInterface, tenants SearchTenantRepository, store DocumentObjectStore) *DocumentService {
	return &DocumentService{
		chunks:  chunks,
		tenants: tenants,
		store:   store,
	}
}

// List returns the documents visible to the caller, newest first.
func (s *DocumentService) List(ctx context.Context, identity domain.Identity, input DocumentListInput) (*DocumentPageResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.List", telemetry.SpanAttributes{
		TenantID:  identity.TenantID,
		Operation: "document_list",
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
		vis.Course = tenant.CourseTag
	}

	var cursor *pagination.Cursor
	if input.Cursor != "" {
		decoded, err := pagination.Decode(input.Cursor)
		if err != nil {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor")
		}
		cursor = decoded
	}

	return s.chunks.ListDocuments(ctx, vis, cursor, input.Limit)
}

// Download returns a presigned URL for the original uploaded file.
func (s *DocumentService) Download(ctx context.Context, identity domain.Identity, storagePath string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Download", telemetry.SpanAttributes{
		TenantID:    identity.TenantID,
		StoragePath: storagePath,
		Operation:   "document_download",
	})
	defer span.End()

	principal, err := ResolvePrincipal(ctx, s.tenants, identity)
	if err != nil {
		return "", err
	}

	doc, err := s.chunks.GetDocument(ctx, storagePath)
	if err != nil {
		return "", err
	}

	resource := domain.Resource{OwnerID: doc.TenantID, CourseTag: doc.CourseTag}
	if !domain.Authorize(principal, domain.OpRead, resource).Allowed() {
		return "", domain.ErrForbidden
	}

	return s.store.GenerateDownloadURL(ctx, storagePath)
}

// Delete removes a document's chunk rows and its stored object. Only the
// owning tenant or a service identity may delete.
func (s *DocumentService) Delete(ctx context.Context, identity domain.Identity, storagePath string) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Delete", telemetry.SpanAttributes{
		TenantID:    identity.TenantID,
		StoragePath: storagePath,
		Operation:   "document_delete",
	})
	defer span.End()

	principal, err := ResolvePrincipal(ctx, s.tenants, identity)
	if err != nil {
		return 0, err
	}

	doc, err := s.chunks.GetDocument(ctx, storagePath)
	if err != nil {
		return 0, err
	}

	resource := domain.Resource{OwnerID: doc.TenantID, CourseTag: doc.CourseTag}
	if !domain.Authorize(principal, domain.OpDelete, resource).Allowed() {
		return 0, domain.ErrForbidden
	}

	deleted, err := s.chunks.DeleteByStoragePath(ctx, storagePath)
	if err != nil {
		return 0, err
	}

	// Chunk rows are authoritative; a leaked object is only storage waste.
	if err := s.store.DeleteObject(ctx, storagePath); err != nil {
		log.Printf("failed to delete stored object %s: %v", storagePath, err)
	}

	return deleted, nil
}
