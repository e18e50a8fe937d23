package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/studyhall-hq/studyhall/internal/domain"
	"github.com/studyhall-hq/studyhall/internal/pagination"
	"github.com/studyhall-hq/studyhall/internal/service"
)

// DocumentChunkRepository handles persistence of document chunks and their
// embeddings.
type DocumentChunkRepository struct {
	db dbtx
}

func NewDocumentChunkRepository(pool *pgxpool.Pool) *DocumentChunkRepository {
	return &DocumentChunkRepository{db: pool}
}

func NewDocumentChunkRepositoryWithTx(tx pgx.Tx) *DocumentChunkRepository {
	return &DocumentChunkRepository{db: tx}
}

// UpsertChunk writes a chunk row keyed by (storage_path, chunk_index), so a
// retried write of the same chunk rewrites the row instead of duplicating it.
func (r *DocumentChunkRepository) UpsertChunk(ctx context.Context, chunk *domain.DocumentChunk) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO document_chunks
		     (id, tenant_id, course_tag, content, embedding, file_name, file_kind,
		      storage_path, chunk_index, total_chunks, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (storage_path, chunk_index) DO UPDATE
		 SET content      = EXCLUDED.content,
		     embedding    = EXCLUDED.embedding,
		     course_tag   = EXCLUDED.course_tag,
		     total_chunks = EXCLUDED.total_chunks`,
		chunk.ID, chunk.TenantID, chunk.CourseTag, chunk.Content, embeddingParam(chunk.Embedding),
		chunk.FileName, chunk.FileKind, chunk.StoragePath, chunk.ChunkIndex, chunk.TotalChunks,
		chunk.CreatedAt,
	)
	return err
}

// UpdateEmbedding fills in the embedding of a chunk that was committed
// without one.
func (r *DocumentChunkRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE document_chunks SET embedding = $1 WHERE id = $2`,
		pgvector.NewVector(embedding), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

// GetByID returns a chunk without its embedding vector; HasEmbedding on the
// returned row tells whether one is stored.
func (r *DocumentChunkRepository) GetByID(ctx context.Context, id string) (*service.ChunkRecord, error) {
	var rec service.ChunkRecord
	err := r.db.QueryRow(ctx,
		`SELECT id, tenant_id, course_tag, content, embedding IS NOT NULL, file_name, file_kind,
		        storage_path, chunk_index, total_chunks, created_at
		 FROM document_chunks WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.TenantID, &rec.CourseTag, &rec.Content, &rec.HasEmbedding,
		&rec.FileName, &rec.FileKind, &rec.StoragePath, &rec.ChunkIndex, &rec.TotalChunks, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// GetDocument returns the per-document aggregate for one storage path.
func (r *DocumentChunkRepository) GetDocument(ctx context.Context, storagePath string) (*service.Document, error) {
	var doc service.Document
	err := r.db.QueryRow(ctx,
		`SELECT storage_path, tenant_id, course_tag, file_name, file_kind, total_chunks,
		        COUNT(*), COUNT(embedding), MIN(created_at)
		 FROM document_chunks
		 WHERE storage_path = $1
		 GROUP BY storage_path, tenant_id, course_tag, file_name, file_kind, total_chunks`,
		storagePath,
	).Scan(&doc.StoragePath, &doc.TenantID, &doc.CourseTag, &doc.FileName, &doc.FileKind,
		&doc.TotalChunks, &doc.StoredChunks, &doc.EmbeddedChunks, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns one row per visible document, newest first, with
// cursor pagination over (created_at, storage_path).
func (r *DocumentChunkRepository) ListDocuments(ctx context.Context, vis service.Visibility, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT storage_path, tenant_id, course_tag, file_name, file_kind, total_chunks,
		       COUNT(*), COUNT(embedding), MIN(created_at) AS created_at
		FROM document_chunks`
	args := []any{}

	if !vis.Unrestricted {
		query += `
		WHERE (tenant_id = $1
		       OR (tenant_id IS NULL AND course_tag = $2)
		       OR (tenant_id IS NULL AND course_tag IS NULL))`
		args = append(args, vis.TenantID, vis.Course)
	}

	query += `
		GROUP BY storage_path, tenant_id, course_tag, file_name, file_kind, total_chunks`

	if cursor != nil {
		query += fmt.Sprintf(`
		HAVING (MIN(created_at), storage_path) < ($%d, $%d)`, len(args)+1, len(args)+2)
		args = append(args, cursor.Timestamp, cursor.LastID)
	}

	query += fmt.Sprintf(`
		ORDER BY created_at DESC, storage_path DESC
		LIMIT $%d`, len(args)+1)
	args = append(args, limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*service.Document
	for rows.Next() {
		var doc service.Document
		if err := rows.Scan(&doc.StoragePath, &doc.TenantID, &doc.CourseTag, &doc.FileName, &doc.FileKind,
			&doc.TotalChunks, &doc.StoredChunks, &doc.EmbeddedChunks, &doc.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(docs) > limit
	if hasMore {
		docs = docs[:limit]
	}

	result := &service.DocumentPageResult{Items: docs, HasMore: hasMore}
	if hasMore && len(docs) > 0 {
		last := docs[len(docs)-1]
		result.NextCursor = pagination.Cursor{LastID: last.StoragePath, Timestamp: last.CreatedAt}.Encode()
	}
	return result, nil
}

// DeleteByStoragePath removes every chunk of a document and returns how many
// rows were deleted.
func (r *DocumentChunkRepository) DeleteByStoragePath(ctx context.Context, storagePath string) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM document_chunks WHERE storage_path = $1`, storagePath)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

// embeddingParam maps an empty embedding to NULL.
func embeddingParam(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}
