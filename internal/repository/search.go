package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/studyhall-hq/studyhall/internal/service"
)

// SearchRepository runs similarity queries over document chunks.
type SearchRepository struct {
	db dbtx
}

func NewSearchRepository(pool *pgxpool.Pool) *SearchRepository {
	return &SearchRepository{db: pool}
}

func NewSearchRepositoryWithTx(tx pgx.Tx) *SearchRepository {
	return &SearchRepository{db: tx}
}

// SearchByEmbedding returns chunks whose cosine similarity to the query
// embedding exceeds the threshold, ordered by similarity descending.
//
// For a tenant the visible set is the union of the tenant's own chunks,
// global chunks tagged with the tenant's effective course, and untagged
// global chunks. An unrestricted (service) caller sees everything. Chunks
// whose embedding is still pending are never returned.
func (r *SearchRepository) SearchByEmbedding(ctx context.Context, embedding []float32, vis service.Visibility, threshold float64, limit int) ([]*service.SearchResult, error) {
	query := `
		SELECT id, content, 1 - (embedding <=> $1) AS similarity,
		       course_tag, file_name, file_kind, (tenant_id IS NULL) AS is_global
		FROM document_chunks
		WHERE embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) > $2`
	args := []any{pgvector.NewVector(embedding), threshold}

	if !vis.Unrestricted {
		query += `
		  AND (tenant_id = $3
		       OR (tenant_id IS NULL AND course_tag = $4)
		       OR (tenant_id IS NULL AND course_tag IS NULL))`
		args = append(args, vis.TenantID, vis.Course)
	}

	query += fmt.Sprintf(`
		ORDER BY similarity DESC
		LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*service.SearchResult
	for rows.Next() {
		var res service.SearchResult
		if err := rows.Scan(&res.ID, &res.Content, &res.Similarity,
			&res.CourseTag, &res.FileName, &res.FileKind, &res.IsGlobal); err != nil {
			return nil, err
		}
		results = append(results, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
