package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studyhall-hq/studyhall/internal/domain"
	"github.com/studyhall-hq/studyhall/internal/pagination"
)

const apiKeyColumns = "id, tenant_id, name, key_hash, role, created_at, revoked_at"

// APIKeyPageResult is one page of keys plus the cursor to fetch the next.
type APIKeyPageResult struct {
	Items      []*domain.APIKey
	NextCursor string
	HasMore    bool
}

type APIKeyRepository struct {
	db dbtx
}

func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{db: pool}
}

// scanAPIKey maps one row in apiKeyColumns order.
func scanAPIKey(row pgx.CollectableRow) (*domain.APIKey, error) {
	var key domain.APIKey
	if err := row.Scan(&key.ID, &key.TenantID, &key.Name, &key.KeyHash, &key.Role, &key.CreatedAt, &key.RevokedAt); err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *APIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO api_keys (`+apiKeyColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.TenantID, key.Name, key.KeyHash, key.Role, key.CreatedAt, key.RevokedAt,
	)
	return err
}

// getOne fetches the single key matching condition, which must reference $1.
func (r *APIKeyRepository) getOne(ctx context.Context, condition string, arg any) (*domain.APIKey, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE `+condition, arg)
	if err != nil {
		return nil, err
	}

	key, err := pgx.CollectOneRow(rows, scanAPIKey)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAPIKeyNotFound
	}
	return key, err
}

func (r *APIKeyRepository) GetByID(ctx context.Context, id string) (*domain.APIKey, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByHash looks a key up by the SHA-256 of its token. This is the hot path
// behind every authenticated request.
func (r *APIKeyRepository) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	return r.getOne(ctx, "key_hash = $1", hash)
}

func (r *APIKeyRepository) GetByTenantID(ctx context.Context, tenantID string) ([]*domain.APIKey, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+apiKeyColumns+`
		 FROM api_keys WHERE tenant_id = $1 ORDER BY created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanAPIKey)
}

// CountServiceKeys reports how many unrevoked service keys exist; used at
// startup to decide whether to bootstrap one.
func (r *APIKeyRepository) CountServiceKeys(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM api_keys WHERE role = $1 AND revoked_at IS NULL`,
		domain.KeyRoleService,
	).Scan(&count)
	return count, err
}

// ListByTenantWithCursor pages a tenant's keys newest-first. It fetches one
// row past the limit to learn whether another page exists.
func (r *APIKeyRepository) ListByTenantWithCursor(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*APIKeyPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + apiKeyColumns + `
		 FROM api_keys
		 WHERE tenant_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`
	args := []any{tenantID, limit + 1}
	if cursor != nil {
		query = `SELECT ` + apiKeyColumns + `
			 FROM api_keys
			 WHERE tenant_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`
		args = []any{tenantID, cursor.Timestamp, cursor.LastID, limit + 1}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	keys, err := pgx.CollectRows(rows, scanAPIKey)
	if err != nil {
		return nil, err
	}

	hasMore := len(keys) > limit
	if hasMore {
		keys = keys[:limit]
	}

	var nextCursor string
	if hasMore && len(keys) > 0 {
		last := keys[len(keys)-1]
		nextCursor = pagination.Cursor{LastID: last.ID, Timestamp: last.CreatedAt}.Encode()
	}

	return &APIKeyPageResult{
		Items:      keys,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// Revoke stamps revoked_at on an active key. Revoking twice reports not
// found, because the guard keeps the first timestamp.
func (r *APIKeyRepository) Revoke(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE api_keys SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAPIKeyNotFound
	}
	return nil
}

func (r *APIKeyRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAPIKeyNotFound
	}
	return nil
}
