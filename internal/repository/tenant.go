package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studyhall-hq/studyhall/internal/domain"
)

// TenantRepository handles persistence of tenant accounts.
type TenantRepository struct {
	db dbtx
}

func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{db: pool}
}

func (r *TenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO tenants (id, external_identity, email, display_name, course_tag, onboarding_state, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tenant.ID, tenant.ExternalIdentity, tenant.Email, tenant.DisplayName,
		tenant.CourseTag, tenant.Onboarding, tenant.CreatedAt, tenant.UpdatedAt,
	)
	return err
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *TenantRepository) GetByExternalIdentity(ctx context.Context, externalIdentity string) (*domain.Tenant, error) {
	return r.get(ctx, `WHERE external_identity = $1`, externalIdentity)
}

func (r *TenantRepository) get(ctx context.Context, where string, arg any) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := r.db.QueryRow(ctx,
		`SELECT id, external_identity, email, display_name, course_tag, onboarding_state, created_at, updated_at
		 FROM tenants `+where,
		arg,
	).Scan(&tenant.ID, &tenant.ExternalIdentity, &tenant.Email, &tenant.DisplayName,
		&tenant.CourseTag, &tenant.Onboarding, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

func (r *TenantRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE tenants
		 SET email = $1, display_name = $2, course_tag = $3, onboarding_state = $4, updated_at = $5
		 WHERE id = $6`,
		tenant.Email, tenant.DisplayName, tenant.CourseTag, tenant.Onboarding, tenant.UpdatedAt, tenant.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

func (r *TenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, external_identity, email, display_name, course_tag, onboarding_state, created_at, updated_at
		 FROM tenants ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		var tenant domain.Tenant
		if err := rows.Scan(&tenant.ID, &tenant.ExternalIdentity, &tenant.Email, &tenant.DisplayName,
			&tenant.CourseTag, &tenant.Onboarding, &tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, &tenant)
	}
	return tenants, rows.Err()
}

func (r *TenantRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}
