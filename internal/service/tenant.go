package service

import (
	"context"
	"strings"
	"time"

	"github.com/studyhall-hq/studyhall/internal/domain"
	"github.com/studyhall-hq/studyhall/internal/telemetry"
)

// TenantRepositoryInterface defines the repository interface for tenant persistence
type TenantRepositoryInterface interface {
	Create(ctx context.Context, tenant *domain.Tenant) error
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetByExternalIdentity(ctx context.Context, externalIdentity string) (*domain.Tenant, error)
	Update(ctx context.Context, tenant *domain.Tenant) error
	List(ctx context.Context) ([]*domain.Tenant, error)
}

// SyncInput carries the identity claims forwarded by the login frontend.
type SyncInput struct {
	ExternalIdentity string
	Email            string
}

// SyncResult reports the synced tenant and whether it was just created.
type SyncResult struct {
	Tenant  *domain.Tenant
	Created bool
}

// OnboardingInput carries the profile fields set during onboarding.
type OnboardingInput struct {
	DisplayName string
	CourseTag   string
}

// TenantService manages tenant accounts and their onboarding lifecycle.
type TenantService struct {
	repo    TenantRepositoryInterface
	uuidGen UUIDGenerator
}

// NewTenantService creates a new TenantService instance
func NewTenantService(repo TenantRepositoryInterface) *TenantService {
	return &TenantService{repo: repo, uuidGen: &DefaultUUIDGenerator{}}
}

// NewTenantServiceWithUUIDGen creates a new TenantService with custom UUID generator (for testing)
func NewTenantServiceWithUUIDGen(repo TenantRepositoryInterface, uuidGen UUIDGenerator) *TenantService {
	return &TenantService{repo: repo, uuidGen: uuidGen}
}

// Sync registers the tenant behind an external identity claim, creating it
// on first login and refreshing a drifted email on later ones. Only the
// service identity may sync tenants.
func (s *TenantService) Sync(ctx context.Context, identity domain.Identity, input SyncInput) (*SyncResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "TenantService.Sync", telemetry.SpanAttributes{
		Operation: "tenant_sync",
	})
	defer span.End()

	if identity.IsAnonymous() {
		return nil, domain.ErrAuthenticationRequired
	}
	if !identity.IsService() {
		return nil, domain.ErrForbidden
	}

	externalIdentity := strings.TrimSpace(input.ExternalIdentity)
	if externalIdentity == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "external identity is required")
	}

	tenant, err := s.repo.GetByExternalIdentity(ctx, externalIdentity)
	if err == nil {
		if input.Email != "" && tenant.Email != input.Email {
			tenant.Email = input.Email
			tenant.UpdatedAt = time.Now().UTC()
			if err := s.repo.Update(ctx, tenant); err != nil {
				return nil, err
			}
		}
		return &SyncResult{Tenant: tenant}, nil
	}
	if err != domain.ErrTenantNotFound {
		return nil, err
	}

	tenant = domain.NewTenant(s.uuidGen.NewString(), externalIdentity, input.Email, time.Now().UTC())
	if err := domain.ValidateTenant(tenant); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, tenant); err != nil {
		return nil, err
	}

	return &SyncResult{Tenant: tenant, Created: true}, nil
}

// Me returns the tenant record behind the caller's identity.
func (s *TenantService) Me(ctx context.Context, identity domain.Identity) (*domain.Tenant, error) {
	ctx, span := telemetry.StartSpan(ctx, "TenantService.Me", telemetry.SpanAttributes{
		TenantID:  identity.TenantID,
		Operation: "tenant_me",
	})
	defer span.End()

	if identity.IsAnonymous() {
		return nil, domain.ErrAuthenticationRequired
	}
	if identity.IsService() {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidOperation, "service identity has no tenant profile")
	}

	return s.repo.GetByID(ctx, identity.TenantID)
}

// CompleteOnboarding sets the caller's profile fields and marks onboarding
// as completed. The course tag is required.
func (s *TenantService) CompleteOnboarding(ctx context.Context, identity domain.Identity, input OnboardingInput) (*domain.Tenant, error) {
	ctx, span := telemetry.StartSpan(ctx, "TenantService.CompleteOnboarding", telemetry.SpanAttributes{
		TenantID:  identity.TenantID,
		CourseTag: input.CourseTag,
		Operation: "tenant_onboarding",
	})
	defer span.End()

	if identity.IsAnonymous() {
		return nil, domain.ErrAuthenticationRequired
	}
	if identity.IsService() {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidOperation, "service identity has no tenant profile")
	}

	tenant, err := s.repo.GetByID(ctx, identity.TenantID)
	if err != nil {
		return nil, err
	}

	if err := tenant.CompleteOnboarding(input.DisplayName, input.CourseTag, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, tenant); err != nil {
		return nil, err
	}

	return tenant, nil
}

// List returns every registered tenant. Only the service identity may list.
func (s *TenantService) List(ctx context.Context, identity domain.Identity) ([]*domain.Tenant, error) {
	ctx, span := telemetry.StartSpan(ctx, "TenantService.List", telemetry.SpanAttributes{
		Operation: "tenant_list",
	})
	defer span.End()

	if identity.IsAnonymous() {
		return nil, domain.ErrAuthenticationRequired
	}
	if !identity.IsService() {
		return nil, domain.ErrForbidden
	}

	return s.repo.List(ctx)
}
