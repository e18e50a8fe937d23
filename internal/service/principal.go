package service

import (
	"context"

	"github.com/studyhall-hq/studyhall/internal/domain"
)

// ResolvePrincipal maps an authenticated identity to the principal used for
// authorization decisions. Tenant identities are resolved against the tenant
// store so course membership is available to the policy.
func ResolvePrincipal(ctx context.Context, tenants SearchTenantRepository, identity domain.Identity) (domain.Principal, error) {
	if identity.IsService() {
		return domain.Principal{Service: true}, nil
	}
	if identity.IsAnonymous() {
		return domain.Principal{}, domain.ErrAuthenticationRequired
	}
	tenant, err := tenants.GetByID(ctx, identity.TenantID)
	if err != nil {
		return domain.Principal{}, err
	}
	return domain.Principal{Tenant: tenant}, nil
}
