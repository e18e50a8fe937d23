package domain

import (
	"fmt"
	"time"
)

// KeyRole is the privilege level carried by an API key.
type KeyRole string

const (
	// KeyRoleTenant keys act as a single tenant and are bound by the access policy.
	KeyRoleTenant KeyRole = "tenant"
	// KeyRoleService keys act as the administrative identity and bypass it.
	KeyRoleService KeyRole = "service"
)

// APIKey is a stored credential. Only the SHA-256 of the token is kept;
// the plaintext is shown once at creation and never again.
type APIKey struct {
	ID        string
	TenantID  *string // nil for service keys
	Name      string
	KeyHash   string
	Role      KeyRole
	CreatedAt time.Time
	RevokedAt *time.Time
}

// NewAPIKey builds an active key. RevokedAt starts nil.
func NewAPIKey(id string, tenantID *string, name, keyHash string, role KeyRole, createdAt time.Time) *APIKey {
	return &APIKey{
		ID:        id,
		TenantID:  tenantID,
		Name:      name,
		KeyHash:   keyHash,
		Role:      role,
		CreatedAt: createdAt,
	}
}

// IsRevoked reports whether the key has been revoked.
func (a *APIKey) IsRevoked() bool {
	return a.RevokedAt != nil
}

// Identity returns the caller identity this key resolves to.
func (a *APIKey) Identity() Identity {
	if a.Role == KeyRoleService {
		return ServiceIdentity()
	}
	if a.TenantID == nil {
		return Identity{}
	}
	return TenantIdentity(*a.TenantID)
}

// ValidateAPIKey rejects keys that would break the role/tenant pairing.
func ValidateAPIKey(a *APIKey) error {
	switch {
	case a == nil:
		return fmt.Errorf("api key cannot be nil")
	case a.ID == "":
		return fmt.Errorf("api key ID is required")
	case a.Name == "":
		return fmt.Errorf("api key Name is required")
	case a.KeyHash == "":
		return fmt.Errorf("api key KeyHash is required")
	}

	switch a.Role {
	case KeyRoleTenant:
		if a.TenantID == nil || *a.TenantID == "" {
			return fmt.Errorf("api key TenantID is required for tenant keys")
		}
	case KeyRoleService:
		if a.TenantID != nil {
			return fmt.Errorf("api key TenantID must be empty for service keys")
		}
	default:
		return fmt.Errorf("api key Role is invalid: %s", a.Role)
	}

	return nil
}
