package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/studyhall-hq/studyhall/internal/domain"
)

const apiKeyPrefix = "shl_"

type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByID(ctx context.Context, id string) (*domain.APIKey, error)
	GetByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	GetByTenantID(ctx context.Context, tenantID string) ([]*domain.APIKey, error)
	CountServiceKeys(ctx context.Context) (int64, error)
	Revoke(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// AuthService issues and validates API keys. Tenant keys act as a single
// tenant; service keys act as the administrative identity.
type AuthService struct {
	tenants TenantRepositoryInterface
	keyRepo APIKeyRepository
	uuidGen UUIDGenerator
}

func NewAuthService(tenants TenantRepositoryInterface, keyRepo APIKeyRepository, uuidGen UUIDGenerator) *AuthService {
	return &AuthService{
		tenants: tenants,
		keyRepo: keyRepo,
		uuidGen: uuidGen,
	}
}

// CreateTenantKey mints an API key bound to a tenant and returns the
// plaintext token once. Only its hash is stored.
func (s *AuthService) CreateTenantKey(ctx context.Context, tenantID, name string) (string, error) {
	if tenantID == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}
	if name == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}
	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return "", err
	}

	return s.mintKey(ctx, &tenantID, name, domain.KeyRoleTenant)
}

// CreateServiceKey mints a service-role API key and returns the plaintext
// token once.
func (s *AuthService) CreateServiceKey(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}

	return s.mintKey(ctx, nil, name, domain.KeyRoleService)
}

// mintKey generates a token, stores its hash under the given role, and
// returns the plaintext. The plaintext is never persisted.
func (s *AuthService) mintKey(ctx context.Context, tenantID *string, name string, role domain.KeyRole) (string, error) {
	token, err := generateAPIToken()
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to generate API key", err)
	}

	key := domain.NewAPIKey(s.uuidGen.NewString(), tenantID, name, hashToken(token), role, time.Now().UTC())
	if err := domain.ValidateAPIKey(key); err != nil {
		return "", err
	}
	if err := s.keyRepo.Create(ctx, key); err != nil {
		return "", err
	}

	return token, nil
}

// CreateServiceKeyWithToken registers a service key for a caller-supplied
// token. Used at bootstrap when the deployment pins the initial key.
func (s *AuthService) CreateServiceKeyWithToken(ctx context.Context, name, token string) error {
	if name == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key name is required")
	}
	if !IsValidAPIToken(token) {
		return domain.NewDomainError(domain.ErrCodeValidation, "invalid API key format (expected shl_<64 hex chars>)")
	}

	key := domain.NewAPIKey(s.uuidGen.NewString(), nil, name, hashToken(token), domain.KeyRoleService, time.Now().UTC())
	if err := domain.ValidateAPIKey(key); err != nil {
		return err
	}

	return s.keyRepo.Create(ctx, key)
}

// ValidateAPIKey resolves a bearer token to the identity it carries.
func (s *AuthService) ValidateAPIKey(ctx context.Context, token string) (domain.Identity, error) {
	if !IsValidAPIToken(token) {
		return domain.Identity{}, domain.ErrInvalidAPIKey
	}

	key, err := s.keyRepo.GetByHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrAPIKeyNotFound) {
			return domain.Identity{}, domain.ErrInvalidAPIKey
		}
		return domain.Identity{}, err
	}

	if key.IsRevoked() {
		return domain.Identity{}, domain.ErrAPIKeyRevoked
	}

	return key.Identity(), nil
}

func (s *AuthService) RevokeAPIKey(ctx context.Context, keyID string) error {
	if keyID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "API key ID is required")
	}

	return s.keyRepo.Revoke(ctx, keyID)
}

func (s *AuthService) ListAPIKeys(ctx context.Context, tenantID string) ([]*domain.APIKey, error) {
	if tenantID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}

	return s.keyRepo.GetByTenantID(ctx, tenantID)
}

func (s *AuthService) GetAPIKeyByHash(ctx context.Context, token string) (*domain.APIKey, error) {
	if !IsValidAPIToken(token) {
		return nil, domain.ErrInvalidAPIKey
	}
	return s.keyRepo.GetByHash(ctx, hashToken(token))
}

// CountServiceKeys reports how many unrevoked service keys exist.
func (s *AuthService) CountServiceKeys(ctx context.Context) (int64, error) {
	return s.keyRepo.CountServiceKeys(ctx)
}

// generateAPIToken mints the key prefix plus 32 random bytes in hex.
func generateAPIToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(raw), nil
}

// hashToken is the stored form of a token.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IsValidAPIToken reports whether token has the issued shape: the shl_
// prefix followed by 32 bytes in hex.
func IsValidAPIToken(token string) bool {
	hexPart, ok := strings.CutPrefix(token, apiKeyPrefix)
	if !ok || len(hexPart) != 64 {
		return false
	}
	_, err := hex.DecodeString(hexPart)
	return err == nil
}
