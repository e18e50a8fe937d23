package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/studyhall-hq/studyhall/internal/api"
	"github.com/studyhall-hq/studyhall/internal/api/middleware"
	"github.com/studyhall-hq/studyhall/internal/domain"
)

type APIKeyService interface {
	CreateTenantKey(ctx context.Context, tenantID, name string) (string, error)
	CreateServiceKey(ctx context.Context, name string) (string, error)
	RevokeAPIKey(ctx context.Context, keyID string) error
	ListAPIKeys(ctx context.Context, tenantID string) ([]*domain.APIKey, error)
}

type APIKeyHandler struct {
	svc APIKeyService
}

func NewAPIKeyHandler(svc APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{svc: svc}
}

type CreateAPIKeyRequest struct {
	TenantID string `json:"tenant_id,omitempty"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
}

type CreateAPIKeyResponse struct {
	Token string `json:"token"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type APIKeyResponse struct {
	ID        string  `json:"id"`
	TenantID  *string `json:"tenant_id,omitempty"`
	Name      string  `json:"name"`
	Role      string  `json:"role"`
	Revoked   bool    `json:"revoked"`
	CreatedAt string  `json:"created_at"`
}

type APIKeyListResponse struct {
	Items []*APIKeyResponse `json:"items"`
}

func apiKeyToResponse(k *domain.APIKey) *APIKeyResponse {
	return &APIKeyResponse{
		ID:        k.ID,
		TenantID:  k.TenantID,
		Name:      k.Name,
		Role:      string(k.Role),
		Revoked:   k.RevokedAt != nil,
		CreatedAt: k.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// Create issues a new API key. Key issuance is a service-identity operation;
// the plaintext token is returned once and never stored.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity.IsAnonymous() {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !identity.IsService() {
		api.Error(w, http.StatusForbidden, "api key issuance requires a service key")
		return
	}

	var req CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	role := req.Role
	if role == "" {
		role = string(domain.KeyRoleTenant)
	}

	var token string
	var err error
	switch domain.KeyRole(role) {
	case domain.KeyRoleTenant:
		if req.TenantID == "" {
			api.Error(w, http.StatusBadRequest, "tenant_id is required")
			return
		}
		token, err = h.svc.CreateTenantKey(r.Context(), req.TenantID, req.Name)
	case domain.KeyRoleService:
		token, err = h.svc.CreateServiceKey(r.Context(), req.Name)
	default:
		api.Error(w, http.StatusBadRequest, "invalid role")
		return
	}
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, CreateAPIKeyResponse{
		Token: token,
		Name:  req.Name,
		Role:  role,
	})
}

// List returns the keys of one tenant. Tenants may only list their own keys;
// the service identity may list any tenant's.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity.IsAnonymous() {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		tenantID = identity.TenantID
	}
	if tenantID == "" {
		api.Error(w, http.StatusBadRequest, "tenant_id is required")
		return
	}
	if !identity.IsService() && tenantID != identity.TenantID {
		api.Error(w, http.StatusForbidden, "cannot list another tenant's keys")
		return
	}

	keys, err := h.svc.ListAPIKeys(r.Context(), tenantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*APIKeyResponse, len(keys))
	for i, k := range keys {
		responses[i] = apiKeyToResponse(k)
	}

	api.Success(w, http.StatusOK, APIKeyListResponse{Items: responses})
}

// Revoke disables a key. Revocation is a service-identity operation.
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity.IsAnonymous() {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !identity.IsService() {
		api.Error(w, http.StatusForbidden, "api key revocation requires a service key")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.RevokeAPIKey(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id, "status": "revoked"})
}
