package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/studyhall-hq/studyhall/internal/api"
	"github.com/studyhall-hq/studyhall/internal/api/middleware"
	"github.com/studyhall-hq/studyhall/internal/domain"
	"github.com/studyhall-hq/studyhall/internal/service"
)

type TenantService interface {
	Sync(ctx context.Context, identity domain.Identity, input service.SyncInput) (*service.SyncResult, error)
	Me(ctx context.Context, identity domain.Identity) (*domain.Tenant, error)
	CompleteOnboarding(ctx context.Context, identity domain.Identity, input service.OnboardingInput) (*domain.Tenant, error)
	List(ctx context.Context, identity domain.Identity) ([]*domain.Tenant, error)
}

type TenantHandler struct {
	svc TenantService
}

func NewTenantHandler(svc TenantService) *TenantHandler {
	return &TenantHandler{svc: svc}
}

type SyncTenantRequest struct {
	ExternalIdentity string `json:"external_identity"`
	Email            string `json:"email"`
}

type OnboardingRequest struct {
	DisplayName string `json:"display_name"`
	CourseTag   string `json:"course_tag"`
}

type TenantResponse struct {
	ID               string  `json:"id"`
	ExternalIdentity string  `json:"external_identity"`
	Email            string  `json:"email"`
	DisplayName      string  `json:"display_name,omitempty"`
	CourseTag        *string `json:"course_tag,omitempty"`
	Onboarding       string  `json:"onboarding"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

type SyncTenantResponse struct {
	Tenant  *TenantResponse `json:"tenant"`
	Created bool            `json:"created"`
}

type TenantListResponse struct {
	Items []*TenantResponse `json:"items"`
}

func tenantToResponse(t *domain.Tenant) *TenantResponse {
	return &TenantResponse{
		ID:               t.ID,
		ExternalIdentity: t.ExternalIdentity,
		Email:            t.Email,
		DisplayName:      t.DisplayName,
		CourseTag:        t.CourseTag,
		Onboarding:       string(t.Onboarding),
		CreatedAt:        t.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:        t.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *TenantHandler) Sync(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity.IsAnonymous() {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SyncTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ExternalIdentity == "" {
		api.Error(w, http.StatusBadRequest, "external_identity is required")
		return
	}

	input := service.SyncInput{
		ExternalIdentity: req.ExternalIdentity,
		Email:            req.Email,
	}

	result, err := h.svc.Sync(r.Context(), identity, input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}

	api.Success(w, status, SyncTenantResponse{
		Tenant:  tenantToResponse(result.Tenant),
		Created: result.Created,
	})
}

func (h *TenantHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity.IsAnonymous() {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tenant, err := h.svc.Me(r.Context(), identity)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, tenantToResponse(tenant))
}

func (h *TenantHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity.IsAnonymous() {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req OnboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CourseTag == "" {
		api.Error(w, http.StatusBadRequest, "course_tag is required")
		return
	}

	input := service.OnboardingInput{
		DisplayName: req.DisplayName,
		CourseTag:   req.CourseTag,
	}

	tenant, err := h.svc.CompleteOnboarding(r.Context(), identity, input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, tenantToResponse(tenant))
}

func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity.IsAnonymous() {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tenants, err := h.svc.List(r.Context(), identity)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*TenantResponse, len(tenants))
	for i, t := range tenants {
		responses[i] = tenantToResponse(t)
	}

	api.Success(w, http.StatusOK, TenantListResponse{Items: responses})
}
