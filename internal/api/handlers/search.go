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

type SearchService interface {
	Search(ctx context.Context, identity domain.Identity, input service.SearchInput) ([]*service.SearchResult, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query     string    `json:"query"`
	Embedding []float32 `json:"embedding,omitempty"`
	Threshold *float64  `json:"threshold,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	Course    *string   `json:"course,omitempty"`
}

type SearchResultResponse struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	CourseTag  *string `json:"course_tag,omitempty"`
	FileName   string  `json:"file_name"`
	FileKind   string  `json:"file_kind"`
	IsGlobal   bool    `json:"is_global"`
}

type SearchResponse struct {
	Results []*SearchResultResponse `json:"results"`
	Count   int                     `json:"count"`
}

func searchResultToResponse(r *service.SearchResult) *SearchResultResponse {
	return &SearchResultResponse{
		ID:         r.ID,
		Content:    r.Content,
		Similarity: r.Similarity,
		CourseTag:  r.CourseTag,
		FileName:   r.FileName,
		FileKind:   string(r.FileKind),
		IsGlobal:   r.IsGlobal,
	}
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity.IsAnonymous() {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" && len(req.Embedding) == 0 {
		api.Error(w, http.StatusBadRequest, "query or embedding is required")
		return
	}

	input := service.SearchInput{
		Query:     req.Query,
		Embedding: req.Embedding,
		Threshold: req.Threshold,
		Limit:     req.Limit,
		Course:    req.Course,
	}

	results, err := h.svc.Search(r.Context(), identity, input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*SearchResultResponse, len(results))
	for i, res := range results {
		responses[i] = searchResultToResponse(res)
	}

	api.Success(w, http.StatusOK, SearchResponse{
		Results: responses,
		Count:   len(responses),
	})
}
