package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/studyhall-hq/studyhall/internal/api"
	"github.com/studyhall-hq/studyhall/internal/api/middleware"
	"github.com/studyhall-hq/studyhall/internal/domain"
	"github.com/studyhall-hq/studyhall/internal/service"
)

// uploadFormMemory caps how much of a multipart upload is buffered in memory
// before spilling to disk. The request body itself is bounded by the
// MaxBodyBytes middleware.
const uploadFormMemory = 8 << 20

type DocumentService interface {
	List(ctx context.Context, identity domain.Identity, input service.DocumentListInput) (*service.DocumentPageResult, error)
	Download(ctx context.Context, identity domain.Identity, storagePath string) (string, error)
	Delete(ctx context.Context, identity domain.Identity, storagePath string) (int64, error)
}

type IngestionService interface {
	Ingest(ctx context.Context, identity domain.Identity, input service.IngestInput) (*service.IngestReport, error)
}

type DocumentHandler struct {
	svc       DocumentService
	ingestion IngestionService
}

func NewDocumentHandler(svc DocumentService, ingestion IngestionService) *DocumentHandler {
	return &DocumentHandler{svc: svc, ingestion: ingestion}
}

type IngestReportResponse struct {
	StoragePath string `json:"storage_path"`
	FileName    string `json:"file_name"`
	TotalChunks int    `json:"total_chunks"`
	Committed   int    `json:"committed"`
	Queued      int    `json:"queued"`
}

type DocumentResponse struct {
	StoragePath    string  `json:"storage_path"`
	TenantID       *string `json:"tenant_id,omitempty"`
	CourseTag      *string `json:"course_tag,omitempty"`
	FileName       string  `json:"file_name"`
	FileKind       string  `json:"file_kind"`
	TotalChunks    int     `json:"total_chunks"`
	StoredChunks   int     `json:"stored_chunks"`
	EmbeddedChunks int     `json:"embedded_chunks"`
	IsGlobal       bool    `json:"is_global"`
	CreatedAt      string  `json:"created_at"`
}

type DocumentListResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

type DownloadURLResponse struct {
	DownloadURL string `json:"download_url"`
}

type DeleteDocumentResponse struct {
	StoragePath   string `json:"storage_path"`
	DeletedChunks int64  `json:"deleted_chunks"`
}

func documentToResponse(d *service.Document) *DocumentResponse {
	return &DocumentResponse{
		StoragePath:    d.StoragePath,
		TenantID:       d.TenantID,
		CourseTag:      d.CourseTag,
		FileName:       d.FileName,
		FileKind:       string(d.FileKind),
		TotalChunks:    d.TotalChunks,
		StoredChunks:   d.StoredChunks,
		EmbeddedChunks: d.EmbeddedChunks,
		IsGlobal:       d.IsGlobal(),
		CreatedAt:      d.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity.IsAnonymous() {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(uploadFormMemory); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	var course *string
	if tag := r.FormValue("course_tag"); tag != "" {
		course = &tag
	}

	input := service.IngestInput{
		FileName: header.Filename,
		Data:     data,
		Course:   course,
	}

	report, err := h.ingestion.Ingest(r.Context(), identity, input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, IngestReportResponse{
		StoragePath: report.StoragePath,
		FileName:    report.FileName,
		TotalChunks: report.TotalChunks,
		Committed:   report.Committed,
		Queued:      report.Queued,
	})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity.IsAnonymous() {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	input := service.DocumentListInput{
		Cursor: cursor,
		Limit:  limit,
	}

	page, err := h.svc.List(r.Context(), identity, input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, len(page.Items))
	for i, d := range page.Items {
		responses[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:   responses,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}

func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity.IsAnonymous() {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	storagePath := r.URL.Query().Get("path")
	if storagePath == "" {
		api.Error(w, http.StatusBadRequest, "path is required")
		return
	}

	downloadURL, err := h.svc.Download(r.Context(), identity, storagePath)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DownloadURLResponse{
		DownloadURL: downloadURL,
	})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity.IsAnonymous() {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	storagePath := r.URL.Query().Get("path")
	if storagePath == "" {
		api.Error(w, http.StatusBadRequest, "path is required")
		return
	}

	deleted, err := h.svc.Delete(r.Context(), identity, storagePath)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DeleteDocumentResponse{
		StoragePath:   storagePath,
		DeletedChunks: deleted,
	})
}
