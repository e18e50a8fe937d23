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

type AttendanceService interface {
	Mark(ctx context.Context, identity domain.Identity, courseTag string) (*domain.AttendanceRecord, error)
	Summary(ctx context.Context, identity domain.Identity) ([]*service.CourseSummary, error)
}

type AttendanceHandler struct {
	svc AttendanceService
}

func NewAttendanceHandler(svc AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{svc: svc}
}

type MarkAttendanceRequest struct {
	CourseTag string `json:"course_tag"`
}

type AttendanceRecordResponse struct {
	ID        string `json:"id"`
	CourseTag string `json:"course_tag"`
	MarkedAt  string `json:"marked_at"`
}

type CourseSummaryResponse struct {
	CourseTag     string  `json:"course_tag"`
	Sessions      int     `json:"sessions"`
	TotalSessions int     `json:"total_sessions"`
	Percentage    float64 `json:"percentage"`
	LastMarkedAt  string  `json:"last_marked_at"`
}

type AttendanceSummaryResponse struct {
	Courses []*CourseSummaryResponse `json:"courses"`
}

func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity.IsAnonymous() {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req MarkAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.svc.Mark(r.Context(), identity, req.CourseTag)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, AttendanceRecordResponse{
		ID:        record.ID,
		CourseTag: record.CourseTag,
		MarkedAt:  record.MarkedAt.Format("2006-01-02T15:04:05Z"),
	})
}

func (h *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity.IsAnonymous() {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summaries, err := h.svc.Summary(r.Context(), identity)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*CourseSummaryResponse, len(summaries))
	for i, s := range summaries {
		responses[i] = &CourseSummaryResponse{
			CourseTag:     s.CourseTag,
			Sessions:      s.Sessions,
			TotalSessions: s.TotalSessions,
			Percentage:    s.Percentage,
			LastMarkedAt:  s.LastMarkedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	api.Success(w, http.StatusOK, AttendanceSummaryResponse{Courses: responses})
}
