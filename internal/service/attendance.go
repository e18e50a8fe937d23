package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/studyhall-hq/studyhall/internal/domain"
	"github.com/studyhall-hq/studyhall/internal/metrics"
	"github.com/studyhall-hq/studyhall/internal/telemetry"
)

// TotalSessionsPerCourse is the session count a course runs for; attendance
// percentages are computed against it.
const TotalSessionsPerCourse = 15

// AttendanceRepositoryInterface defines the repository interface for attendance persistence
type AttendanceRepositoryInterface interface {
	Create(ctx context.Context, record *domain.AttendanceRecord) error
	SummaryByTenant(ctx context.Context, tenantID string) ([]*domain.CourseAttendance, error)
}

// CourseSummary is the attendance standing for one course.
type CourseSummary struct {
	CourseTag     string
	Sessions      int
	TotalSessions int
	Percentage    float64
	LastMarkedAt  time.Time
}

// AttendanceService records attendance marks and reports per-course standing.
type AttendanceService struct {
	repo    AttendanceRepositoryInterface
	tenants SearchTenantRepository
	uuidGen UUIDGenerator
}

// NewAttendanceService creates a new AttendanceService instance
func NewAttendanceService(repo AttendanceRepositoryInterface, tenants SearchTenantRepository) *AttendanceService {
	return &AttendanceService{repo: repo, tenants: tenants, uuidGen: &DefaultUUIDGenerator{}}
}

// NewAttendanceServiceWithUUIDGen creates a new AttendanceService with custom UUID generator (for testing)
func NewAttendanceServiceWithUUIDGen(repo AttendanceRepositoryInterface, tenants SearchTenantRepository, uuidGen UUIDGenerator) *AttendanceService {
	return &AttendanceService{repo: repo, tenants: tenants, uuidGen: uuidGen}
}

// Mark records one attendance mark for the caller. The course defaults to
// the tenant's own course tag when the request does not name one.
func (s *AttendanceService) Mark(ctx context.Context, identity domain.Identity, courseTag string) (*domain.AttendanceRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "AttendanceService.Mark", telemetry.SpanAttributes{
		TenantID:  identity.TenantID,
		CourseTag: courseTag,
		Operation: "attendance_mark",
	})
	defer span.End()

	if identity.IsAnonymous() {
		return nil, domain.ErrAuthenticationRequired
	}
	if identity.IsService() {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidOperation, "service identity has no attendance")
	}

	tenant, err := s.tenants.GetByID(ctx, identity.TenantID)
	if err != nil {
		return nil, err
	}

	courseTag = strings.TrimSpace(courseTag)
	if courseTag == "" && tenant.CourseTag != nil {
		courseTag = *tenant.CourseTag
	}
	if courseTag == "" {
		return nil, domain.ErrMissingCourseTag
	}

	record := domain.NewAttendanceRecord(s.uuidGen.NewString(), tenant.ID, courseTag, time.Now().UTC())
	if err := domain.ValidateAttendanceRecord(record); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}
	metrics.AttendanceMarksTotal.Inc()

	return record, nil
}

// Summary returns the caller's attendance standing per course, most recently
// marked course first.
func (s *AttendanceService) Summary(ctx context.Context, identity domain.Identity) ([]*CourseSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "AttendanceService.Summary", telemetry.SpanAttributes{
		TenantID:  identity.TenantID,
		Operation: "attendance_summary",
	})
	defer span.End()

	if identity.IsAnonymous() {
		return nil, domain.ErrAuthenticationRequired
	}
	if identity.IsService() {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidOperation, "service identity has no attendance")
	}

	courses, err := s.repo.SummaryByTenant(ctx, identity.TenantID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*CourseSummary, 0, len(courses))
	for _, c := range courses {
		summaries = append(summaries, &CourseSummary{
			CourseTag:     c.CourseTag,
			Sessions:      c.Sessions,
			TotalSessions: TotalSessionsPerCourse,
			Percentage:    attendancePercentage(c.Sessions),
			LastMarkedAt:  c.LastMarkedAt,
		})
	}

	return summaries, nil
}

// attendancePercentage converts a session count to a percentage of the
// course length, rounded to two decimals and capped at 100.
func attendancePercentage(sessions int) float64 {
	pct := float64(sessions) / TotalSessionsPerCourse * 100
	if pct > 100 {
		pct = 100
	}
	return math.Round(pct*100) / 100
}
