package domain

import (
	"fmt"
	"time"
)

// AttendanceRecord represents a single attendance mark for a course
type AttendanceRecord struct {
	ID        string
	TenantID  string
	CourseTag string
	MarkedAt  time.Time
}

// NewAttendanceRecord creates a new AttendanceRecord instance
func NewAttendanceRecord(id, tenantID, courseTag string, markedAt time.Time) *AttendanceRecord {
	return &AttendanceRecord{
		ID:        id,
		TenantID:  tenantID,
		CourseTag: courseTag,
		MarkedAt:  markedAt,
	}
}

// ValidateAttendanceRecord validates an AttendanceRecord instance
func ValidateAttendanceRecord(r *AttendanceRecord) error {
	if r == nil {
		return fmt.Errorf("attendance record cannot be nil")
	}

	if r.ID == "" {
		return fmt.Errorf("attendance record ID is required")
	}

	if r.TenantID == "" {
		return fmt.Errorf("attendance record TenantID is required")
	}

	if r.CourseTag == "" {
		return fmt.Errorf("attendance record CourseTag is required")
	}

	return nil
}

// CourseAttendance is the per-course aggregate returned by the summary.
type CourseAttendance struct {
	CourseTag    string
	Sessions     int
	LastMarkedAt time.Time
}
