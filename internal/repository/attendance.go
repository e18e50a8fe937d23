package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studyhall-hq/studyhall/internal/domain"
)

// AttendanceRepository persists attendance marks.
type AttendanceRepository struct {
	db dbtx
}

func NewAttendanceRepository(pool *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{db: pool}
}

func (r *AttendanceRepository) Create(ctx context.Context, record *domain.AttendanceRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO attendance_records (id, tenant_id, course_tag, marked_at)
		 VALUES ($1, $2, $3, $4)`,
		record.ID, record.TenantID, record.CourseTag, record.MarkedAt,
	)
	return err
}

// SummaryByTenant aggregates marks per course, newest course first.
func (r *AttendanceRepository) SummaryByTenant(ctx context.Context, tenantID string) ([]*domain.CourseAttendance, error) {
	rows, err := r.db.Query(ctx,
		`SELECT course_tag, COUNT(*), MAX(marked_at)
		 FROM attendance_records
		 WHERE tenant_id = $1
		 GROUP BY course_tag
		 ORDER BY MAX(marked_at) DESC`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*domain.CourseAttendance
	for rows.Next() {
		var s domain.CourseAttendance
		if err := rows.Scan(&s.CourseTag, &s.Sessions, &s.LastMarkedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}
