package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/studyhall-hq/studyhall/internal/domain"
)

// MockAttendanceRepository is a mock implementation of AttendanceRepositoryInterface
type MockAttendanceRepository struct {
	mock.Mock
}

func (m *MockAttendanceRepository) Create(ctx context.Context, record *domain.AttendanceRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAttendanceRepository) SummaryByTenant(ctx context.Context, tenantID string) ([]*domain.CourseAttendance, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CourseAttendance), args.Error(1)
}

func TestAttendanceService_Mark(t *testing.T) {
	ctx := context.Background()

	t.Run("records a mark for the named course", func(t *testing.T) {
		mockRepo := new(MockAttendanceRepository)
		mockTenants := new(MockTenantRepository)
		mockUUIDGen := NewMockUUIDGenerator("record-1")
		svc := NewAttendanceServiceWithUUIDGen(mockRepo, mockTenants, mockUUIDGen)

		mockTenants.On("GetByID", mock.Anything, "tenant-1").Return(testTenant("tenant-1", "cs101"), nil)
		mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.AttendanceRecord) bool {
			return r.ID == "record-1" && r.TenantID == "tenant-1" && r.CourseTag == "math200"
		})).Return(nil)

		record, err := svc.Mark(ctx, domain.TenantIdentity("tenant-1"), "math200")

		require.NoError(t, err)
		assert.Equal(t, "math200", record.CourseTag)
		mockRepo.AssertExpectations(t)
	})

	t.Run("defaults to the tenant's own course", func(t *testing.T) {
		mockRepo := new(MockAttendanceRepository)
		mockTenants := new(MockTenantRepository)
		svc := NewAttendanceService(mockRepo, mockTenants)

		mockTenants.On("GetByID", mock.Anything, "tenant-1").Return(testTenant("tenant-1", "cs101"), nil)
		mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.AttendanceRecord) bool {
			return r.CourseTag == "cs101"
		})).Return(nil)

		record, err := svc.Mark(ctx, domain.TenantIdentity("tenant-1"), "")

		require.NoError(t, err)
		assert.Equal(t, "cs101", record.CourseTag)
		mockRepo.AssertExpectations(t)
	})

	t.Run("requires a course when the tenant has none", func(t *testing.T) {
		mockRepo := new(MockAttendanceRepository)
		mockTenants := new(MockTenantRepository)
		svc := NewAttendanceService(mockRepo, mockTenants)

		mockTenants.On("GetByID", mock.Anything, "tenant-1").Return(testTenant("tenant-1", ""), nil)

		_, err := svc.Mark(ctx, domain.TenantIdentity("tenant-1"), "  ")

		assert.ErrorIs(t, err, domain.ErrMissingCourseTag)
		mockRepo.AssertNotCalled(t, "Create")
	})

	t.Run("rejects anonymous identity", func(t *testing.T) {
		svc := NewAttendanceService(new(MockAttendanceRepository), new(MockTenantRepository))

		_, err := svc.Mark(ctx, domain.Identity{}, "cs101")

		assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
	})

	t.Run("rejects service identity", func(t *testing.T) {
		svc := NewAttendanceService(new(MockAttendanceRepository), new(MockTenantRepository))

		_, err := svc.Mark(ctx, domain.ServiceIdentity(), "cs101")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no attendance")
	})

	t.Run("returns tenant not found for unknown caller", func(t *testing.T) {
		mockRepo := new(MockAttendanceRepository)
		mockTenants := new(MockTenantRepository)
		svc := NewAttendanceService(mockRepo, mockTenants)

		mockTenants.On("GetByID", mock.Anything, "ghost").Return(nil, domain.ErrTenantNotFound)

		_, err := svc.Mark(ctx, domain.TenantIdentity("ghost"), "cs101")

		assert.ErrorIs(t, err, domain.ErrTenantNotFound)
	})
}

func TestAttendanceService_Summary(t *testing.T) {
	ctx := context.Background()

	t.Run("reports per-course percentage against the session count", func(t *testing.T) {
		mockRepo := new(MockAttendanceRepository)
		mockTenants := new(MockTenantRepository)
		svc := NewAttendanceService(mockRepo, mockTenants)

		lastMarked := time.Now().UTC()
		mockRepo.On("SummaryByTenant", mock.Anything, "tenant-1").Return([]*domain.CourseAttendance{
			{CourseTag: "cs101", Sessions: 7, LastMarkedAt: lastMarked},
			{CourseTag: "math200", Sessions: 15, LastMarkedAt: lastMarked},
			{CourseTag: "phys110", Sessions: 3, LastMarkedAt: lastMarked},
		}, nil)

		summaries, err := svc.Summary(ctx, domain.TenantIdentity("tenant-1"))

		require.NoError(t, err)
		require.Len(t, summaries, 3)
		assert.Equal(t, "cs101", summaries[0].CourseTag)
		assert.Equal(t, 7, summaries[0].Sessions)
		assert.Equal(t, TotalSessionsPerCourse, summaries[0].TotalSessions)
		assert.InDelta(t, 46.67, summaries[0].Percentage, 0.001)
		assert.InDelta(t, 100.0, summaries[1].Percentage, 0.001)
		assert.InDelta(t, 20.0, summaries[2].Percentage, 0.001)
	})

	t.Run("caps the percentage at 100", func(t *testing.T) {
		mockRepo := new(MockAttendanceRepository)
		mockTenants := new(MockTenantRepository)
		svc := NewAttendanceService(mockRepo, mockTenants)

		mockRepo.On("SummaryByTenant", mock.Anything, "tenant-1").Return([]*domain.CourseAttendance{
			{CourseTag: "cs101", Sessions: 20, LastMarkedAt: time.Now().UTC()},
		}, nil)

		summaries, err := svc.Summary(ctx, domain.TenantIdentity("tenant-1"))

		require.NoError(t, err)
		assert.Equal(t, 100.0, summaries[0].Percentage)
	})

	t.Run("returns an empty summary for a fresh tenant", func(t *testing.T) {
		mockRepo := new(MockAttendanceRepository)
		mockTenants := new(MockTenantRepository)
		svc := NewAttendanceService(mockRepo, mockTenants)

		mockRepo.On("SummaryByTenant", mock.Anything, "tenant-1").Return([]*domain.CourseAttendance{}, nil)

		summaries, err := svc.Summary(ctx, domain.TenantIdentity("tenant-1"))

		require.NoError(t, err)
		assert.Empty(t, summaries)
	})

	t.Run("rejects anonymous identity", func(t *testing.T) {
		svc := NewAttendanceService(new(MockAttendanceRepository), new(MockTenantRepository))

		_, err := svc.Summary(ctx, domain.Identity{})

		assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
	})

	t.Run("rejects service identity", func(t *testing.T) {
		svc := NewAttendanceService(new(MockAttendanceRepository), new(MockTenantRepository))

		_, err := svc.Summary(ctx, domain.ServiceIdentity())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no attendance")
	})
}

func TestAttendancePercentage(t *testing.T) {
	tests := []struct {
		sessions int
		want     float64
	}{
		{0, 0},
		{1, 6.67},
		{3, 20},
		{7, 46.67},
		{11, 73.33},
		{15, 100},
		{30, 100},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, attendancePercentage(tt.sessions), 0.001, "sessions=%d", tt.sessions)
	}
}
