package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/oeams/oeams-api/internal/dto"
	"github.com/oeams/oeams-api/internal/models"
	"github.com/oeams/oeams-api/internal/workflow"
)

type progressFixture struct {
	applications *fakeApplicationRepo
	requirements *fakeRequirementRepo
	attendance   *fakeAttendanceRepo
	svc          *progressService
}

func newProgressFixture(t *testing.T, cache *redis.Client) progressFixture {
	t.Helper()
	applications := newFakeApplicationRepo()
	requirements := newFakeRequirementRepo()
	attendance := newFakeAttendanceRepo()
	validate := validator.New(validator.WithRequiredStructEnabled())

	svc := NewProgressService(applications, requirements, attendance, cache, 5*time.Minute, 486, validate, nil, zerolog.Nop())
	return progressFixture{
		applications: applications,
		requirements: requirements,
		attendance:   attendance,
		svc:          svc.(*progressService),
	}
}

func (f progressFixture) seedAcceptedApplication(t *testing.T, studentID uint, startDate *time.Time) models.Application {
	t.Helper()
	application := models.Application{
		InternshipID: 1,
		StudentID:    studentID,
		Status:       workflow.ApplicationAccepted,
		OjtStartDate: startDate,
		AppliedAt:    time.Now(),
	}
	require.NoError(t, f.applications.Create(context.Background(), &application))
	return application
}

func (f progressFixture) seedValidatedRequirement(t *testing.T, studentID uint, phase workflow.RequirementPhase) {
	t.Helper()
	definition := models.RequirementDefinition{Title: "Required Document", Phase: phase, Required: true}
	require.NoError(t, f.requirements.CreateDefinition(context.Background(), &definition))

	now := time.Now()
	submission := models.RequirementSubmission{
		StudentID:     studentID,
		RequirementID: definition.ID,
		Status:        workflow.RequirementValidated,
		FileReference: "https://files.test/doc.pdf",
		Validated:     true,
		SubmittedAt:   &now,
		ValidatedAt:   &now,
	}
	require.NoError(t, f.requirements.SaveSubmission(context.Background(), &submission))
}

func (f progressFixture) seedApprovedHours(t *testing.T, studentID uint, day time.Time, hours float64) {
	t.Helper()
	timeIn := day.Add(8 * time.Hour)
	timeOut := timeIn.Add(time.Duration(hours * float64(time.Hour)))
	record := models.AttendanceRecord{
		StudentID:        studentID,
		Date:             workflow.DateOnly(day),
		TimeIn:           &timeIn,
		TimeOut:          &timeOut,
		TotalHours:       hours,
		ValidationStatus: workflow.AttendanceApproved,
	}
	require.NoError(t, f.attendance.Create(context.Background(), &record))
}

func TestProgressStatusLadder(t *testing.T) {
	const studentID = 11
	today := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("no start date", func(t *testing.T) {
		fixture := newProgressFixture(t, nil)
		fixture.svc.now = func() time.Time { return today }
		fixture.seedAcceptedApplication(t, studentID, nil)

		snapshot, err := fixture.svc.Snapshot(context.Background(), studentID)
		require.NoError(t, err)
		require.Equal(t, workflow.OjtAcceptedNoStartDate, snapshot.OjtStatus)
	})

	t.Run("scheduled", func(t *testing.T) {
		fixture := newProgressFixture(t, nil)
		fixture.svc.now = func() time.Time { return today }
		future := today.AddDate(0, 0, 14)
		fixture.seedAcceptedApplication(t, studentID, &future)

		snapshot, err := fixture.svc.Snapshot(context.Background(), studentID)
		require.NoError(t, err)
		require.Equal(t, workflow.OjtScheduled, snapshot.OjtStatus)
	})

	t.Run("pending requirements", func(t *testing.T) {
		fixture := newProgressFixture(t, nil)
		fixture.svc.now = func() time.Time { return today }
		past := today.AddDate(0, -1, 0)
		fixture.seedAcceptedApplication(t, studentID, &past)

		definition := models.RequirementDefinition{Title: "Medical Certificate", Phase: workflow.PhasePre, Required: true}
		require.NoError(t, fixture.requirements.CreateDefinition(context.Background(), &definition))

		snapshot, err := fixture.svc.Snapshot(context.Background(), studentID)
		require.NoError(t, err)
		require.Equal(t, workflow.OjtPendingRequirements, snapshot.OjtStatus)
		require.False(t, snapshot.PreValidated)
	})

	t.Run("ongoing until the last hundredth of an hour", func(t *testing.T) {
		fixture := newProgressFixture(t, nil)
		fixture.svc.now = func() time.Time { return today }
		past := today.AddDate(0, -3, 0)
		fixture.seedAcceptedApplication(t, studentID, &past)
		fixture.seedValidatedRequirement(t, studentID, workflow.PhasePre)
		fixture.seedValidatedRequirement(t, studentID, workflow.PhasePost)

		for i := 0; i < 60; i++ {
			fixture.seedApprovedHours(t, studentID, past.AddDate(0, 0, i), 8)
		}
		fixture.seedApprovedHours(t, studentID, past.AddDate(0, 0, 61), 5.99)

		snapshot, err := fixture.svc.Snapshot(context.Background(), studentID)
		require.NoError(t, err)
		require.Equal(t, 485.99, snapshot.AccomplishedHours)
		require.Equal(t, workflow.OjtOngoing, snapshot.OjtStatus)
		require.Equal(t, 0.01, snapshot.RemainingHours)
		require.Equal(t, 100.0, snapshot.ProgressPercentage)
		require.False(t, snapshot.CanSubmitGrade)
	})

	t.Run("completed at the exact threshold", func(t *testing.T) {
		fixture := newProgressFixture(t, nil)
		fixture.svc.now = func() time.Time { return today }
		past := today.AddDate(0, -3, 0)
		fixture.seedAcceptedApplication(t, studentID, &past)
		fixture.seedValidatedRequirement(t, studentID, workflow.PhasePre)
		fixture.seedValidatedRequirement(t, studentID, workflow.PhasePost)

		for i := 0; i < 60; i++ {
			fixture.seedApprovedHours(t, studentID, past.AddDate(0, 0, i), 8)
		}
		fixture.seedApprovedHours(t, studentID, past.AddDate(0, 0, 61), 6)

		snapshot, err := fixture.svc.Snapshot(context.Background(), studentID)
		require.NoError(t, err)
		require.Equal(t, 486.0, snapshot.AccomplishedHours)
		require.Equal(t, workflow.OjtCompleted, snapshot.OjtStatus)
		require.Equal(t, 0.0, snapshot.RemainingHours)
		require.True(t, snapshot.CanSubmitGrade)
	})
}

func TestProgressSnapshotWithoutAcceptance(t *testing.T) {
	fixture := newProgressFixture(t, nil)

	_, err := fixture.svc.Snapshot(context.Background(), 99)
	require.ErrorIs(t, err, ErrNoAcceptedApplication)
}

func TestProgressRejectedHoursDoNotCount(t *testing.T) {
	const studentID = 11
	today := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	fixture := newProgressFixture(t, nil)
	fixture.svc.now = func() time.Time { return today }
	past := today.AddDate(0, -1, 0)
	fixture.seedAcceptedApplication(t, studentID, &past)

	fixture.seedApprovedHours(t, studentID, past, 8)

	pendingIn := past.AddDate(0, 0, 1).Add(8 * time.Hour)
	pendingOut := pendingIn.Add(8 * time.Hour)
	pending := models.AttendanceRecord{
		StudentID:        studentID,
		Date:             workflow.DateOnly(pendingIn),
		TimeIn:           &pendingIn,
		TimeOut:          &pendingOut,
		TotalHours:       8,
		ValidationStatus: workflow.AttendancePending,
	}
	require.NoError(t, fixture.attendance.Create(context.Background(), &pending))

	rejectedIn := past.AddDate(0, 0, 2).Add(8 * time.Hour)
	rejectedOut := rejectedIn.Add(8 * time.Hour)
	rejected := models.AttendanceRecord{
		StudentID:        studentID,
		Date:             workflow.DateOnly(rejectedIn),
		TimeIn:           &rejectedIn,
		TimeOut:          &rejectedOut,
		TotalHours:       8,
		ValidationStatus: workflow.AttendanceRejected,
	}
	require.NoError(t, fixture.attendance.Create(context.Background(), &rejected))

	snapshot, err := fixture.svc.Snapshot(context.Background(), studentID)
	require.NoError(t, err)
	require.Equal(t, 8.0, snapshot.AccomplishedHours)
}

func TestProgressSnapshotCaching(t *testing.T) {
	const studentID = 11
	today := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	server := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	fixture := newProgressFixture(t, cache)
	fixture.svc.now = func() time.Time { return today }
	past := today.AddDate(0, -1, 0)
	fixture.seedAcceptedApplication(t, studentID, &past)
	fixture.seedApprovedHours(t, studentID, past, 8)

	first, err := fixture.svc.Snapshot(context.Background(), studentID)
	require.NoError(t, err)
	require.Equal(t, 8.0, first.AccomplishedHours)
	require.True(t, server.Exists(progressCacheKey(studentID)))

	// A stale snapshot is served until invalidation.
	fixture.seedApprovedHours(t, studentID, past.AddDate(0, 0, 1), 8)

	cached, err := fixture.svc.Snapshot(context.Background(), studentID)
	require.NoError(t, err)
	require.Equal(t, 8.0, cached.AccomplishedHours)

	fixture.svc.Invalidate(context.Background(), studentID)
	require.False(t, server.Exists(progressCacheKey(studentID)))

	fresh, err := fixture.svc.Snapshot(context.Background(), studentID)
	require.NoError(t, err)
	require.Equal(t, 16.0, fresh.AccomplishedHours)
}

func TestRecordGradeOneShot(t *testing.T) {
	const studentID = 11
	today := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	fixture := newProgressFixture(t, nil)
	fixture.svc.now = func() time.Time { return today }
	past := today.AddDate(0, -3, 0)
	application := fixture.seedAcceptedApplication(t, studentID, &past)
	fixture.seedValidatedRequirement(t, studentID, workflow.PhasePre)
	fixture.seedValidatedRequirement(t, studentID, workflow.PhasePost)
	for i := 0; i < 61; i++ {
		fixture.seedApprovedHours(t, studentID, past.AddDate(0, 0, i), 8)
	}

	coordinator := workflow.Actor{ID: 2, Role: workflow.RoleCoordinator}

	_, err := fixture.svc.RecordGrade(context.Background(), workflow.Actor{ID: 7, Role: workflow.RoleEmployer}, application.ID, dto.GradeRequest{Grade: 90})
	require.ErrorIs(t, err, workflow.ErrUnauthorized)

	graded, err := fixture.svc.RecordGrade(context.Background(), coordinator, application.ID, dto.GradeRequest{Grade: 90})
	require.NoError(t, err)
	require.NotNil(t, graded.Grade)
	require.Equal(t, 90.0, *graded.Grade)
	require.NotNil(t, graded.GradedAt)

	_, err = fixture.svc.RecordGrade(context.Background(), coordinator, application.ID, dto.GradeRequest{Grade: 95})
	require.ErrorIs(t, err, workflow.ErrGradeAlreadyRecorded)
}

func TestRecordGradeRequiresCompletion(t *testing.T) {
	const studentID = 11
	today := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	fixture := newProgressFixture(t, nil)
	fixture.svc.now = func() time.Time { return today }
	past := today.AddDate(0, -1, 0)
	application := fixture.seedAcceptedApplication(t, studentID, &past)
	fixture.seedApprovedHours(t, studentID, past, 8)

	_, err := fixture.svc.RecordGrade(context.Background(), workflow.Actor{ID: 2, Role: workflow.RoleCoordinator}, application.ID, dto.GradeRequest{Grade: 90})
	require.ErrorIs(t, err, workflow.ErrOjtNotCompleted)
}
