package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oeams/oeams-api/internal/dto"
	"github.com/oeams/oeams-api/internal/models"
	"github.com/oeams/oeams-api/internal/repository"
	"github.com/oeams/oeams-api/internal/workflow"
)

type fakeAttendanceRepo struct {
	mu      sync.Mutex
	records map[uint]models.AttendanceRecord
	nextID  uint
}

func newFakeAttendanceRepo() *fakeAttendanceRepo {
	return &fakeAttendanceRepo{records: make(map[uint]models.AttendanceRecord), nextID: 1}
}

func (f *fakeAttendanceRepo) List(ctx context.Context, filter repository.AttendanceFilter) ([]models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []models.AttendanceRecord
	for _, record := range f.records {
		if filter.StudentID != nil && record.StudentID != *filter.StudentID {
			continue
		}
		if filter.Status != nil && record.ValidationStatus != *filter.Status {
			continue
		}
		result = append(result, record)
	}
	return result, nil
}

func (f *fakeAttendanceRepo) GetByID(ctx context.Context, id uint) (models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return models.AttendanceRecord{}, gorm.ErrRecordNotFound
	}
	return record, nil
}

func (f *fakeAttendanceRepo) GetByStudentAndDate(ctx context.Context, studentID uint, date time.Time) (models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	day := workflow.DateOnly(date)
	for _, record := range f.records {
		if record.StudentID == studentID && record.Date.Equal(day) {
			return record, nil
		}
	}
	return models.AttendanceRecord{}, gorm.ErrRecordNotFound
}

func (f *fakeAttendanceRepo) Create(ctx context.Context, record *models.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record.ID = f.nextID
	f.nextID++
	f.records[record.ID] = *record
	return nil
}

func (f *fakeAttendanceRepo) Update(ctx context.Context, record *models.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.ID] = *record
	return nil
}

type staticProgress struct {
	status workflow.OjtStatus
}

func (s staticProgress) Snapshot(ctx context.Context, studentID uint) (dto.ProgressResponse, error) {
	return dto.ProgressResponse{StudentID: studentID, OjtStatus: s.status}, nil
}

func newAttendanceService(repo repository.AttendanceRepository, status workflow.OjtStatus) *attendanceService {
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewAttendanceService(repo, staticProgress{status: status}, nil, validate, nil, nil, zerolog.Nop())
	return svc.(*attendanceService)
}

func TestAttendanceFullDay(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := newAttendanceService(repo, workflow.OjtOngoing)
	student := workflow.Actor{ID: 11, Role: workflow.RoleStudent}

	morning := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return morning }

	record, err := svc.TimeIn(context.Background(), student, dto.TimeInRequest{Tasks: "data entry"})
	require.NoError(t, err)
	require.NotNil(t, record.TimeIn)
	require.Nil(t, record.TimeOut)
	require.Equal(t, workflow.AttendancePending, record.ValidationStatus)
	require.Equal(t, "data entry", record.Tasks)

	svc.now = func() time.Time { return time.Date(2026, 3, 2, 17, 30, 0, 0, time.UTC) }

	closed, err := svc.TimeOut(context.Background(), student, dto.TimeOutRequest{Accomplishments: "encoded 200 records"})
	require.NoError(t, err)
	require.NotNil(t, closed.TimeOut)
	require.Equal(t, 9.5, closed.TotalHours)
	require.Equal(t, "encoded 200 records", closed.Accomplishments)
}

func TestAttendanceDoubleTimeIn(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := newAttendanceService(repo, workflow.OjtOngoing)
	student := workflow.Actor{ID: 11, Role: workflow.RoleStudent}
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }

	_, err := svc.TimeIn(context.Background(), student, dto.TimeInRequest{})
	require.NoError(t, err)

	_, err = svc.TimeIn(context.Background(), student, dto.TimeInRequest{})
	require.ErrorIs(t, err, workflow.ErrAlreadyTimedIn)
	require.Len(t, repo.records, 1)
}

func TestAttendanceTimeOutWithoutTimeIn(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := newAttendanceService(repo, workflow.OjtOngoing)

	_, err := svc.TimeOut(context.Background(), workflow.Actor{ID: 11, Role: workflow.RoleStudent}, dto.TimeOutRequest{})
	require.ErrorIs(t, err, workflow.ErrNoActiveTimeIn)
}

func TestAttendanceTimeInRequiresOngoingOjt(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := newAttendanceService(repo, workflow.OjtPendingRequirements)

	_, err := svc.TimeIn(context.Background(), workflow.Actor{ID: 11, Role: workflow.RoleStudent}, dto.TimeInRequest{})
	require.ErrorIs(t, err, workflow.ErrOjtNotOngoing)
	require.Empty(t, repo.records)
}

func TestAttendanceConcurrentTimeInSingleRecord(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := newAttendanceService(repo, workflow.OjtOngoing)
	student := workflow.Actor{ID: 11, Role: workflow.RoleStudent}
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.TimeIn(context.Background(), student, dto.TimeInRequest{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, refused int
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, workflow.ErrAlreadyTimedIn)
			refused++
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, attempts-1, refused)
	require.Len(t, repo.records, 1)
	require.Empty(t, svc.dayLocks)
}

func TestAttendanceDayLocksReleased(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := newAttendanceService(repo, workflow.OjtOngoing)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }

	for id := uint(1); id <= 20; id++ {
		student := workflow.Actor{ID: id, Role: workflow.RoleStudent}
		_, err := svc.TimeIn(context.Background(), student, dto.TimeInRequest{})
		require.NoError(t, err)
	}

	svc.now = func() time.Time { return time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC) }
	for id := uint(1); id <= 20; id++ {
		student := workflow.Actor{ID: id, Role: workflow.RoleStudent}
		_, err := svc.TimeOut(context.Background(), student, dto.TimeOutRequest{})
		require.NoError(t, err)
	}

	require.Empty(t, svc.dayLocks)
}

func TestAttendanceSupervisorValidation(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := newAttendanceService(repo, workflow.OjtOngoing)
	supervisor := workflow.Actor{ID: 9, Role: workflow.RoleSupervisor}

	timeIn := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	timeOut := timeIn.Add(8 * time.Hour)
	record := models.AttendanceRecord{
		StudentID:        11,
		Date:             workflow.DateOnly(timeIn),
		TimeIn:           &timeIn,
		TimeOut:          &timeOut,
		TotalHours:       8,
		ValidationStatus: workflow.AttendancePending,
	}
	require.NoError(t, repo.Create(context.Background(), &record))

	_, err := svc.Validate(context.Background(), workflow.Actor{ID: 11, Role: workflow.RoleStudent}, record.ID, dto.AttendanceValidateRequest{Decision: "approved"})
	require.ErrorIs(t, err, workflow.ErrUnauthorized)

	approved, err := svc.Validate(context.Background(), supervisor, record.ID, dto.AttendanceValidateRequest{Decision: "approved"})
	require.NoError(t, err)
	require.Equal(t, workflow.AttendanceApproved, approved.ValidationStatus)

	_, err = svc.Validate(context.Background(), supervisor, record.ID, dto.AttendanceValidateRequest{Decision: "invalid"})
	require.Error(t, err)
}

func TestAttendanceCorrectionRecomputesHours(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := newAttendanceService(repo, workflow.OjtOngoing)
	supervisor := workflow.Actor{ID: 9, Role: workflow.RoleSupervisor}

	timeIn := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	timeOut := timeIn.Add(4 * time.Hour)
	record := models.AttendanceRecord{
		StudentID:        11,
		Date:             workflow.DateOnly(timeIn),
		TimeIn:           &timeIn,
		TimeOut:          &timeOut,
		TotalHours:       4,
		ValidationStatus: workflow.AttendanceApproved,
	}
	require.NoError(t, repo.Create(context.Background(), &record))

	correctedOut := timeIn.Add(9*time.Hour + 30*time.Minute)
	response, err := svc.Update(context.Background(), supervisor, record.ID, dto.AttendanceUpdateRequest{TimeOut: &correctedOut})
	require.NoError(t, err)
	require.Equal(t, 9.5, response.TotalHours)
	require.Equal(t, workflow.AttendanceApproved, response.ValidationStatus)

	badOut := timeIn.Add(-time.Hour)
	_, err = svc.Update(context.Background(), supervisor, record.ID, dto.AttendanceUpdateRequest{TimeOut: &badOut})
	require.ErrorIs(t, err, workflow.ErrInvalidTimeRange)

	_, err = svc.Update(context.Background(), workflow.Actor{ID: 11, Role: workflow.RoleStudent}, record.ID, dto.AttendanceUpdateRequest{})
	require.ErrorIs(t, err, workflow.ErrUnauthorized)
}

func TestAttendanceCorrectionRejectsTimeOutWithoutTimeIn(t *testing.T) {
	repo := newFakeAttendanceRepo()
	svc := newAttendanceService(repo, workflow.OjtOngoing)
	supervisor := workflow.Actor{ID: 9, Role: workflow.RoleSupervisor}

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	record := models.AttendanceRecord{
		StudentID:        11,
		Date:             day,
		ValidationStatus: workflow.AttendancePending,
	}
	require.NoError(t, repo.Create(context.Background(), &record))

	out := day.Add(17 * time.Hour)
	_, err := svc.Update(context.Background(), supervisor, record.ID, dto.AttendanceUpdateRequest{TimeOut: &out})
	require.ErrorIs(t, err, workflow.ErrInvalidTimeRange)

	current, err := repo.GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	require.Nil(t, current.TimeOut)
	require.Zero(t, current.TotalHours)
}
