package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/oeams/oeams-api/internal/dto"
	"github.com/oeams/oeams-api/internal/models"
	"github.com/oeams/oeams-api/internal/repository"
	"github.com/oeams/oeams-api/internal/workflow"
)

// ErrAttendanceNotFound indicates a daily record could not be located.
var ErrAttendanceNotFound = errors.New("attendance record not found")

// ProgressReader is the read-side dependency the attendance engine
// uses to gate time-in on the derived OJT status.
type ProgressReader interface {
	Snapshot(ctx context.Context, studentID uint) (dto.ProgressResponse, error)
}

// AttendanceService orchestrates daily time-in/time-out records and
// supervisor validation.
type AttendanceService interface {
	TimeIn(ctx context.Context, actor workflow.Actor, payload dto.TimeInRequest) (dto.AttendanceResponse, error)
	TimeOut(ctx context.Context, actor workflow.Actor, payload dto.TimeOutRequest) (dto.AttendanceResponse, error)
	Validate(ctx context.Context, actor workflow.Actor, recordID uint, payload dto.AttendanceValidateRequest) (dto.AttendanceResponse, error)
	Update(ctx context.Context, actor workflow.Actor, recordID uint, payload dto.AttendanceUpdateRequest) (dto.AttendanceResponse, error)
	List(ctx context.Context, filter dto.AttendanceFilter) ([]dto.AttendanceResponse, error)
}

type attendanceService struct {
	attendance repository.AttendanceRepository
	progress   ProgressReader
	invalidate ProgressInvalidator
	validator  *validator.Validate
	audit      TransitionRecorder
	events     EventPublisher
	sanitizer  *bluemonday.Policy
	logger     zerolog.Logger
	now        func() time.Time

	// dayLocks serializes concurrent timeIn/timeOut calls for the same
	// (student, date); the loser observes the winner's committed state.
	// Entries are reference counted and removed once the last holder
	// releases, so the map stays bounded by in-flight requests.
	mu       sync.Mutex
	dayLocks map[string]*dayLock
}

type dayLock struct {
	mu   sync.Mutex
	refs int
}

// NewAttendanceService constructs an AttendanceService instance.
func NewAttendanceService(repo repository.AttendanceRepository, progress ProgressReader, invalidate ProgressInvalidator, validate *validator.Validate, audit TransitionRecorder, events EventPublisher, logger zerolog.Logger) AttendanceService {
	return &attendanceService{
		attendance: repo,
		progress:   progress,
		invalidate: invalidate,
		validator:  validate,
		audit:      audit,
		events:     events,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "attendance_service").Logger(),
		now:        time.Now,
		dayLocks:   make(map[string]*dayLock),
	}
}

func (s *attendanceService) lockDay(studentID uint, date time.Time) func() {
	key := fmt.Sprintf("%d:%s", studentID, workflow.DateOnly(date).Format("2006-01-02"))

	s.mu.Lock()
	lock, ok := s.dayLocks[key]
	if !ok {
		lock = &dayLock{}
		s.dayLocks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.dayLocks, key)
		}
		s.mu.Unlock()
	}
}

func (s *attendanceService) TimeIn(ctx context.Context, actor workflow.Actor, payload dto.TimeInRequest) (dto.AttendanceResponse, error) {
	tracer := otel.Tracer("github.com/oeams/oeams-api/internal/service/attendance")
	ctx, span := tracer.Start(ctx, "attendance.time_in")
	span.SetAttributes(attribute.Int64("attendance.student_id", int64(actor.ID)))
	defer span.End()

	if actor.Role != workflow.RoleStudent {
		return dto.AttendanceResponse{}, workflow.ErrUnauthorized
	}

	snapshot, err := s.progress.Snapshot(ctx, actor.ID)
	if err != nil {
		span.RecordError(err)
		return dto.AttendanceResponse{}, err
	}
	if snapshot.OjtStatus != workflow.OjtOngoing {
		span.SetStatus(codes.Error, "ojt_not_ongoing")
		return dto.AttendanceResponse{}, workflow.ErrOjtNotOngoing
	}

	now := s.now()
	unlock := s.lockDay(actor.ID, now)
	defer unlock()

	record, err := s.attendance.GetByStudentAndDate(ctx, actor.ID, now)
	switch {
	case err == nil:
		if record.TimeIn != nil {
			span.SetStatus(codes.Error, "already_timed_in")
			return dto.AttendanceResponse{}, workflow.ErrAlreadyTimedIn
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		record = models.AttendanceRecord{
			StudentID:        actor.ID,
			Date:             workflow.DateOnly(now),
			ValidationStatus: workflow.AttendancePending,
		}
	default:
		return dto.AttendanceResponse{}, err
	}

	timeIn := now
	record.TimeIn = &timeIn
	record.Tasks = strings.TrimSpace(s.sanitizer.Sanitize(payload.Tasks))

	if record.ID == 0 {
		err = s.attendance.Create(ctx, &record)
	} else {
		err = s.attendance.Update(ctx, &record)
	}
	if err != nil {
		return dto.AttendanceResponse{}, err
	}

	s.afterTransition(ctx, actor, record, "attendance.time_in")

	return dto.NewAttendanceResponse(record), nil
}

func (s *attendanceService) TimeOut(ctx context.Context, actor workflow.Actor, payload dto.TimeOutRequest) (dto.AttendanceResponse, error) {
	tracer := otel.Tracer("github.com/oeams/oeams-api/internal/service/attendance")
	ctx, span := tracer.Start(ctx, "attendance.time_out")
	span.SetAttributes(attribute.Int64("attendance.student_id", int64(actor.ID)))
	defer span.End()

	if actor.Role != workflow.RoleStudent {
		return dto.AttendanceResponse{}, workflow.ErrUnauthorized
	}

	now := s.now()
	unlock := s.lockDay(actor.ID, now)
	defer unlock()

	record, err := s.attendance.GetByStudentAndDate(ctx, actor.ID, now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "no_active_time_in")
			return dto.AttendanceResponse{}, workflow.ErrNoActiveTimeIn
		}
		return dto.AttendanceResponse{}, err
	}

	if !record.IsOpen() {
		span.SetStatus(codes.Error, "no_active_time_in")
		return dto.AttendanceResponse{}, workflow.ErrNoActiveTimeIn
	}

	hours, err := workflow.HoursBetween(*record.TimeIn, now)
	if err != nil {
		span.RecordError(err)
		return dto.AttendanceResponse{}, err
	}

	timeOut := now
	record.TimeOut = &timeOut
	record.TotalHours = hours
	if accomplishments := strings.TrimSpace(s.sanitizer.Sanitize(payload.Accomplishments)); accomplishments != "" {
		record.Accomplishments = accomplishments
	}

	if err := s.attendance.Update(ctx, &record); err != nil {
		return dto.AttendanceResponse{}, err
	}

	span.SetAttributes(attribute.Float64("attendance.total_hours", hours))
	s.afterTransition(ctx, actor, record, "attendance.time_out")

	return dto.NewAttendanceResponse(record), nil
}

func (s *attendanceService) Validate(ctx context.Context, actor workflow.Actor, recordID uint, payload dto.AttendanceValidateRequest) (dto.AttendanceResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AttendanceResponse{}, err
	}

	decision := workflow.AttendanceStatus(payload.Decision)
	if err := workflow.CanValidateAttendance(actor, decision); err != nil {
		return dto.AttendanceResponse{}, err
	}

	record, err := s.attendance.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttendanceResponse{}, ErrAttendanceNotFound
		}
		return dto.AttendanceResponse{}, err
	}

	record.ValidationStatus = decision
	record.SupervisorRemarks = strings.TrimSpace(s.sanitizer.Sanitize(payload.Remarks))

	if err := s.attendance.Update(ctx, &record); err != nil {
		return dto.AttendanceResponse{}, err
	}

	s.afterTransition(ctx, actor, record, "attendance."+payload.Decision)

	return dto.NewAttendanceResponse(record), nil
}

// Update is the supervisor correction path. It recomputes the hour
// total from the new times and leaves validation_status untouched;
// re-validation is a separate, explicit call.
func (s *attendanceService) Update(ctx context.Context, actor workflow.Actor, recordID uint, payload dto.AttendanceUpdateRequest) (dto.AttendanceResponse, error) {
	if err := workflow.CanCorrectAttendance(actor); err != nil {
		return dto.AttendanceResponse{}, err
	}

	record, err := s.attendance.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttendanceResponse{}, ErrAttendanceNotFound
		}
		return dto.AttendanceResponse{}, err
	}

	if payload.TimeIn != nil {
		record.TimeIn = payload.TimeIn
	}
	if payload.TimeOut != nil {
		record.TimeOut = payload.TimeOut
	}
	if payload.Tasks != nil {
		record.Tasks = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Tasks))
	}
	if payload.Accomplishments != nil {
		record.Accomplishments = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Accomplishments))
	}
	if payload.SupervisorRemarks != nil {
		record.SupervisorRemarks = strings.TrimSpace(s.sanitizer.Sanitize(*payload.SupervisorRemarks))
	}

	// A record never carries a time_out without its time_in.
	if record.TimeOut != nil && record.TimeIn == nil {
		return dto.AttendanceResponse{}, workflow.ErrInvalidTimeRange
	}

	if record.TimeIn != nil && record.TimeOut != nil {
		hours, err := workflow.HoursBetween(*record.TimeIn, *record.TimeOut)
		if err != nil {
			return dto.AttendanceResponse{}, err
		}
		record.TotalHours = hours
	}

	if err := s.attendance.Update(ctx, &record); err != nil {
		return dto.AttendanceResponse{}, err
	}

	s.afterTransition(ctx, actor, record, "attendance.corrected")

	return dto.NewAttendanceResponse(record), nil
}

func (s *attendanceService) List(ctx context.Context, filter dto.AttendanceFilter) ([]dto.AttendanceResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	repoFilter := repository.AttendanceFilter{StudentID: filter.StudentID}
	if filter.Status != nil {
		status := workflow.AttendanceStatus(*filter.Status)
		repoFilter.Status = &status
	}

	records, err := s.attendance.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	return dto.NewAttendanceResponseSlice(records), nil
}

func (s *attendanceService) afterTransition(ctx context.Context, actor workflow.Actor, record models.AttendanceRecord, transition string) {
	if s.audit != nil {
		s.audit.Record(ctx, TransitionEntry{
			Actor:      actor,
			EntityType: "attendance",
			EntityID:   record.ID,
			Transition: transition,
			Metadata: map[string]interface{}{
				"student_id":  record.StudentID,
				"date":        record.Date.Format("2006-01-02"),
				"total_hours": record.TotalHours,
				"status":      string(record.ValidationStatus),
			},
		})
	}
	if s.events != nil {
		s.events.Publish("attendance", record.ID, transition, actor, record.StudentID)
	}
	if s.invalidate != nil {
		s.invalidate.Invalidate(ctx, record.StudentID)
	}

	s.logger.Info().
		Uint("record_id", record.ID).
		Uint("student_id", record.StudentID).
		Str("transition", transition).
		Msg("attendance transition committed")
}
