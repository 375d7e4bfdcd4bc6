package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/oeams/oeams-api/internal/dto"
	"github.com/oeams/oeams-api/internal/repository"
	"github.com/oeams/oeams-api/internal/workflow"
)

// ErrNoAcceptedApplication indicates the student has no accepted
// application, so no OJT progress exists to project.
var ErrNoAcceptedApplication = errors.New("student has no accepted application")

// ProgressInvalidator lets mutating services drop a student's cached
// progress snapshot after a committed transition.
type ProgressInvalidator interface {
	Invalidate(ctx context.Context, studentID uint)
}

// ProgressService derives the OjtProgress projection and guards the
// one-shot grade submission.
type ProgressService interface {
	ProgressInvalidator
	Snapshot(ctx context.Context, studentID uint) (dto.ProgressResponse, error)
	RecordGrade(ctx context.Context, actor workflow.Actor, applicationID uint, payload dto.GradeRequest) (dto.ApplicationResponse, error)
}

type progressService struct {
	applications  repository.ApplicationRepository
	requirements  repository.RequirementRepository
	attendance    repository.AttendanceRepository
	cache         *redis.Client
	cacheTTL      time.Duration
	requiredHours float64
	validator     *validator.Validate
	audit         TransitionRecorder
	logger        zerolog.Logger
	now           func() time.Time
}

// NewProgressService builds the progress projector. The cache client
// may be nil, in which case every snapshot is recomputed.
func NewProgressService(applications repository.ApplicationRepository, requirements repository.RequirementRepository, attendance repository.AttendanceRepository, cache *redis.Client, cacheTTL time.Duration, requiredHours float64, validate *validator.Validate, audit TransitionRecorder, logger zerolog.Logger) ProgressService {
	return &progressService{
		applications:  applications,
		requirements:  requirements,
		attendance:    attendance,
		cache:         cache,
		cacheTTL:      cacheTTL,
		requiredHours: requiredHours,
		validator:     validate,
		audit:         audit,
		logger:        logger.With().Str("component", "progress_service").Logger(),
		now:           time.Now,
	}
}

func progressCacheKey(studentID uint) string {
	return fmt.Sprintf("progress:student:%d", studentID)
}

func (s *progressService) Snapshot(ctx context.Context, studentID uint) (dto.ProgressResponse, error) {
	cacheKey := progressCacheKey(studentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.ProgressResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("student_id", studentID).Msg("progress cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read progress cache")
		}
	}

	response, err := s.compute(ctx, studentID)
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store progress cache")
			}
		}
	}

	return response, nil
}

func (s *progressService) compute(ctx context.Context, studentID uint) (dto.ProgressResponse, error) {
	application, err := s.applications.GetAcceptedByStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgressResponse{}, ErrNoAcceptedApplication
		}
		return dto.ProgressResponse{}, err
	}

	preValidated, postValidated, err := s.requirementGates(ctx, studentID)
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	records, err := s.attendance.List(ctx, repository.AttendanceFilter{StudentID: &studentID})
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	hourRecords := make([]workflow.HourRecord, 0, len(records))
	for _, record := range records {
		hourRecords = append(hourRecords, workflow.HourRecord{
			Status:     record.ValidationStatus,
			TotalHours: record.TotalHours,
		})
	}

	accomplished := workflow.AccomplishedHours(hourRecords)
	status := workflow.DeriveOjtStatus(workflow.ProgressInput{
		StartDate:         application.OjtStartDate,
		Today:             s.now(),
		PreValidated:      preValidated,
		PostValidated:     postValidated,
		AccomplishedHours: accomplished,
		RequiredHours:     s.requiredHours,
	})

	return dto.ProgressResponse{
		StudentID:          studentID,
		OjtStatus:          status,
		AccomplishedHours:  accomplished,
		RequiredHours:      s.requiredHours,
		RemainingHours:     workflow.RemainingHours(accomplished, s.requiredHours),
		ProgressPercentage: workflow.ProgressPercentage(accomplished, s.requiredHours),
		PreValidated:       preValidated,
		PostValidated:      postValidated,
		CanSubmitGrade:     status == workflow.OjtCompleted && !application.IsGraded(),
	}, nil
}

// requirementGates reports whether every required pre- and post-phase
// definition has a validated submission for the student.
func (s *progressService) requirementGates(ctx context.Context, studentID uint) (bool, bool, error) {
	definitions, err := s.requirements.ListDefinitions(ctx, nil)
	if err != nil {
		return false, false, err
	}

	submissions, err := s.requirements.ListSubmissions(ctx, studentID)
	if err != nil {
		return false, false, err
	}

	validated := make(map[uint]bool, len(submissions))
	for _, submission := range submissions {
		validated[submission.RequirementID] = submission.Validated
	}

	pre, post := true, true
	for _, definition := range definitions {
		if !definition.Required || validated[definition.ID] {
			continue
		}
		switch definition.Phase {
		case workflow.PhasePre:
			pre = false
		case workflow.PhasePost:
			post = false
		}
	}

	return pre, post, nil
}

func (s *progressService) RecordGrade(ctx context.Context, actor workflow.Actor, applicationID uint, payload dto.GradeRequest) (dto.ApplicationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApplicationResponse{}, err
	}

	if !actorIsGradingAuthority(actor) {
		return dto.ApplicationResponse{}, workflow.ErrUnauthorized
	}

	application, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApplicationResponse{}, ErrApplicationNotFound
		}
		return dto.ApplicationResponse{}, err
	}

	if application.IsGraded() {
		return dto.ApplicationResponse{}, workflow.ErrGradeAlreadyRecorded
	}

	snapshot, err := s.Snapshot(ctx, application.StudentID)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}
	if snapshot.OjtStatus != workflow.OjtCompleted {
		return dto.ApplicationResponse{}, workflow.ErrOjtNotCompleted
	}

	grade := payload.Grade
	gradedAt := s.now()
	application.Grade = &grade
	application.GradedAt = &gradedAt

	if err := s.applications.Update(ctx, &application); err != nil {
		return dto.ApplicationResponse{}, err
	}

	if s.audit != nil {
		s.audit.Record(ctx, TransitionEntry{
			Actor:      actor,
			EntityType: "application",
			EntityID:   application.ID,
			Transition: "application.graded",
			Metadata: map[string]interface{}{
				"student_id": application.StudentID,
				"grade":      payload.Grade,
			},
		})
	}

	s.Invalidate(ctx, application.StudentID)
	s.logger.Info().Uint("application_id", application.ID).Msg("final grade recorded")

	return dto.NewApplicationResponse(application), nil
}

func (s *progressService) Invalidate(ctx context.Context, studentID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, progressCacheKey(studentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate progress cache")
	}
}

func actorIsGradingAuthority(actor workflow.Actor) bool {
	return actor.Role == workflow.RoleCoordinator || actor.Role == workflow.RoleHead
}
