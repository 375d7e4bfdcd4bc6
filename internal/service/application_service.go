package service

import (
	"context"
	"errors"
	"strings"
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

// ErrApplicationNotFound indicates an application could not be located.
var ErrApplicationNotFound = errors.New("application not found")

// ApplicationService orchestrates the application lifecycle.
type ApplicationService interface {
	Apply(ctx context.Context, actor workflow.Actor, payload dto.ApplicationCreateRequest) (dto.ApplicationResponse, error)
	Review(ctx context.Context, actor workflow.Actor, id uint) (dto.ApplicationResponse, error)
	Accept(ctx context.Context, actor workflow.Actor, id uint, payload dto.ApplicationAcceptRequest) (dto.ApplicationResponse, error)
	Reject(ctx context.Context, actor workflow.Actor, id uint, payload dto.ApplicationRejectRequest) (dto.ApplicationResponse, error)
	Withdraw(ctx context.Context, actor workflow.Actor, id uint) (dto.ApplicationResponse, error)
	List(ctx context.Context, filter dto.ApplicationFilter) ([]dto.ApplicationResponse, error)
	GetByID(ctx context.Context, id uint) (dto.ApplicationResponse, error)
}

type applicationService struct {
	applications repository.ApplicationRepository
	postings     repository.PostingRepository
	validator    *validator.Validate
	audit        TransitionRecorder
	events       EventPublisher
	progress     ProgressInvalidator
	sanitizer    *bluemonday.Policy
	logger       zerolog.Logger
	now          func() time.Time
}

// NewApplicationService constructs an ApplicationService instance.
func NewApplicationService(applications repository.ApplicationRepository, postings repository.PostingRepository, validate *validator.Validate, audit TransitionRecorder, events EventPublisher, progress ProgressInvalidator, logger zerolog.Logger) ApplicationService {
	return &applicationService{
		applications: applications,
		postings:     postings,
		validator:    validate,
		audit:        audit,
		events:       events,
		progress:     progress,
		sanitizer:    bluemonday.StrictPolicy(),
		logger:       logger.With().Str("component", "application_service").Logger(),
		now:          time.Now,
	}
}

func (s *applicationService) Apply(ctx context.Context, actor workflow.Actor, payload dto.ApplicationCreateRequest) (dto.ApplicationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApplicationResponse{}, err
	}

	if actor.Role != workflow.RoleStudent {
		return dto.ApplicationResponse{}, workflow.ErrUnauthorized
	}

	posting, err := s.postings.GetByID(ctx, payload.InternshipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApplicationResponse{}, ErrPostingNotFound
		}
		return dto.ApplicationResponse{}, err
	}

	if posting.Status != workflow.PostingOpen {
		return dto.ApplicationResponse{}, workflow.ErrPostingNotOpen
	}

	active, err := s.applications.CountActive(ctx, actor.ID, posting.ID)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}
	if active > 0 {
		return dto.ApplicationResponse{}, workflow.ErrDuplicateApplication
	}

	application := models.Application{
		InternshipID: posting.ID,
		StudentID:    actor.ID,
		Status:       workflow.ApplicationPending,
		AppliedAt:    s.now(),
	}

	if err := s.applications.Create(ctx, &application); err != nil {
		return dto.ApplicationResponse{}, err
	}

	created, err := s.applications.GetByID(ctx, application.ID)
	if err != nil {
		return dto.ApplicationResponse{}, err
	}

	s.afterTransition(ctx, actor, created, "application.created")

	return dto.NewApplicationResponse(created), nil
}

func (s *applicationService) Review(ctx context.Context, actor workflow.Actor, id uint) (dto.ApplicationResponse, error) {
	return s.transition(ctx, actor, id, workflow.ApplicationReviewed, func(application *models.Application) error {
		reviewedAt := s.now()
		application.ReviewedAt = &reviewedAt
		return nil
	})
}

func (s *applicationService) Accept(ctx context.Context, actor workflow.Actor, id uint, payload dto.ApplicationAcceptRequest) (dto.ApplicationResponse, error) {
	tracer := otel.Tracer("github.com/oeams/oeams-api/internal/service/application")
	ctx, span := tracer.Start(ctx, "application.accept")
	span.SetAttributes(
		attribute.Int64("application.id", int64(id)),
		attribute.Int64("application.actor_id", int64(actor.ID)),
	)
	defer span.End()

	if err := workflow.ValidateStartDate(payload.OjtStartDate, s.now()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid_start_date")
		return dto.ApplicationResponse{}, err
	}

	response, err := s.transition(ctx, actor, id, workflow.ApplicationAccepted, func(application *models.Application) error {
		reviewedAt := s.now()
		application.ReviewedAt = &reviewedAt
		application.OjtStartDate = payload.OjtStartDate
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transition_failed")
		return dto.ApplicationResponse{}, err
	}

	// The acceptance is committed at this point; seeding the progress
	// projection happens strictly after, never inside, the transition.
	if s.progress != nil {
		s.progress.Invalidate(ctx, response.StudentID)
	}

	return response, nil
}

func (s *applicationService) Reject(ctx context.Context, actor workflow.Actor, id uint, payload dto.ApplicationRejectRequest) (dto.ApplicationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ApplicationResponse{}, err
	}

	remarks := strings.TrimSpace(s.sanitizer.Sanitize(payload.Remarks))
	if remarks == "" {
		return dto.ApplicationResponse{}, workflow.ErrRemarksRequired
	}

	return s.transition(ctx, actor, id, workflow.ApplicationRejected, func(application *models.Application) error {
		reviewedAt := s.now()
		application.ReviewedAt = &reviewedAt
		application.Remarks = remarks
		return nil
	})
}

func (s *applicationService) Withdraw(ctx context.Context, actor workflow.Actor, id uint) (dto.ApplicationResponse, error) {
	return s.transition(ctx, actor, id, workflow.ApplicationWithdrawn, nil)
}

func (s *applicationService) List(ctx context.Context, filter dto.ApplicationFilter) ([]dto.ApplicationResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	repoFilter := repository.ApplicationFilter{
		InternshipID: filter.InternshipID,
		StudentID:    filter.StudentID,
	}
	if filter.Status != nil {
		status := workflow.ApplicationStatus(*filter.Status)
		repoFilter.Status = &status
	}

	applications, err := s.applications.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	return dto.NewApplicationResponseSlice(applications), nil
}

func (s *applicationService) GetByID(ctx context.Context, id uint) (dto.ApplicationResponse, error) {
	application, err := s.applications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApplicationResponse{}, ErrApplicationNotFound
		}
		return dto.ApplicationResponse{}, err
	}

	return dto.NewApplicationResponse(application), nil
}

// transition performs one verify-then-apply step against a loaded
// application. The mutate hook runs only after the transition check
// passed, so a failed check never touches state.
func (s *applicationService) transition(ctx context.Context, actor workflow.Actor, id uint, target workflow.ApplicationStatus, mutate func(*models.Application) error) (dto.ApplicationResponse, error) {
	application, err := s.applications.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ApplicationResponse{}, ErrApplicationNotFound
		}
		return dto.ApplicationResponse{}, err
	}

	if actor.Role == workflow.RoleStudent && application.StudentID != actor.ID {
		return dto.ApplicationResponse{}, workflow.ErrUnauthorized
	}

	// Employers act only on applications to their own postings.
	if actor.Role == workflow.RoleEmployer {
		posting, err := s.postings.GetByID(ctx, application.InternshipID)
		if err != nil {
			return dto.ApplicationResponse{}, err
		}
		if posting.EmployerID != actor.ID {
			return dto.ApplicationResponse{}, workflow.ErrUnauthorized
		}
	}

	if err := workflow.CanTransitionApplication(actor, application.Status, target); err != nil {
		return dto.ApplicationResponse{}, err
	}

	from := application.Status
	application.Status = target
	if mutate != nil {
		if err := mutate(&application); err != nil {
			return dto.ApplicationResponse{}, err
		}
	}

	if err := s.applications.Update(ctx, &application); err != nil {
		return dto.ApplicationResponse{}, err
	}

	s.afterTransition(ctx, actor, application, "application."+string(from)+"->"+string(target))

	return dto.NewApplicationResponse(application), nil
}

func (s *applicationService) afterTransition(ctx context.Context, actor workflow.Actor, application models.Application, transition string) {
	if s.audit != nil {
		s.audit.Record(ctx, TransitionEntry{
			Actor:      actor,
			EntityType: "application",
			EntityID:   application.ID,
			Transition: transition,
			Metadata: map[string]interface{}{
				"student_id":    application.StudentID,
				"internship_id": application.InternshipID,
				"status":        string(application.Status),
			},
		})
	}
	if s.events != nil {
		s.events.Publish("application", application.ID, transition, actor, application.StudentID)
	}

	s.logger.Info().Uint("application_id", application.ID).Str("transition", transition).Msg("application transition committed")
}
