package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/oeams/oeams-api/internal/dto"
	"github.com/oeams/oeams-api/internal/models"
	"github.com/oeams/oeams-api/internal/repository"
	"github.com/oeams/oeams-api/internal/workflow"
)

// ErrPostingNotFound indicates a posting could not be located.
var ErrPostingNotFound = errors.New("posting not found")

// PostingService orchestrates the internship posting lifecycle.
type PostingService interface {
	Create(ctx context.Context, actor workflow.Actor, payload dto.PostingCreateRequest) (dto.PostingResponse, error)
	Transition(ctx context.Context, actor workflow.Actor, id uint, target workflow.PostingStatus) (dto.PostingResponse, error)
	List(ctx context.Context, filter dto.PostingFilter) ([]dto.PostingResponse, error)
	GetByID(ctx context.Context, id uint) (dto.PostingResponse, error)
}

type postingService struct {
	postings  repository.PostingRepository
	validator *validator.Validate
	audit     TransitionRecorder
	events    EventPublisher
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewPostingService constructs a PostingService instance.
func NewPostingService(repo repository.PostingRepository, validate *validator.Validate, audit TransitionRecorder, events EventPublisher, logger zerolog.Logger) PostingService {
	return &postingService{
		postings:  repo,
		validator: validate,
		audit:     audit,
		events:    events,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "posting_service").Logger(),
	}
}

func (s *postingService) Create(ctx context.Context, actor workflow.Actor, payload dto.PostingCreateRequest) (dto.PostingResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PostingResponse{}, err
	}

	if actor.Role != workflow.RoleEmployer {
		return dto.PostingResponse{}, workflow.ErrUnauthorized
	}

	posting := models.InternshipPosting{
		EmployerID:  actor.ID,
		Title:       strings.TrimSpace(s.sanitizer.Sanitize(payload.Title)),
		Description: strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
		PostingType: payload.PostingType,
		Status:      workflow.InitialPostingStatus(payload.IsDraft),
		Skills:      payload.Skills,
	}
	posting.SyncDraftFlag()

	if err := s.postings.Create(ctx, &posting); err != nil {
		return dto.PostingResponse{}, err
	}

	s.afterTransition(ctx, actor, posting, "posting.created")

	return dto.NewPostingResponse(posting), nil
}

func (s *postingService) Transition(ctx context.Context, actor workflow.Actor, id uint, target workflow.PostingStatus) (dto.PostingResponse, error) {
	posting, err := s.postings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PostingResponse{}, ErrPostingNotFound
		}
		return dto.PostingResponse{}, err
	}

	// Employers manage only their own postings.
	if actor.Role == workflow.RoleEmployer && posting.EmployerID != actor.ID {
		return dto.PostingResponse{}, workflow.ErrUnauthorized
	}

	// Verify before applying; a failed check must not touch state.
	if err := workflow.CanTransitionPosting(actor, posting.Status, target); err != nil {
		return dto.PostingResponse{}, err
	}

	from := posting.Status
	posting.Status = target
	posting.SyncDraftFlag()

	if err := s.postings.Update(ctx, &posting); err != nil {
		return dto.PostingResponse{}, err
	}

	s.afterTransition(ctx, actor, posting, "posting."+string(from)+"->"+string(target))

	return dto.NewPostingResponse(posting), nil
}

func (s *postingService) List(ctx context.Context, filter dto.PostingFilter) ([]dto.PostingResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	repoFilter := repository.PostingFilter{EmployerID: filter.EmployerID}
	if filter.Status != nil {
		status := workflow.PostingStatus(*filter.Status)
		repoFilter.Status = &status
	}

	postings, err := s.postings.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	return dto.NewPostingResponseSlice(postings), nil
}

func (s *postingService) GetByID(ctx context.Context, id uint) (dto.PostingResponse, error) {
	posting, err := s.postings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PostingResponse{}, ErrPostingNotFound
		}
		return dto.PostingResponse{}, err
	}

	return dto.NewPostingResponse(posting), nil
}

func (s *postingService) afterTransition(ctx context.Context, actor workflow.Actor, posting models.InternshipPosting, transition string) {
	if s.audit != nil {
		s.audit.Record(ctx, TransitionEntry{
			Actor:      actor,
			EntityType: "posting",
			EntityID:   posting.ID,
			Transition: transition,
			Metadata: map[string]interface{}{
				"employer_id": posting.EmployerID,
				"status":      string(posting.Status),
			},
		})
	}
	if s.events != nil {
		s.events.Publish("posting", posting.ID, transition, actor, 0)
	}

	s.logger.Info().Uint("posting_id", posting.ID).Str("transition", transition).Msg("posting transition committed")
}
