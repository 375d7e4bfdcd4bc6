package service

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/oeams/oeams-api/internal/middleware"
	"github.com/oeams/oeams-api/internal/models"
	"github.com/oeams/oeams-api/internal/observability"
	"github.com/oeams/oeams-api/internal/repository"
	"github.com/oeams/oeams-api/internal/workflow"
)

// TransitionEntry captures one committed workflow transition for the
// audit trail.
type TransitionEntry struct {
	Actor      workflow.Actor
	EntityType string
	EntityID   uint
	Transition string
	Metadata   map[string]interface{}
}

// TransitionRecorder defines behaviour for persisting audit entries.
// Recording is best-effort; the triggering transition has already
// committed when Record is called.
type TransitionRecorder interface {
	Record(ctx context.Context, entry TransitionEntry)
}

// TransitionLogService persists and queries the workflow audit trail.
type TransitionLogService interface {
	TransitionRecorder
	List(ctx context.Context, filter repository.TransitionLogFilter) ([]models.TransitionLog, int64, error)
}

type transitionLogService struct {
	repo   repository.TransitionLogRepository
	logger zerolog.Logger
}

// NewTransitionLogService constructs the audit trail service.
func NewTransitionLogService(repo repository.TransitionLogRepository, logger zerolog.Logger) TransitionLogService {
	return &transitionLogService{
		repo:   repo,
		logger: logger.With().Str("component", "transition_log_service").Logger(),
	}
}

func (s *transitionLogService) Record(ctx context.Context, entry TransitionEntry) {
	observability.Transitions().WithLabelValues(entry.EntityType, entry.Transition).Inc()

	model := models.TransitionLog{
		ActorID:       entry.Actor.ID,
		ActorRole:     string(entry.Actor.Role),
		EntityType:    entry.EntityType,
		EntityID:      entry.EntityID,
		Transition:    entry.Transition,
		CorrelationID: middleware.CorrelationIDFromContext(ctx),
		Metadata:      datatypes.JSONMap(entry.Metadata),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Warn().Err(err).
			Str("entity_type", entry.EntityType).
			Uint("entity_id", entry.EntityID).
			Str("transition", entry.Transition).
			Msg("failed to persist transition log")
	}
}

func (s *transitionLogService) List(ctx context.Context, filter repository.TransitionLogFilter) ([]models.TransitionLog, int64, error) {
	return s.repo.List(ctx, filter)
}
