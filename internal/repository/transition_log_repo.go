package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oeams/oeams-api/internal/models"
)

// TransitionLogFilter allows narrowing audit queries.
type TransitionLogFilter struct {
	EntityType *string
	EntityID   *uint
	Limit      int
	Offset     int
}

// TransitionLogRepository defines data operations for the audit trail.
type TransitionLogRepository interface {
	Create(ctx context.Context, entry *models.TransitionLog) error
	List(ctx context.Context, filter TransitionLogFilter) ([]models.TransitionLog, int64, error)
}

type transitionLogRepository struct {
	db *gorm.DB
}

// NewTransitionLogRepository instantiates the repository.
func NewTransitionLogRepository(db *gorm.DB) TransitionLogRepository {
	return &transitionLogRepository{db: db}
}

func (r *transitionLogRepository) Create(ctx context.Context, entry *models.TransitionLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *transitionLogRepository) List(ctx context.Context, filter TransitionLogFilter) ([]models.TransitionLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.TransitionLog{})

	if filter.EntityType != nil {
		query = query.Where("entity_type = ?", *filter.EntityType)
	}

	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var entries []models.TransitionLog
	if err := query.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
