package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oeams/oeams-api/internal/models"
	"github.com/oeams/oeams-api/internal/workflow"
)

// RequirementRepository defines data operations for the requirement
// catalog and the sparse per-student submission rows.
type RequirementRepository interface {
	ListDefinitions(ctx context.Context, phase *workflow.RequirementPhase) ([]models.RequirementDefinition, error)
	GetDefinition(ctx context.Context, id uint) (models.RequirementDefinition, error)
	CreateDefinition(ctx context.Context, definition *models.RequirementDefinition) error
	UpdateDefinition(ctx context.Context, definition *models.RequirementDefinition) error
	CountDefinitions(ctx context.Context) (int64, error)

	ListSubmissions(ctx context.Context, studentID uint) ([]models.RequirementSubmission, error)
	GetSubmission(ctx context.Context, studentID, requirementID uint) (models.RequirementSubmission, error)
	SaveSubmission(ctx context.Context, submission *models.RequirementSubmission) error
}

type requirementRepository struct {
	db *gorm.DB
}

// NewRequirementRepository instantiates the repository.
func NewRequirementRepository(db *gorm.DB) RequirementRepository {
	return &requirementRepository{db: db}
}

func (r *requirementRepository) ListDefinitions(ctx context.Context, phase *workflow.RequirementPhase) ([]models.RequirementDefinition, error) {
	query := r.db.WithContext(ctx).Model(&models.RequirementDefinition{})

	if phase != nil {
		query = query.Where("phase = ?", *phase)
	}

	var definitions []models.RequirementDefinition
	if err := query.Order("order_index ASC").Find(&definitions).Error; err != nil {
		return nil, err
	}

	return definitions, nil
}

func (r *requirementRepository) GetDefinition(ctx context.Context, id uint) (models.RequirementDefinition, error) {
	var definition models.RequirementDefinition
	if err := r.db.WithContext(ctx).First(&definition, id).Error; err != nil {
		return models.RequirementDefinition{}, err
	}

	return definition, nil
}

func (r *requirementRepository) CreateDefinition(ctx context.Context, definition *models.RequirementDefinition) error {
	return r.db.WithContext(ctx).Create(definition).Error
}

func (r *requirementRepository) UpdateDefinition(ctx context.Context, definition *models.RequirementDefinition) error {
	return r.db.WithContext(ctx).Save(definition).Error
}

func (r *requirementRepository) CountDefinitions(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RequirementDefinition{}).Count(&count).Error
	return count, err
}

func (r *requirementRepository) ListSubmissions(ctx context.Context, studentID uint) ([]models.RequirementSubmission, error) {
	var submissions []models.RequirementSubmission
	if err := r.db.WithContext(ctx).Model(&models.RequirementSubmission{}).
		Preload("Requirement").
		Where("student_id = ?", studentID).
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *requirementRepository) GetSubmission(ctx context.Context, studentID, requirementID uint) (models.RequirementSubmission, error) {
	var submission models.RequirementSubmission
	if err := r.db.WithContext(ctx).Model(&models.RequirementSubmission{}).
		Where("student_id = ?", studentID).
		Where("requirement_id = ?", requirementID).
		First(&submission).Error; err != nil {
		return models.RequirementSubmission{}, err
	}

	return submission, nil
}

func (r *requirementRepository) SaveSubmission(ctx context.Context, submission *models.RequirementSubmission) error {
	return r.db.WithContext(ctx).Save(submission).Error
}
