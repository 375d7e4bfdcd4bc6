package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oeams/oeams-api/internal/models"
	"github.com/oeams/oeams-api/internal/workflow"
)

// ApplicationFilter allows narrowing application queries.
type ApplicationFilter struct {
	InternshipID *uint
	StudentID    *uint
	Status       *workflow.ApplicationStatus
}

// ApplicationRepository defines data operations for applications.
type ApplicationRepository interface {
	List(ctx context.Context, filter ApplicationFilter) ([]models.Application, error)
	GetByID(ctx context.Context, id uint) (models.Application, error)
	GetAcceptedByStudent(ctx context.Context, studentID uint) (models.Application, error)
	CountActive(ctx context.Context, studentID, internshipID uint) (int64, error)
	Create(ctx context.Context, application *models.Application) error
	Update(ctx context.Context, application *models.Application) error
}

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository instantiates the repository.
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Application{}).Preload("Internship")
}

func (r *applicationRepository) List(ctx context.Context, filter ApplicationFilter) ([]models.Application, error) {
	query := r.baseQuery(ctx)

	if filter.InternshipID != nil {
		query = query.Where("internship_id = ?", *filter.InternshipID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var applications []models.Application
	if err := query.Order("applied_at DESC").Find(&applications).Error; err != nil {
		return nil, err
	}

	return applications, nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id uint) (models.Application, error) {
	var application models.Application
	if err := r.baseQuery(ctx).First(&application, id).Error; err != nil {
		return models.Application{}, err
	}

	return application, nil
}

func (r *applicationRepository) GetAcceptedByStudent(ctx context.Context, studentID uint) (models.Application, error) {
	var application models.Application
	if err := r.baseQuery(ctx).
		Where("student_id = ?", studentID).
		Where("status = ?", workflow.ApplicationAccepted).
		Order("applied_at DESC").
		First(&application).Error; err != nil {
		return models.Application{}, err
	}

	return application, nil
}

func (r *applicationRepository) CountActive(ctx context.Context, studentID, internshipID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("student_id = ?", studentID).
		Where("internship_id = ?", internshipID).
		Where("status <> ?", workflow.ApplicationWithdrawn).
		Count(&count).Error
	return count, err
}

func (r *applicationRepository) Create(ctx context.Context, application *models.Application) error {
	return r.db.WithContext(ctx).Create(application).Error
}

func (r *applicationRepository) Update(ctx context.Context, application *models.Application) error {
	return r.db.WithContext(ctx).Save(application).Error
}
