package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oeams/oeams-api/internal/models"
	"github.com/oeams/oeams-api/internal/workflow"
)

// PostingFilter allows narrowing posting queries.
type PostingFilter struct {
	EmployerID *uint
	Status     *workflow.PostingStatus
}

// PostingRepository defines data operations for internship postings.
type PostingRepository interface {
	List(ctx context.Context, filter PostingFilter) ([]models.InternshipPosting, error)
	GetByID(ctx context.Context, id uint) (models.InternshipPosting, error)
	Create(ctx context.Context, posting *models.InternshipPosting) error
	Update(ctx context.Context, posting *models.InternshipPosting) error
}

type postingRepository struct {
	db *gorm.DB
}

// NewPostingRepository instantiates the repository.
func NewPostingRepository(db *gorm.DB) PostingRepository {
	return &postingRepository{db: db}
}

func (r *postingRepository) List(ctx context.Context, filter PostingFilter) ([]models.InternshipPosting, error) {
	query := r.db.WithContext(ctx).Model(&models.InternshipPosting{})

	if filter.EmployerID != nil {
		query = query.Where("employer_id = ?", *filter.EmployerID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var postings []models.InternshipPosting
	if err := query.Order("created_at DESC").Find(&postings).Error; err != nil {
		return nil, err
	}

	return postings, nil
}

func (r *postingRepository) GetByID(ctx context.Context, id uint) (models.InternshipPosting, error) {
	var posting models.InternshipPosting
	if err := r.db.WithContext(ctx).First(&posting, id).Error; err != nil {
		return models.InternshipPosting{}, err
	}

	return posting, nil
}

func (r *postingRepository) Create(ctx context.Context, posting *models.InternshipPosting) error {
	return r.db.WithContext(ctx).Create(posting).Error
}

func (r *postingRepository) Update(ctx context.Context, posting *models.InternshipPosting) error {
	return r.db.WithContext(ctx).Save(posting).Error
}
