package dto

import (
	"time"

	"github.com/oeams/oeams-api/internal/models"
	"github.com/oeams/oeams-api/internal/workflow"
)

// PostingCreateRequest describes the employer payload for a new posting.
type PostingCreateRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=255"`
	Description string   `json:"description" validate:"required,min=10"`
	PostingType string   `json:"posting_type" validate:"required,oneof=internship job_placement"`
	Skills      []string `json:"skills" validate:"omitempty,dive,min=1"`
	IsDraft     bool     `json:"is_draft"`
}

// PostingTransitionRequest carries the requested target status.
type PostingTransitionRequest struct {
	Status string `json:"status" validate:"required,oneof=draft pending approved open closed rejected"`
}

// PostingFilter narrows posting listings.
type PostingFilter struct {
	EmployerID *uint   `query:"employer_id"`
	Status     *string `query:"status" validate:"omitempty,oneof=draft pending approved open closed rejected"`
}

// PostingResponse is returned to API clients when viewing postings.
type PostingResponse struct {
	ID          uint                   `json:"id"`
	EmployerID  uint                   `json:"employer_id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	PostingType string                 `json:"posting_type"`
	Status      workflow.PostingStatus `json:"status"`
	Skills      []string               `json:"skills"`
	IsDraft     bool                   `json:"is_draft"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// NewPostingResponse converts a posting model into a DTO.
func NewPostingResponse(model models.InternshipPosting) PostingResponse {
	return PostingResponse{
		ID:          model.ID,
		EmployerID:  model.EmployerID,
		Title:       model.Title,
		Description: model.Description,
		PostingType: model.PostingType,
		Status:      model.Status,
		Skills:      model.Skills,
		IsDraft:     model.IsDraft,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewPostingResponseSlice converts posting models into DTOs.
func NewPostingResponseSlice(postings []models.InternshipPosting) []PostingResponse {
	responses := make([]PostingResponse, 0, len(postings))
	for _, posting := range postings {
		responses = append(responses, NewPostingResponse(posting))
	}
	return responses
}
