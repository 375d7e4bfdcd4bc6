package dto

import (
	"time"

	"github.com/oeams/oeams-api/internal/models"
	"github.com/oeams/oeams-api/internal/workflow"
)

// ApplicationCreateRequest is the student payload for applying to a posting.
type ApplicationCreateRequest struct {
	InternshipID uint `json:"internship_id" validate:"required,gt=0"`
}

// ApplicationAcceptRequest optionally schedules the OJT start date.
type ApplicationAcceptRequest struct {
	OjtStartDate *time.Time `json:"ojt_start_date"`
}

// ApplicationRejectRequest requires an explanation for the student.
type ApplicationRejectRequest struct {
	Remarks string `json:"remarks" validate:"required,min=3"`
}

// ApplicationFilter narrows application listings.
type ApplicationFilter struct {
	InternshipID *uint   `query:"internship_id"`
	StudentID    *uint   `query:"student_id"`
	Status       *string `query:"status" validate:"omitempty,oneof=pending reviewed accepted rejected withdrawn"`
}

// PostingLite summarizes the posting inside application responses.
type PostingLite struct {
	ID          uint                   `json:"id"`
	EmployerID  uint                   `json:"employer_id"`
	Title       string                 `json:"title"`
	PostingType string                 `json:"posting_type"`
	Status      workflow.PostingStatus `json:"status"`
}

// ApplicationResponse is returned to API clients for applications.
type ApplicationResponse struct {
	ID           uint                       `json:"id"`
	InternshipID uint                       `json:"internship_id"`
	StudentID    uint                       `json:"student_id"`
	Status       workflow.ApplicationStatus `json:"status"`
	Remarks      string                     `json:"remarks"`
	OjtStartDate *time.Time                 `json:"ojt_start_date"`
	AppliedAt    time.Time                  `json:"applied_at"`
	ReviewedAt   *time.Time                 `json:"reviewed_at"`
	Grade        *float64                   `json:"grade"`
	GradedAt     *time.Time                 `json:"graded_at"`
	Internship   PostingLite                `json:"internship"`
}

// NewApplicationResponse converts an application model into a DTO.
func NewApplicationResponse(model models.Application) ApplicationResponse {
	response := ApplicationResponse{
		ID:           model.ID,
		InternshipID: model.InternshipID,
		StudentID:    model.StudentID,
		Status:       model.Status,
		Remarks:      model.Remarks,
		OjtStartDate: model.OjtStartDate,
		AppliedAt:    model.AppliedAt,
		ReviewedAt:   model.ReviewedAt,
		Grade:        model.Grade,
		GradedAt:     model.GradedAt,
	}

	if model.Internship.ID != 0 {
		response.Internship = PostingLite{
			ID:          model.Internship.ID,
			EmployerID:  model.Internship.EmployerID,
			Title:       model.Internship.Title,
			PostingType: model.Internship.PostingType,
			Status:      model.Internship.Status,
		}
	}

	return response
}

// NewApplicationResponseSlice converts application models into DTOs.
func NewApplicationResponseSlice(applications []models.Application) []ApplicationResponse {
	responses := make([]ApplicationResponse, 0, len(applications))
	for _, application := range applications {
		responses = append(responses, NewApplicationResponse(application))
	}
	return responses
}
