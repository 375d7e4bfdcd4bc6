package dto

import (
	"time"

	"github.com/oeams/oeams-api/internal/models"
	"github.com/oeams/oeams-api/internal/workflow"
)

// RequirementDefinitionRequest is the head payload for catalog entries.
type RequirementDefinitionRequest struct {
	Title        string   `json:"title" validate:"required,min=3,max=255"`
	Description  string   `json:"description"`
	Phase        string   `json:"phase" validate:"required,oneof=pre post"`
	Required     *bool    `json:"required"`
	OrderIndex   int      `json:"order_index" validate:"gte=0"`
	AccessibleTo []string `json:"accessible_to" validate:"omitempty,dive,oneof=student employer coordinator head supervisor superadmin"`
}

// RequirementReturnRequest carries the mandatory return remarks.
type RequirementReturnRequest struct {
	Remarks string `json:"remarks" validate:"required,min=3"`
}

// RequirementDefinitionResponse serializes a catalog entry.
type RequirementDefinitionResponse struct {
	ID           uint                      `json:"id"`
	Title        string                    `json:"title"`
	Description  string                    `json:"description"`
	Phase        workflow.RequirementPhase `json:"phase"`
	Required     bool                      `json:"required"`
	OrderIndex   int                       `json:"order_index"`
	AccessibleTo []string                  `json:"accessible_to"`
}

// RequirementSubmissionResponse serializes one submission row.
type RequirementSubmissionResponse struct {
	StudentID     uint                       `json:"student_id"`
	RequirementID uint                       `json:"requirement_id"`
	Status        workflow.RequirementStatus `json:"status"`
	FileReference string                     `json:"file_reference"`
	Validated     bool                       `json:"validated"`
	Returned      bool                       `json:"returned"`
	Remarks       string                     `json:"remarks"`
	SubmittedAt   *time.Time                 `json:"submitted_at"`
	ValidatedAt   *time.Time                 `json:"validated_at"`
}

// ChecklistItem merges one definition with the student's submission
// state; absent submissions surface as pending.
type ChecklistItem struct {
	Requirement RequirementDefinitionResponse `json:"requirement"`
	Submission  RequirementSubmissionResponse `json:"submission"`
}

// ChecklistResponse is the per-student requirement checklist projection.
type ChecklistResponse struct {
	StudentID      uint            `json:"student_id"`
	Items          []ChecklistItem `json:"items"`
	PreValidated   bool            `json:"pre_validated"`
	PostValidated  bool            `json:"post_validated"`
	ValidatedCount int             `json:"validated_count"`
	RequiredCount  int             `json:"required_count"`
}

// BatchItemOutcome reports one item of a partial-success batch.
type BatchItemOutcome struct {
	RequirementID uint   `json:"requirement_id"`
	Succeeded     bool   `json:"succeeded"`
	Error         string `json:"error,omitempty"`
}

// BatchValidateResponse summarizes a validate-all run.
type BatchValidateResponse struct {
	StudentID uint               `json:"student_id"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Outcomes  []BatchItemOutcome `json:"outcomes"`
}

// NewRequirementDefinitionResponse converts a definition model.
func NewRequirementDefinitionResponse(model models.RequirementDefinition) RequirementDefinitionResponse {
	return RequirementDefinitionResponse{
		ID:           model.ID,
		Title:        model.Title,
		Description:  model.Description,
		Phase:        model.Phase,
		Required:     model.Required,
		OrderIndex:   model.OrderIndex,
		AccessibleTo: model.AccessibleTo,
	}
}

// NewRequirementSubmissionResponse converts a submission model.
func NewRequirementSubmissionResponse(model models.RequirementSubmission) RequirementSubmissionResponse {
	return RequirementSubmissionResponse{
		StudentID:     model.StudentID,
		RequirementID: model.RequirementID,
		Status:        model.Status,
		FileReference: model.FileReference,
		Validated:     model.Validated,
		Returned:      model.Returned,
		Remarks:       model.Remarks,
		SubmittedAt:   model.SubmittedAt,
		ValidatedAt:   model.ValidatedAt,
	}
}
