package dto

import (
	"github.com/oeams/oeams-api/internal/workflow"
)

// ProgressResponse is the derived OjtProgress snapshot for one student.
type ProgressResponse struct {
	StudentID          uint               `json:"student_id"`
	OjtStatus          workflow.OjtStatus `json:"ojt_status"`
	AccomplishedHours  float64            `json:"accomplished_hours"`
	RequiredHours      float64            `json:"required_hours"`
	RemainingHours     float64            `json:"remaining_hours"`
	ProgressPercentage float64            `json:"progress_percentage"`
	PreValidated       bool               `json:"pre_validated"`
	PostValidated      bool               `json:"post_validated"`
	CanSubmitGrade     bool               `json:"can_submit_grade"`
}

// GradeRequest records the one-shot final grade on an application.
type GradeRequest struct {
	Grade float64 `json:"grade" validate:"required,gte=0,lte=100"`
}
