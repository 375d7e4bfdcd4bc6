package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/oeams/oeams-api/internal/workflow"
)

// RequirementDefinition is a configuration row describing one document
// a student must submit, before (pre) or after (post) the OJT period.
// The engine consumes these; it never mutates them outside catalog
// management by the OJT head.
type RequirementDefinition struct {
	ID           uint                        `gorm:"primaryKey" json:"id"`
	Title        string                      `gorm:"size:255;not null" json:"title"`
	Description  string                      `gorm:"type:text" json:"description"`
	Phase        workflow.RequirementPhase   `gorm:"size:10;not null;index" json:"phase"`
	Required     bool                        `gorm:"not null;default:true" json:"required"`
	OrderIndex   int                         `gorm:"not null" json:"order_index"`
	AccessibleTo datatypes.JSONSlice[string] `gorm:"type:json" json:"accessible_to"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

// RequirementSubmission is the sparse per-(student, requirement) row.
// Absent rows imply pending; rows are created lazily on first submit.
type RequirementSubmission struct {
	ID            uint                       `gorm:"primaryKey" json:"id"`
	StudentID     uint                       `gorm:"not null;uniqueIndex:idx_student_requirement" json:"student_id"`
	RequirementID uint                       `gorm:"not null;uniqueIndex:idx_student_requirement" json:"requirement_id"`
	Status        workflow.RequirementStatus `gorm:"size:20;not null;default:submitted" json:"status"`
	FileReference string                     `gorm:"size:512" json:"file_reference"`
	Validated     bool                       `gorm:"not null;default:false" json:"validated"`
	Returned      bool                       `gorm:"not null;default:false" json:"returned"`
	Remarks       string                     `gorm:"type:text" json:"remarks"`
	SubmittedAt   *time.Time                 `json:"submitted_at"`
	ValidatedAt   *time.Time                 `json:"validated_at"`
	CreatedAt     time.Time                  `json:"created_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`

	Requirement RequirementDefinition `gorm:"foreignKey:RequirementID" json:"requirement"`
}
