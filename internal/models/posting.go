package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/oeams/oeams-api/internal/workflow"
)

// PostingType distinguishes internships from job placements.
const (
	PostingTypeInternship   = "internship"
	PostingTypeJobPlacement = "job_placement"
)

// InternshipPosting is an opportunity published by an employer. It is
// never hard-deleted; the status carries closure.
type InternshipPosting struct {
	ID          uint                        `gorm:"primaryKey" json:"id"`
	EmployerID  uint                        `gorm:"not null;index" json:"employer_id"`
	Title       string                      `gorm:"size:255;not null" json:"title"`
	Description string                      `gorm:"type:text" json:"description"`
	PostingType string                      `gorm:"size:20;not null;default:internship" json:"posting_type"`
	Status      workflow.PostingStatus      `gorm:"size:20;not null;default:draft" json:"status"`
	Skills      datatypes.JSONSlice[string] `gorm:"type:json" json:"skills"`
	IsDraft     bool                        `gorm:"not null;default:false" json:"is_draft"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`

	Applications []Application `gorm:"foreignKey:InternshipID" json:"-"`
}

// SyncDraftFlag keeps the is_draft flag equivalent to the draft status.
func (p *InternshipPosting) SyncDraftFlag() {
	p.IsDraft = p.Status == workflow.PostingDraft
}
