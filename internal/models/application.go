package models

import (
	"time"

	"github.com/oeams/oeams-api/internal/workflow"
)

// Application is a student's application to a posting. At most one
// non-withdrawn application exists per (student, posting).
type Application struct {
	ID           uint                       `gorm:"primaryKey" json:"id"`
	InternshipID uint                       `gorm:"not null;index" json:"internship_id"`
	StudentID    uint                       `gorm:"not null;index" json:"student_id"`
	Status       workflow.ApplicationStatus `gorm:"size:20;not null;default:pending" json:"status"`
	Remarks      string                     `gorm:"type:text" json:"remarks"`
	OjtStartDate *time.Time                 `json:"ojt_start_date"`
	AppliedAt    time.Time                  `json:"applied_at"`
	ReviewedAt   *time.Time                 `json:"reviewed_at"`
	Grade        *float64                   `json:"grade"`
	GradedAt     *time.Time                 `json:"graded_at"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`

	Internship InternshipPosting `gorm:"foreignKey:InternshipID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"internship"`
}

// IsGraded reports whether the one-shot final grade has been recorded.
func (a Application) IsGraded() bool {
	return a.Grade != nil
}
