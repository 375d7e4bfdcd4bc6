package models

import (
	"time"

	"github.com/oeams/oeams-api/internal/workflow"
)

// AttendanceRecord is one day's time-in/time-out entry. One record per
// (student, date); the student creates it via time-in and closes it via
// time-out, after which only the supervisor may mutate it.
type AttendanceRecord struct {
	ID                uint                      `gorm:"primaryKey" json:"id"`
	StudentID         uint                      `gorm:"not null;uniqueIndex:idx_student_date" json:"student_id"`
	Date              time.Time                 `gorm:"not null;uniqueIndex:idx_student_date" json:"date"`
	TimeIn            *time.Time                `json:"time_in"`
	TimeOut           *time.Time                `json:"time_out"`
	Tasks             string                    `gorm:"type:text" json:"tasks"`
	Accomplishments   string                    `gorm:"type:text" json:"accomplishments"`
	ValidationStatus  workflow.AttendanceStatus `gorm:"size:20;not null;default:pending" json:"validation_status"`
	SupervisorRemarks string                    `gorm:"type:text" json:"supervisor_remarks"`
	TotalHours        float64                   `gorm:"type:decimal(5,2);default:0" json:"total_hours"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
}

// IsOpen reports whether the record has a time-in without a time-out.
func (r AttendanceRecord) IsOpen() bool {
	return r.TimeIn != nil && r.TimeOut == nil
}
