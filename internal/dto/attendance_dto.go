package dto

import (
	"time"

	"github.com/oeams/oeams-api/internal/models"
	"github.com/oeams/oeams-api/internal/workflow"
)

// TimeInRequest opens the day's attendance record.
type TimeInRequest struct {
	Tasks string `json:"tasks"`
}

// TimeOutRequest closes the day's attendance record.
type TimeOutRequest struct {
	Accomplishments string `json:"accomplishments"`
}

// AttendanceValidateRequest carries the supervisor decision.
type AttendanceValidateRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
	Remarks  string `json:"remarks"`
}

// AttendanceUpdateRequest is the supervisor correction payload. Times
// are recomputed into total hours; nil fields are left untouched.
type AttendanceUpdateRequest struct {
	TimeIn            *time.Time `json:"time_in"`
	TimeOut           *time.Time `json:"time_out"`
	Tasks             *string    `json:"tasks"`
	Accomplishments   *string    `json:"accomplishments"`
	SupervisorRemarks *string    `json:"supervisor_remarks"`
}

// AttendanceFilter narrows attendance listings.
type AttendanceFilter struct {
	StudentID *uint   `query:"student_id"`
	Status    *string `query:"status" validate:"omitempty,oneof=pending approved rejected complete"`
}

// AttendanceResponse serializes one daily record.
type AttendanceResponse struct {
	ID                uint                      `json:"id"`
	StudentID         uint                      `json:"student_id"`
	Date              time.Time                 `json:"date"`
	TimeIn            *time.Time                `json:"time_in"`
	TimeOut           *time.Time                `json:"time_out"`
	Tasks             string                    `json:"tasks"`
	Accomplishments   string                    `json:"accomplishments"`
	ValidationStatus  workflow.AttendanceStatus `json:"validation_status"`
	SupervisorRemarks string                    `json:"supervisor_remarks"`
	TotalHours        float64                   `json:"total_hours"`
}

// NewAttendanceResponse converts an attendance model into a DTO.
func NewAttendanceResponse(model models.AttendanceRecord) AttendanceResponse {
	return AttendanceResponse{
		ID:                model.ID,
		StudentID:         model.StudentID,
		Date:              model.Date,
		TimeIn:            model.TimeIn,
		TimeOut:           model.TimeOut,
		Tasks:             model.Tasks,
		Accomplishments:   model.Accomplishments,
		ValidationStatus:  model.ValidationStatus,
		SupervisorRemarks: model.SupervisorRemarks,
		TotalHours:        model.TotalHours,
	}
}

// NewAttendanceResponseSlice converts attendance models into DTOs.
func NewAttendanceResponseSlice(records []models.AttendanceRecord) []AttendanceResponse {
	responses := make([]AttendanceResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, NewAttendanceResponse(record))
	}
	return responses
}
