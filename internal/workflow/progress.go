package workflow

import (
	"math"
	"time"
)

// OjtStatus is the derived overall state of a student's OJT period.
type OjtStatus string

// OJT statuses, derived rather than stored.
const (
	OjtAcceptedNoStartDate OjtStatus = "accepted_no_start_date"
	OjtScheduled           OjtStatus = "scheduled"
	OjtPendingRequirements OjtStatus = "pending_requirements"
	OjtOngoing             OjtStatus = "ongoing"
	OjtCompleted           OjtStatus = "completed"
)

// ProgressInput carries everything needed to derive an OjtStatus and
// the hour aggregates for one student.
type ProgressInput struct {
	StartDate         *time.Time
	Today             time.Time
	PreValidated      bool
	PostValidated     bool
	AccomplishedHours float64
	RequiredHours     float64
}

// DeriveOjtStatus computes the student's OJT status. Starting the OJT
// (Ongoing) requires every required pre-phase requirement validated;
// completion additionally requires the post-phase set and the hour
// threshold.
func DeriveOjtStatus(in ProgressInput) OjtStatus {
	if in.StartDate == nil {
		return OjtAcceptedNoStartDate
	}
	if DateOnly(in.Today).Before(DateOnly(*in.StartDate)) {
		return OjtScheduled
	}
	if !in.PreValidated {
		return OjtPendingRequirements
	}
	if in.AccomplishedHours >= in.RequiredHours && in.PostValidated {
		return OjtCompleted
	}
	return OjtOngoing
}

// AccomplishedHours sums the hour totals of records that count toward
// the ledger. The sum is order-independent by construction.
func AccomplishedHours(records []HourRecord) float64 {
	var total float64
	for _, record := range records {
		if CountsTowardHours(record.Status) {
			total += record.TotalHours
		}
	}
	return math.Round(total*100) / 100
}

// HourRecord is the minimal view of an attendance record needed for
// hour accounting.
type HourRecord struct {
	Status     AttendanceStatus
	TotalHours float64
}

// RemainingHours never goes negative.
func RemainingHours(accomplished, required float64) float64 {
	return math.Max(0, math.Round((required-accomplished)*100)/100)
}

// ProgressPercentage is capped at 100 and rounded to one decimal.
func ProgressPercentage(accomplished, required float64) float64 {
	if required <= 0 {
		return 0
	}
	percent := accomplished / required * 100
	return math.Min(100, math.Round(percent*10)/10)
}
