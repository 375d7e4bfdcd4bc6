package workflow

import (
	"math"
	"time"
)

// AttendanceStatus is the supervisor validation state of a daily record.
type AttendanceStatus string

// Attendance validation states. Complete is kept alongside approved
// because the hour ledger honours both (see CountsTowardHours).
const (
	AttendancePending  AttendanceStatus = "pending"
	AttendanceApproved AttendanceStatus = "approved"
	AttendanceRejected AttendanceStatus = "rejected"
	AttendanceComplete AttendanceStatus = "complete"
)

// CanValidateAttendance gates the supervisor decision on a record.
func CanValidateAttendance(actor Actor, decision AttendanceStatus) error {
	if actor.Role != RoleSupervisor {
		return ErrUnauthorized
	}
	if decision != AttendanceApproved && decision != AttendanceRejected {
		return ErrInvalidTransition
	}
	return nil
}

// CanCorrectAttendance gates the supervisor correction path.
func CanCorrectAttendance(actor Actor) error {
	if actor.Role != RoleSupervisor {
		return ErrUnauthorized
	}
	return nil
}

// CountsTowardHours reports whether a record's hours feed the
// accomplished-hours total. Approved and complete both count.
func CountsTowardHours(status AttendanceStatus) bool {
	return status == AttendanceApproved || status == AttendanceComplete
}

// HoursBetween computes the worked duration in hours, rounded to two
// decimal places.
func HoursBetween(timeIn, timeOut time.Time) (float64, error) {
	if !timeOut.After(timeIn) {
		return 0, ErrInvalidTimeRange
	}
	hours := timeOut.Sub(timeIn).Hours()
	return math.Round(hours*100) / 100, nil
}
