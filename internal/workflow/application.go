package workflow

import "time"

// ApplicationStatus is the lifecycle state of a student application.
type ApplicationStatus string

// Application lifecycle states.
const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationReviewed  ApplicationStatus = "reviewed"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)

type applicationRule struct {
	to    ApplicationStatus
	roles []Role
}

// accepted and rejected are terminal for the employer; withdrawn is
// terminal for the student and only reachable before acceptance.
var applicationTransitions = map[ApplicationStatus][]applicationRule{
	ApplicationPending: {
		{to: ApplicationReviewed, roles: []Role{RoleEmployer}},
		{to: ApplicationAccepted, roles: []Role{RoleEmployer}},
		{to: ApplicationRejected, roles: []Role{RoleEmployer}},
		{to: ApplicationWithdrawn, roles: []Role{RoleStudent}},
	},
	ApplicationReviewed: {
		{to: ApplicationAccepted, roles: []Role{RoleEmployer}},
		{to: ApplicationRejected, roles: []Role{RoleEmployer}},
		{to: ApplicationWithdrawn, roles: []Role{RoleStudent}},
	},
}

// CanTransitionApplication verifies the state edge and the actor's
// authority for it. Withdrawal attempts on an accepted application get
// the dedicated ErrCannotWithdrawAccepted.
func CanTransitionApplication(actor Actor, from, to ApplicationStatus) error {
	if to == ApplicationWithdrawn && from == ApplicationAccepted {
		return ErrCannotWithdrawAccepted
	}
	for _, rule := range applicationTransitions[from] {
		if rule.to != to {
			continue
		}
		if roleIn(actor.Role, rule.roles...) {
			return nil
		}
		return ErrUnauthorized
	}
	return ErrInvalidTransition
}

// ValidateStartDate checks an optional OJT start date supplied on
// acceptance. The date must be today or later at acceptance time.
func ValidateStartDate(startDate *time.Time, today time.Time) error {
	if startDate == nil {
		return nil
	}
	if DateOnly(*startDate).Before(DateOnly(today)) {
		return ErrInvalidStartDate
	}
	return nil
}

// DateOnly strips the time-of-day component, keeping the location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
