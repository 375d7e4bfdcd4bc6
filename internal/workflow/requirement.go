package workflow

import "strings"

// RequirementStatus is the per-(student, requirement) submission state.
type RequirementStatus string

// Requirement submission states.
const (
	RequirementPending   RequirementStatus = "pending"
	RequirementSubmitted RequirementStatus = "submitted"
	RequirementValidated RequirementStatus = "validated"
	RequirementReturned  RequirementStatus = "returned"
)

// RequirementPhase distinguishes pre-OJT from post-OJT requirements.
type RequirementPhase string

// Requirement phases.
const (
	PhasePre  RequirementPhase = "pre"
	PhasePost RequirementPhase = "post"
)

// CanSubmitRequirement gates the student submit action. Submission is
// allowed from pending (first upload) and returned (resubmission).
func CanSubmitRequirement(actor Actor, from RequirementStatus) error {
	if actor.Role != RoleStudent {
		return ErrUnauthorized
	}
	switch from {
	case RequirementPending, RequirementReturned:
		return nil
	case RequirementValidated:
		return ErrAlreadyValidated
	default:
		return ErrInvalidTransition
	}
}

// CanValidateRequirement gates coordinator/head validation. Only a
// submitted, not-yet-validated requirement can be validated.
func CanValidateRequirement(actor Actor, from RequirementStatus, validated bool) error {
	if !roleIn(actor.Role, RoleCoordinator, RoleHead) {
		return ErrUnauthorized
	}
	if validated {
		return ErrAlreadyValidated
	}
	if from != RequirementSubmitted {
		return ErrNotSubmitted
	}
	return nil
}

// CanReturnRequirement gates coordinator/head returns. Remarks are
// mandatory so the student knows what to fix.
func CanReturnRequirement(actor Actor, from RequirementStatus, remarks string) error {
	if !roleIn(actor.Role, RoleCoordinator, RoleHead) {
		return ErrUnauthorized
	}
	if from != RequirementSubmitted {
		return ErrNotSubmitted
	}
	if strings.TrimSpace(remarks) == "" {
		return ErrRemarksRequired
	}
	return nil
}
