package workflow

import "errors"

// Engine failures are typed values surfaced verbatim to the caller.
// They are caller mistakes, never transient conditions, so none of
// them is retryable.
var (
	// ErrUnauthorized indicates the actor's role may not invoke the
	// attempted transition.
	ErrUnauthorized = errors.New("actor role not permitted for this transition")

	// ErrInvalidTransition indicates the target state is not reachable
	// from the current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrPostingNotOpen indicates an application was attempted against
	// a posting that is not open.
	ErrPostingNotOpen = errors.New("posting is not open for applications")

	// ErrDuplicateApplication indicates the student already has a
	// non-withdrawn application for the posting.
	ErrDuplicateApplication = errors.New("student already applied to this posting")

	// ErrCannotWithdrawAccepted indicates a withdrawal attempt on an
	// already-accepted application.
	ErrCannotWithdrawAccepted = errors.New("accepted application cannot be withdrawn")

	// ErrInvalidStartDate indicates an OJT start date in the past.
	ErrInvalidStartDate = errors.New("ojt start date must not be in the past")

	// ErrRemarksRequired indicates a rejection or return without remarks.
	ErrRemarksRequired = errors.New("remarks are required")

	// ErrMissingFile indicates a requirement submission without a file.
	ErrMissingFile = errors.New("submission file is required")

	// ErrNotSubmitted indicates validation of a requirement that was
	// never submitted.
	ErrNotSubmitted = errors.New("requirement has not been submitted")

	// ErrAlreadyValidated indicates a repeat validation attempt.
	ErrAlreadyValidated = errors.New("requirement is already validated")

	// ErrAlreadyTimedIn indicates a second time-in for the same date.
	ErrAlreadyTimedIn = errors.New("already timed in for this date")

	// ErrNoActiveTimeIn indicates a time-out without an open time-in.
	ErrNoActiveTimeIn = errors.New("no active time-in for this date")

	// ErrInvalidTimeRange indicates time_out not after time_in.
	ErrInvalidTimeRange = errors.New("time out must be after time in")

	// ErrOjtNotOngoing indicates attendance activity outside an
	// ongoing OJT period.
	ErrOjtNotOngoing = errors.New("ojt is not ongoing")

	// ErrOjtNotCompleted guards grade submission before completion.
	ErrOjtNotCompleted = errors.New("ojt is not completed")

	// ErrGradeAlreadyRecorded makes grade submission one-shot.
	ErrGradeAlreadyRecorded = errors.New("grade already recorded")
)
