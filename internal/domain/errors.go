package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is the root of every "row absent" error.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate reports a unique-constraint violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrTransient marks network or availability failures; the only retried class.
	ErrTransient = errors.New("transient store failure")
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrEmptyResult is returned when a remote call succeeded without a row.
	ErrEmptyResult = errors.New("operation returned no result")

	// ErrSessionNotFound is returned when a session handle is unknown or expired.
	ErrSessionNotFound = fmt.Errorf("quiz session %w", ErrNotFound)
	// ErrParticipantNotFound is returned for unknown participant names or IDs.
	ErrParticipantNotFound = fmt.Errorf("participant %w", ErrNotFound)
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = fmt.Errorf("quiz %w", ErrNotFound)
	// ErrScoreNotFound means the participant has no row for the quiz yet.
	ErrScoreNotFound = fmt.Errorf("score %w", ErrNotFound)

	// ErrAlreadyCompleted is the participation guard's refusal.
	ErrAlreadyCompleted = errors.New("quiz already completed by this participant")
	// ErrQuizInactive rejects sessions on quizzes that are not open.
	ErrQuizInactive = errors.New("quiz is not active")
	// ErrNotInProgress rejects ANSWER and ADVANCE outside the InProgress state.
	ErrNotInProgress = errors.New("session is not in progress")
	// ErrEmptySelection rejects ADVANCE without a selection.
	ErrEmptySelection = errors.New("no answer selected")
	// ErrSessionBusy rejects ADVANCE while a previous one is in flight.
	ErrSessionBusy = errors.New("session is busy")
)

// ValidationError is a local rejection raised before any remote call.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Msg
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
