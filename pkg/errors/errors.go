package errors

import "errors"

// Hand validation. Every message returned to the caller wraps one of these.
var (
	ErrInvalidRoster       = errors.New("invalid roster")
	ErrPhysicalLimit       = errors.New("tile count exceeds physical limit")
	ErrKongStructure       = errors.New("invalid kong declaration")
	ErrInconsistentOutcome = errors.New("inconsistent hand outcome")
	ErrMissingTarget       = errors.New("missing target")
	ErrUnknownScoring      = errors.New("unknown scoring rule")
	ErrInvalidTile         = errors.New("invalid tile")
	ErrInvalidRules        = errors.New("invalid rule table")
)

// ErrInvariantViolation marks a defect in settlement itself, never bad input.
var ErrInvariantViolation = errors.New("settlement invariant violated")

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
	ErrSessionBusy     = errors.New("session is settling another hand")
)
