package interview

import "errors"

// Case construction errors.
var (
	ErrInvalidCase   = errors.New("invalid case")
	ErrPhaseNotFound = errors.New("phase not found")
	ErrCaseNotFound  = errors.New("case not found")
)

// Session usage errors. The operation is rejected with no state change;
// the session stays resumable.
var (
	ErrSessionEnded     = errors.New("session has ended")
	ErrEmptyResponse    = errors.New("response text is empty")
	ErrNoEvaluation     = errors.New("no evaluation stored for current phase")
	ErrAdvanceNotEarned = errors.New("stored evaluation does not support advancement")
	ErrNoNextPhase      = errors.New("no next phase available")
)

// Session lifecycle errors.
var (
	ErrInvalidSession  = errors.New("invalid session configuration")
	ErrSessionAborted  = errors.New("session aborted by internal error")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
)
