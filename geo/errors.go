package geo

import (
	"errors"
	"fmt"
)

var (
	// ErrKeywordLimitExceeded rejects invocations whose keyword list
	// exceeds the configured maximum. Enforced before any stage runs.
	ErrKeywordLimitExceeded = errors.New("keyword limit exceeded")

	// ErrNoKeywordsProvided rejects a gather run with an empty keyword
	// list.
	ErrNoKeywordsProvided = errors.New("no keywords provided")

	// ErrSessionUnknown signals a resume against a missing or expired
	// session id.
	ErrSessionUnknown = errors.New("session expired or unknown")

	// ErrInvalidSessionState signals a resume against a session that is
	// not awaiting refinement.
	ErrInvalidSessionState = errors.New("session is not awaiting refinement")

	// ErrAllResearchFailed signals that every per-keyword research call
	// in a gather run failed.
	ErrAllResearchFailed = errors.New("all research calls failed")

	// ErrRefinementFailed signals that the capability-backed keyword
	// refinement pass errored. The stage fails closed instead of
	// returning an empty list.
	ErrRefinementFailed = errors.New("keyword refinement failed")
)

// ValidationError rejects a malformed invocation before any stage runs
// and before any session state is written.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StageError marks the failure of a non-fan-out stage's sole capability
// call. The session is left at its last committed stage, so retrying
// the same invocation is safe.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
