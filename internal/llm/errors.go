package llm

import (
	"errors"
	"fmt"
)

// Sentinel errors for the adapter's strict completion states. The adapter
// never returns a payload alongside any of these; callers decide whether to
// retry, skip the artifact, or fail the case.
var (
	// ErrIncomplete - the provider stopped before completing the response
	// (token limit or truncation).
	ErrIncomplete = errors.New("llm response incomplete")
	// ErrRefused - the provider declined to answer (content filter or
	// explicit refusal).
	ErrRefused = errors.New("llm response refused")
	// ErrFailed - the call failed outright (provider error, malformed
	// payload, unknown completion state).
	ErrFailed = errors.New("llm call failed")
	// ErrTimeout - the per-call deadline elapsed. Never downgraded to an
	// empty result.
	ErrTimeout = errors.New("llm call timed out")
)

// IncompleteError carries provider detail for an incomplete response.
type IncompleteError struct {
	Detail string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("llm response incomplete: %s", e.Detail)
}

func (e *IncompleteError) Unwrap() error { return ErrIncomplete }

// RefusedError carries the provider's refusal reason.
type RefusedError struct {
	Reason string
}

func (e *RefusedError) Error() string {
	return fmt.Sprintf("llm response refused: %s", e.Reason)
}

func (e *RefusedError) Unwrap() error { return ErrRefused }

// FailedError wraps a hard provider failure.
type FailedError struct {
	Reason string
	Cause  error
}

func (e *FailedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("llm call failed (%s): %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("llm call failed: %s", e.Reason)
}

func (e *FailedError) Unwrap() error { return ErrFailed }
