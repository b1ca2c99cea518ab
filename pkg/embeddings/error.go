package embeddings

import (
	"errors"
	"fmt"
)

// Error is a structured embedding failure distinguishing retryable causes
// (network errors, 5xx-class responses) from permanent ones (4xx-class
// responses, malformed payloads).
type Error struct {
	// Op names the failing operation, e.g. "ollama embed".
	Op string

	// Retryable reports whether retrying the call may succeed.
	Retryable bool

	// Status is the HTTP status code when the failure came from a response,
	// zero otherwise.
	Status int

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable creates a retryable embedding error.
func Retryable(op string, status int, err error) *Error {
	return &Error{Op: op, Retryable: true, Status: status, Err: err}
}

// Permanent creates a non-retryable embedding error.
func Permanent(op string, status int, err error) *Error {
	return &Error{Op: op, Retryable: false, Status: status, Err: err}
}

// IsRetryable reports whether err is an embedding error that may succeed on
// retry. Unknown error types are treated as permanent.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
