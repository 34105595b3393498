package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrOverloaded is the transient overload signal from the generation
// backend. It is the only failure class the retry orchestrator retries;
// everything else is terminal.
var ErrOverloaded = errors.New("the model is overloaded, please try again later")

// ErrCancelled marks a user-initiated stop. It is distinct from failure
// and must never be retried.
var ErrCancelled = errors.New("generation cancelled")

// ValidationError reports a rejected input. Surfaced immediately to the
// caller, never retried.
type ValidationError struct {
	Reason string
}

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// IsRetryable reports whether err is the transient overload condition.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrOverloaded)
}

// IsCancelled reports whether err represents a cancelled flow, whether
// signalled through the domain sentinel or through context teardown.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
