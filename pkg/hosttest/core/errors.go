package core

import (
	"errors"
	"fmt"
)

// FailureError reports that a case ran and its expectations did not hold.
type FailureError struct {
	Reason string
}

func (e *FailureError) Error() string {
	return e.Reason
}

func Failf(format string, a ...any) error {
	return &FailureError{Reason: fmt.Sprintf(format, a...)}
}

// SkipError reports that a case chose not to run.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

func Skipf(format string, a ...any) error {
	return &SkipError{Reason: fmt.Sprintf(format, a...)}
}

func IsFailure(err error) bool {
	var fe *FailureError
	return errors.As(err, &fe)
}

func IsSkip(err error) bool {
	var se *SkipError
	return errors.As(err, &se)
}
