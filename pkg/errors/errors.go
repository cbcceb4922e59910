// Package errors defines the sentinel errors shared by the retriever's
// builders, stores and commands, plus AppError for attaching context.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrStorageUnavailable     = errors.New("storage unavailable")
	ErrMalformedWorkerMessage = errors.New("malformed worker message")
	ErrDocumentNotFound       = errors.New("document not found")
	ErrClosed                 = errors.New("builder closed")
	ErrCorruptArtifact        = errors.New("corrupt index artifact")
)

type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// Is reports whether any error in err's chain matches target. It lets
// callers import this package alone instead of aliasing the standard one.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Fatal reports whether err should stop a build outright rather than be
// logged and skipped.
func Fatal(err error) bool {
	switch {
	case errors.Is(err, ErrStorageUnavailable),
		errors.Is(err, ErrMalformedWorkerMessage),
		errors.Is(err, ErrCorruptArtifact):
		return true
	default:
		return false
	}
}
