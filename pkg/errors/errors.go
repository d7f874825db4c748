// Package errors defines the sentinel error taxonomy shared by index
// construction, the similarity engine and the command dispatcher, plus an
// AppError wrapper that carries the offending identifier and an HTTP status.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMalformedRecord   = errors.New("malformed record")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrUnknownTerm       = errors.New("unknown term")
	ErrUnknownStem       = errors.New("unknown stem")
	ErrDivisionUndefined = errors.New("jaccard division undefined")
	ErrInvalidCommand    = errors.New("invalid command")
	ErrInternal          = errors.New("internal error")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Malformed reports a construction-time record failure at source:line.
func Malformed(source string, line int, format string, args ...any) *AppError {
	return Newf(ErrMalformedRecord, http.StatusBadRequest, "%s:%d: %s", source, line, fmt.Sprintf(format, args...))
}

// Invalid reports a command that failed shape or type checks.
func Invalid(command string, format string, args ...any) *AppError {
	return Newf(ErrInvalidCommand, http.StatusBadRequest, "%q: %s", command, fmt.Sprintf(format, args...))
}

func UnknownCategory(category string) *AppError {
	return Newf(ErrUnknownCategory, http.StatusNotFound, "category %q is not indexed", category)
}

func UnknownTerm(termID int) *AppError {
	return Newf(ErrUnknownTerm, http.StatusNotFound, "term %d has no indexed documents", termID)
}

func UnknownStem(stem string) *AppError {
	return Newf(ErrUnknownStem, http.StatusNotFound, "stem %q is not in the stem table", stem)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrUnknownCategory), errors.Is(err, ErrUnknownTerm), errors.Is(err, ErrUnknownStem):
		return http.StatusNotFound
	case errors.Is(err, ErrMalformedRecord), errors.Is(err, ErrInvalidCommand):
		return http.StatusBadRequest
	case errors.Is(err, ErrDivisionUndefined):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Kind returns a short label for metrics and analytics events.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMalformedRecord):
		return "malformed_record"
	case errors.Is(err, ErrUnknownCategory):
		return "unknown_category"
	case errors.Is(err, ErrUnknownTerm):
		return "unknown_term"
	case errors.Is(err, ErrUnknownStem):
		return "unknown_stem"
	case errors.Is(err, ErrDivisionUndefined):
		return "division_undefined"
	case errors.Is(err, ErrInvalidCommand):
		return "invalid_command"
	default:
		return "internal"
	}
}
