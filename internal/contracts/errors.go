package contracts

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is the sentinel for "no source produced a usable value".
// Callers should branch with errors.Is, never string matching.
var ErrNotFound = errors.New("not found")

// ValidationError reports bad caller input: unknown metric, missing
// required inputs, or an unsafe expression
type ValidationError struct {
	Msg           string
	MissingInputs []string
}

func (e *ValidationError) Error() string {
	if len(e.MissingInputs) > 0 {
		return fmt.Sprintf("%s: missing inputs: %s", e.Msg, strings.Join(e.MissingInputs, ", "))
	}
	return e.Msg
}

// NewValidationError creates a ValidationError with a formatted message
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// DataUnavailableError reports that no source had a usable value for a
// query. It unwraps to ErrNotFound.
type DataUnavailableError struct {
	Query  FactQuery
	Reason string
}

func (e *DataUnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("no data for %s %s: %s", e.Query.Ticker, e.Query.Concept, e.Reason)
	}
	return fmt.Sprintf("no data for %s %s", e.Query.Ticker, e.Query.Concept)
}

func (e *DataUnavailableError) Unwrap() error {
	return ErrNotFound
}

// NotFound creates a DataUnavailableError for a query
func NotFound(q FactQuery, reason string) *DataUnavailableError {
	return &DataUnavailableError{Query: q, Reason: reason}
}

// SourceFailure is one adapter's transient fault. The router always
// recovers it locally; it must never escape a fan-out.
type SourceFailure struct {
	Source string
	Err    error
}

func (e *SourceFailure) Error() string {
	return fmt.Sprintf("source %s failed: %v", e.Source, e.Err)
}

func (e *SourceFailure) Unwrap() error {
	return e.Err
}

// InternalError reports a computation failure after successful input
// resolution. A bug signal, not bad caller input.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a caller-input problem
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err means "no data", as opposed to a failure
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
