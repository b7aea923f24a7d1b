package contracts

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	err := &ValidationError{Msg: "metric requires inputs", MissingInputs: []string{"costOfRevenue"}}

	assert.Contains(t, err.Error(), "costOfRevenue")
	assert.True(t, IsValidation(err))
	assert.True(t, IsValidation(fmt.Errorf("calc failed: %w", err)))
	assert.False(t, IsNotFound(err))
}

func TestDataUnavailableError(t *testing.T) {
	q := FactQuery{Ticker: "AAPL", Concept: "revenue"}
	err := NotFound(q, "no quarterly facts")

	assert.True(t, IsNotFound(err))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("resolve: %w", err)))
	assert.Contains(t, err.Error(), "AAPL")
	assert.False(t, IsValidation(err))
}

func TestSourceFailure_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &SourceFailure{Source: "yahoo", Err: inner}

	assert.True(t, errors.Is(err, inner))
	assert.Contains(t, err.Error(), "yahoo")
}

func TestInternalError_Unwrap(t *testing.T) {
	inner := errors.New("division by zero")
	err := &InternalError{Op: "evaluate expression", Err: inner}

	assert.True(t, errors.Is(err, inner))
	assert.False(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
}
