package calc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finsight/internal/contracts"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"1 + 2", 3},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"-5 + 3", -2},
		{"-(2 + 3)", -5},
		{"100 - (-20)", 120},
		{"1.5e3 + 500", 2000},
		{"(120 - 72) / 120", 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := evaluate(tt.expr)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestEvaluate_DivisionByZero(t *testing.T) {
	_, err := evaluate("1 / 0")
	assert.True(t, errors.Is(err, errDivisionByZero))

	_, err = evaluate("1 / (2 - 2)")
	assert.True(t, errors.Is(err, errDivisionByZero))
}

func TestEvaluate_RejectsUnsafeInput(t *testing.T) {
	tests := []string{
		"",
		"1 + ",
		"(1 + 2",
		"1 2",
		"2 ** 3",
		"__import__",
		"1; 2",
		"a + b",
		"1 + $x",
	}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			_, err := evaluate(expr)
			assert.True(t, contracts.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "42", formatValue(42))
	assert.Equal(t, "(-7.5)", formatValue(-7.5))

	// round-trip: formatted values must re-evaluate to themselves
	got, err := evaluate("10 - " + formatValue(-5))
	require.NoError(t, err)
	assert.Equal(t, 15.0, got)
}
