package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/pkg/logger"
)

// fakeAdapter returns a canned fact, error, or hangs past the timeout
type fakeAdapter struct {
	name  string
	value float64
	err   error
	delay time.Duration
}

func (f *fakeAdapter) Source() string { return f.name }

func (f *fakeAdapter) GetFact(ctx context.Context, q contracts.FactQuery) (*contracts.Fact, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &contracts.Fact{
		Concept:    q.Concept,
		Value:      f.value,
		Unit:       "USD",
		Period:     "2024-Q4",
		PeriodType: contracts.PeriodDuration,
		SourceURL:  "https://" + f.name + ".example/",
	}, nil
}

func newTestRouter(t *testing.T, adapters []contracts.SourceAdapter, opts ...Option) *Router {
	t.Helper()
	return New(logger.NewNop(), adapters, 200*time.Millisecond, opts...)
}

func TestClassifyConcept(t *testing.T) {
	tests := []struct {
		concept string
		want    DataType
	}{
		{"current_price", DataTypeRealTimeQuote},
		{"trading_volume", DataTypeRealTimeQuote},
		{"historical_close", DataTypeHistoricalPrices},
		{"us-gaap:Revenues", DataTypeFinancialStatements},
		{"net_income", DataTypeFinancialStatements},
		{"gross_margin", DataTypeFundamentals},
		{"eps_diluted", DataTypeFundamentals},
	}

	for _, tt := range tests {
		t.Run(tt.concept, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyConcept(tt.concept))
		})
	}
}

func TestPlausibility(t *testing.T) {
	cfg := DefaultPlausibility()

	tests := []struct {
		name    string
		concept string
		value   float64
		want    bool
	}{
		{"reasonable revenue", "revenue", 5e9, true},
		{"revenue too small", "revenue", 1000, false},
		{"revenue too large", "revenue", 1e13, false},
		{"zero always rejected", "revenue", 0, false},
		{"negative net income ok", "net_income", -3e9, true},
		{"reasonable price", "current_price", 187.5, true},
		{"price too small", "current_price", 0.001, false},
		{"unknown concept nonzero ok", "obscure_thing", 42, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.Plausible(tt.concept, tt.value))
		})
	}
}

func TestCrossValidate_Confidence(t *testing.T) {
	mk := func(values ...float64) []sourceValue {
		out := make([]sourceValue, len(values))
		for i, v := range values {
			out[i] = sourceValue{source: "s", fact: &contracts.Fact{Value: v}}
		}
		return out
	}

	tests := []struct {
		name   string
		values []float64
		want   contracts.Confidence
	}{
		{"tight agreement", []float64{100, 102, 98}, contracts.ConfidenceHigh},
		{"wide disagreement", []float64{100, 200}, contracts.ConfidenceLow},
		{"moderate spread", []float64{100, 100, 120}, contracts.ConfidenceMedium},
		{"single source", []float64{100}, contracts.ConfidenceMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, cv := crossValidate(mk(tt.values...))
			require.NotNil(t, cv)
			assert.Equal(t, tt.want, cv.Confidence)
			assert.Equal(t, len(tt.values), cv.SourcesCount)
		})
	}
}

func TestCrossValidate_RepresentativeNearestMedian(t *testing.T) {
	values := []sourceValue{
		{source: "a", fact: &contracts.Fact{Value: 90}},
		{source: "b", fact: &contracts.Fact{Value: 100}},
		{source: "c", fact: &contracts.Fact{Value: 140}},
	}

	idx, cv := crossValidate(values)
	assert.Equal(t, 1, idx)
	assert.Equal(t, 100.0, cv.Median)
}

func TestRouter_Resolve_CrossValidates(t *testing.T) {
	r := newTestRouter(t, []contracts.SourceAdapter{
		&fakeAdapter{name: SourceSECEdgar, value: 5e9},
		&fakeAdapter{name: SourceYahoo, value: 5.1e9},
		&fakeAdapter{name: SourceAlphaVantage, value: 4.9e9},
	})

	res, err := r.Resolve(context.Background(), contracts.FactQuery{Ticker: "AAPL", Concept: "revenue"})
	require.NoError(t, err)

	assert.Equal(t, DataTypeFinancialStatements, res.DataType)
	assert.Equal(t, 3, res.CrossValidation.SourcesCount)
	assert.Equal(t, contracts.ConfidenceHigh, res.CrossValidation.Confidence)
	assert.Equal(t, 5e9, res.Fact.Value)
}

func TestRouter_Resolve_AbsorbsSourceFailures(t *testing.T) {
	r := newTestRouter(t, []contracts.SourceAdapter{
		&fakeAdapter{name: SourceSECEdgar, err: errors.New("connection refused")},
		&fakeAdapter{name: SourceYahoo, value: 5e9},
	})

	res, err := r.Resolve(context.Background(), contracts.FactQuery{Ticker: "AAPL", Concept: "revenue"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.CrossValidation.SourcesCount)
	assert.Equal(t, 5e9, res.Fact.Value)
}

func TestRouter_Resolve_DropsImplausible(t *testing.T) {
	r := newTestRouter(t, []contracts.SourceAdapter{
		&fakeAdapter{name: SourceSECEdgar, value: 5e9},
		&fakeAdapter{name: SourceYahoo, value: 0}, // missing masquerading as zero
	})

	res, err := r.Resolve(context.Background(), contracts.FactQuery{Ticker: "AAPL", Concept: "revenue"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.CrossValidation.SourcesCount)
	assert.Equal(t, []string{SourceSECEdgar}, res.CrossValidation.Sources)
}

func TestRouter_Resolve_AllSourcesFail(t *testing.T) {
	r := newTestRouter(t, []contracts.SourceAdapter{
		&fakeAdapter{name: SourceSECEdgar, err: errors.New("boom")},
		&fakeAdapter{name: SourceYahoo, err: contracts.NotFound(contracts.FactQuery{}, "nothing")},
	})

	_, err := r.Resolve(context.Background(), contracts.FactQuery{Ticker: "AAPL", Concept: "revenue"})
	assert.True(t, contracts.IsNotFound(err))
}

func TestRouter_Resolve_SlowSourceTimedOut(t *testing.T) {
	r := newTestRouter(t, []contracts.SourceAdapter{
		&fakeAdapter{name: SourceSECEdgar, value: 5e9, delay: 2 * time.Second},
		&fakeAdapter{name: SourceYahoo, value: 5.1e9},
	})

	start := time.Now()
	res, err := r.Resolve(context.Background(), contracts.FactQuery{Ticker: "AAPL", Concept: "revenue"})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, []string{SourceYahoo}, res.CrossValidation.Sources)
}

func TestRouter_Resolve_QuoteRouting(t *testing.T) {
	// sec_edgar is not in the quote priority list, so even when present it
	// must not be consulted for a price query
	r := newTestRouter(t, []contracts.SourceAdapter{
		&fakeAdapter{name: SourceSECEdgar, value: 190},
		&fakeAdapter{name: SourceYahoo, value: 187.5},
	})

	res, err := r.Resolve(context.Background(), contracts.FactQuery{Ticker: "AAPL", Concept: "current_price"})
	require.NoError(t, err)

	assert.Equal(t, DataTypeRealTimeQuote, res.DataType)
	assert.Equal(t, []string{SourceYahoo}, res.CrossValidation.Sources)
}
