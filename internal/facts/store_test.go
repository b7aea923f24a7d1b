package facts

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/pkg/logger"
)

func quarterFact(concept, period string, value float64) contracts.Fact {
	return contracts.Fact{
		Concept:    concept,
		Value:      value,
		Unit:       "USD",
		Period:     period,
		PeriodType: contracts.PeriodDuration,
		Accession:  "0000320193-25-000008",
		SourceURL:  "https://www.sec.gov/Archives/edgar/data/320193/",
		CIK:        "0000320193",
	}
}

func testPayload(facts ...contracts.Fact) *contracts.CompanyFacts {
	return &contracts.CompanyFacts{
		CIK:        "0000320193",
		EntityName: "Apple Inc.",
		Tickers:    []string{"AAPL"},
		Facts:      facts,
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(logger.NewNop())
}

func TestStore_Ingest_SkipsInvalidFacts(t *testing.T) {
	store := newTestStore(t)

	bad := quarterFact("us-gaap:Revenues", "2024-Q4", 100)
	bad.Unit = ""

	err := store.Ingest(testPayload(
		quarterFact("us-gaap:Revenues", "2024-Q4", 100),
		bad,
	))
	require.NoError(t, err)

	assert.Equal(t, 1, store.Stats().Facts)
}

func TestStore_Ingest_DeduplicatesOnReingest(t *testing.T) {
	store := newTestStore(t)

	payload := testPayload(quarterFact("us-gaap:Revenues", "2024-Q4", 100))
	require.NoError(t, store.Ingest(payload))
	require.NoError(t, store.Ingest(payload))

	assert.Equal(t, 1, store.Stats().Facts)
}

func TestStore_GetFact_Latest(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Ingest(testPayload(
		quarterFact("us-gaap:Revenues", "2024-Q2", 90),
		quarterFact("us-gaap:Revenues", "2024-Q4", 120),
		quarterFact("us-gaap:Revenues", "2024-Q3", 100),
	)))

	fact, err := store.GetFact(context.Background(), contracts.FactQuery{
		Ticker:  "aapl",
		Concept: "us-gaap:Revenues",
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-Q4", fact.Period)
	assert.Equal(t, 120.0, fact.Value)
}

func TestStore_GetFact_ExactPeriod(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Ingest(testPayload(
		quarterFact("us-gaap:Revenues", "2024-Q3", 100),
		quarterFact("us-gaap:Revenues", "2024-Q4", 120),
	)))

	fact, err := store.GetFact(context.Background(), contracts.FactQuery{
		Ticker:  "AAPL",
		Concept: "us-gaap:Revenues",
		Period:  "2024-Q3",
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, fact.Value)

	_, err = store.GetFact(context.Background(), contracts.FactQuery{
		Ticker:  "AAPL",
		Concept: "us-gaap:Revenues",
		Period:  "2023-Q1",
	})
	assert.True(t, contracts.IsNotFound(err))
}

func TestStore_GetFact_NotFoundCases(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Ingest(testPayload(
		quarterFact("us-gaap:Revenues", "2024-Q4", 120),
	)))

	tests := []struct {
		name  string
		query contracts.FactQuery
	}{
		{
			name:  "unknown ticker",
			query: contracts.FactQuery{Ticker: "MSFT", Concept: "us-gaap:Revenues"},
		},
		{
			name:  "unknown concept",
			query: contracts.FactQuery{Ticker: "AAPL", Concept: "us-gaap:CostOfRevenue"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.GetFact(context.Background(), tt.query)
			assert.True(t, contracts.IsNotFound(err))
		})
	}
}

func TestStore_GetFact_FreqFilter(t *testing.T) {
	store := newTestStore(t)

	annual := quarterFact("us-gaap:Revenues", "2024", 400)
	require.NoError(t, store.Ingest(testPayload(
		quarterFact("us-gaap:Revenues", "2024-Q4", 120),
		annual,
	)))

	fact, err := store.GetFact(context.Background(), contracts.FactQuery{
		Ticker:  "AAPL",
		Concept: "us-gaap:Revenues",
		Freq:    contracts.FreqAnnual,
	})
	require.NoError(t, err)
	assert.Equal(t, 400.0, fact.Value)
}

func TestStore_GetFact_SegmentFilter(t *testing.T) {
	store := newTestStore(t)

	segment := quarterFact("us-gaap:Revenues", "2024-Q4", 60)
	segment.Dimensions = map[string]string{contracts.SegmentAxis: "iPhone"}

	require.NoError(t, store.Ingest(testPayload(
		quarterFact("us-gaap:Revenues", "2024-Q4", 120),
		segment,
	)))

	fact, err := store.GetFact(context.Background(), contracts.FactQuery{
		Ticker:  "AAPL",
		Concept: "us-gaap:Revenues",
		Segment: "iPhone",
	})
	require.NoError(t, err)
	assert.Equal(t, 60.0, fact.Value)

	// Unsegmented query must not pick up the segment member
	fact, err = store.GetFact(context.Background(), contracts.FactQuery{
		Ticker:  "AAPL",
		Concept: "us-gaap:Revenues",
	})
	require.NoError(t, err)
	assert.Equal(t, 120.0, fact.Value)
}

func TestStore_GetFact_TTM(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Ingest(testPayload(
		quarterFact("us-gaap:Revenues", "2024-Q1", 10),
		quarterFact("us-gaap:Revenues", "2024-Q2", 20),
		quarterFact("us-gaap:Revenues", "2024-Q3", 30),
		quarterFact("us-gaap:Revenues", "2024-Q4", 40),
		quarterFact("us-gaap:Revenues", "2023-Q4", 5),
	)))

	fact, err := store.GetFact(context.Background(), contracts.FactQuery{
		Ticker:  "AAPL",
		Concept: "us-gaap:Revenues",
		TTM:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, 100.0, fact.Value)
	assert.Equal(t, "TTM-2024-Q4", fact.Period)
	assert.Equal(t, "TTM-CALCULATED", fact.Accession)
	assert.True(t, fact.HasFlag(contracts.FlagTTMCalculated))
}

func TestStore_GetFact_TTM_InsufficientQuarters(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Ingest(testPayload(
		quarterFact("us-gaap:Revenues", "2024-Q3", 30),
		quarterFact("us-gaap:Revenues", "2024-Q4", 40),
	)))

	_, err := store.GetFact(context.Background(), contracts.FactQuery{
		Ticker:  "AAPL",
		Concept: "us-gaap:Revenues",
		TTM:     true,
	})
	assert.True(t, contracts.IsNotFound(err))
}

func TestStore_GetSeries(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Ingest(testPayload(
		quarterFact("us-gaap:Revenues", "2024-Q1", 10),
		quarterFact("us-gaap:Revenues", "2024-Q2", 20),
		quarterFact("us-gaap:Revenues", "2024-Q3", 30),
		quarterFact("us-gaap:Revenues", "2024-Q4", 40),
	)))

	series, err := store.GetSeries(context.Background(), "AAPL", "us-gaap:Revenues", contracts.FreqQuarterly, 3, "")
	require.NoError(t, err)

	require.Len(t, series, 3)
	assert.Equal(t, "2024-Q4", series[0].Period)
	assert.Equal(t, "2024-Q2", series[2].Period)

	empty, err := store.GetSeries(context.Background(), "MSFT", "us-gaap:Revenues", contracts.FreqQuarterly, 3, "")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_GetFactsFromSameFiling(t *testing.T) {
	store := newTestStore(t)

	older := quarterFact("us-gaap:CostOfRevenue", "2024-Q4", 70)
	older.Accession = "0000320193-24-000099"
	olderRev := quarterFact("us-gaap:Revenues", "2024-Q4", 118)
	olderRev.Accession = "0000320193-24-000099"

	require.NoError(t, store.Ingest(testPayload(
		quarterFact("us-gaap:Revenues", "2024-Q4", 120),
		quarterFact("us-gaap:CostOfRevenue", "2024-Q4", 72),
		older,
		olderRev,
	)))

	got, err := store.GetFactsFromSameFiling(context.Background(), "AAPL",
		[]string{"us-gaap:Revenues", "us-gaap:CostOfRevenue"}, "2024-Q4", contracts.FreqQuarterly)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, got["us-gaap:Revenues"].Accession, got["us-gaap:CostOfRevenue"].Accession)
}

func TestStore_GetFactsFromSameFiling_NoCommonAccession(t *testing.T) {
	store := newTestStore(t)

	cost := quarterFact("us-gaap:CostOfRevenue", "2024-Q4", 72)
	cost.Accession = "0000320193-24-000099"

	require.NoError(t, store.Ingest(testPayload(
		quarterFact("us-gaap:Revenues", "2024-Q4", 120),
		cost,
	)))

	got, err := store.GetFactsFromSameFiling(context.Background(), "AAPL",
		[]string{"us-gaap:Revenues", "us-gaap:CostOfRevenue"}, "2024-Q4", contracts.FreqQuarterly)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_ConcurrentIngestAndRead(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			payload := testPayload(
				quarterFact("us-gaap:Revenues", fmt.Sprintf("2024-Q%d", n%4+1), float64(n)),
			)
			_ = store.Ingest(payload)
			_, _ = store.GetFact(context.Background(), contracts.FactQuery{
				Ticker:  "AAPL",
				Concept: "us-gaap:Revenues",
			})
		}(i)
	}
	wg.Wait()

	stats := store.Stats()
	assert.Equal(t, 1, stats.Companies)
	assert.True(t, stats.Facts >= 1)
}
