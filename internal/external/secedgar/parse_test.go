package secedgar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finsight/internal/contracts"
)

const companyFactsFixture = `{
  "cik": 320193,
  "entityName": "Apple Inc.",
  "facts": {
    "us-gaap": {
      "Revenues": {
        "label": "Revenues",
        "units": {
          "USD": [
            {"start": "2024-09-29", "end": "2024-12-28", "val": 124300000000, "accn": "0000320193-25-000008", "fy": 2025, "fp": "Q1", "form": "10-Q"},
            {"start": "2023-10-01", "end": "2024-09-28", "val": 391035000000, "accn": "0000320193-24-000123", "fy": 2024, "fp": "FY", "form": "10-K"},
            {"start": "2024-03-31", "end": "2024-09-28", "val": 180000000000, "accn": "0000320193-24-000123", "fy": 2024, "fp": "FY", "form": "10-K"}
          ]
        }
      },
      "Assets": {
        "label": "Total assets",
        "units": {
          "USD": [
            {"end": "2024-12-28", "val": 344085000000, "accn": "0000320193-25-000008", "fy": 2025, "fp": "Q1", "form": "10-Q"}
          ]
        }
      }
    }
  }
}`

func TestParseCompanyFacts(t *testing.T) {
	payload, err := parseCompanyFacts([]byte(companyFactsFixture), []string{"AAPL"})
	require.NoError(t, err)

	assert.Equal(t, "0000320193", payload.CIK)
	assert.Equal(t, "Apple Inc.", payload.EntityName)
	assert.Equal(t, []string{"AAPL"}, payload.Tickers)

	// the 6-month YTD rollup is skipped
	require.Len(t, payload.Facts, 3)

	byPeriod := make(map[string]contracts.Fact)
	for _, f := range payload.Facts {
		byPeriod[f.Concept+"|"+f.Period] = f
	}

	quarterly := byPeriod["us-gaap:Revenues|2024-Q4"]
	assert.Equal(t, 124300000000.0, quarterly.Value)
	assert.Equal(t, contracts.PeriodDuration, quarterly.PeriodType)
	assert.Equal(t, "0000320193-25-000008", quarterly.Accession)
	assert.Equal(t, "USD", quarterly.Unit)

	annual := byPeriod["us-gaap:Revenues|2024"]
	assert.Equal(t, 391035000000.0, annual.Value)

	instant := byPeriod["us-gaap:Assets|2024-Q4"]
	assert.Equal(t, contracts.PeriodInstant, instant.PeriodType)
}

func TestParseCompanyFacts_BadPayload(t *testing.T) {
	_, err := parseCompanyFacts([]byte(`{"entityName": "x"}`), nil)
	assert.Error(t, err)

	_, err = parseCompanyFacts([]byte(`not json`), nil)
	assert.Error(t, err)
}

func TestPickFact(t *testing.T) {
	facts := []contracts.Fact{
		{Concept: "us-gaap:Revenues", Value: 100, Unit: "USD", Period: "2024-Q3", PeriodType: contracts.PeriodDuration},
		{Concept: "us-gaap:Revenues", Value: 120, Unit: "USD", Period: "2024-Q4", PeriodType: contracts.PeriodDuration},
		{Concept: "us-gaap:Revenues", Value: 400, Unit: "USD", Period: "2024", PeriodType: contracts.PeriodDuration},
	}

	latest, err := pickFact(facts, contracts.FactQuery{Ticker: "AAPL", Concept: "us-gaap:Revenues"}.Normalized())
	require.NoError(t, err)
	assert.Equal(t, 120.0, latest.Value)

	annual, err := pickFact(facts, contracts.FactQuery{Ticker: "AAPL", Concept: "us-gaap:Revenues", Freq: contracts.FreqAnnual}.Normalized())
	require.NoError(t, err)
	assert.Equal(t, 400.0, annual.Value)

	exact, err := pickFact(facts, contracts.FactQuery{Ticker: "AAPL", Concept: "us-gaap:Revenues", Period: "2024-Q3"}.Normalized())
	require.NoError(t, err)
	assert.Equal(t, 100.0, exact.Value)

	_, err = pickFact(facts, contracts.FactQuery{Ticker: "AAPL", Concept: "us-gaap:CostOfRevenue"}.Normalized())
	assert.True(t, contracts.IsNotFound(err))
}
