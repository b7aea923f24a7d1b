package yahoo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finsight/internal/contracts"
)

const timeseriesFixture = `{
  "timeseries": {
    "result": [
      {
        "meta": {"type": ["quarterlyTotalRevenue"]},
        "quarterlyTotalRevenue": [
          {"asOfDate": "2024-09-28", "reportedValue": {"raw": 94930000000}},
          null,
          {"asOfDate": "2024-12-28", "reportedValue": {"raw": 124300000000}}
        ]
      }
    ]
  }
}`

func TestParseTimeseries(t *testing.T) {
	facts, err := parseTimeseries([]byte(timeseriesFixture), "quarterlyTotalRevenue", "AAPL")
	require.NoError(t, err)

	require.Len(t, facts, 2)
	assert.Equal(t, "2024-Q3", facts[0].Period)
	assert.Equal(t, 94930000000.0, facts[0].Value)
	assert.Equal(t, "2024-Q4", facts[1].Period)
	assert.Equal(t, contracts.PeriodDuration, facts[1].PeriodType)
	assert.Equal(t, "USD", facts[1].Unit)
}

func TestParseTimeseries_WrongType(t *testing.T) {
	facts, err := parseTimeseries([]byte(timeseriesFixture), "quarterlyNetIncome", "AAPL")
	require.NoError(t, err)
	assert.Empty(t, facts)
}

func TestIsQuoteConcept(t *testing.T) {
	assert.True(t, isQuoteConcept("current_price"))
	assert.True(t, isQuoteConcept("trading_volume"))
	assert.False(t, isQuoteConcept("us-gaap:Revenues"))
}

func TestQuarterOf(t *testing.T) {
	assert.Equal(t, "2024-Q1", quarterOf(time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-Q4", quarterOf(time.Date(2024, time.December, 28, 0, 0, 0, 0, time.UTC)))
}
