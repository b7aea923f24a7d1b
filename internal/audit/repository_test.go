package audit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finsight/internal/contracts"
)

// Integration test: requires a running PostgreSQL and DATABASE_URL
func TestRepository_RecordAndRecent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	result := &contracts.CalculationResult{
		Ticker:     "AAPL",
		Metric:     "gross_margin",
		Formula:    "(revenue - costOfRevenue) / revenue",
		Period:     "2024-Q4",
		Value:      40.0,
		OutputType: contracts.OutputPercent,
		Citations: []contracts.Citation{
			{Concept: "us-gaap:Revenues", Value: 120, Unit: "USD", Period: "2024-Q4"},
		},
		QualityFlags: []string{"PERIOD_MISMATCH"},
		Metadata: contracts.ResultMetadata{
			CalculatedAt: time.Now().UTC(),
		},
	}

	require.NoError(t, repo.Record(ctx, result))

	entries, err := repo.Recent(ctx, "AAPL", 5)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	latest := entries[0]
	assert.Equal(t, "gross_margin", latest.Metric)
	assert.Equal(t, 40.0, latest.Value)
	assert.Equal(t, []string{"PERIOD_MISMATCH"}, latest.QualityFlags)
	require.Len(t, latest.Citations, 1)
	assert.Equal(t, "us-gaap:Revenues", latest.Citations[0].Concept)
}
