package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/finsight/internal/contracts"
)

// Entry is one persisted calculation record
type Entry struct {
	ID           int64                `json:"id"`
	Ticker       string               `json:"ticker"`
	Metric       string               `json:"metric"`
	Formula      string               `json:"formula"`
	Period       string               `json:"period"`
	Value        float64              `json:"value"`
	OutputType   string               `json:"output_type"`
	QualityFlags []string             `json:"quality_flags"`
	Citations    []contracts.Citation `json:"citations"`
	CalculatedAt time.Time            `json:"calculated_at"`
}

// Repository persists calculation results for later review. Citations
// and flags go in as JSONB so the full provenance trail survives.
// ⭐ SSOT: 계산 감사 로그 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a calculation audit repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Schema is the audit table DDL, applied by the migrate command
const Schema = `
CREATE TABLE IF NOT EXISTS audit.calculations (
    id            BIGSERIAL PRIMARY KEY,
    ticker        TEXT NOT NULL,
    metric        TEXT NOT NULL,
    formula       TEXT NOT NULL,
    period        TEXT NOT NULL,
    value         DOUBLE PRECISION NOT NULL,
    output_type   TEXT NOT NULL,
    quality_flags JSONB NOT NULL DEFAULT '[]',
    citations     JSONB NOT NULL DEFAULT '[]',
    calculated_at TIMESTAMPTZ NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_calculations_ticker_metric
    ON audit.calculations (ticker, metric, calculated_at DESC);
`

// EnsureSchema creates the audit schema and table
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS audit`); err != nil {
		return fmt.Errorf("failed to create audit schema: %w", err)
	}
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create audit table: %w", err)
	}
	return nil
}

// Record persists one calculation result
func (r *Repository) Record(ctx context.Context, result *contracts.CalculationResult) error {
	flags, err := json.Marshal(result.QualityFlags)
	if err != nil {
		return fmt.Errorf("failed to marshal quality flags: %w", err)
	}
	citations, err := json.Marshal(result.Citations)
	if err != nil {
		return fmt.Errorf("failed to marshal citations: %w", err)
	}

	query := `
		INSERT INTO audit.calculations
			(ticker, metric, formula, period, value, output_type, quality_flags, citations, calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.pool.Exec(ctx, query,
		result.Ticker,
		result.Metric,
		result.Formula,
		result.Period,
		result.Value,
		string(result.OutputType),
		flags,
		citations,
		result.Metadata.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert calculation record: %w", err)
	}
	return nil
}

// Recent returns the latest calculation records for a ticker
func (r *Repository) Recent(ctx context.Context, ticker string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, ticker, metric, formula, period, value, output_type,
		       quality_flags, citations, calculated_at
		FROM audit.calculations
		WHERE ticker = $1
		ORDER BY calculated_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query calculation records: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var flags, citations []byte

		err := rows.Scan(&e.ID, &e.Ticker, &e.Metric, &e.Formula, &e.Period,
			&e.Value, &e.OutputType, &flags, &citations, &e.CalculatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if err := json.Unmarshal(flags, &e.QualityFlags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal quality flags: %w", err)
		}
		if err := json.Unmarshal(citations, &e.Citations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal citations: %w", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return entries, nil
}
