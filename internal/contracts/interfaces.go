package contracts

import "context"

// SourceAdapter is implemented by each external data source. Adapters own
// all network I/O, rate limiting, and raw payload parsing; the core never
// performs network calls itself.
// ⭐ SSOT: 외부 데이터 소스 인터페이스
type SourceAdapter interface {
	// Source returns the stable source identifier (e.g. "sec_edgar")
	Source() string

	// GetFact returns one fact, or an ErrNotFound-wrapped error when the
	// source has no usable value for the query
	GetFact(ctx context.Context, q FactQuery) (*Fact, error)
}

// CompanyFactsProvider is implemented by sources that can return a full
// per-company payload for FactsStore ingestion (SEC companyfacts)
type CompanyFactsProvider interface {
	GetCompanyFacts(ctx context.Context, ticker string) (*CompanyFacts, error)
}

// IdentifierResolver maps a ticker symbol to the internal company id (CIK)
type IdentifierResolver interface {
	ResolveTicker(ctx context.Context, ticker string) (string, error)
}

// FactReader is the read surface of the facts store consumed by the
// calculation engine
type FactReader interface {
	GetFact(ctx context.Context, q FactQuery) (*Fact, error)
	GetSeries(ctx context.Context, ticker, concept string, freq Freq, limit int, segment string) ([]*Fact, error)
}
