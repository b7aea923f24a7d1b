package contracts

import (
	"fmt"
	"math"
	"strings"
)

// PeriodType distinguishes flow concepts (revenue over a quarter) from
// point-in-time concepts (assets at a balance sheet date)
type PeriodType string

const (
	PeriodDuration PeriodType = "duration"
	PeriodInstant  PeriodType = "instant"
)

// Freq is the reporting frequency of a fact
type Freq string

const (
	FreqQuarterly Freq = "Q"
	FreqAnnual    Freq = "A"
)

// SegmentAxis is the dimension key used for business segment breakdowns
const SegmentAxis = "BusinessSegment"

// Quality flags attached to facts and calculation results.
// Flags are advisory: they mark a data-quality concern without failing
// the computation.
const (
	FlagTTMCalculated    = "ttm_calculated"     // exact TTM: sum of 4 reported quarters
	FlagTTMApproximated  = "ttm_approximated"   // latest quarter x4, quarterly history unavailable
	FlagAvgPartialSeries = "avg_partial_series" // avg() over fewer periods than requested
	FlagRestated         = "restated"
	FlagEstimated        = "estimated"
)

// Fact is a single financial data point with full provenance.
// A Fact is immutable once produced; derived values (TTM, cross-validated
// representatives) are new Fact values, never in-place mutations.
// ⭐ SSOT: 데이터 포인트 표현은 이 타입으로만
type Fact struct {
	Concept      string            `json:"concept"`
	Value        float64           `json:"value"`
	Unit         string            `json:"unit"`
	Period       string            `json:"period"` // "2024-Q4" or "2024"
	PeriodType   PeriodType        `json:"period_type"`
	Accession    string            `json:"accession"`
	FragmentID   string            `json:"fragment_id,omitempty"`
	SourceURL    string            `json:"source_url"`
	Dimensions   map[string]string `json:"dimensions,omitempty"`
	QualityFlags []string          `json:"quality_flags,omitempty"`
	CompanyName  string            `json:"company_name"`
	CIK          string            `json:"cik"`
}

// Validate checks the fact invariants: unit always present, value always
// finite, concept and period identified.
func (f *Fact) Validate() error {
	if f.Concept == "" {
		return fmt.Errorf("fact has no concept")
	}
	if f.Unit == "" {
		return fmt.Errorf("fact %s has no unit", f.Concept)
	}
	if math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
		return fmt.Errorf("fact %s has non-finite value", f.Concept)
	}
	if f.Period == "" {
		return fmt.Errorf("fact %s has no period", f.Concept)
	}
	return nil
}

// IsQuarterly reports whether the fact's period carries a quarter marker.
// Annual periods ("2024") do not.
func (f *Fact) IsQuarterly() bool {
	return strings.Contains(f.Period, "-Q")
}

// MatchesFreq reports whether the fact belongs to the given frequency
func (f *Fact) MatchesFreq(freq Freq) bool {
	switch freq {
	case FreqQuarterly:
		return f.IsQuarterly()
	case FreqAnnual:
		return !f.IsQuarterly()
	default:
		return true
	}
}

// Segment returns the business segment dimension value, if any
func (f *Fact) Segment() string {
	return f.Dimensions[SegmentAxis]
}

// HasFlag reports whether the fact carries the given quality flag
func (f *Fact) HasFlag(flag string) bool {
	for _, fl := range f.QualityFlags {
		if fl == flag {
			return true
		}
	}
	return false
}

// CompanyFacts is one source's full per-company payload, ready for
// FactsStore ingestion
type CompanyFacts struct {
	CIK        string   `json:"cik"`
	EntityName string   `json:"entity_name"`
	Tickers    []string `json:"tickers"`
	Facts      []Fact   `json:"facts"`
}

// FactQuery identifies one fact lookup
type FactQuery struct {
	Ticker  string `json:"ticker"`
	Concept string `json:"concept"`
	Period  string `json:"period"` // exact period or "latest"
	Freq    Freq   `json:"freq"`
	TTM     bool   `json:"ttm"`
	Segment string `json:"segment,omitempty"`
}

// Normalized returns the query with defaults applied
func (q FactQuery) Normalized() FactQuery {
	if q.Period == "" {
		q.Period = "latest"
	}
	if q.Freq == "" {
		q.Freq = FreqQuarterly
	}
	q.Ticker = strings.ToUpper(q.Ticker)
	return q
}
