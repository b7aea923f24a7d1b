package contracts

import (
	"sort"
	"time"
)

// OutputType controls result formatting
type OutputType string

const (
	OutputValue   OutputType = "value"
	OutputPercent OutputType = "percent" // multiplied by 100
	OutputRatio   OutputType = "ratio"
	OutputDays    OutputType = "days"
)

// Confidence is the coarse trust tier derived from cross-source dispersion
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"   // std dev < 10% of mean
	ConfidenceMedium Confidence = "medium" // std dev < 20% of mean
	ConfidenceLow    Confidence = "low"
)

// CrossValidation summarizes agreement between independent sources
type CrossValidation struct {
	SourcesCount int        `json:"sources_count"`
	Mean         float64    `json:"mean"`
	Median       float64    `json:"median"`
	StdDev       float64    `json:"std_dev"`
	Values       []float64  `json:"all_values"`
	Sources      []string   `json:"all_sources"`
	Confidence   Confidence `json:"confidence"`
}

// Citation is one entry in a result's provenance trail
type Citation struct {
	Concept    string            `json:"concept"`
	Value      float64           `json:"value"`
	Unit       string            `json:"unit"`
	Period     string            `json:"period"`
	SourceURL  string            `json:"source_url"`
	Accession  string            `json:"accession"`
	FragmentID string            `json:"fragment_id,omitempty"`
	Dimensions map[string]string `json:"dimensions,omitempty"`
}

// CitationFromFact builds a citation entry for one input fact
func CitationFromFact(f *Fact) Citation {
	return Citation{
		Concept:    f.Concept,
		Value:      f.Value,
		Unit:       f.Unit,
		Period:     f.Period,
		SourceURL:  f.SourceURL,
		Accession:  f.Accession,
		FragmentID: f.FragmentID,
		Dimensions: f.Dimensions,
	}
}

// ResultMetadata carries calculation context
type ResultMetadata struct {
	CalculatedAt  time.Time `json:"calculated_at"`
	EngineVersion string    `json:"engine_version"`
	TTM           bool      `json:"ttm"`
	Segment       string    `json:"segment,omitempty"`
}

// CalculationResult is the full breakdown of one metric calculation.
// Immutable once produced.
type CalculationResult struct {
	Ticker       string           `json:"ticker"`
	Metric       string           `json:"metric"`
	Formula      string           `json:"formula"`
	Period       string           `json:"period"`
	Freq         Freq             `json:"freq"`
	Value        float64          `json:"value"`
	OutputType   OutputType       `json:"output_type"`
	Inputs       map[string]*Fact `json:"inputs"`
	Citations    []Citation       `json:"citations"`
	QualityFlags []string         `json:"quality_flags"`
	Metadata     ResultMetadata   `json:"metadata"`
}

// DedupeFlags returns a sorted, de-duplicated copy of quality flags
func DedupeFlags(flags []string) []string {
	seen := make(map[string]struct{}, len(flags))
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
