package facts

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/pkg/logger"
)

// Store indexes facts per company and concept and answers point and
// series queries, including trailing-twelve-month synthesis.
// Facts live only for the session; this is a request-scoped index, not a
// database.
// ⭐ SSOT: 팩트 인덱싱/조회는 이 스토어에서만
type Store struct {
	logger *logger.Logger

	// mu guards the company index. Reads take the read lock only;
	// ingestion swaps fully-built concept slices under the write lock so
	// point reads never observe a half-merged company.
	mu        sync.RWMutex
	companies map[string]*companyIndex // by CIK
	tickers   map[string]string        // upper ticker → CIK

	// ingestLocks serializes overlapping ingestions of the same company
	// (one mutex per CIK) without blocking ingestion of other companies
	ingestMu    sync.Mutex
	ingestLocks map[string]*sync.Mutex
}

type companyIndex struct {
	name      string
	byConcept map[string][]contracts.Fact // sorted by period, most recent first
}

// NewStore creates an empty facts store
func NewStore(log *logger.Logger) *Store {
	return &Store{
		logger:      log.WithField("module", "facts_store"),
		companies:   make(map[string]*companyIndex),
		tickers:     make(map[string]string),
		ingestLocks: make(map[string]*sync.Mutex),
	}
}

// companyLock returns the per-CIK ingestion mutex, creating it on first use
func (s *Store) companyLock(cik string) *sync.Mutex {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	lock, ok := s.ingestLocks[cik]
	if !ok {
		lock = &sync.Mutex{}
		s.ingestLocks[cik] = lock
	}
	return lock
}

// Ingest loads one company's facts into the index. Overlapping ingestions
// of the same company are serialized per CIK; invalid facts are skipped,
// never stored.
func (s *Store) Ingest(payload *contracts.CompanyFacts) error {
	if payload == nil || payload.CIK == "" {
		return fmt.Errorf("ingest: payload has no CIK")
	}

	lock := s.companyLock(payload.CIK)
	lock.Lock()
	defer lock.Unlock()

	// Merge into a fresh index outside the read path
	merged := make(map[string][]contracts.Fact)

	s.mu.RLock()
	if existing, ok := s.companies[payload.CIK]; ok {
		for concept, ff := range existing.byConcept {
			merged[concept] = append([]contracts.Fact(nil), ff...)
		}
	}
	s.mu.RUnlock()

	stored, skipped := 0, 0
	for _, fact := range payload.Facts {
		if err := fact.Validate(); err != nil {
			skipped++
			continue
		}
		if s.isDuplicate(merged[fact.Concept], &fact) {
			continue
		}
		merged[fact.Concept] = append(merged[fact.Concept], fact)
		stored++
	}

	for concept := range merged {
		ff := merged[concept]
		sort.Slice(ff, func(i, j int) bool { return ff[i].Period > ff[j].Period })
		merged[concept] = ff
	}

	s.mu.Lock()
	s.companies[payload.CIK] = &companyIndex{
		name:      payload.EntityName,
		byConcept: merged,
	}
	for _, ticker := range payload.Tickers {
		s.tickers[strings.ToUpper(ticker)] = payload.CIK
	}
	s.mu.Unlock()

	s.logger.WithFields(map[string]interface{}{
		"cik":     payload.CIK,
		"entity":  payload.EntityName,
		"stored":  stored,
		"skipped": skipped,
	}).Info("Company facts ingested")

	return nil
}

// isDuplicate checks the uniqueness key: concept + period + dimensions + accession
func (s *Store) isDuplicate(existing []contracts.Fact, fact *contracts.Fact) bool {
	for i := range existing {
		f := &existing[i]
		if f.Period == fact.Period && f.Accession == fact.Accession && dimensionsEqual(f.Dimensions, fact.Dimensions) {
			return true
		}
	}
	return false
}

func dimensionsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// ResolveTicker maps a ticker to the CIK of an ingested company
func (s *Store) ResolveTicker(ticker string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cik, ok := s.tickers[strings.ToUpper(ticker)]
	return cik, ok
}

// GetFact returns one fact matching the query, or a not-found error.
// An unknown concept or unresolvable ticker is not-found, never a failure.
func (s *Store) GetFact(ctx context.Context, q contracts.FactQuery) (*contracts.Fact, error) {
	q = q.Normalized()

	cik, ok := s.ResolveTicker(q.Ticker)
	if !ok {
		return nil, contracts.NotFound(q, "ticker not resolvable")
	}

	candidates := s.filtered(cik, q.Concept, q.Freq, q.Segment)
	if len(candidates) == 0 {
		return nil, contracts.NotFound(q, "no facts for concept")
	}

	var fact *contracts.Fact
	if q.Period == "latest" {
		// candidates are sorted most recent first
		fact = &candidates[0]
	} else {
		for i := range candidates {
			if candidates[i].Period == q.Period {
				fact = &candidates[i]
				break
			}
		}
		if fact == nil {
			return nil, contracts.NotFound(q, "period not found")
		}
	}

	if q.TTM && fact.PeriodType == contracts.PeriodDuration {
		return s.trailingTwelveMonths(cik, q, fact)
	}

	out := *fact
	return &out, nil
}

// GetSeries returns up to limit facts for a concept, most recent first.
// An unknown ticker or concept yields an empty series.
func (s *Store) GetSeries(ctx context.Context, ticker, concept string, freq contracts.Freq, limit int, segment string) ([]*contracts.Fact, error) {
	cik, ok := s.ResolveTicker(ticker)
	if !ok {
		return nil, nil
	}

	candidates := s.filtered(cik, concept, freq, segment)
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]*contracts.Fact, 0, len(candidates))
	for i := range candidates {
		f := candidates[i]
		out = append(out, &f)
	}
	return out, nil
}

// GetFactsFromSameFiling tries to resolve all concepts from one
// consistent accession. Returns nil when no single filing covers every
// concept at the requested period.
func (s *Store) GetFactsFromSameFiling(ctx context.Context, ticker string, concepts []string, period string, freq contracts.Freq) (map[string]*contracts.Fact, error) {
	if len(concepts) == 0 {
		return nil, nil
	}

	cik, ok := s.ResolveTicker(ticker)
	if !ok {
		return nil, nil
	}

	// Candidate accessions come from the first concept's facts
	type candidate struct {
		accession string
		maxPeriod string
		facts     map[string]*contracts.Fact
	}

	byAccession := make(map[string]*candidate)
	for _, concept := range concepts {
		for _, fact := range s.filtered(cik, concept, freq, "") {
			if period != "" && period != "latest" && fact.Period != period {
				continue
			}
			c, ok := byAccession[fact.Accession]
			if !ok {
				c = &candidate{accession: fact.Accession, facts: make(map[string]*contracts.Fact)}
				byAccession[fact.Accession] = c
			}
			if _, have := c.facts[concept]; !have {
				f := fact
				c.facts[concept] = &f
			}
			if fact.Period > c.maxPeriod {
				c.maxPeriod = fact.Period
			}
		}
	}

	var best *candidate
	for _, c := range byAccession {
		if len(c.facts) != len(concepts) {
			continue
		}
		if best == nil || c.maxPeriod > best.maxPeriod {
			best = c
		}
	}

	if best == nil {
		return nil, nil
	}
	return best.facts, nil
}

// filtered returns the frequency- and segment-filtered facts for one
// concept, most recent first
func (s *Store) filtered(cik, concept string, freq contracts.Freq, segment string) []contracts.Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	company, ok := s.companies[cik]
	if !ok {
		return nil
	}

	source := company.byConcept[concept]
	out := make([]contracts.Fact, 0, len(source))
	for _, f := range source {
		if !f.MatchesFreq(freq) {
			continue
		}
		if segment != "" && f.Segment() != segment {
			continue
		}
		out = append(out, f)
	}
	return out
}

// trailingTwelveMonths sums the four most recent quarters matching the
// anchor fact's concept and segment. Fewer than four quarters is
// not-found; a partial sum would silently misstate the figure.
func (s *Store) trailingTwelveMonths(cik string, q contracts.FactQuery, anchor *contracts.Fact) (*contracts.Fact, error) {
	quarters := s.filtered(cik, q.Concept, contracts.FreqQuarterly, anchor.Segment())
	if len(quarters) < 4 {
		return nil, contracts.NotFound(q, fmt.Sprintf("ttm needs 4 quarters, have %d", len(quarters)))
	}

	total := 0.0
	for _, f := range quarters[:4] {
		total += f.Value
	}

	latest := quarters[0]
	ttm := contracts.Fact{
		Concept:      anchor.Concept,
		Value:        total,
		Unit:         latest.Unit,
		Period:       "TTM-" + latest.Period,
		PeriodType:   contracts.PeriodDuration,
		Accession:    "TTM-CALCULATED",
		SourceURL:    latest.SourceURL,
		Dimensions:   latest.Dimensions,
		QualityFlags: []string{contracts.FlagTTMCalculated},
		CompanyName:  latest.CompanyName,
		CIK:          cik,
	}
	return &ttm, nil
}

// Stats describes the current index contents
type Stats struct {
	Companies int `json:"companies"`
	Concepts  int `json:"concepts"`
	Facts     int `json:"facts"`
}

// Stats returns index statistics
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{Companies: len(s.companies)}
	for _, company := range s.companies {
		stats.Concepts += len(company.byConcept)
		for _, ff := range company.byConcept {
			stats.Facts += len(ff)
		}
	}
	return stats
}
