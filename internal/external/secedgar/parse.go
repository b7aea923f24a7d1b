package secedgar

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wonny/finsight/internal/contracts"
)

// companyFactsDoc mirrors the EDGAR companyfacts JSON shape
type companyFactsDoc struct {
	CIK        int                                `json:"cik"`
	EntityName string                             `json:"entityName"`
	Facts      map[string]map[string]conceptEntry `json:"facts"` // taxonomy, tag, entry
}

type conceptEntry struct {
	Label string                 `json:"label"`
	Units map[string][]unitValue `json:"units"` // unit → reported values
}

type unitValue struct {
	Start     string  `json:"start,omitempty"`
	End       string  `json:"end"`
	Val       float64 `json:"val"`
	Accession string  `json:"accn"`
	FiscalYr  int     `json:"fy"`
	FiscalPd  string  `json:"fp"`
	Form      string  `json:"form"`
	Frame     string  `json:"frame,omitempty"`
}

// parseCompanyFacts converts an EDGAR companyfacts payload into the
// internal representation. Reported values whose duration is neither a
// quarter nor a full year (year-to-date rollups) are skipped: mixing
// them with quarters silently corrupts TTM sums.
func parseCompanyFacts(raw []byte, tickers []string) (*contracts.CompanyFacts, error) {
	var doc companyFactsDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse companyfacts: %w", err)
	}
	if doc.CIK == 0 {
		return nil, fmt.Errorf("companyfacts payload has no CIK")
	}

	cik := fmt.Sprintf("%010d", doc.CIK)
	sourceURL := fmt.Sprintf("https://www.sec.gov/cgi-bin/browse-edgar?action=getcompany&CIK=%s", cik)

	payload := &contracts.CompanyFacts{
		CIK:        cik,
		EntityName: doc.EntityName,
		Tickers:    tickers,
	}

	for taxonomy, concepts := range doc.Facts {
		for tag, entry := range concepts {
			concept := taxonomy + ":" + tag
			for unit, values := range entry.Units {
				for _, v := range values {
					fact, ok := toFact(concept, unit, cik, doc.EntityName, sourceURL, v)
					if !ok {
						continue
					}
					payload.Facts = append(payload.Facts, fact)
				}
			}
		}
	}

	return payload, nil
}

func toFact(concept, unit, cik, entity, sourceURL string, v unitValue) (contracts.Fact, bool) {
	period, periodType, ok := classifyPeriod(v)
	if !ok {
		return contracts.Fact{}, false
	}

	return contracts.Fact{
		Concept:     concept,
		Value:       v.Val,
		Unit:        unit,
		Period:      period,
		PeriodType:  periodType,
		Accession:   v.Accession,
		SourceURL:   sourceURL,
		CompanyName: entity,
		CIK:         cik,
	}, true
}

// classifyPeriod derives the canonical period string. Instant values
// (no start date) take the quarter of their measurement date. Durations
// map to a quarter or a fiscal year by length.
func classifyPeriod(v unitValue) (string, contracts.PeriodType, bool) {
	end, err := time.Parse("2006-01-02", v.End)
	if err != nil {
		return "", "", false
	}

	if v.Start == "" {
		return quarterOf(end), contracts.PeriodInstant, true
	}

	start, err := time.Parse("2006-01-02", v.Start)
	if err != nil {
		return "", "", false
	}

	days := end.Sub(start).Hours() / 24
	switch {
	case days >= 80 && days <= 100:
		return quarterOf(end), contracts.PeriodDuration, true
	case days >= 350 && days <= 380:
		return fmt.Sprintf("%d", end.Year()), contracts.PeriodDuration, true
	default:
		// YTD rollup (6 or 9 months), not a canonical period
		return "", "", false
	}
}

func quarterOf(t time.Time) string {
	q := (int(t.Month())-1)/3 + 1
	return fmt.Sprintf("%d-Q%d", t.Year(), q)
}
