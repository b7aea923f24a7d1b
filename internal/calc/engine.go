package calc

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/internal/registry"
	"github.com/wonny/finsight/internal/router"
	"github.com/wonny/finsight/pkg/logger"
)

const engineVersion = "1.2.0"

// Store is the fact access surface the engine needs
type Store interface {
	contracts.FactReader
	ResolveTicker(ticker string) (string, bool)
	GetFactsFromSameFiling(ctx context.Context, ticker string, concepts []string, period string, freq contracts.Freq) (map[string]*contracts.Fact, error)
}

// Options tunes engine behavior
type Options struct {
	// StrictPeriods upgrades a period mismatch between inputs from a
	// quality flag to a validation error
	StrictPeriods bool
}

// Engine evaluates registry formulas over resolved facts. Every result
// carries full provenance: the facts used, their citations, and any
// quality flags raised along the way.
// ⭐ SSOT: 지표 계산은 이 엔진에서만
type Engine struct {
	logger   *logger.Logger
	store    Store
	router   *router.Router // nil disables external source resolution
	registry *registry.Registry
	opts     Options
	now      func() time.Time
}

// NewEngine creates a calculation engine
func NewEngine(log *logger.Logger, store Store, rt *router.Router, reg *registry.Registry, opts Options) *Engine {
	return &Engine{
		logger:   log.WithField("module", "calc_engine"),
		store:    store,
		router:   rt,
		registry: reg,
		opts:     opts,
		now:      time.Now,
	}
}

// Request identifies one calculation
type Request struct {
	Ticker  string
	Metric  string
	Period  string // exact period or "latest"
	Freq    contracts.Freq
	TTM     bool
	Segment string
}

func (r Request) normalized() Request {
	if r.Period == "" {
		r.Period = "latest"
	}
	if r.Freq == "" {
		r.Freq = contracts.FreqQuarterly
	}
	r.Ticker = strings.ToUpper(r.Ticker)
	return r
}

// resolution accumulates the facts, citations, and flags behind one
// calculation
type resolution struct {
	req       Request
	cik       string
	inputs    map[string]*contracts.Fact
	citations []contracts.Citation
	flags     []string
}

func newResolution(req Request, cik string) *resolution {
	return &resolution{
		req:    req,
		cik:    cik,
		inputs: make(map[string]*contracts.Fact),
	}
}

func (rc *resolution) addFact(name string, f *contracts.Fact) {
	rc.inputs[name] = f
	rc.cite(f)
}

func (rc *resolution) cite(f *contracts.Fact) {
	rc.citations = append(rc.citations, contracts.CitationFromFact(f))
	rc.flags = append(rc.flags, f.QualityFlags...)
}

// replaceFact swaps an input fact and its citation after same-filing
// harmonization
func (rc *resolution) replaceFact(name string, f *contracts.Fact) {
	old := rc.inputs[name]
	rc.inputs[name] = f
	for i := range rc.citations {
		if rc.citations[i].Concept == old.Concept && rc.citations[i].Accession == old.Accession {
			rc.citations[i] = contracts.CitationFromFact(f)
			break
		}
	}
}

// CalculateMetric computes one registry metric for a company
func (e *Engine) CalculateMetric(ctx context.Context, req Request) (*contracts.CalculationResult, error) {
	req = req.normalized()

	metric, err := e.registry.GetMetric(req.Metric)
	if err != nil {
		return nil, err
	}
	return e.calculate(ctx, req, metric.Expr, metric.Output)
}

// Explain evaluates an ad-hoc formula over registry inputs, with the
// same provenance guarantees as a registered metric
func (e *Engine) Explain(ctx context.Context, req Request, expr string) (*contracts.CalculationResult, error) {
	req = req.normalized()
	if req.Metric == "" {
		req.Metric = "expression"
	}
	return e.calculate(ctx, req, expr, contracts.OutputValue)
}

func (e *Engine) calculate(ctx context.Context, req Request, expr string, output contracts.OutputType) (*contracts.CalculationResult, error) {
	cik, _ := e.store.ResolveTicker(req.Ticker)
	rc := newResolution(req, cik)

	// Functions expand first so their results never collide with
	// variable substitution
	expanded, err := e.expandFunctions(ctx, rc, expr)
	if err != nil {
		return nil, err
	}

	optionalMissing, err := e.resolveVariables(ctx, rc, expanded)
	if err != nil {
		return nil, err
	}

	e.preferSameFiling(ctx, rc)

	substituted := substituteVariables(expanded, rc, optionalMissing)

	value, err := evaluate(substituted)
	if err != nil {
		if contracts.IsValidation(err) {
			return nil, err
		}
		return nil, &contracts.InternalError{Op: fmt.Sprintf("evaluate %s", req.Metric), Err: err}
	}

	if output == contracts.OutputPercent {
		value *= 100
	}

	flags := contracts.DedupeFlags(append(rc.flags, e.sanityFlags(value, rc)...))

	if e.opts.StrictPeriods && containsFlag(flags, FlagPeriodMismatch) {
		return nil, contracts.NewValidationError("metric %q: inputs span mismatched periods", req.Metric)
	}

	result := &contracts.CalculationResult{
		Ticker:       req.Ticker,
		Metric:       req.Metric,
		Formula:      expr,
		Period:       req.Period,
		Freq:         req.Freq,
		Value:        value,
		OutputType:   output,
		Inputs:       rc.inputs,
		Citations:    rc.citations,
		QualityFlags: flags,
		Metadata: contracts.ResultMetadata{
			CalculatedAt:  e.now().UTC(),
			EngineVersion: engineVersion,
			TTM:           req.TTM,
			Segment:       req.Segment,
		},
	}

	e.logger.WithFields(map[string]interface{}{
		"ticker": req.Ticker,
		"metric": req.Metric,
		"value":  value,
		"flags":  len(flags),
	}).Debug("Metric calculated")

	return result, nil
}

// varRe matches formula identifiers, with an optional `?` marker
var varRe = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)(\?)?`)

// resolveVariables resolves every identifier in the formula. Missing
// optional inputs substitute zero; missing required inputs fail together
// so the caller sees the full list at once.
func (e *Engine) resolveVariables(ctx context.Context, rc *resolution, expr string) (map[string]bool, error) {
	optionalMissing := make(map[string]bool)
	var missing []string

	for _, loc := range varRe.FindAllStringSubmatchIndex(expr, -1) {
		name := expr[loc[2]:loc[3]]
		optional := loc[4] >= 0

		if _, done := rc.inputs[name]; done {
			continue
		}
		if optionalMissing[name] {
			continue
		}
		if !e.registry.HasInput(name) {
			return nil, contracts.NewValidationError("unknown identifier %q in formula", name)
		}

		fact, err := e.resolveInput(ctx, rc, name, optional)
		switch {
		case err == nil:
			rc.addFact(name, fact)
		case contracts.IsNotFound(err) && optional:
			optionalMissing[name] = true
		case contracts.IsNotFound(err):
			missing = append(missing, name)
		default:
			return nil, err
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &contracts.ValidationError{
			Msg:           fmt.Sprintf("metric %q is missing required inputs", rc.req.Metric),
			MissingInputs: missing,
		}
	}
	return optionalMissing, nil
}

// resolveInput walks the input's concept candidates through the local
// store first, then the external router
func (e *Engine) resolveInput(ctx context.Context, rc *resolution, name string, optional bool) (*contracts.Fact, error) {
	if f, ok := rc.inputs[name]; ok {
		return f, nil
	}

	concepts, err := e.registry.ConceptsFor(name, rc.cik)
	if err != nil {
		return nil, err
	}

	query := func(concept string) contracts.FactQuery {
		return contracts.FactQuery{
			Ticker:  rc.req.Ticker,
			Concept: concept,
			Period:  rc.req.Period,
			Freq:    rc.req.Freq,
			TTM:     rc.req.TTM,
			Segment: rc.req.Segment,
		}
	}

	var lastErr error
	for _, concept := range concepts {
		fact, err := e.store.GetFact(ctx, query(concept))
		if err == nil {
			return fact, nil
		}
		if !contracts.IsNotFound(err) {
			return nil, err
		}
		lastErr = err
	}

	if e.router != nil {
		for _, concept := range concepts {
			res, err := e.router.Resolve(ctx, query(concept))
			if err == nil {
				return res.Fact, nil
			}
			if !contracts.IsNotFound(err) {
				return nil, err
			}
			lastErr = err
		}
	}

	if lastErr == nil {
		lastErr = contracts.NotFound(contracts.FactQuery{Ticker: rc.req.Ticker, Concept: name}, "no concept candidates")
	}
	return nil, lastErr
}

// preferSameFiling re-resolves inputs from one consistent filing when
// the individually-resolved facts came from different accessions.
// Best effort: when no single filing covers everything, the individual
// facts stand and a period-mismatch check still applies downstream.
func (e *Engine) preferSameFiling(ctx context.Context, rc *resolution) {
	byName := make(map[string]string)
	accessions := make(map[string]struct{})
	for name, f := range rc.inputs {
		if f.Accession == "" || strings.HasPrefix(f.Accession, "TTM-") {
			continue
		}
		byName[name] = f.Concept
		accessions[f.Accession] = struct{}{}
	}
	if len(byName) < 2 || len(accessions) < 2 {
		return
	}

	concepts := make([]string, 0, len(byName))
	for _, concept := range byName {
		concepts = append(concepts, concept)
	}

	harmonized, err := e.store.GetFactsFromSameFiling(ctx, rc.req.Ticker, concepts, rc.req.Period, rc.req.Freq)
	if err != nil || harmonized == nil {
		return
	}

	for name, concept := range byName {
		if f, ok := harmonized[concept]; ok {
			rc.replaceFact(name, f)
		}
	}
}

// substituteVariables inlines resolved values into the formula
func substituteVariables(expr string, rc *resolution, optionalMissing map[string]bool) string {
	return varRe.ReplaceAllStringFunc(expr, func(match string) string {
		name := strings.TrimSuffix(match, "?")
		if optionalMissing[name] {
			return "0"
		}
		if f, ok := rc.inputs[name]; ok {
			return formatValue(f.Value)
		}
		return match
	})
}

func containsFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
