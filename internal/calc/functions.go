package calc

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/wonny/finsight/internal/contracts"
)

// Financial functions usable in formulas: ttm, avg, yoy, qoq, cagr,
// per_share. Each expands to a number backed by real stored series:
// growth rates are computed from actual prior-period facts, never
// stubbed.

const sharesInput = "sharesOutstanding"

// funcCallRe matches name(input) and name(input, n)
var funcCallRe = regexp.MustCompile(`\b(ttm|avg|yoy|qoq|cagr|per_share)\(\s*([A-Za-z_][A-Za-z0-9_]*)\s*(?:,\s*([0-9]+)\s*)?\)`)

// expandFunctions replaces every function call in the formula with its
// computed numeric value, recording inputs and citations as it goes
func (e *Engine) expandFunctions(ctx context.Context, rc *resolution, expr string) (string, error) {
	for {
		loc := funcCallRe.FindStringSubmatchIndex(expr)
		if loc == nil {
			return expr, nil
		}

		name := expr[loc[2]:loc[3]]
		arg := expr[loc[4]:loc[5]]
		n := 0
		if loc[6] >= 0 {
			n, _ = strconv.Atoi(expr[loc[6]:loc[7]])
		}

		value, err := e.evalFunction(ctx, rc, name, arg, n)
		if err != nil {
			return "", err
		}
		expr = expr[:loc[0]] + formatValue(value) + expr[loc[1]:]
	}
}

func (e *Engine) evalFunction(ctx context.Context, rc *resolution, name, arg string, n int) (float64, error) {
	if !e.registry.HasInput(arg) {
		return 0, contracts.NewValidationError("%s(%s): unknown input %q", name, arg, arg)
	}

	switch name {
	case "ttm":
		return e.fnTTM(ctx, rc, arg)
	case "avg":
		if n < 1 {
			return 0, contracts.NewValidationError("avg(%s): period count required", arg)
		}
		return e.fnAvg(ctx, rc, arg, n)
	case "yoy":
		return e.fnGrowth(ctx, rc, arg, prevYearPeriod)
	case "qoq":
		return e.fnGrowth(ctx, rc, arg, prevQuarterPeriod)
	case "cagr":
		if n < 1 {
			return 0, contracts.NewValidationError("cagr(%s): year count required", arg)
		}
		return e.fnCAGR(ctx, rc, arg, n)
	case "per_share":
		return e.fnPerShare(ctx, rc, arg)
	default:
		return 0, contracts.NewValidationError("unknown function %q", name)
	}
}

// fnTTM resolves a trailing-twelve-month value. The store synthesizes an
// exact sum when four quarters exist; otherwise the latest quarter is
// annualized and flagged as an approximation.
func (e *Engine) fnTTM(ctx context.Context, rc *resolution, arg string) (float64, error) {
	concepts, err := e.registry.ConceptsFor(arg, rc.cik)
	if err != nil {
		return 0, err
	}

	for _, concept := range concepts {
		q := contracts.FactQuery{
			Ticker:  rc.req.Ticker,
			Concept: concept,
			Period:  rc.req.Period,
			Freq:    contracts.FreqQuarterly,
			TTM:     true,
			Segment: rc.req.Segment,
		}
		fact, err := e.store.GetFact(ctx, q)
		if err == nil {
			rc.addFact(arg, fact)
			return fact.Value, nil
		}
		if !contracts.IsNotFound(err) {
			return 0, err
		}
	}

	// Fewer than four quarters on record: annualize the latest one
	latest, err := e.resolveInput(ctx, rc, arg, false)
	if err != nil {
		return 0, err
	}

	approx := *latest
	approx.Value = latest.Value * 4
	approx.Period = "TTM-" + latest.Period
	approx.Accession = "TTM-APPROXIMATED"
	approx.QualityFlags = append(append([]string(nil), latest.QualityFlags...), contracts.FlagTTMApproximated)

	rc.addFact(arg, &approx)
	return approx.Value, nil
}

// fnAvg averages the n most recent periods. A shorter series still
// averages but carries a partial-series flag.
func (e *Engine) fnAvg(ctx context.Context, rc *resolution, arg string, n int) (float64, error) {
	series, err := e.series(ctx, rc, arg, n)
	if err != nil {
		return 0, err
	}

	sum := 0.0
	for _, fact := range series {
		sum += fact.Value
		rc.cite(fact)
	}
	rc.inputs[arg] = series[0]

	if len(series) < n {
		rc.flags = append(rc.flags, contracts.FlagAvgPartialSeries)
	}
	return sum / float64(len(series)), nil
}

// fnGrowth computes relative change against a prior period located by
// shift (previous year or previous quarter)
func (e *Engine) fnGrowth(ctx context.Context, rc *resolution, arg string, shift func(string) (string, error)) (float64, error) {
	current, err := e.resolveInput(ctx, rc, arg, false)
	if err != nil {
		return 0, err
	}

	priorPeriod, err := shift(current.Period)
	if err != nil {
		return 0, contracts.NewValidationError("growth over %s: %v", arg, err)
	}

	concepts, err := e.registry.ConceptsFor(arg, rc.cik)
	if err != nil {
		return 0, err
	}

	var prior *contracts.Fact
	for _, concept := range concepts {
		q := contracts.FactQuery{
			Ticker:  rc.req.Ticker,
			Concept: concept,
			Period:  priorPeriod,
			Freq:    rc.req.Freq,
			Segment: rc.req.Segment,
		}
		if fact, err := e.store.GetFact(ctx, q); err == nil {
			prior = fact
			break
		} else if !contracts.IsNotFound(err) {
			return 0, err
		}
	}
	if prior == nil {
		return 0, contracts.NotFound(
			contracts.FactQuery{Ticker: rc.req.Ticker, Concept: arg, Period: priorPeriod},
			"prior period not on record")
	}
	if prior.Value == 0 {
		return 0, contracts.NotFound(
			contracts.FactQuery{Ticker: rc.req.Ticker, Concept: arg, Period: priorPeriod},
			"prior period value is zero")
	}

	rc.addFact(arg, current)
	rc.addFact(arg+"_prior", prior)

	return (current.Value - prior.Value) / math.Abs(prior.Value), nil
}

// fnCAGR computes the compound annual growth rate over n years of
// annual facts. Both endpoints must be positive for the geometric form
// to be meaningful.
func (e *Engine) fnCAGR(ctx context.Context, rc *resolution, arg string, years int) (float64, error) {
	series, err := e.seriesWithFreq(ctx, rc, arg, years+1, contracts.FreqAnnual)
	if err != nil {
		return 0, err
	}
	if len(series) < years+1 {
		return 0, contracts.NotFound(
			contracts.FactQuery{Ticker: rc.req.Ticker, Concept: arg},
			fmt.Sprintf("cagr needs %d annual periods, have %d", years+1, len(series)))
	}

	latest, start := series[0], series[years]
	if latest.Value <= 0 || start.Value <= 0 {
		return 0, contracts.NotFound(
			contracts.FactQuery{Ticker: rc.req.Ticker, Concept: arg},
			"cagr endpoints must be positive")
	}

	rc.addFact(arg, latest)
	rc.addFact(arg+"_start", start)

	return math.Pow(latest.Value/start.Value, 1/float64(years)) - 1, nil
}

// fnPerShare divides a resolved value by shares outstanding
func (e *Engine) fnPerShare(ctx context.Context, rc *resolution, arg string) (float64, error) {
	fact, err := e.resolveInput(ctx, rc, arg, false)
	if err != nil {
		return 0, err
	}

	shares, err := e.resolveInput(ctx, rc, sharesInput, false)
	if err != nil {
		return 0, err
	}
	if shares.Value == 0 {
		return 0, contracts.NotFound(
			contracts.FactQuery{Ticker: rc.req.Ticker, Concept: sharesInput},
			"shares outstanding is zero")
	}

	rc.addFact(arg, fact)
	rc.addFact(sharesInput, shares)

	return fact.Value / shares.Value, nil
}

// series returns up to limit facts for an input at the request frequency
func (e *Engine) series(ctx context.Context, rc *resolution, arg string, limit int) ([]*contracts.Fact, error) {
	return e.seriesWithFreq(ctx, rc, arg, limit, rc.req.Freq)
}

func (e *Engine) seriesWithFreq(ctx context.Context, rc *resolution, arg string, limit int, freq contracts.Freq) ([]*contracts.Fact, error) {
	concepts, err := e.registry.ConceptsFor(arg, rc.cik)
	if err != nil {
		return nil, err
	}

	for _, concept := range concepts {
		series, err := e.store.GetSeries(ctx, rc.req.Ticker, concept, freq, limit, rc.req.Segment)
		if err != nil {
			return nil, err
		}
		if len(series) > 0 {
			return series, nil
		}
	}

	return nil, contracts.NotFound(
		contracts.FactQuery{Ticker: rc.req.Ticker, Concept: arg, Freq: freq},
		"no series on record")
}
