package router

import (
	"context"
	"sync"
	"time"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/pkg/logger"
)

// RouteResult is the outcome of one resolution: the representative fact
// plus the cross-source agreement statistics behind it
type RouteResult struct {
	Fact            *contracts.Fact
	DataType        DataType
	CrossValidation *contracts.CrossValidation
}

// Router resolves a fact query by fanning out to every eligible source
// concurrently, dropping implausible answers, and cross-validating the
// survivors.
// ⭐ SSOT: 소스 선택/교차 검증 정책은 여기서만
type Router struct {
	logger       *logger.Logger
	adapters     map[string]contracts.SourceAdapter
	priorities   Priorities
	plausibility PlausibilityConfig
	timeout      time.Duration
}

// Option customizes router construction
type Option func(*Router)

// WithPriorities overrides the routing policy
func WithPriorities(p Priorities) Option {
	return func(r *Router) { r.priorities = p }
}

// WithPlausibility overrides the plausibility windows
func WithPlausibility(c PlausibilityConfig) Option {
	return func(r *Router) { r.plausibility = c }
}

// New creates a router over the given adapters. Adapters are keyed by
// their Source() identifier; a priority entry with no registered adapter
// is skipped at resolve time.
func New(log *logger.Logger, adapters []contracts.SourceAdapter, sourceTimeout time.Duration, opts ...Option) *Router {
	byName := make(map[string]contracts.SourceAdapter, len(adapters))
	for _, a := range adapters {
		byName[a.Source()] = a
	}

	r := &Router{
		logger:       log.WithField("module", "router"),
		adapters:     byName,
		priorities:   DefaultPriorities(),
		plausibility: DefaultPlausibility(),
		timeout:      sourceTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve answers one fact query. Source faults and implausible values
// are absorbed here: the caller sees either a cross-validated fact or
// not-found, never a single adapter's failure.
func (r *Router) Resolve(ctx context.Context, q contracts.FactQuery) (*RouteResult, error) {
	q = q.Normalized()
	dataType := ClassifyConcept(q.Concept)
	sources := r.priorities.SourcesFor(dataType)

	type answer struct {
		source string
		fact   *contracts.Fact
		err    error
	}

	answers := make([]answer, len(sources))
	var wg sync.WaitGroup
	for i, source := range sources {
		adapter, ok := r.adapters[source]
		if !ok {
			answers[i] = answer{source: source, err: contracts.ErrNotFound}
			continue
		}

		wg.Add(1)
		go func(i int, source string, adapter contracts.SourceAdapter) {
			defer wg.Done()

			srcCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			fact, err := adapter.GetFact(srcCtx, q)
			answers[i] = answer{source: source, fact: fact, err: err}
		}(i, source, adapter)
	}
	wg.Wait()

	// Keep priority order: answers[i] corresponds to sources[i]
	plausible := make([]sourceValue, 0, len(answers))
	for _, a := range answers {
		switch {
		case a.err != nil:
			if !contracts.IsNotFound(a.err) {
				r.logger.WithError(&contracts.SourceFailure{Source: a.source, Err: a.err}).
					WithField("concept", q.Concept).
					Warn("Source failed, continuing with remaining sources")
			}
		case a.fact == nil:
			// defensive: adapters must return a fact or an error
		case !r.plausibility.Plausible(q.Concept, a.fact.Value):
			r.logger.WithFields(map[string]interface{}{
				"source":  a.source,
				"concept": q.Concept,
				"value":   a.fact.Value,
			}).Warn("Implausible value rejected")
		default:
			plausible = append(plausible, sourceValue{source: a.source, fact: a.fact})
		}
	}

	if len(plausible) == 0 {
		return nil, contracts.NotFound(q, "no source produced a plausible value")
	}

	idx, cv := crossValidate(plausible)
	fact := plausible[idx].fact

	r.logger.WithFields(map[string]interface{}{
		"ticker":     q.Ticker,
		"concept":    q.Concept,
		"data_type":  string(dataType),
		"sources":    cv.SourcesCount,
		"confidence": string(cv.Confidence),
	}).Debug("Query resolved")

	return &RouteResult{Fact: fact, DataType: dataType, CrossValidation: cv}, nil
}
