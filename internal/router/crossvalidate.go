package router

import (
	"math"
	"sort"

	"github.com/wonny/finsight/internal/contracts"
)

// sourceValue is one plausible answer from one source
type sourceValue struct {
	source string
	fact   *contracts.Fact
}

// crossValidate computes agreement statistics over plausible values and
// picks the representative: the value nearest the median, ties broken by
// source priority (input order).
//
// Standard deviation is the sample form (n-1 denominator). Confidence
// tiers: high when stddev < 10% of |mean|, medium when < 20%, else low.
// A zero mean cannot anchor a relative spread, so it is always low.
func crossValidate(values []sourceValue) (int, *contracts.CrossValidation) {
	n := len(values)
	if n == 0 {
		return -1, nil
	}

	raw := make([]float64, n)
	sources := make([]string, n)
	for i, sv := range values {
		raw[i] = sv.fact.Value
		sources[i] = sv.source
	}

	if n == 1 {
		return 0, &contracts.CrossValidation{
			SourcesCount: 1,
			Mean:         raw[0],
			Median:       raw[0],
			Values:       raw,
			Sources:      sources,
			Confidence:   contracts.ConfidenceMedium,
		}
	}

	mean := 0.0
	for _, v := range raw {
		mean += v
	}
	mean /= float64(n)

	sorted := append([]float64(nil), raw...)
	sort.Float64s(sorted)
	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	variance := 0.0
	for _, v := range raw {
		d := v - mean
		variance += d * d
	}
	stddev := math.Sqrt(variance / float64(n-1))

	confidence := contracts.ConfidenceLow
	if mean != 0 {
		spread := stddev / math.Abs(mean)
		switch {
		case spread < 0.10:
			confidence = contracts.ConfidenceHigh
		case spread < 0.20:
			confidence = contracts.ConfidenceMedium
		}
	}

	best := 0
	bestDist := math.Abs(raw[0] - median)
	for i := 1; i < n; i++ {
		if d := math.Abs(raw[i] - median); d < bestDist {
			best, bestDist = i, d
		}
	}

	return best, &contracts.CrossValidation{
		SourcesCount: n,
		Mean:         mean,
		Median:       median,
		StdDev:       stddev,
		Values:       raw,
		Sources:      sources,
		Confidence:   confidence,
	}
}
