package calc

import (
	"math"
	"strings"
	"time"
)

// Sanity flags raised on calculation results. Advisory, never fatal:
// the result still returns, the caller decides how much to trust it.
const (
	FlagGrossProfitExceedsRevenue = "INVALID_GROSS_PROFIT_EXCEEDS_REVENUE"
	FlagNegativeCOGS              = "NEGATIVE_COGS"
	FlagPeriodMismatch            = "PERIOD_MISMATCH"
	FlagOldData                   = "OLD_DATA"
	FlagZeroResult                = "ZERO_RESULT"
	FlagUnreasonablyLarge         = "UNREASONABLY_LARGE_RESULT"
)

const (
	maxReasonableResult = 1e15
	staleDataAge        = 2 * 365 * 24 * time.Hour
)

// sanityFlags checks a finished calculation for accounting-identity
// violations and suspicious magnitudes
func (e *Engine) sanityFlags(value float64, rc *resolution) []string {
	var flags []string

	if revenue, ok := rc.inputs["revenue"]; ok {
		if cogs, ok := rc.inputs["costOfRevenue"]; ok && cogs.Value < 0 {
			flags = append(flags, FlagNegativeCOGS)
		}
		if strings.Contains(rc.req.Metric, "gross_profit") && value > revenue.Value {
			flags = append(flags, FlagGrossProfitExceedsRevenue)
		}
	}

	if mismatchedPeriods(rc) {
		flags = append(flags, FlagPeriodMismatch)
	}

	if e.hasStaleInput(rc) {
		flags = append(flags, FlagOldData)
	}

	if value == 0 {
		flags = append(flags, FlagZeroResult)
	}
	if math.Abs(value) > maxReasonableResult {
		flags = append(flags, FlagUnreasonablyLarge)
	}

	return flags
}

// mismatchedPeriods reports whether current-period inputs disagree on
// their period. Prior-period facts pulled in by growth functions are
// expected to differ and are excluded.
func mismatchedPeriods(rc *resolution) bool {
	periods := make(map[string]struct{})
	for name, f := range rc.inputs {
		if strings.HasSuffix(name, "_prior") || strings.HasSuffix(name, "_start") {
			continue
		}
		periods[strings.TrimPrefix(f.Period, "TTM-")] = struct{}{}
	}
	return len(periods) > 1
}

// hasStaleInput reports whether any input period ended more than two
// years ago. Inputs are checked one by one so a fresh fact cannot hide
// a stale one it was combined with.
func (e *Engine) hasStaleInput(rc *resolution) bool {
	now := e.now()
	for _, f := range rc.inputs {
		end, err := periodEnd(f.Period)
		if err != nil {
			continue
		}
		if now.Sub(end) > staleDataAge {
			return true
		}
	}
	return false
}
