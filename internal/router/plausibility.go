package router

import (
	"math"
	"strings"
)

// Window is an inclusive plausibility range for one family of concepts
type Window struct {
	Min float64
	Max float64
}

// Contains reports whether v lies inside the window
func (w Window) Contains(v float64) bool {
	return v >= w.Min && v <= w.Max
}

// PlausibilityConfig maps concept keywords to their expected value
// windows. Matching is by substring on the lowercased concept, first
// match wins, so order matters for overlapping keywords.
type PlausibilityConfig []struct {
	Keyword string
	Window  Window
}

// DefaultPlausibility returns the standard windows. More specific
// keywords come before generic ones (net_income before income).
func DefaultPlausibility() PlausibilityConfig {
	return PlausibilityConfig{
		{Keyword: "net_income", Window: Window{Min: -1e11, Max: 1e11}},
		{Keyword: "netincome", Window: Window{Min: -1e11, Max: 1e11}},
		{Keyword: "total_assets", Window: Window{Min: 1e6, Max: 1e13}},
		{Keyword: "assets", Window: Window{Min: 1e6, Max: 1e13}},
		{Keyword: "revenue", Window: Window{Min: 1e6, Max: 1e12}},
		{Keyword: "volume", Window: Window{Min: 0, Max: 1e12}},
		{Keyword: "price", Window: Window{Min: 0.01, Max: 1e5}},
		{Keyword: "quote", Window: Window{Min: 0.01, Max: 1e5}},
	}
}

// Plausible reports whether a value can be trusted for a concept.
// Zero and non-finite values are always rejected: a zero from an
// external feed almost always means "missing", not "zero".
func (c PlausibilityConfig) Plausible(concept string, value float64) bool {
	if value == 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}

	lower := strings.ToLower(concept)
	for _, entry := range c {
		if strings.Contains(lower, entry.Keyword) {
			return entry.Window.Contains(value)
		}
	}
	return true
}
