package router

import "strings"

// DataType buckets a query by the kind of figure it asks for. The bucket
// decides which sources are consulted and in what order.
type DataType string

const (
	DataTypeRealTimeQuote       DataType = "real_time_quote"
	DataTypeHistoricalPrices    DataType = "historical_prices"
	DataTypeFinancialStatements DataType = "financial_statements"
	DataTypeFundamentals        DataType = "fundamentals"
)

// Source identifiers. Adapters report these from Source(); priority lists
// reference them.
const (
	SourceSECEdgar      = "sec_edgar"
	SourceYahoo         = "yahoo"
	SourceAlphaVantage  = "alphavantage"
	SourceStockAnalysis = "stockanalysis"
)

var (
	quoteKeywords       = []string{"price", "quote", "last", "bid", "ask", "volume", "market_cap", "marketcap"}
	historicalKeywords  = []string{"historical", "history", "ohlc", "close_series"}
	fundamentalKeywords = []string{"ratio", "margin", "pe_", "eps", "yield", "per_share", "book_value"}
)

// ClassifyConcept maps a concept name to its data type bucket. Concepts
// that match nothing are treated as financial-statement line items, the
// most common case for XBRL-style names.
func ClassifyConcept(concept string) DataType {
	lower := strings.ToLower(concept)

	for _, kw := range historicalKeywords {
		if strings.Contains(lower, kw) {
			return DataTypeHistoricalPrices
		}
	}
	for _, kw := range quoteKeywords {
		if strings.Contains(lower, kw) {
			return DataTypeRealTimeQuote
		}
	}
	for _, kw := range fundamentalKeywords {
		if strings.Contains(lower, kw) {
			return DataTypeFundamentals
		}
	}
	return DataTypeFinancialStatements
}
