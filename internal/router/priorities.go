package router

// Priorities maps each data type to its ordered source preference. The
// first listed source is the most authoritative for that bucket.
// Declarative on purpose: changing routing policy must not require
// touching resolution code.
type Priorities map[DataType][]string

// DefaultPriorities returns the standard routing policy: regulator
// filings first for statement data, market feeds first for quotes.
func DefaultPriorities() Priorities {
	return Priorities{
		DataTypeRealTimeQuote:       {SourceYahoo, SourceAlphaVantage, SourceStockAnalysis},
		DataTypeHistoricalPrices:    {SourceYahoo, SourceAlphaVantage},
		DataTypeFinancialStatements: {SourceSECEdgar, SourceYahoo, SourceAlphaVantage, SourceStockAnalysis},
		DataTypeFundamentals:        {SourceSECEdgar, SourceStockAnalysis, SourceYahoo},
	}
}

// SourcesFor returns the priority list for a data type. An unknown type
// falls back to the financial-statements list.
func (p Priorities) SourcesFor(dt DataType) []string {
	if sources, ok := p[dt]; ok {
		return sources
	}
	return p[DataTypeFinancialStatements]
}
