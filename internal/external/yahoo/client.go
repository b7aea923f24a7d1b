package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/pkg/config"
	"github.com/wonny/finsight/pkg/httputil"
	"github.com/wonny/finsight/pkg/logger"
	"github.com/wonny/finsight/pkg/redis"
)

// conceptFields maps internal concepts to Yahoo income statement fields
var conceptFields = map[string]string{
	"us-gaap:Revenues": "totalRevenue",
	"us-gaap:RevenueFromContractWithCustomerExcludingAssessedTax": "totalRevenue",
	"us-gaap:SalesRevenueNet":                                     "totalRevenue",
	"us-gaap:CostOfRevenue":                                       "costOfRevenue",
	"us-gaap:CostOfGoodsAndServicesSold":                          "costOfRevenue",
	"us-gaap:OperatingIncomeLoss":                                 "operatingIncome",
	"us-gaap:NetIncomeLoss":                                       "netIncome",
}

// Client fetches quotes and quarterly statements from Yahoo Finance.
// ⭐ SSOT: Yahoo Finance 호출은 이 클라이언트에서만
type Client struct {
	cfg        config.YahooConfig
	httpClient *httputil.Client
	cache      *redis.Cache
	logger     *logger.Logger
}

// NewClient creates a Yahoo Finance client
func NewClient(cfg *config.Config, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *Client {
	return &Client{
		cfg:        cfg.Yahoo,
		httpClient: httpClient,
		cache:      cache,
		logger:     log.WithField("module", "yahoo"),
	}
}

// Source returns the adapter identifier
func (c *Client) Source() string { return "yahoo" }

// GetFact resolves quote concepts from the chart endpoint and statement
// concepts from the quarterly income statement
func (c *Client) GetFact(ctx context.Context, q contracts.FactQuery) (*contracts.Fact, error) {
	q = q.Normalized()
	if q.TTM || q.Segment != "" {
		return nil, contracts.NotFound(q, "yahoo serves headline figures only")
	}

	if isQuoteConcept(q.Concept) {
		return c.quoteFact(ctx, q)
	}

	field, ok := conceptFields[q.Concept]
	if !ok {
		return nil, contracts.NotFound(q, "concept not mapped to a yahoo field")
	}
	return c.statementFact(ctx, q, field)
}

func isQuoteConcept(concept string) bool {
	lower := strings.ToLower(concept)
	return strings.Contains(lower, "price") || strings.Contains(lower, "quote") ||
		strings.Contains(lower, "volume") || strings.Contains(lower, "market_cap")
}

// chart endpoint JSON shape (meta only)
type chartDoc struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency            string  `json:"currency"`
				RegularMarketPrice  float64 `json:"regularMarketPrice"`
				RegularMarketVolume float64 `json:"regularMarketVolume"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *Client) quoteFact(ctx context.Context, q contracts.FactQuery) (*contracts.Fact, error) {
	var doc chartDoc
	key := redis.QuoteKey(c.Source(), q.Ticker)
	if hit, _ := c.cache.Get(ctx, key, &doc); !hit {
		url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", c.cfg.BaseURL, q.Ticker)
		raw, err := c.get(ctx, url)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse yahoo chart: %w", err)
		}
		if err := c.cache.Set(ctx, key, doc, redis.TTLQuote); err != nil {
			c.logger.WithError(err).Warn("Quote cache write failed")
		}
	}

	if doc.Chart.Error != nil || len(doc.Chart.Result) == 0 {
		return nil, contracts.NotFound(q, "ticker unknown to yahoo")
	}

	meta := doc.Chart.Result[0].Meta
	value := meta.RegularMarketPrice
	unit := meta.Currency
	if strings.Contains(strings.ToLower(q.Concept), "volume") {
		value = meta.RegularMarketVolume
		unit = "shares"
	}
	if unit == "" {
		unit = "USD"
	}

	now := time.Now().UTC()
	return &contracts.Fact{
		Concept:    q.Concept,
		Value:      value,
		Unit:       unit,
		Period:     quarterOf(now),
		PeriodType: contracts.PeriodInstant,
		SourceURL:  fmt.Sprintf("https://finance.yahoo.com/quote/%s", q.Ticker),
	}, nil
}

// timeseriesRow is one reported value in the fundamentals timeseries
type timeseriesRow struct {
	AsOfDate string `json:"asOfDate"`
	Value    struct {
		Raw float64 `json:"raw"`
	} `json:"reportedValue"`
}

func (c *Client) statementFact(ctx context.Context, q contracts.FactQuery, field string) (*contracts.Fact, error) {
	series, err := c.fetchQuarterlySeries(ctx, q.Ticker, field)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, contracts.NotFound(q, "no statement data from yahoo")
	}

	var best *contracts.Fact
	for i := range series {
		f := &series[i]
		if !f.MatchesFreq(q.Freq) {
			continue
		}
		if q.Period != "latest" {
			if f.Period == q.Period {
				return f, nil
			}
			continue
		}
		if best == nil || f.Period > best.Period {
			best = f
		}
	}
	if best == nil {
		return nil, contracts.NotFound(q, "period not reported by yahoo")
	}

	out := *best
	out.Concept = q.Concept
	return &out, nil
}

// fetchQuarterlySeries pulls one quarterly fundamentals field. The raw
// timeseries payload nests rows under a per-type key, so this decodes
// in two passes.
func (c *Client) fetchQuarterlySeries(ctx context.Context, ticker, field string) ([]contracts.Fact, error) {
	typ := "quarterly" + strings.ToUpper(field[:1]) + field[1:]
	now := time.Now().UTC()
	url := fmt.Sprintf(
		"%s/ws/fundamentals-timeseries/v1/finance/timeseries/%s?type=%s&period1=%d&period2=%d",
		c.cfg.BaseURL, ticker, typ, now.AddDate(-3, 0, 0).Unix(), now.Unix())

	raw, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}
	return parseTimeseries(raw, typ, ticker)
}

func parseTimeseries(raw []byte, typ, ticker string) ([]contracts.Fact, error) {
	var generic struct {
		Timeseries struct {
			Result []map[string]json.RawMessage `json:"result"`
		} `json:"timeseries"`
	}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("parse yahoo timeseries: %w", err)
	}

	var facts []contracts.Fact
	for _, result := range generic.Timeseries.Result {
		rowsRaw, ok := result[typ]
		if !ok {
			continue
		}
		var rows []*timeseriesRow
		if err := json.Unmarshal(rowsRaw, &rows); err != nil {
			continue
		}
		for _, row := range rows {
			if row == nil {
				continue
			}
			end, err := time.Parse("2006-01-02", row.AsOfDate)
			if err != nil {
				continue
			}
			facts = append(facts, contracts.Fact{
				Concept:    typ,
				Value:      row.Value.Raw,
				Unit:       "USD",
				Period:     quarterOf(end),
				PeriodType: contracts.PeriodDuration,
				SourceURL:  fmt.Sprintf("https://finance.yahoo.com/quote/%s/financials", ticker),
			})
		}
	}
	return facts, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.httpClient.GetWithHeaders(ctx, url, map[string]string{
		"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		"Accept":     "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("yahoo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("yahoo returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func quarterOf(t time.Time) string {
	q := (int(t.Month())-1)/3 + 1
	return fmt.Sprintf("%d-Q%d", t.Year(), q)
}

var _ contracts.SourceAdapter = (*Client)(nil)
