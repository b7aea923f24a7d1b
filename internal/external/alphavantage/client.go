package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/pkg/config"
	"github.com/wonny/finsight/pkg/httputil"
	"github.com/wonny/finsight/pkg/logger"
	"github.com/wonny/finsight/pkg/redis"
)

// conceptFields maps internal concepts to Alpha Vantage income
// statement fields
var conceptFields = map[string]string{
	"us-gaap:Revenues": "totalRevenue",
	"us-gaap:RevenueFromContractWithCustomerExcludingAssessedTax": "totalRevenue",
	"us-gaap:SalesRevenueNet":                                     "totalRevenue",
	"us-gaap:CostOfRevenue":                                       "costOfRevenue",
	"us-gaap:CostOfGoodsAndServicesSold":                          "costOfRevenue",
	"us-gaap:OperatingIncomeLoss":                                 "operatingIncome",
	"us-gaap:NetIncomeLoss":                                       "netIncome",
}

// Client fetches quotes and income statements from Alpha Vantage.
// Requires an API key; without one the adapter reports not-found so the
// router simply routes around it.
// ⭐ SSOT: Alpha Vantage 호출은 이 클라이언트에서만
type Client struct {
	cfg        config.AlphaVantageConfig
	httpClient *httputil.Client
	cache      *redis.Cache
	logger     *logger.Logger
}

// NewClient creates an Alpha Vantage client
func NewClient(cfg *config.Config, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *Client {
	return &Client{
		cfg:        cfg.AlphaVantage,
		httpClient: httpClient,
		cache:      cache,
		logger:     log.WithField("module", "alphavantage"),
	}
}

// Source returns the adapter identifier
func (c *Client) Source() string { return "alphavantage" }

// Enabled reports whether an API key is configured
func (c *Client) Enabled() bool { return c.cfg.APIKey != "" }

// GetFact resolves a quote or statement concept
func (c *Client) GetFact(ctx context.Context, q contracts.FactQuery) (*contracts.Fact, error) {
	q = q.Normalized()
	if !c.Enabled() {
		return nil, contracts.NotFound(q, "alphavantage api key not configured")
	}
	if q.TTM || q.Segment != "" {
		return nil, contracts.NotFound(q, "alphavantage serves headline figures only")
	}

	if strings.Contains(strings.ToLower(q.Concept), "price") || strings.Contains(strings.ToLower(q.Concept), "quote") {
		return c.quoteFact(ctx, q)
	}

	field, ok := conceptFields[q.Concept]
	if !ok {
		return nil, contracts.NotFound(q, "concept not mapped to an alphavantage field")
	}
	return c.statementFact(ctx, q, field)
}

type globalQuoteDoc struct {
	GlobalQuote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
		Volume string `json:"06. volume"`
	} `json:"Global Quote"`
}

func (c *Client) quoteFact(ctx context.Context, q contracts.FactQuery) (*contracts.Fact, error) {
	var doc globalQuoteDoc
	key := redis.QuoteKey(c.Source(), q.Ticker)
	if hit, _ := c.cache.Get(ctx, key, &doc); !hit {
		url := fmt.Sprintf("%s/query?function=GLOBAL_QUOTE&symbol=%s&apikey=%s", c.cfg.BaseURL, q.Ticker, c.cfg.APIKey)
		raw, err := c.get(ctx, url)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse global quote: %w", err)
		}
		if err := c.cache.Set(ctx, key, doc, redis.TTLQuote); err != nil {
			c.logger.WithError(err).Warn("Quote cache write failed")
		}
	}

	price, err := strconv.ParseFloat(doc.GlobalQuote.Price, 64)
	if err != nil || doc.GlobalQuote.Symbol == "" {
		return nil, contracts.NotFound(q, "no quote from alphavantage")
	}

	return &contracts.Fact{
		Concept:    q.Concept,
		Value:      price,
		Unit:       "USD",
		Period:     quarterOf(time.Now().UTC()),
		PeriodType: contracts.PeriodInstant,
		SourceURL:  fmt.Sprintf("https://www.alphavantage.co/query?function=GLOBAL_QUOTE&symbol=%s", q.Ticker),
	}, nil
}

// incomeStatementDoc mirrors the INCOME_STATEMENT response. All numbers
// arrive as strings.
type incomeStatementDoc struct {
	Symbol           string              `json:"symbol"`
	QuarterlyReports []map[string]string `json:"quarterlyReports"`
	AnnualReports    []map[string]string `json:"annualReports"`
}

func (c *Client) statementFact(ctx context.Context, q contracts.FactQuery, field string) (*contracts.Fact, error) {
	var doc incomeStatementDoc
	key := "income:" + q.Ticker
	if hit, _ := c.cache.Get(ctx, key, &doc); !hit {
		url := fmt.Sprintf("%s/query?function=INCOME_STATEMENT&symbol=%s&apikey=%s", c.cfg.BaseURL, q.Ticker, c.cfg.APIKey)
		raw, err := c.get(ctx, url)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse income statement: %w", err)
		}
		if err := c.cache.Set(ctx, key, doc, redis.TTLFinancials); err != nil {
			c.logger.WithError(err).Warn("Statement cache write failed")
		}
	}

	reports := doc.QuarterlyReports
	annual := q.Freq == contracts.FreqAnnual
	if annual {
		reports = doc.AnnualReports
	}

	facts := parseReports(reports, q.Concept, field, q.Ticker, annual)
	if len(facts) == 0 {
		return nil, contracts.NotFound(q, "no statement data from alphavantage")
	}

	if q.Period != "latest" {
		for i := range facts {
			if facts[i].Period == q.Period {
				return &facts[i], nil
			}
		}
		return nil, contracts.NotFound(q, "period not reported by alphavantage")
	}

	best := &facts[0]
	for i := range facts {
		if facts[i].Period > best.Period {
			best = &facts[i]
		}
	}
	return best, nil
}

// parseReports converts statement report rows to facts, dropping rows
// with missing or non-numeric values ("None" is common)
func parseReports(reports []map[string]string, concept, field, ticker string, annual bool) []contracts.Fact {
	var facts []contracts.Fact
	for _, report := range reports {
		end, err := time.Parse("2006-01-02", report["fiscalDateEnding"])
		if err != nil {
			continue
		}
		value, err := strconv.ParseFloat(report[field], 64)
		if err != nil {
			continue
		}

		period := quarterOf(end)
		if annual {
			period = strconv.Itoa(end.Year())
		}
		unit := report["reportedCurrency"]
		if unit == "" {
			unit = "USD"
		}

		facts = append(facts, contracts.Fact{
			Concept:    concept,
			Value:      value,
			Unit:       unit,
			Period:     period,
			PeriodType: contracts.PeriodDuration,
			SourceURL:  fmt.Sprintf("https://www.alphavantage.co/query?function=INCOME_STATEMENT&symbol=%s", ticker),
		})
	}
	return facts
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("alphavantage request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("alphavantage returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func quarterOf(t time.Time) string {
	q := (int(t.Month())-1)/3 + 1
	return fmt.Sprintf("%d-Q%d", t.Year(), q)
}

var _ contracts.SourceAdapter = (*Client)(nil)
