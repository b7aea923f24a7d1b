package stockanalysis

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/pkg/httputil"
	"github.com/wonny/finsight/pkg/logger"
	"github.com/wonny/finsight/pkg/redis"
)

const baseURL = "https://stockanalysis.com/stocks"

// conceptLabels maps internal concepts to the overview-page stat labels
var conceptLabels = map[string]string{
	"us-gaap:Revenues": "Revenue",
	"us-gaap:RevenueFromContractWithCustomerExcludingAssessedTax": "Revenue",
	"us-gaap:SalesRevenueNet":                                     "Revenue",
	"us-gaap:NetIncomeLoss":                                       "Net Income",
	"market_cap":                                                  "Market Cap",
	"eps_diluted":                                                 "EPS (ttm)",
	"trading_volume":                                              "Volume",
}

// Client scrapes headline figures from stockanalysis.com overview pages.
// Last-resort fallback: scraped values are rounded display numbers, so
// every statement figure it produces is flagged as an estimate.
// ⭐ SSOT: stockanalysis.com 스크래핑은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	cache      *redis.Cache
	logger     *logger.Logger
}

// NewClient creates a stockanalysis.com scraping client
func NewClient(httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		cache:      cache,
		logger:     log.WithField("module", "stockanalysis"),
	}
}

// Source returns the adapter identifier
func (c *Client) Source() string { return "stockanalysis" }

// GetFact scrapes the requested concept from the company overview page
func (c *Client) GetFact(ctx context.Context, q contracts.FactQuery) (*contracts.Fact, error) {
	q = q.Normalized()
	if q.TTM || q.Segment != "" || (q.Period != "latest") {
		return nil, contracts.NotFound(q, "stockanalysis serves current headline figures only")
	}

	stats, err := c.fetchOverview(ctx, q.Ticker)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(q.Concept)
	if strings.Contains(lower, "price") || strings.Contains(lower, "quote") {
		value, ok := stats["price"]
		if !ok {
			return nil, contracts.NotFound(q, "no price on overview page")
		}
		return c.fact(q, value, "USD", contracts.PeriodInstant, nil), nil
	}

	label, ok := conceptLabels[q.Concept]
	if !ok {
		return nil, contracts.NotFound(q, "concept not on overview page")
	}
	value, ok := stats[label]
	if !ok {
		return nil, contracts.NotFound(q, "stat not on overview page")
	}

	return c.fact(q, value, "USD", contracts.PeriodDuration, []string{contracts.FlagEstimated}), nil
}

func (c *Client) fact(q contracts.FactQuery, value float64, unit string, pt contracts.PeriodType, flags []string) *contracts.Fact {
	now := time.Now().UTC()
	return &contracts.Fact{
		Concept:      q.Concept,
		Value:        value,
		Unit:         unit,
		Period:       quarterOf(now),
		PeriodType:   pt,
		SourceURL:    fmt.Sprintf("%s/%s/", baseURL, strings.ToLower(q.Ticker)),
		QualityFlags: flags,
	}
}

func (c *Client) fetchOverview(ctx context.Context, ticker string) (map[string]float64, error) {
	var stats map[string]float64
	key := redis.QuoteKey(c.Source(), ticker)
	if hit, _ := c.cache.Get(ctx, key, &stats); hit {
		return stats, nil
	}

	url := fmt.Sprintf("%s/%s/", baseURL, strings.ToLower(ticker))
	resp, err := c.httpClient.GetWithHeaders(ctx, url, map[string]string{
		"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	})
	if err != nil {
		return nil, fmt.Errorf("stockanalysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("stockanalysis returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read overview page: %w", err)
	}

	stats, err = parseOverview(string(body))
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, stats, redis.TTLQuote); err != nil {
		c.logger.WithError(err).Warn("Overview cache write failed")
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"stats":  len(stats),
	}).Debug("Overview scraped")

	return stats, nil
}

// parseOverview extracts the price and the label/value stat pairs from
// an overview page
func parseOverview(html string) (map[string]float64, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse overview html: %w", err)
	}

	stats := make(map[string]float64)

	if priceText := doc.Find(`[data-test="quote-price"]`).First().Text(); priceText != "" {
		if price, ok := parseHumanNumber(priceText); ok {
			stats["price"] = price
		}
	}

	// Stat tables are label/value cell pairs
	doc.Find("table td").Each(func(i int, cell *goquery.Selection) {
		label := strings.TrimSpace(cell.Text())
		if _, known := knownLabels[label]; !known {
			return
		}
		valueText := strings.TrimSpace(cell.Next().Text())
		if value, ok := parseHumanNumber(valueText); ok {
			stats[label] = value
		}
	})

	if len(stats) == 0 {
		return nil, fmt.Errorf("overview page has no recognizable stats")
	}
	return stats, nil
}

var knownLabels = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, label := range conceptLabels {
		set[label] = struct{}{}
	}
	return set
}()

// parseHumanNumber parses display numbers: "391.04B", "1,234.5", "3.2%"
func parseHumanNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "-" || strings.EqualFold(s, "n/a") {
		return 0, false
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "T"):
		multiplier, s = 1e12, strings.TrimSuffix(s, "T")
	case strings.HasSuffix(s, "B"):
		multiplier, s = 1e9, strings.TrimSuffix(s, "B")
	case strings.HasSuffix(s, "M"):
		multiplier, s = 1e6, strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "K"):
		multiplier, s = 1e3, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "%"):
		multiplier, s = 0.01, strings.TrimSuffix(s, "%")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v * multiplier, true
}

func quarterOf(t time.Time) string {
	q := (int(t.Month())-1)/3 + 1
	return fmt.Sprintf("%d-Q%d", t.Year(), q)
}

var _ contracts.SourceAdapter = (*Client)(nil)
