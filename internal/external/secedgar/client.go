package secedgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/time/rate"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/pkg/config"
	"github.com/wonny/finsight/pkg/httputil"
	"github.com/wonny/finsight/pkg/logger"
	"github.com/wonny/finsight/pkg/redis"
)

// tickerMapURL lives on www.sec.gov, not the data API host
const tickerMapURL = "https://www.sec.gov/files/company_tickers.json"

// Client fetches XBRL company facts from the SEC EDGAR data API.
// ⭐ SSOT: SEC EDGAR 호출은 이 클라이언트에서만
// EDGAR's fair-access policy allows 10 requests/second with a declared
// User-Agent; the limiter enforces it process-wide.
type Client struct {
	cfg        config.SECEdgarConfig
	httpClient *httputil.Client
	cache      *redis.Cache
	limiter    *rate.Limiter
	logger     *logger.Logger

	tickerMap map[string]tickerEntry // upper ticker → entry, lazy-loaded
}

// NewClient creates a SEC EDGAR client
func NewClient(cfg *config.Config, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *Client {
	rps := cfg.SECEdgar.RateRPS
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		cfg:        cfg.SECEdgar,
		httpClient: httpClient,
		cache:      cache,
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
		logger:     log.WithField("module", "sec_edgar"),
	}
}

// Source returns the adapter identifier
func (c *Client) Source() string { return "sec_edgar" }

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.GetWithHeaders(ctx, url, map[string]string{
		"User-Agent": c.cfg.UserAgent,
		"Accept":     "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("sec edgar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("sec edgar returned status %d for %s", resp.StatusCode, url)
	}
	return io.ReadAll(resp.Body)
}

// ResolveTicker maps a ticker to a zero-padded 10-digit CIK
func (c *Client) ResolveTicker(ctx context.Context, ticker string) (string, error) {
	if err := c.ensureTickerMap(ctx); err != nil {
		return "", err
	}

	entry, ok := c.tickerMap[strings.ToUpper(ticker)]
	if !ok {
		return "", contracts.NotFound(contracts.FactQuery{Ticker: ticker}, "ticker not in SEC registry")
	}
	return fmt.Sprintf("%010d", entry.CIK), nil
}

type tickerEntry struct {
	CIK    int    `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

func (c *Client) ensureTickerMap(ctx context.Context) error {
	if c.tickerMap != nil {
		return nil
	}

	var entries map[string]tickerEntry
	if hit, _ := c.cache.Get(ctx, redis.TickerMapKey(), &entries); !hit {
		raw, err := c.get(ctx, tickerMapURL)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &entries); err != nil {
			return fmt.Errorf("parse ticker map: %w", err)
		}
		if err := c.cache.Set(ctx, redis.TickerMapKey(), entries, redis.TTLTickerMap); err != nil {
			c.logger.WithError(err).Warn("Ticker map cache write failed")
		}
	}

	c.tickerMap = make(map[string]tickerEntry, len(entries))
	for _, entry := range entries {
		c.tickerMap[strings.ToUpper(entry.Ticker)] = entry
	}

	c.logger.WithField("tickers", len(c.tickerMap)).Debug("Ticker map loaded")
	return nil
}

// GetCompanyFacts fetches and parses the full XBRL facts payload for one
// company, ready for store ingestion
func (c *Client) GetCompanyFacts(ctx context.Context, ticker string) (*contracts.CompanyFacts, error) {
	cik, err := c.ResolveTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}

	var cached contracts.CompanyFacts
	if hit, _ := c.cache.Get(ctx, redis.CompanyFactsKey(cik), &cached); hit {
		return &cached, nil
	}

	url := fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", c.cfg.BaseURL, cik)
	raw, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	payload, err := parseCompanyFacts(raw, []string{strings.ToUpper(ticker)})
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, redis.CompanyFactsKey(cik), payload, redis.TTLCompanyFacts); err != nil {
		c.logger.WithError(err).Warn("Company facts cache write failed")
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"cik":    cik,
		"facts":  len(payload.Facts),
	}).Info("Company facts fetched")

	return payload, nil
}

// GetFact resolves one query directly against the companyfacts payload.
// TTM synthesis is a store concern and deliberately not done here.
func (c *Client) GetFact(ctx context.Context, q contracts.FactQuery) (*contracts.Fact, error) {
	q = q.Normalized()
	if q.TTM {
		return nil, contracts.NotFound(q, "sec_edgar serves reported periods only")
	}

	payload, err := c.GetCompanyFacts(ctx, q.Ticker)
	if err != nil {
		return nil, err
	}
	return pickFact(payload.Facts, q)
}

// pickFact applies the query semantics over a flat fact list
func pickFact(facts []contracts.Fact, q contracts.FactQuery) (*contracts.Fact, error) {
	var best *contracts.Fact
	for i := range facts {
		f := &facts[i]
		if f.Concept != q.Concept || !f.MatchesFreq(q.Freq) || f.Segment() != q.Segment {
			continue
		}
		if q.Period != "latest" {
			if f.Period == q.Period {
				out := *f
				return &out, nil
			}
			continue
		}
		if best == nil || f.Period > best.Period {
			best = f
		}
	}
	if best == nil {
		return nil, contracts.NotFound(q, "concept not in filing data")
	}
	out := *best
	return &out, nil
}

var _ contracts.SourceAdapter = (*Client)(nil)
var _ contracts.CompanyFactsProvider = (*Client)(nil)
var _ contracts.IdentifierResolver = (*Client)(nil)
