package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/internal/facts"
	"github.com/wonny/finsight/pkg/logger"
)

// FactsRefreshJob re-ingests company facts for a watchlist of tickers.
// Keeps the session store warm so calculations hit fresh filing data
// without an on-demand fetch.
type FactsRefreshJob struct {
	provider contracts.CompanyFactsProvider
	store    *facts.Store
	tickers  []string
	schedule string
	logger   *logger.Logger
}

// NewFactsRefreshJob creates a watchlist refresh job
func NewFactsRefreshJob(provider contracts.CompanyFactsProvider, store *facts.Store, tickers []string, schedule string, log *logger.Logger) *FactsRefreshJob {
	if schedule == "" {
		// weekdays at 06:00, after EDGAR's overnight filing index update
		schedule = "0 0 6 * * 1-5"
	}
	return &FactsRefreshJob{
		provider: provider,
		store:    store,
		tickers:  tickers,
		schedule: schedule,
		logger:   log.WithField("job", "facts_refresh"),
	}
}

// Name returns the job name
func (j *FactsRefreshJob) Name() string { return "facts_refresh" }

// Schedule returns the cron schedule expression
func (j *FactsRefreshJob) Schedule() string { return j.schedule }

// Run refreshes every watchlist ticker. One bad ticker must not stop
// the rest; failures are collected and reported together.
func (j *FactsRefreshJob) Run(ctx context.Context) error {
	var failed []string

	for _, ticker := range j.tickers {
		payload, err := j.provider.GetCompanyFacts(ctx, ticker)
		if err != nil {
			j.logger.WithError(err).WithField("ticker", ticker).Warn("Facts fetch failed")
			failed = append(failed, ticker)
			continue
		}
		if err := j.store.Ingest(payload); err != nil {
			j.logger.WithError(err).WithField("ticker", ticker).Warn("Facts ingest failed")
			failed = append(failed, ticker)
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"tickers": len(j.tickers),
		"failed":  len(failed),
	}).Info("Watchlist refresh finished")

	if len(failed) > 0 {
		return fmt.Errorf("refresh failed for %s", strings.Join(failed, ", "))
	}
	return nil
}
