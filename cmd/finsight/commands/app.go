package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/wonny/finsight/internal/audit"
	"github.com/wonny/finsight/internal/calc"
	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/internal/external/alphavantage"
	"github.com/wonny/finsight/internal/external/secedgar"
	"github.com/wonny/finsight/internal/external/stockanalysis"
	"github.com/wonny/finsight/internal/external/yahoo"
	"github.com/wonny/finsight/internal/facts"
	"github.com/wonny/finsight/internal/registry"
	"github.com/wonny/finsight/internal/router"
	"github.com/wonny/finsight/pkg/config"
	"github.com/wonny/finsight/pkg/database"
	"github.com/wonny/finsight/pkg/httputil"
	"github.com/wonny/finsight/pkg/logger"
	"github.com/wonny/finsight/pkg/redis"
)

// app wires the full dependency graph for CLI commands
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg      *config.Config
	logger   *logger.Logger
	redis    *redis.Client
	cache    *redis.Cache
	store    *facts.Store
	router   *router.Router
	registry *registry.Registry
	engine   *calc.Engine
	sec      *secedgar.Client
	db       *database.DB
	audit    *audit.Repository
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	redisClient, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	cache := redis.NewCache(redisClient, "finsight")

	httpClient := httputil.New(cfg, log)

	sec := secedgar.NewClient(cfg, httpClient, cache, log)
	adapters := []contracts.SourceAdapter{
		sec,
		yahoo.NewClient(cfg, httpClient, cache, log),
		stockanalysis.NewClient(httpClient, cache, log),
	}
	av := alphavantage.NewClient(cfg, httpClient, cache, log)
	if av.Enabled() {
		adapters = append(adapters, av)
	}

	reg, err := registry.Load(cfg.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("load kpi registry: %w", err)
	}

	store := facts.NewStore(log)
	rt := router.New(log, adapters, cfg.Router.SourceTimeout)
	engine := calc.NewEngine(log, store, rt, reg, calc.Options{StrictPeriods: flagStrict})

	a := &app{
		cfg:      cfg,
		logger:   log,
		redis:    redisClient,
		cache:    cache,
		store:    store,
		router:   rt,
		registry: reg,
		engine:   engine,
		sec:      sec,
	}

	if cfg.Database.Enabled {
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.db = db
		a.audit = audit.NewRepository(db.Pool)
	}

	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// request builds a calculation request from global flags
func (a *app) request(ticker, metric string) calc.Request {
	return calc.Request{
		Ticker:  ticker,
		Metric:  metric,
		Period:  flagPeriod,
		Freq:    contracts.Freq(flagFreq),
		TTM:     flagTTM,
		Segment: flagSegment,
	}
}

// printJSON writes a result to stdout as indented JSON
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
