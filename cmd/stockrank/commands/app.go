package commands

import (
	"context"
	"fmt"

	"github.com/wonny/stockrank/internal/external/ibkr"
	"github.com/wonny/stockrank/internal/extractor"
	"github.com/wonny/stockrank/internal/history"
	"github.com/wonny/stockrank/internal/pipeline"
	"github.com/wonny/stockrank/internal/ranking"
	"github.com/wonny/stockrank/internal/report"
	"github.com/wonny/stockrank/internal/stockdata"
	"github.com/wonny/stockrank/internal/strategyconfig"
	"github.com/wonny/stockrank/pkg/config"
	"github.com/wonny/stockrank/pkg/database"
	"github.com/wonny/stockrank/pkg/httputil"
	"github.com/wonny/stockrank/pkg/logger"
	"github.com/wonny/stockrank/pkg/metrics"
	"github.com/wonny/stockrank/pkg/redis"
)

// app holds the wired dependencies shared by every command
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	metrics  *metrics.Registry
	strategy *strategyconfig.Config

	cacher       *stockdata.Cacher
	orchestrator *pipeline.Orchestrator
	history      *history.Repository // nil without DATABASE_URL

	db    *database.DB
	redis *redis.Client
}

type appOptions struct {
	history        bool // connect run history when configured
	requireHistory bool // fail when it is not configured
}

// newApp loads configuration and wires the report pipeline
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if accountID != "" {
		cfg.IBKR.AccountID = accountID
	}
	if strategyPath != "" {
		cfg.StrategyPath = strategyPath
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	// 3. Strategy
	a.strategy, err = strategyconfig.LoadOrDefault(cfg.StrategyPath)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	for _, w := range strategyconfig.Check(a.strategy) {
		log.WithField("code", w.Code).Warn(w.Message)
	}
	hash, err := strategyconfig.Hash(a.strategy)
	if err != nil {
		return nil, fmt.Errorf("hash strategy: %w", err)
	}
	rankers, err := a.strategy.BuildRankers()
	if err != nil {
		return nil, fmt.Errorf("build rankers: %w", err)
	}

	// 4. Brokerage client
	httpClient := httputil.New(cfg, log)
	broker := ibkr.NewClient(cfg.IBKR.BaseURL, httpClient, log, a.metrics)

	// 5. Stock data cache
	store, err := a.newStore()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.cacher = stockdata.NewCacher(stockdata.NewDownloader(broker, log), store, cfg.Cache.MaxAge, log, a.metrics)

	// 6. Pipeline
	a.orchestrator = pipeline.NewOrchestrator(
		a.cacher,
		extractor.New(a.strategy.OverrideCandidates(), log),
		ranking.NewStockRanker(log.WithComponent("ranker"), rankers...).WithParallel(parallel),
		report.NewRenderer(),
		pipeline.Strategy{ID: a.strategy.Meta.StrategyID, Version: a.strategy.Meta.Version, ConfigHash: hash},
		log,
		a.metrics,
	)

	// 7. Run history (optional)
	if opts.history || opts.requireHistory {
		if err := a.connectHistory(ctx, opts.requireHistory); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

func (a *app) newStore() (stockdata.Store, error) {
	if !a.cfg.Cache.Enabled {
		return nil, nil
	}

	switch a.cfg.Cache.Backend {
	case "redis":
		client, err := redis.New(a.cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		return stockdata.NewRedisStore(redis.NewCache(client, "stockrank")), nil
	default:
		return stockdata.NewFileStore(a.cfg.Cache.Path), nil
	}
}

func (a *app) connectHistory(ctx context.Context, required bool) error {
	if !a.cfg.Database.Enabled() {
		if required {
			return fmt.Errorf("run history requires DATABASE_URL")
		}
		return nil
	}

	db, err := database.New(ctx, a.cfg, a.log)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	a.db = db

	repo := history.NewRepository(db.Pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	a.history = repo
	a.orchestrator.WithRecorder(repo)

	a.log.Info("Run history connected")
	return nil
}

// Close releases database and redis connections
func (a *app) Close() {
	a.db.Close()
	if a.redis != nil {
		a.redis.Close()
	}
}
