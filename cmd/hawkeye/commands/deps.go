package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/hawkeye/internal/calibration"
	"github.com/wonny/hawkeye/internal/contracts"
	"github.com/wonny/hawkeye/internal/engine"
	"github.com/wonny/hawkeye/internal/external/eastmoney"
	"github.com/wonny/hawkeye/internal/external/fundapi"
	"github.com/wonny/hawkeye/internal/external/tencent"
	"github.com/wonny/hawkeye/internal/funds"
	"github.com/wonny/hawkeye/internal/official"
	"github.com/wonny/hawkeye/internal/snapshot"
	"github.com/wonny/hawkeye/internal/store"
	"github.com/wonny/hawkeye/internal/store/postgres"
	"github.com/wonny/hawkeye/internal/store/redisstore"
	"github.com/wonny/hawkeye/pkg/config"
	"github.com/wonny/hawkeye/pkg/database"
	"github.com/wonny/hawkeye/pkg/httputil"
	"github.com/wonny/hawkeye/pkg/logger"
	"github.com/wonny/hawkeye/pkg/redis"
)

// app holds everything a command needs
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	service *engine.Service
	closers []func()
}

// bootstrap loads config and wires the engine
// ⭐ SSOT: 의존성 조립은 여기서만
func bootstrap(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log}

	// 3. Redis (cache, rate limit, optional store)
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.closers = append(a.closers, func() { _ = rc.Close() })

	// 4. Document store
	docs, err := a.openStore(ctx, rc)
	if err != nil {
		a.Close()
		return nil, err
	}

	loc := cfg.Location()
	limiter := redis.NewRateLimiter(rc, cfg.Redis.Prefix)

	// 5. Quote source (no retries: a failed cycle is retried next cycle)
	quoteHTTP := httputil.NewWithTimeout(cfg.HTTP, log, cfg.Quote.Timeout).
		DisableRetry().
		WithRateLimiter(limiter, redis.QuoteRateLimit)
	quotes := tencent.NewClient(quoteHTTP, log, cfg.Quote.BaseURL)

	// 6. Official sources: fund API first, NAV history page as fallback, cached in redis
	officialHTTP := httputil.NewWithTimeout(cfg.HTTP, log, cfg.Official.Timeout)
	navHTTP := httputil.NewWithTimeout(cfg.HTTP, log, cfg.Official.Timeout).
		WithRateLimiter(limiter, redis.EastmoneyRateLimit)

	today := func() string { return contracts.TradingDay(time.Now(), loc) }
	chain := official.NewChain(log).
		WithToday(today).
		Add("fundapi", fundapi.NewClient(officialHTTP, log, cfg.Official.FundAPIBaseURL, cfg.Official.RatePerSecond)).
		Add("eastmoney", eastmoney.NewClient(navHTTP, log, cfg.Official.EastmoneyBaseURL))
	officialSource := official.NewCached(chain, redis.NewCache(rc, cfg.Redis.Prefix), cfg.Official.CacheTTL, today, log)

	// 7. Engine
	fundRepo := funds.NewRepository(docs)
	snapshots := snapshot.New(docs)
	history := calibration.NewHistoryStore(docs)
	audit := calibration.NewEngine(fundRepo, snapshots, history, officialSource, cfg.Official.Codes, log)

	a.service = engine.NewService(engine.Deps{
		Funds:     fundRepo,
		Snapshots: snapshots,
		History:   history,
		Audit:     audit,
		Quotes:    quotes,
		Indices:   cfg.Monitor.Indices,
		Location:  loc,
	}, log)

	return a, nil
}

// openStore selects the durable document store by STORE_BACKEND
func (a *app) openStore(ctx context.Context, rc *redis.Client) (store.DocumentStore, error) {
	switch a.cfg.Store.Backend {
	case "memory":
		a.log.Warn("Using in-memory store, nothing will be persisted")
		return store.NewMemoryStore(), nil

	case "postgres":
		db, err := database.New(ctx, a.cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		pg := postgres.New(db.Pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		a.log.Info("Connected to database")
		return pg, nil

	case "redis":
		rs, err := redisstore.New(rc)
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		return rs, nil

	default:
		fs, err := store.NewFileStore(a.cfg.Store.Dir, a.log)
		if err != nil {
			return nil, fmt.Errorf("file store: %w", err)
		}
		return fs, nil
	}
}

// Close releases connections in reverse order
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
