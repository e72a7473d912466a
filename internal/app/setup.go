package app

import (
	"context"
	"fmt"

	"github.com/ravenmarkets/raven-engine/internal/circuitbreaker"
	"github.com/ravenmarkets/raven-engine/internal/engine"
	"github.com/ravenmarkets/raven-engine/internal/keeper"
	"github.com/ravenmarkets/raven-engine/internal/ledger"
	"github.com/ravenmarkets/raven-engine/internal/market"
	"github.com/ravenmarkets/raven-engine/internal/oracle"
	"github.com/ravenmarkets/raven-engine/internal/storage"
	"github.com/ravenmarkets/raven-engine/pkg/cache"
	"github.com/ravenmarkets/raven-engine/pkg/config"
	"github.com/ravenmarkets/raven-engine/pkg/healthprobe"
	"github.com/ravenmarkets/raven-engine/pkg/httpserver"
	"github.com/ravenmarkets/raven-engine/pkg/types"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := setupHealthChecker()

	priceCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	oracleSource := setupOracle(cfg, logger, priceCache)

	catalog, err := setupCatalog(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup catalog: %w", err)
	}

	memLedger := setupLedger(cfg, logger)

	auditStorage, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	hub := httpserver.NewHub(logger)

	eng, err := setupEngine(cfg, logger, catalog, memLedger, oracleSource, auditStorage, hub)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup engine: %w", err)
	}

	breaker, err := setupBreaker(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup circuit breaker: %w", err)
	}

	settlementKeeper := setupKeeper(cfg, logger, eng, breaker, opts)

	httpServer := setupHTTPServer(cfg, logger, healthChecker, eng, hub)

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		hub:           hub,
		ledger:        memLedger,
		engine:        eng,
		breaker:       breaker,
		keeper:        settlementKeeper,
		storage:       auditStorage,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupHealthChecker() *healthprobe.HealthChecker {
	return healthprobe.New()
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000, // 10x expected max items (1000 feeds)
		MaxCost:     1000,  // Maximum 1000 items in cache
		BufferItems: 64,    // Buffer size for Get operations
		Logger:      logger,
	})
}

func setupOracle(cfg *config.Config, logger *zap.Logger, priceCache cache.Cache) oracle.Source {
	client := oracle.NewPythClient(&oracle.PythConfig{
		BaseURL: cfg.OracleBaseURL,
		Timeout: cfg.OracleTimeout,
		Logger:  logger,
	})
	return oracle.NewCachedSource(client, priceCache, cfg.OracleCacheTTL)
}

func setupCatalog(cfg *config.Config, logger *zap.Logger) (*market.Catalog, error) {
	return market.NewCatalog(&market.CatalogConfig{
		Admin:             types.AccountID(cfg.AdminAccount),
		CreatorFeePercent: cfg.CreatorFeePercent,
		Logger:            logger,
	})
}

func setupLedger(cfg *config.Config, logger *zap.Logger) *ledger.Memory {
	return ledger.NewMemory(types.AccountID(cfg.EscrowAccount), logger)
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (engine.AuditSink, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

func setupEngine(
	cfg *config.Config,
	logger *zap.Logger,
	catalog *market.Catalog,
	memLedger *ledger.Memory,
	oracleSource oracle.Source,
	auditStorage engine.AuditSink,
	hub *httpserver.Hub,
) (*engine.Engine, error) {
	return engine.New(&engine.Config{
		Catalog:      catalog,
		UserLedger:   memLedger,
		EscrowLedger: memLedger.EscrowSigner(),
		Balances:     memLedger,
		Escrow:       types.AccountID(cfg.EscrowAccount),
		Oracle:       oracleSource,
		Audit:        auditStorage,
		Events:       hub,
		Logger:       logger,
	})
}

func setupBreaker(cfg *config.Config, logger *zap.Logger) (*circuitbreaker.OracleBreaker, error) {
	return circuitbreaker.New(&circuitbreaker.Config{
		FailureThreshold: cfg.BreakerFailureThreshold,
		SuccessThreshold: cfg.BreakerSuccessThreshold,
		Logger:           logger,
	})
}

func setupKeeper(
	cfg *config.Config,
	logger *zap.Logger,
	eng *engine.Engine,
	breaker *circuitbreaker.OracleBreaker,
	opts *Options,
) *keeper.Keeper {
	if !cfg.KeeperEnabled || opts.DisableKeeper {
		logger.Info("keeper-disabled",
			zap.String("note", "rounds settle only when cranked externally"))
		return nil
	}

	return keeper.New(&keeper.Config{
		Engine:        eng,
		Breaker:       breaker,
		Caller:        types.AccountID(cfg.AdminAccount),
		Interval:      cfg.KeeperInterval,
		MaxAge:        cfg.OracleMaxAge,
		MaxConfidence: cfg.OracleMaxConfidence,
		Logger:        logger,
	})
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	eng *engine.Engine,
	hub *httpserver.Hub,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:               cfg.HTTPPort,
		Logger:             logger,
		HealthChecker:      healthChecker,
		Handler:            httpserver.NewHandler(eng, logger),
		Hub:                hub,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})
}

// Context exposes the application root context, used in tests to observe
// cancellation.
func (a *App) Context() context.Context {
	return a.ctx
}
