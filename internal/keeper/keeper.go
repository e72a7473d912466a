package keeper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ravenmarkets/raven-engine/internal/circuitbreaker"
	"github.com/ravenmarkets/raven-engine/internal/engine"
	"github.com/ravenmarkets/raven-engine/pkg/types"
	"go.uber.org/zap"
)

// Keeper is the node's built-in crank: on every tick it invokes ProcessRound
// for each market's current round. ProcessRound is permissionless and
// idempotent, so the keeper competing with external callers is harmless;
// it only guarantees rounds settle even when nobody else cranks them.
type Keeper struct {
	engine        *engine.Engine
	breaker       *circuitbreaker.OracleBreaker
	caller        types.AccountID
	interval      time.Duration
	maxAge        time.Duration
	maxConfidence uint64
	logger        *zap.Logger
	wg            sync.WaitGroup
}

// Config holds keeper configuration.
type Config struct {
	Engine        *engine.Engine
	Breaker       *circuitbreaker.OracleBreaker
	Caller        types.AccountID // incentive recipient for won latches
	Interval      time.Duration
	MaxAge        time.Duration
	MaxConfidence uint64
	Logger        *zap.Logger
}

// New creates a keeper.
func New(cfg *Config) *Keeper {
	return &Keeper{
		engine:        cfg.Engine,
		breaker:       cfg.Breaker,
		caller:        cfg.Caller,
		interval:      cfg.Interval,
		maxAge:        cfg.MaxAge,
		maxConfidence: cfg.MaxConfidence,
		logger:        cfg.Logger,
	}
}

// Start launches the crank loop. It runs until the context is cancelled.
func (k *Keeper) Start(ctx context.Context) error {
	k.logger.Info("keeper-starting",
		zap.Duration("interval", k.interval),
		zap.Duration("max-age", k.maxAge),
		zap.Uint64("max-confidence", k.maxConfidence))

	k.wg.Add(1)
	go k.loop(ctx)

	return nil
}

func (k *Keeper) loop(ctx context.Context) {
	defer k.wg.Done()

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			k.logger.Info("keeper-stopping")
			return
		case <-ticker.C:
			k.sweep(ctx)
		}
	}
}

// sweep cranks every market's current round once.
func (k *Keeper) sweep(ctx context.Context) {
	if !k.breaker.IsEnabled() {
		SweepsSkippedTotal.Inc()
		return
	}

	start := time.Now()
	defer func() {
		SweepDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	for _, mk := range k.engine.Catalog().Markets() {
		res, err := k.engine.ProcessRound(ctx, k.caller, mk.ID, mk.CurrentRound, mk.FeedID, k.maxAge, k.maxConfidence)
		if err != nil {
			if errors.Is(err, types.ErrOracle) {
				k.breaker.RecordFailure()
			}
			ProcessAttemptsTotal.WithLabelValues("error").Inc()
			k.logger.Warn("keeper-process-failed",
				zap.String("market-id", mk.ID),
				zap.Uint64("round-index", mk.CurrentRound),
				zap.Error(err))
			continue
		}

		k.breaker.RecordSuccess()

		switch {
		case res.Settled:
			ProcessAttemptsTotal.WithLabelValues("settled").Inc()
		case res.StartPriceLocked || res.EndPriceLocked:
			ProcessAttemptsTotal.WithLabelValues("locked").Inc()
		default:
			ProcessAttemptsTotal.WithLabelValues("noop").Inc()
		}
	}
}

// Close waits for the crank loop to drain.
func (k *Keeper) Close() error {
	k.wg.Wait()
	k.logger.Info("keeper-closed")
	return nil
}
