package app

import (
	"context"
	"sync"

	"github.com/ravenmarkets/raven-engine/internal/circuitbreaker"
	"github.com/ravenmarkets/raven-engine/internal/engine"
	"github.com/ravenmarkets/raven-engine/internal/keeper"
	"github.com/ravenmarkets/raven-engine/internal/ledger"
	"github.com/ravenmarkets/raven-engine/pkg/config"
	"github.com/ravenmarkets/raven-engine/pkg/healthprobe"
	"github.com/ravenmarkets/raven-engine/pkg/httpserver"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	hub           *httpserver.Hub
	ledger        *ledger.Memory
	engine        *engine.Engine
	breaker       *circuitbreaker.OracleBreaker
	keeper        *keeper.Keeper
	storage       engine.AuditSink
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	DisableKeeper bool // For debugging: never run the built-in settlement crank
}

// Ledger exposes the in-memory ledger. Tests use it to seed balances.
func (a *App) Ledger() *ledger.Memory {
	return a.ledger
}

// Engine exposes the settlement engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}
