package circuitbreaker

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// OracleBreaker gates the settlement keeper on oracle health. Consecutive
// fetch failures open the breaker; a streak of successes closes it again.
// The hysteresis keeps a flapping upstream from toggling the keeper every
// tick. Latches inside the engine make settlement safe regardless; the
// breaker only saves wasted oracle round-trips.
type OracleBreaker struct {
	enabled atomic.Bool // lock-free reads from the keeper hot path

	failureThreshold int
	successThreshold int
	logger           *zap.Logger

	mu          sync.Mutex
	failStreak  int
	okStreak    int
	lastFailure time.Time
}

// Config holds breaker configuration.
type Config struct {
	FailureThreshold int // consecutive failures before opening
	SuccessThreshold int // consecutive successes before closing again
	Logger           *zap.Logger
}

// Status holds current breaker state for debugging and HTTP endpoints.
type Status struct {
	Enabled     bool
	FailStreak  int
	OkStreak    int
	LastFailure time.Time
}

// New creates a new oracle breaker. It starts closed (enabled).
func New(cfg *Config) (*OracleBreaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.FailureThreshold <= 0 {
		return nil, fmt.Errorf("failure threshold must be positive")
	}
	if cfg.SuccessThreshold <= 0 {
		return nil, fmt.Errorf("success threshold must be positive")
	}

	b := &OracleBreaker{
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		logger:           cfg.Logger,
	}
	b.enabled.Store(true)

	BreakerEnabled.Set(1)

	return b, nil
}

// IsEnabled reports whether oracle-dependent work should proceed.
// Lock-free and safe to call from hot paths.
func (b *OracleBreaker) IsEnabled() bool {
	return b.enabled.Load()
}

// RecordSuccess notes a successful oracle interaction.
func (b *OracleBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failStreak = 0
	b.okStreak++

	if !b.enabled.Load() && b.okStreak >= b.successThreshold {
		b.enabled.Store(true)
		BreakerEnabled.Set(1)
		BreakerStateChanges.Inc()

		b.logger.Info("oracle-breaker-closed",
			zap.Int("ok_streak", b.okStreak))
	}
}

// RecordFailure notes a failed oracle interaction.
func (b *OracleBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.okStreak = 0
	b.failStreak++
	b.lastFailure = time.Now()

	BreakerFailuresTotal.Inc()

	if b.enabled.Load() && b.failStreak >= b.failureThreshold {
		b.enabled.Store(false)
		BreakerEnabled.Set(0)
		BreakerStateChanges.Inc()

		b.logger.Warn("oracle-breaker-opened",
			zap.Int("fail_streak", b.failStreak))
	}
}

// GetStatus returns the current breaker state.
func (b *OracleBreaker) GetStatus() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Status{
		Enabled:     b.enabled.Load(),
		FailStreak:  b.failStreak,
		OkStreak:    b.okStreak,
		LastFailure: b.lastFailure,
	}
}
