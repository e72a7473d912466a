package keeper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProcessAttemptsTotal tracks keeper ProcessRound calls by result.
	ProcessAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raven_keeper_process_attempts_total",
			Help: "Total number of keeper ProcessRound invocations",
		},
		[]string{"result"},
	)

	// SweepsSkippedTotal tracks sweeps skipped by the open circuit breaker.
	SweepsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raven_keeper_sweeps_skipped_total",
		Help: "Total number of keeper sweeps skipped while the breaker was open",
	})

	// SweepDurationSeconds tracks keeper sweep latency.
	SweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "raven_keeper_sweep_duration_seconds",
		Help:    "Duration of keeper sweeps across all markets",
		Buckets: prometheus.DefBuckets,
	})
)
