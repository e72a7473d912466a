package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerEnabled is 1 when the breaker allows oracle work, 0 when open.
	BreakerEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "raven_oracle_breaker_enabled",
		Help: "Whether the oracle circuit breaker allows settlement work (1=enabled, 0=disabled)",
	})

	// BreakerStateChanges counts open/close transitions.
	BreakerStateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raven_oracle_breaker_state_changes_total",
		Help: "Total number of circuit breaker state changes",
	})

	// BreakerFailuresTotal counts recorded oracle failures.
	BreakerFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raven_oracle_breaker_failures_total",
		Help: "Total number of oracle failures recorded by the breaker",
	})
)
