package oracle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchesTotal tracks oracle fetches by outcome.
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raven_oracle_fetches_total",
			Help: "Total number of oracle price fetches",
		},
		[]string{"status"},
	)

	// FetchDurationSeconds tracks oracle fetch latency.
	FetchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "raven_oracle_fetch_duration_seconds",
		Help:    "Duration of oracle price fetches",
		Buckets: prometheus.DefBuckets,
	})
)
