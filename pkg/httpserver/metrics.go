package httpserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks API requests by route and status class.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raven_http_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"route", "status"},
	)

	// RequestDurationSeconds tracks API request latency by route.
	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "raven_http_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// RequestsThrottledTotal tracks requests rejected by the per-IP limiter.
	RequestsThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raven_http_requests_throttled_total",
		Help: "Total number of requests rejected by rate limiting",
	})

	// EventsPublishedTotal tracks engine events fanned out over WebSocket.
	EventsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raven_ws_events_published_total",
		Help: "Total number of engine events broadcast to WebSocket clients",
	})

	// WSClientsGauge tracks currently connected WebSocket clients.
	WSClientsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "raven_ws_clients",
		Help: "Number of connected WebSocket clients",
	})
)
