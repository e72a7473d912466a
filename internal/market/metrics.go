package market

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MarketsGauge tracks the number of markets in the catalog.
	MarketsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "raven_catalog_markets",
		Help: "Number of markets in the catalog",
	})

	// FeedsGauge tracks the number of whitelisted price feeds.
	FeedsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "raven_catalog_price_feeds",
		Help: "Number of whitelisted price feeds",
	})
)
