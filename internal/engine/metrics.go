package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BetsPlacedTotal tracks accepted bets by direction.
	BetsPlacedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raven_bets_placed_total",
			Help: "Total number of bets accepted",
		},
		[]string{"direction"},
	)

	// BetAmountTotal tracks the total value staked.
	BetAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raven_bet_amount_total",
		Help: "Total amount staked across all accepted bets",
	})

	// PriceLatchesTotal tracks start/end price latches won.
	PriceLatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raven_price_latches_total",
			Help: "Total number of price latches set",
		},
		[]string{"which"},
	)

	// RoundsSettledTotal tracks settlements by outcome.
	RoundsSettledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raven_rounds_settled_total",
			Help: "Total number of rounds settled",
		},
		[]string{"outcome"},
	)

	// SettlementDurationSeconds tracks settlement latency.
	SettlementDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "raven_settlement_duration_seconds",
		Help:    "Duration of round settlement",
		Buckets: prometheus.DefBuckets,
	})

	// FeesCollectedTotal tracks total fees taken from loser pools.
	FeesCollectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raven_fees_collected_total",
		Help: "Total fee value collected at settlement",
	})

	// FeesPaidTotal tracks fee payouts by recipient role.
	FeesPaidTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raven_fees_paid_total",
			Help: "Total fee value paid out, by recipient",
		},
		[]string{"recipient"},
	)

	// RedemptionsTotal tracks redemption attempts by status.
	RedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raven_redemptions_total",
			Help: "Total number of redemption payouts",
		},
		[]string{"status"},
	)

	// RedeemedAmountTotal tracks the total value redeemed.
	RedeemedAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raven_redeemed_amount_total",
		Help: "Total amount paid out through redemption",
	})

	// ActiveRoundsGauge tracks rounds currently held in memory.
	ActiveRoundsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "raven_active_rounds",
		Help: "Number of rounds currently tracked by the engine",
	})

	// EscrowSurplusGauge tracks value abandoned by zero-winner-pool rounds.
	EscrowSurplusGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "raven_escrow_surplus",
		Help: "Value retained in escrow from rounds with no winners",
	})
)
