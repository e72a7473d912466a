package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransfersTotal tracks ledger transfers by outcome.
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "raven_ledger_transfers_total",
			Help: "Total number of ledger transfers",
		},
		[]string{"status"},
	)

	// TransferredAmountTotal tracks the total value moved through the ledger.
	TransferredAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raven_ledger_transferred_amount_total",
		Help: "Total amount moved through successful transfers",
	})
)
