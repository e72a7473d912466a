package engine

import (
	"context"
	"time"

	"github.com/ravenmarkets/raven-engine/pkg/types"
)

// AuditSink records accepted bets and settlement summaries for offline
// analysis. The sink is write-side only; the engine never reads it back and
// a sink failure never fails the enclosing operation.
type AuditSink interface {
	// RecordBet records an accepted bet.
	RecordBet(ctx context.Context, rec *BetAudit) error

	// RecordSettlement records a settled round.
	RecordSettlement(ctx context.Context, rec *SettlementAudit) error

	// Close closes the sink.
	Close() error
}

// BetAudit is the audit record for one accepted bet.
type BetAudit struct {
	BetID      string
	MarketID   string
	RoundIndex uint64
	Bettor     types.AccountID
	Direction  types.Direction
	Amount     uint64
	AcceptedAt time.Time
}

// SettlementAudit is the audit record for one settled round.
type SettlementAudit struct {
	MarketID      string
	RoundIndex    uint64
	Outcome       string // "up", "down" or "push"
	StartPrice    int64
	EndPrice      int64
	TotalUp       uint64
	TotalDown     uint64
	TotalFee      uint64
	FeeCreator    uint64
	FeeAdmin      uint64
	Distributable uint64
	SettledAt     time.Time
}
