package storage

import (
	"context"
	"fmt"

	"github.com/ravenmarkets/raven-engine/internal/engine"
	"go.uber.org/zap"
)

// ConsoleStorage implements engine.AuditSink by printing to stdout.
// Used when no database is configured.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console audit sink.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	return &ConsoleStorage{logger: logger}
}

// RecordBet prints one accepted bet.
func (c *ConsoleStorage) RecordBet(ctx context.Context, rec *engine.BetAudit) error {
	fmt.Printf("BET ACCEPTED market=%s round=%d bettor=%s dir=%s amount=%d\n",
		rec.MarketID, rec.RoundIndex, rec.Bettor, rec.Direction, rec.Amount)
	return nil
}

// RecordSettlement prints one settled round.
func (c *ConsoleStorage) RecordSettlement(ctx context.Context, rec *engine.SettlementAudit) error {
	fmt.Printf("ROUND SETTLED market=%s round=%d outcome=%s start=%d end=%d up=%d down=%d fee=%d (creator=%d admin=%d)\n",
		rec.MarketID, rec.RoundIndex, rec.Outcome, rec.StartPrice, rec.EndPrice,
		rec.TotalUp, rec.TotalDown, rec.TotalFee, rec.FeeCreator, rec.FeeAdmin)
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
