package oracle

import (
	"context"

	"github.com/ravenmarkets/raven-engine/pkg/types"
)

// Source returns the latest observation for a price feed. Implementations
// map upstream failures onto the types.ErrOracle class so the engine can
// treat every oracle problem as retryable.
type Source interface {
	GetPrice(ctx context.Context, feedID string) (*types.OraclePrice, error)
}
