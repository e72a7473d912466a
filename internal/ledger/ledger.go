package ledger

import (
	"context"

	"github.com/ravenmarkets/raven-engine/pkg/types"
)

// Transferer moves value between accounts atomically. Implementations must
// be all-or-nothing: on error no balance changes.
type Transferer interface {
	// Transfer moves amount from one account to another. The implementation
	// authenticates the source account; transfers out of the escrow vault
	// are only accepted from the program-controlled escrow signer.
	Transfer(ctx context.Context, from, to types.AccountID, amount uint64) error
}

// BalanceReader reads account balances. Split from Transferer because most
// components only need to move value, not inspect it.
type BalanceReader interface {
	Balance(account types.AccountID) uint64
}
