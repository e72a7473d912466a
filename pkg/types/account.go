package types

// AccountID identifies a ledger account: a bettor, the escrow vault, the
// protocol admin or a market creator. The ledger substrate authenticates
// accounts; the engine only compares identities.
type AccountID string

// Zero reports whether the account id is unset.
func (a AccountID) Zero() bool {
	return a == ""
}
