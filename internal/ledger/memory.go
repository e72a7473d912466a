package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/ravenmarkets/raven-engine/pkg/types"
	"go.uber.org/zap"
)

// Memory is the in-process reference ledger. It supplies the serialized,
// all-or-nothing commit semantics the engine assumes from the real value
// substrate: one mutex, checked arithmetic, no partial writes.
type Memory struct {
	mu       sync.Mutex
	balances map[types.AccountID]uint64
	escrow   types.AccountID
	logger   *zap.Logger
}

// NewMemory creates an in-memory ledger. Transfers out of the escrow account
// are rejected unless issued through the EscrowSigner view.
func NewMemory(escrow types.AccountID, logger *zap.Logger) *Memory {
	return &Memory{
		balances: make(map[types.AccountID]uint64),
		escrow:   escrow,
		logger:   logger,
	}
}

// Mint credits an account out of thin air. Bootstrap and test funding only.
func (m *Memory) Mint(account types.AccountID, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.credit(account, amount)
}

// Balance returns the current balance of an account.
func (m *Memory) Balance(account types.AccountID) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.balances[account]
}

// Transfer moves amount between accounts. The source is authenticated by the
// substrate; the escrow vault is not reachable as a source through this path.
func (m *Memory) Transfer(ctx context.Context, from, to types.AccountID, amount uint64) error {
	if from == m.escrow {
		return fmt.Errorf("%w: escrow transfers require the escrow signer", types.ErrTransferRejected)
	}

	return m.transfer(from, to, amount)
}

// EscrowSigner returns a Transferer that is authorized to move value out of
// the escrow vault, and only out of it. The engine holds this handle; no
// external caller ever sees it.
func (m *Memory) EscrowSigner() Transferer {
	return &escrowSigner{ledger: m}
}

type escrowSigner struct {
	ledger *Memory
}

func (s *escrowSigner) Transfer(ctx context.Context, from, to types.AccountID, amount uint64) error {
	if from != s.ledger.escrow {
		return fmt.Errorf("%w: escrow signer can only spend from escrow", types.ErrTransferRejected)
	}

	return s.ledger.transfer(from, to, amount)
}

func (m *Memory) transfer(from, to types.AccountID, amount uint64) error {
	if from == to {
		return fmt.Errorf("%w: self transfer", types.ErrTransferRejected)
	}
	if from.Zero() || to.Zero() {
		return fmt.Errorf("%w: missing account", types.ErrTransferRejected)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.balances[from] < amount {
		TransfersTotal.WithLabelValues("insufficient_funds").Inc()
		return fmt.Errorf("%w: %s has %d, needs %d", types.ErrInsufficientFunds, from, m.balances[from], amount)
	}

	// Debit first so a credit-side overflow leaves both sides untouched.
	if err := m.creditCheck(to, amount); err != nil {
		TransfersTotal.WithLabelValues("overflow").Inc()
		return err
	}

	m.balances[from] -= amount
	m.balances[to] += amount

	TransfersTotal.WithLabelValues("ok").Inc()
	TransferredAmountTotal.Add(float64(amount))

	m.logger.Debug("ledger-transfer",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Uint64("amount", amount))

	return nil
}

func (m *Memory) credit(account types.AccountID, amount uint64) error {
	if err := m.creditCheck(account, amount); err != nil {
		return err
	}
	m.balances[account] += amount
	return nil
}

func (m *Memory) creditCheck(account types.AccountID, amount uint64) error {
	if m.balances[account] > math.MaxUint64-amount {
		return fmt.Errorf("%w: balance overflow on %s", types.ErrTransferRejected, account)
	}
	return nil
}
