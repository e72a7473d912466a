package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ravenmarkets/raven-engine/internal/ledger"
	"github.com/ravenmarkets/raven-engine/internal/market"
	"github.com/ravenmarkets/raven-engine/internal/oracle"
	"github.com/ravenmarkets/raven-engine/pkg/types"
	"go.uber.org/zap"
)

type roundKey struct {
	marketID string
	index    uint64
}

// Engine is the round lifecycle and settlement core. Every public operation
// takes the engine mutex for its full extent, so each one is a single atomic
// transaction against shared state: no internally observable intermediate
// state, no internal threading.
type Engine struct {
	mu sync.Mutex

	catalog      *market.Catalog
	userLedger   ledger.Transferer
	escrowLedger ledger.Transferer
	balances     ledger.BalanceReader
	escrow       types.AccountID
	oracle       oracle.Source
	audit        AuditSink
	events       Publisher
	logger       *zap.Logger

	rounds  map[roundKey]*Round
	surplus uint64 // value abandoned in escrow by zero-winner-pool rounds

	now func() time.Time
}

// Config holds engine construction parameters.
type Config struct {
	Catalog      *market.Catalog
	UserLedger   ledger.Transferer
	EscrowLedger ledger.Transferer // program-controlled escrow signer
	Balances     ledger.BalanceReader
	Escrow       types.AccountID
	Oracle       oracle.Source
	Audit        AuditSink // optional
	Events       Publisher // optional
	Logger       *zap.Logger
}

// New creates the engine.
func New(cfg *Config) (*Engine, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}
	if cfg.UserLedger == nil || cfg.EscrowLedger == nil || cfg.Balances == nil {
		return nil, fmt.Errorf("ledger adapters cannot be nil")
	}
	if cfg.Escrow.Zero() {
		return nil, fmt.Errorf("escrow account required")
	}
	if cfg.Oracle == nil {
		return nil, fmt.Errorf("oracle cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	events := cfg.Events
	if events == nil {
		events = noopPublisher{}
	}

	return &Engine{
		catalog:      cfg.Catalog,
		userLedger:   cfg.UserLedger,
		escrowLedger: cfg.EscrowLedger,
		balances:     cfg.Balances,
		escrow:       cfg.Escrow,
		oracle:       cfg.Oracle,
		audit:        cfg.Audit,
		events:       events,
		logger:       cfg.Logger,
		rounds:       make(map[roundKey]*Round),
		now:          time.Now,
	}, nil
}

// SetClock replaces the engine clock. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Catalog exposes the market catalog for read paths.
func (e *Engine) Catalog() *market.Catalog {
	return e.catalog
}

// CreateMarket validates the request against the feed whitelist, charges the
// feed's creation fee to the creator, inserts the market and opens round 1.
func (e *Engine) CreateMarket(ctx context.Context, creator types.AccountID, args *market.CreateArgs) (*market.Config, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	feed, err := e.catalog.ValidateCreate(args)
	if err != nil {
		return nil, err
	}

	if feed.CreateMarketFee > 0 {
		err = e.userLedger.Transfer(ctx, creator, e.catalog.Admin(), feed.CreateMarketFee)
		if err != nil {
			return nil, fmt.Errorf("charge creation fee: %w", err)
		}
	}

	mk, err := e.catalog.Insert(args, feed, creator, e.now())
	if err != nil {
		return nil, err
	}

	round := newRound(mk, 1)
	e.rounds[roundKey{mk.ID, 1}] = round
	ActiveRoundsGauge.Set(float64(len(e.rounds)))

	e.logger.Info("round-opened",
		zap.String("market-id", mk.ID),
		zap.Uint64("round-index", 1),
		zap.Time("start-time", round.StartTime),
		zap.Time("end-time", round.EndTime))

	return mk, nil
}

// PlaceBet debits the bettor, credits escrow and records the wager. All or
// nothing: if the transfer fails no bet is recorded and no totals change.
func (e *Engine) PlaceBet(ctx context.Context, bettor types.AccountID, marketID string, roundIndex uint64, dir types.Direction, amount uint64) (*Bet, error) {
	if amount == 0 {
		return nil, fmt.Errorf("%w: amount must be positive", types.ErrValidation)
	}
	if !dir.Valid() {
		return nil, fmt.Errorf("%w: direction", types.ErrValidation)
	}
	if bettor.Zero() {
		return nil, fmt.Errorf("%w: bettor required", types.ErrValidation)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	mk, err := e.catalog.Lookup(marketID)
	if err != nil {
		return nil, err
	}
	if mk.Paused {
		return nil, fmt.Errorf("%w: %s", types.ErrMarketPaused, marketID)
	}
	if amount < mk.MinBet {
		return nil, fmt.Errorf("%w: %d < %d", types.ErrAmountTooSmall, amount, mk.MinBet)
	}

	round, ok := e.rounds[roundKey{marketID, roundIndex}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d", types.ErrRoundNotFound, marketID, roundIndex)
	}
	if round.Settled || !round.acceptsBetsAt(e.now(), mk.BettingPeriod) {
		return nil, fmt.Errorf("%w: %s/%d", types.ErrBettingWindowClosed, marketID, roundIndex)
	}

	existing := round.bet(bettor)
	if existing != nil && existing.Direction != dir {
		return nil, fmt.Errorf("%w: bettor already staked %s", types.ErrValidation, existing.Direction)
	}

	// Reject overflow before money moves so failure leaves no trace.
	total := round.TotalUp
	if dir == types.DirectionDown {
		total = round.TotalDown
	}
	if total > ^uint64(0)-amount {
		return nil, fmt.Errorf("%w: pool overflow", types.ErrValidation)
	}
	if existing != nil && existing.Amount > ^uint64(0)-amount {
		return nil, fmt.Errorf("%w: bet overflow", types.ErrValidation)
	}

	err = e.userLedger.Transfer(ctx, bettor, e.escrow, amount)
	if err != nil {
		return nil, fmt.Errorf("stake transfer: %w", err)
	}

	bet := existing
	if bet == nil {
		bet = &Bet{
			ID:        uuid.New().String(),
			Bettor:    bettor,
			Direction: dir,
		}
		round.Bets = append(round.Bets, bet)
		round.byBettor[bettor] = bet
	}
	bet.Amount += amount

	switch dir {
	case types.DirectionUp:
		round.TotalUp += amount
	case types.DirectionDown:
		round.TotalDown += amount
	}

	BetsPlacedTotal.WithLabelValues(dir.String()).Inc()
	BetAmountTotal.Add(float64(amount))

	e.logger.Info("bet-accepted",
		zap.String("market-id", marketID),
		zap.Uint64("round-index", roundIndex),
		zap.String("bettor", string(bettor)),
		zap.String("direction", dir.String()),
		zap.Uint64("amount", amount))

	e.recordBetAudit(ctx, bet, marketID, roundIndex, amount)

	e.events.Publish(Event{
		Type:       EventBetAccepted,
		MarketID:   marketID,
		RoundIndex: roundIndex,
		At:         e.now(),
		Payload: map[string]interface{}{
			"bettor":    string(bettor),
			"direction": dir.String(),
			"amount":    amount,
		},
	})

	copied := *bet
	return &copied, nil
}

func (e *Engine) recordBetAudit(ctx context.Context, bet *Bet, marketID string, roundIndex uint64, amount uint64) {
	if e.audit == nil {
		return
	}

	err := e.audit.RecordBet(ctx, &BetAudit{
		BetID:      bet.ID,
		MarketID:   marketID,
		RoundIndex: roundIndex,
		Bettor:     bet.Bettor,
		Direction:  bet.Direction,
		Amount:     amount,
		AcceptedAt: e.now(),
	})
	if err != nil {
		e.logger.Error("bet-audit-failed",
			zap.String("bet-id", bet.ID),
			zap.Error(err))
	}
}

// RedeemResult summarizes one redemption sweep.
type RedeemResult struct {
	Paid    int    `json:"paid"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
	Amount  uint64 `json:"amount"`
}

// RedeemBatch pays out settled, unredeemed results for the listed bettors.
// Safe to call repeatedly and with overlapping sets: the redeemed latch on
// each bet makes every payout at-most-once. One failed transfer never blocks
// the rest of the batch.
func (e *Engine) RedeemBatch(ctx context.Context, marketID string, roundIndex uint64, bettors []types.AccountID) (*RedeemResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	round, ok := e.rounds[roundKey{marketID, roundIndex}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d", types.ErrRoundNotFound, marketID, roundIndex)
	}
	if !round.Settled {
		return nil, fmt.Errorf("%w: %s/%d", types.ErrRoundNotSettled, marketID, roundIndex)
	}

	res := &RedeemResult{}
	for _, bettor := range bettors {
		bet := round.bet(bettor)
		if bet == nil || bet.Redeemed || bet.Result == 0 {
			res.Skipped++
			continue
		}

		err := e.escrowLedger.Transfer(ctx, e.escrow, bettor, bet.Result)
		if err != nil {
			// Leave the latch unset so a later sweep can retry this bettor.
			res.Failed++
			RedemptionsTotal.WithLabelValues("failed").Inc()
			e.logger.Error("redemption-transfer-failed",
				zap.String("market-id", marketID),
				zap.Uint64("round-index", roundIndex),
				zap.String("bettor", string(bettor)),
				zap.Uint64("result", bet.Result),
				zap.Error(err))
			continue
		}

		bet.Redeemed = true
		res.Paid++
		res.Amount += bet.Result
		RedemptionsTotal.WithLabelValues("paid").Inc()
		RedeemedAmountTotal.Add(float64(bet.Result))
	}

	if res.Paid > 0 {
		e.events.Publish(Event{
			Type:       EventRedeemed,
			MarketID:   marketID,
			RoundIndex: roundIndex,
			At:         e.now(),
			Payload: map[string]interface{}{
				"paid":   res.Paid,
				"amount": res.Amount,
			},
		})
	}

	e.logger.Info("redeem-batch-complete",
		zap.String("market-id", marketID),
		zap.Uint64("round-index", roundIndex),
		zap.Int("paid", res.Paid),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed))

	return res, nil
}

// CloseRound reclaims a settled, fully redeemed round's storage. Creator
// only; no financial effect.
func (e *Engine) CloseRound(caller types.AccountID, marketID string, roundIndex uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	mk, err := e.catalog.Lookup(marketID)
	if err != nil {
		return err
	}
	if err := e.catalog.Authorize(caller, mk, market.RoleCreator); err != nil {
		return err
	}

	round, ok := e.rounds[roundKey{marketID, roundIndex}]
	if !ok {
		return fmt.Errorf("%w: %s/%d", types.ErrRoundNotFound, marketID, roundIndex)
	}
	if !round.Settled {
		return fmt.Errorf("%w: %s/%d", types.ErrRoundNotSettled, marketID, roundIndex)
	}
	if !round.fullyRedeemed() {
		return fmt.Errorf("%w: %s/%d", types.ErrRoundNotRedeemed, marketID, roundIndex)
	}

	delete(e.rounds, roundKey{marketID, roundIndex})
	ActiveRoundsGauge.Set(float64(len(e.rounds)))

	e.logger.Info("round-closed",
		zap.String("market-id", marketID),
		zap.Uint64("round-index", roundIndex))

	return nil
}

// GetRound returns a snapshot of a round.
func (e *Engine) GetRound(marketID string, roundIndex uint64) (*Round, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	round, ok := e.rounds[roundKey{marketID, roundIndex}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d", types.ErrRoundNotFound, marketID, roundIndex)
	}

	return round.snapshot(), nil
}

// EscrowSurplus returns the value abandoned in escrow by zero-winner-pool
// rounds. It is never auto-distributed; sweeping it is an operator action.
func (e *Engine) EscrowSurplus() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.surplus
}
