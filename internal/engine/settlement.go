package engine

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ravenmarkets/raven-engine/internal/market"
	"github.com/ravenmarkets/raven-engine/pkg/types"
	"go.uber.org/zap"
)

// ProcessResult reports what a ProcessRound invocation actually did.
// All-false means the call was a pure no-op (everything already latched).
type ProcessResult struct {
	StartPriceLocked bool   `json:"start_price_locked"`
	EndPriceLocked   bool   `json:"end_price_locked"`
	Settled          bool   `json:"settled"`
	AlreadySettled   bool   `json:"already_settled"`
	NextRound        uint64 `json:"next_round,omitempty"`
}

// ProcessRound is the permissionless crank: it locks the start price once
// the round has started, locks the end price once the round has ended, and
// settles once the end price is latched. Each step is guarded by its latch
// immediately before the mutation, so concurrent or repeated invocations are
// first-writer-wins and everything after is a no-op. Oracle failures leave
// all state unchanged and are retryable.
func (e *Engine) ProcessRound(ctx context.Context, caller types.AccountID, marketID string, roundIndex uint64, feedID string, maxAge time.Duration, maxConfidence uint64) (*ProcessResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	mk, err := e.catalog.Lookup(marketID)
	if err != nil {
		return nil, err
	}
	if feedID != mk.FeedID {
		return nil, fmt.Errorf("%w: feed %s does not back market %s", types.ErrValidation, feedID, marketID)
	}

	round, ok := e.rounds[roundKey{marketID, roundIndex}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d", types.ErrRoundNotFound, marketID, roundIndex)
	}

	res := &ProcessResult{}
	if round.Settled {
		// Idempotence guard: nothing below may run again.
		res.AlreadySettled = true
		return res, nil
	}

	now := e.now()
	var oracleErr error

	if !round.StartPriceSet && !now.Before(round.StartTime) {
		price, err := e.validatedPrice(ctx, mk.FeedID, maxAge, maxConfidence, now)
		if err != nil {
			oracleErr = err
		} else {
			round.StartPrice = price.Price
			round.StartPriceSet = true
			res.StartPriceLocked = true
			PriceLatchesTotal.WithLabelValues("start").Inc()

			e.logger.Info("start-price-locked",
				zap.String("market-id", marketID),
				zap.Uint64("round-index", roundIndex),
				zap.Int64("price", price.Price))

			e.payLatchIncentive(ctx, caller, round, true)
			e.publishPriceLocked(marketID, roundIndex, "start", price.Price)
		}
	}

	if !round.EndPriceSet && !now.Before(round.EndTime) {
		price, err := e.validatedPrice(ctx, mk.FeedID, maxAge, maxConfidence, now)
		if err != nil {
			oracleErr = err
		} else {
			round.EndPrice = price.Price
			round.EndPriceSet = true
			res.EndPriceLocked = true
			PriceLatchesTotal.WithLabelValues("end").Inc()

			e.logger.Info("end-price-locked",
				zap.String("market-id", marketID),
				zap.Uint64("round-index", roundIndex),
				zap.Int64("price", price.Price))

			e.payLatchIncentive(ctx, caller, round, false)
			e.publishPriceLocked(marketID, roundIndex, "end", price.Price)
		}
	}

	if round.EndPriceSet && !round.Settled {
		nextIdx, err := e.settle(ctx, mk, round)
		if err != nil {
			return res, err
		}
		res.Settled = true
		res.NextRound = nextIdx
	}

	// Latched nothing and the oracle failed: surface it so callers retry.
	if oracleErr != nil && !res.StartPriceLocked && !res.EndPriceLocked && !res.Settled {
		return res, oracleErr
	}

	return res, nil
}

// validatedPrice fetches the feed and applies the acceptance gates: positive
// price, confidence within the caller's bound, publication within max_age.
func (e *Engine) validatedPrice(ctx context.Context, feedID string, maxAge time.Duration, maxConfidence uint64, now time.Time) (*types.OraclePrice, error) {
	price, err := e.oracle.GetPrice(ctx, feedID)
	if err != nil {
		return nil, err
	}

	if price.Price <= 0 {
		return nil, fmt.Errorf("%w: feed %s price %d", types.ErrPriceInvalid, feedID, price.Price)
	}
	if price.Confidence > maxConfidence {
		return nil, fmt.Errorf("%w: feed %s conf %d > %d", types.ErrConfidenceTooHigh, feedID, price.Confidence, maxConfidence)
	}
	if maxAge > 0 && price.Age(now) > maxAge {
		return nil, fmt.Errorf("%w: feed %s age %s", types.ErrPriceStale, feedID, price.Age(now))
	}

	return price, nil
}

// payLatchIncentive pays the crank caller their configured share of the pool
// for winning a price latch. Best effort: incentives spend escrow surplus,
// so a failed transfer is logged and dropped rather than unwinding the latch.
func (e *Engine) payLatchIncentive(ctx context.Context, caller types.AccountID, round *Round, start bool) {
	startPct, endPct := e.catalog.SettleIncentives()
	pct := endPct
	if start {
		pct = startPct
	}
	if pct == 0 || caller.Zero() {
		return
	}

	incentive := new(big.Int).SetUint64(round.pool())
	incentive.Mul(incentive, new(big.Int).SetUint64(pct))
	incentive.Div(incentive, big.NewInt(100))
	if !incentive.IsUint64() || incentive.Uint64() == 0 {
		return
	}

	err := e.escrowLedger.Transfer(ctx, e.escrow, caller, incentive.Uint64())
	if err != nil {
		e.logger.Warn("latch-incentive-skipped",
			zap.String("market-id", round.MarketID),
			zap.Uint64("round-index", round.Index),
			zap.Error(err))
		return
	}

	e.logger.Info("latch-incentive-paid",
		zap.String("market-id", round.MarketID),
		zap.Uint64("round-index", round.Index),
		zap.String("caller", string(caller)),
		zap.Uint64("amount", incentive.Uint64()))
}

func (e *Engine) publishPriceLocked(marketID string, roundIndex uint64, which string, price int64) {
	e.events.Publish(Event{
		Type:       EventPriceLocked,
		MarketID:   marketID,
		RoundIndex: roundIndex,
		At:         e.now(),
		Payload: map[string]interface{}{
			"which": which,
			"price": price,
		},
	})
}

// settle computes the outcome, pays fees, writes per-bet results, sets the
// settled latch and advances the market to a fresh round. The caller has
// already checked the latch; everything here runs at most once per round.
func (e *Engine) settle(ctx context.Context, mk *market.Config, round *Round) (uint64, error) {
	start := time.Now()
	defer func() {
		SettlementDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	var (
		outcome       string
		totalFee      uint64
		feeCreator    uint64
		feeAdmin      uint64
		distributable uint64
	)

	switch {
	case round.StartPrice == round.EndPrice:
		// Push: full refund, zero fee.
		outcome = "push"
		for _, bet := range round.Bets {
			bet.Result = bet.Amount
		}

	default:
		winner := types.DirectionUp
		if round.StartPrice > round.EndPrice {
			winner = types.DirectionDown
		}
		outcome = winner.String()

		winnerPool, loserPool := round.TotalUp, round.TotalDown
		if winner == types.DirectionDown {
			winnerPool, loserPool = loserPool, winnerPool
		}

		if loserPool == 0 {
			// Nothing to distribute and nothing to charge: stakes come back.
			for _, bet := range round.Bets {
				bet.Result = bet.Amount
			}
			break
		}

		totalFee, distributable = splitLoserPool(loserPool, mk.FeeRateBps)
		feeCreator, feeAdmin = splitFee(totalFee, e.catalog.CreatorFeePercent())

		err := e.payFees(ctx, mk, feeCreator, feeAdmin)
		if err != nil {
			return 0, err
		}

		if winnerPool == 0 {
			// Degenerate: fees were earned by the losers having lost, but
			// nobody is owed the distributable. It stays in escrow.
			e.surplus += distributable
			EscrowSurplusGauge.Set(float64(e.surplus))
			e.logger.Warn("no-winners-surplus-retained",
				zap.String("market-id", mk.ID),
				zap.Uint64("round-index", round.Index),
				zap.Uint64("surplus", distributable))
		} else {
			for _, bet := range round.Bets {
				if bet.Direction == winner {
					bet.Result = bet.Amount + proRataShare(distributable, bet.Amount, winnerPool)
				} else {
					bet.Result = 0
				}
			}
		}
	}

	// Zero-result bets have nothing to redeem; latch them now so a round can
	// be closed once every payout has actually been swept.
	for _, bet := range round.Bets {
		if bet.Result == 0 {
			bet.Redeemed = true
		}
	}

	round.Settled = true
	RoundsSettledTotal.WithLabelValues(outcome).Inc()
	if totalFee > 0 {
		FeesCollectedTotal.Add(float64(totalFee))
	}

	e.logger.Info("round-settled",
		zap.String("market-id", mk.ID),
		zap.Uint64("round-index", round.Index),
		zap.String("outcome", outcome),
		zap.Int64("start-price", round.StartPrice),
		zap.Int64("end-price", round.EndPrice),
		zap.Uint64("total-up", round.TotalUp),
		zap.Uint64("total-down", round.TotalDown),
		zap.Uint64("total-fee", totalFee),
		zap.Uint64("fee-creator", feeCreator),
		zap.Uint64("fee-admin", feeAdmin))

	e.recordSettlementAudit(ctx, mk, round, outcome, totalFee, feeCreator, feeAdmin, distributable)

	e.events.Publish(Event{
		Type:       EventRoundSettled,
		MarketID:   mk.ID,
		RoundIndex: round.Index,
		At:         e.now(),
		Payload: map[string]interface{}{
			"outcome":     outcome,
			"start_price": round.StartPrice,
			"end_price":   round.EndPrice,
			"total_fee":   totalFee,
		},
	})

	// Advance the market and open the successor round with a freshly
	// computed window.
	nextIdx, err := e.catalog.AdvanceRound(mk.ID)
	if err != nil {
		return 0, err
	}

	next := newRound(mk, nextIdx)
	e.rounds[roundKey{mk.ID, nextIdx}] = next
	ActiveRoundsGauge.Set(float64(len(e.rounds)))

	e.logger.Info("round-opened",
		zap.String("market-id", mk.ID),
		zap.Uint64("round-index", nextIdx),
		zap.Time("start-time", next.StartTime),
		zap.Time("end-time", next.EndTime))

	return nextIdx, nil
}

// payFees moves the fee split out of escrow. The escrow invariant guarantees
// funds are present; the balance pre-check turns a substrate bug into a
// clean retryable failure before any value moves.
func (e *Engine) payFees(ctx context.Context, mk *market.Config, feeCreator, feeAdmin uint64) error {
	if e.balances.Balance(e.escrow) < feeCreator+feeAdmin {
		return fmt.Errorf("%w: escrow underfunded for fees", types.ErrInsufficientFunds)
	}

	if feeCreator > 0 {
		err := e.escrowLedger.Transfer(ctx, e.escrow, mk.Creator, feeCreator)
		if err != nil {
			return fmt.Errorf("creator fee: %w", err)
		}
		FeesPaidTotal.WithLabelValues("creator").Add(float64(feeCreator))
	}

	if feeAdmin > 0 {
		err := e.escrowLedger.Transfer(ctx, e.escrow, e.catalog.Admin(), feeAdmin)
		if err != nil {
			return fmt.Errorf("admin fee: %w", err)
		}
		FeesPaidTotal.WithLabelValues("admin").Add(float64(feeAdmin))
	}

	return nil
}

func (e *Engine) recordSettlementAudit(ctx context.Context, mk *market.Config, round *Round, outcome string, totalFee, feeCreator, feeAdmin, distributable uint64) {
	if e.audit == nil {
		return
	}

	err := e.audit.RecordSettlement(ctx, &SettlementAudit{
		MarketID:      mk.ID,
		RoundIndex:    round.Index,
		Outcome:       outcome,
		StartPrice:    round.StartPrice,
		EndPrice:      round.EndPrice,
		TotalUp:       round.TotalUp,
		TotalDown:     round.TotalDown,
		TotalFee:      totalFee,
		FeeCreator:    feeCreator,
		FeeAdmin:      feeAdmin,
		Distributable: distributable,
		SettledAt:     e.now(),
	})
	if err != nil {
		e.logger.Error("settlement-audit-failed",
			zap.String("market-id", mk.ID),
			zap.Uint64("round-index", round.Index),
			zap.Error(err))
	}
}

// splitLoserPool takes the protocol fee off the losing side:
// total_fee = floor(loser_pool * fee_rate / 10000), basis points end-to-end.
func splitLoserPool(loserPool, feeRateBps uint64) (totalFee, distributable uint64) {
	fee := new(big.Int).SetUint64(loserPool)
	fee.Mul(fee, new(big.Int).SetUint64(feeRateBps))
	fee.Div(fee, big.NewInt(market.FeeDenominator))

	// fee <= loserPool because feeRateBps <= FeeDenominator.
	totalFee = fee.Uint64()
	return totalFee, loserPool - totalFee
}

// splitFee divides the total fee between creator and admin. The admin side
// absorbs the rounding remainder so no fee value is ever lost.
func splitFee(totalFee, creatorPercent uint64) (feeCreator, feeAdmin uint64) {
	if creatorPercent > 100 {
		creatorPercent = 100
	}

	creator := new(big.Int).SetUint64(totalFee)
	creator.Mul(creator, new(big.Int).SetUint64(creatorPercent))
	creator.Div(creator, big.NewInt(100))

	feeCreator = creator.Uint64()
	return feeCreator, totalFee - feeCreator
}

// proRataShare computes floor(distributable * amount / winnerPool) with a
// wide intermediate so the product can never overflow.
func proRataShare(distributable, amount, winnerPool uint64) uint64 {
	share := new(big.Int).SetUint64(distributable)
	share.Mul(share, new(big.Int).SetUint64(amount))
	share.Div(share, new(big.Int).SetUint64(winnerPool))

	// amount <= winnerPool, so share <= distributable and fits in uint64.
	return share.Uint64()
}
