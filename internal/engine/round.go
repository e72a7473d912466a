package engine

import (
	"time"

	"github.com/ravenmarkets/raven-engine/internal/market"
	"github.com/ravenmarkets/raven-engine/pkg/types"
)

// Bet is one bettor's position in a round. Created by bet acceptance,
// mutated once by settlement (Result) and at most once by redemption
// (Redeemed). A bettor holds at most one Bet per round; repeat wagers on the
// same side accumulate into it.
type Bet struct {
	ID        string
	Bettor    types.AccountID
	Amount    uint64
	Direction types.Direction
	Result    uint64
	Redeemed  bool
}

// Round is one betting epoch for a market. StartPriceSet, EndPriceSet and
// Settled are one-way latches; once a latch is set the field it guards never
// changes again.
type Round struct {
	MarketID      string
	Index         uint64
	StartTime     time.Time
	EndTime       time.Time
	StartPrice    int64
	EndPrice      int64
	StartPriceSet bool
	EndPriceSet   bool
	TotalUp       uint64
	TotalDown     uint64
	Settled       bool
	Bets          []*Bet

	byBettor map[types.AccountID]*Bet
}

// roundWindow computes the [start, end] window for round i of a market:
//
//	start(i) = creation + betting + (i-1)*(betting + settling)
//	end(i)   = start(i) + settling
func roundWindow(mk *market.Config, index uint64) (start, end time.Time) {
	cycle := mk.BettingPeriod + mk.SettlingPeriod
	start = mk.CreationTime.Add(mk.BettingPeriod + time.Duration(index-1)*cycle)
	end = start.Add(mk.SettlingPeriod)
	return start, end
}

// newRound creates the round record for the given index.
func newRound(mk *market.Config, index uint64) *Round {
	start, end := roundWindow(mk, index)
	return &Round{
		MarketID:  mk.ID,
		Index:     index,
		StartTime: start,
		EndTime:   end,
		byBettor:  make(map[types.AccountID]*Bet),
	}
}

// bet returns the bettor's bet in this round, or nil.
func (r *Round) bet(bettor types.AccountID) *Bet {
	return r.byBettor[bettor]
}

// acceptsBetsAt reports whether the betting window is open at now.
// The boundary instant itself is inside the window.
func (r *Round) acceptsBetsAt(now time.Time, bettingPeriod time.Duration) bool {
	return !now.After(r.StartTime.Add(bettingPeriod))
}

// pool returns the total staked on both sides. Totals are individually
// overflow-checked on the way in, but their sum can still exceed uint64;
// callers needing exact arithmetic go through big.Int in settlement.
func (r *Round) pool() uint64 {
	if r.TotalUp > ^uint64(0)-r.TotalDown {
		return ^uint64(0)
	}
	return r.TotalUp + r.TotalDown
}

// fullyRedeemed reports whether every bet with a payout has been redeemed.
// Zero-result bets are latched redeemed by settlement, so after a complete
// sweep this is true for the whole list.
func (r *Round) fullyRedeemed() bool {
	for _, b := range r.Bets {
		if !b.Redeemed {
			return false
		}
	}
	return true
}

// snapshot returns a deep copy safe to hand outside the engine lock.
func (r *Round) snapshot() *Round {
	out := *r
	out.byBettor = nil
	out.Bets = make([]*Bet, len(r.Bets))
	for i, b := range r.Bets {
		copied := *b
		out.Bets[i] = &copied
	}
	return &out
}
