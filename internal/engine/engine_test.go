package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ravenmarkets/raven-engine/internal/ledger"
	"github.com/ravenmarkets/raven-engine/internal/market"
	"github.com/ravenmarkets/raven-engine/pkg/types"
	"go.uber.org/zap"
)

const (
	testAdmin   = types.AccountID("admin")
	testEscrow  = types.AccountID("escrow-vault")
	testCreator = types.AccountID("carol")
	testFeedID  = "0xbtcusd"
	testMarket  = "btc-updown"
)

var testBase = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeOracle struct {
	price int64
	conf  uint64
	at    time.Time
	err   error
	calls int
}

func (f *fakeOracle) GetPrice(ctx context.Context, feedID string) (*types.OraclePrice, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &types.OraclePrice{
		FeedID:      feedID,
		Price:       f.price,
		Confidence:  f.conf,
		Exponent:    -8,
		PublishedAt: f.at,
	}, nil
}

type fixture struct {
	t      *testing.T
	eng    *Engine
	led    *ledger.Memory
	cat    *market.Catalog
	oracle *fakeOracle
	clock  time.Time
}

// newFixture builds an engine with one market on a 10m betting / 10m settling
// cycle created at testBase, so round 1 runs [base+10m, base+20m] and its
// betting window closes at base+20m.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	cat, err := market.NewCatalog(&market.CatalogConfig{
		Admin:             testAdmin,
		CreatorFeePercent: 40,
		Logger:            logger,
	})
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}

	err = cat.AddPriceFeed(testAdmin, &market.PriceFeedConfig{
		Symbol:            "BTC/USD",
		FeedID:            testFeedID,
		CreateMarketFee:   50,
		MinBet:            10,
		MinBettingPeriod:  time.Minute,
		MaxBettingPeriod:  time.Hour,
		MinSettlingPeriod: time.Minute,
		MaxSettlingPeriod: time.Hour,
	})
	if err != nil {
		t.Fatalf("add feed: %v", err)
	}

	led := ledger.NewMemory(testEscrow, logger)
	oracle := &fakeOracle{price: 100, conf: 5, at: testBase}

	eng, err := New(&Config{
		Catalog:      cat,
		UserLedger:   led,
		EscrowLedger: led.EscrowSigner(),
		Balances:     led,
		Escrow:       testEscrow,
		Oracle:       oracle,
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	f := &fixture{t: t, eng: eng, led: led, cat: cat, oracle: oracle, clock: testBase}
	eng.SetClock(func() time.Time { return f.clock })

	f.fund(testCreator, 50)
	_, err = eng.CreateMarket(context.Background(), testCreator, &market.CreateArgs{
		ID:             testMarket,
		Symbol:         "BTC/USD",
		FeeRateBps:     500,
		BettingPeriod:  10 * time.Minute,
		SettlingPeriod: 10 * time.Minute,
	})
	if err != nil {
		t.Fatalf("create market: %v", err)
	}

	return f
}

func (f *fixture) fund(account types.AccountID, amount uint64) {
	f.t.Helper()
	if err := f.led.Mint(account, amount); err != nil {
		f.t.Fatalf("mint %s: %v", account, err)
	}
}

func (f *fixture) bet(bettor types.AccountID, dir types.Direction, amount uint64) error {
	_, err := f.eng.PlaceBet(context.Background(), bettor, testMarket, 1, dir, amount)
	return err
}

func (f *fixture) process(caller types.AccountID) (*ProcessResult, error) {
	f.oracle.at = f.clock
	return f.eng.ProcessRound(context.Background(), caller, testMarket, 1, testFeedID, 0, 1000)
}

func TestCreateMarket(t *testing.T) {
	f := newFixture(t)

	// The fixture already created one market and charged the 50 creation fee.
	if got := f.led.Balance(testAdmin); got != 50 {
		t.Errorf("admin balance after creation fee = %d, want 50", got)
	}
	if got := f.led.Balance(testCreator); got != 0 {
		t.Errorf("creator balance after creation fee = %d, want 0", got)
	}

	mk, err := f.cat.Lookup(testMarket)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if mk.CurrentRound != 1 {
		t.Errorf("current round = %d, want 1", mk.CurrentRound)
	}
	if mk.MinBet != 10 {
		t.Errorf("min bet inherited from feed = %d, want 10", mk.MinBet)
	}
	if mk.FeedID != testFeedID {
		t.Errorf("feed id = %s, want %s", mk.FeedID, testFeedID)
	}

	round, err := f.eng.GetRound(testMarket, 1)
	if err != nil {
		t.Fatalf("get round: %v", err)
	}
	if !round.StartTime.Equal(testBase.Add(10 * time.Minute)) {
		t.Errorf("round 1 start = %v, want %v", round.StartTime, testBase.Add(10*time.Minute))
	}
	if !round.EndTime.Equal(testBase.Add(20 * time.Minute)) {
		t.Errorf("round 1 end = %v, want %v", round.EndTime, testBase.Add(20*time.Minute))
	}
}

func TestCreateMarket_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fund(testCreator, 1000)

	tests := []struct {
		name    string
		args    *market.CreateArgs
		wantErr error
	}{
		{
			name: "duplicate_id",
			args: &market.CreateArgs{
				ID: testMarket, Symbol: "BTC/USD", FeeRateBps: 500,
				BettingPeriod: 10 * time.Minute, SettlingPeriod: 10 * time.Minute,
			},
			wantErr: types.ErrMarketExists,
		},
		{
			name: "fee_rate_above_denominator",
			args: &market.CreateArgs{
				ID: "m2", Symbol: "BTC/USD", FeeRateBps: market.FeeDenominator + 1,
				BettingPeriod: 10 * time.Minute, SettlingPeriod: 10 * time.Minute,
			},
			wantErr: types.ErrInvalidFeeRate,
		},
		{
			name: "betting_period_below_feed_minimum",
			args: &market.CreateArgs{
				ID: "m3", Symbol: "BTC/USD", FeeRateBps: 500,
				BettingPeriod: time.Second, SettlingPeriod: 10 * time.Minute,
			},
			wantErr: types.ErrInvalidPeriod,
		},
		{
			name: "unknown_feed_symbol",
			args: &market.CreateArgs{
				ID: "m4", Symbol: "DOGE/USD", FeeRateBps: 500,
				BettingPeriod: 10 * time.Minute, SettlingPeriod: 10 * time.Minute,
			},
			wantErr: types.ErrFeedNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.eng.CreateMarket(ctx, testCreator, tt.args)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateMarket() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlaceBet_Rejections(t *testing.T) {
	f := newFixture(t)
	f.fund("alice", 10_000)

	tests := []struct {
		name    string
		setup   func()
		bettor  types.AccountID
		market  string
		round   uint64
		dir     types.Direction
		amount  uint64
		wantErr error
	}{
		{
			name: "zero_amount", bettor: "alice", market: testMarket, round: 1,
			dir: types.DirectionUp, amount: 0, wantErr: types.ErrValidation,
		},
		{
			name: "invalid_direction", bettor: "alice", market: testMarket, round: 1,
			dir: types.Direction(9), amount: 100, wantErr: types.ErrValidation,
		},
		{
			name: "missing_bettor", bettor: "", market: testMarket, round: 1,
			dir: types.DirectionUp, amount: 100, wantErr: types.ErrValidation,
		},
		{
			name: "unknown_market", bettor: "alice", market: "nope", round: 1,
			dir: types.DirectionUp, amount: 100, wantErr: types.ErrMarketNotFound,
		},
		{
			name: "unknown_round", bettor: "alice", market: testMarket, round: 7,
			dir: types.DirectionUp, amount: 100, wantErr: types.ErrRoundNotFound,
		},
		{
			name: "below_min_bet", bettor: "alice", market: testMarket, round: 1,
			dir: types.DirectionUp, amount: 9, wantErr: types.ErrAmountTooSmall,
		},
		{
			name:   "paused_market",
			setup:  func() { _ = f.cat.Pause(testAdmin, testMarket) },
			bettor: "alice", market: testMarket, round: 1,
			dir: types.DirectionUp, amount: 100, wantErr: types.ErrMarketPaused,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			_, err := f.eng.PlaceBet(context.Background(), tt.bettor, tt.market, tt.round, tt.dir, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("PlaceBet() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlaceBet_WindowBoundary(t *testing.T) {
	f := newFixture(t)
	f.fund("alice", 1000)

	// The window closes at start_time + betting_period inclusive.
	f.clock = testBase.Add(20 * time.Minute)
	if err := f.bet("alice", types.DirectionUp, 100); err != nil {
		t.Fatalf("bet at window boundary rejected: %v", err)
	}

	f.clock = f.clock.Add(time.Second)
	err := f.bet("alice", types.DirectionUp, 100)
	if !errors.Is(err, types.ErrBettingWindowClosed) {
		t.Errorf("bet after window error = %v, want %v", err, types.ErrBettingWindowClosed)
	}
}

func TestPlaceBet_SameDirectionAccumulates(t *testing.T) {
	f := newFixture(t)
	f.fund("alice", 1000)

	if err := f.bet("alice", types.DirectionUp, 300); err != nil {
		t.Fatalf("first bet: %v", err)
	}
	if err := f.bet("alice", types.DirectionUp, 200); err != nil {
		t.Fatalf("second bet: %v", err)
	}

	round, err := f.eng.GetRound(testMarket, 1)
	if err != nil {
		t.Fatalf("get round: %v", err)
	}
	if len(round.Bets) != 1 {
		t.Fatalf("bets = %d, want 1 accumulated position", len(round.Bets))
	}
	if round.Bets[0].Amount != 500 {
		t.Errorf("accumulated amount = %d, want 500", round.Bets[0].Amount)
	}
	if round.TotalUp != 500 || round.TotalDown != 0 {
		t.Errorf("pools = %d/%d, want 500/0", round.TotalUp, round.TotalDown)
	}
}

func TestPlaceBet_OppositeDirectionRejected(t *testing.T) {
	f := newFixture(t)
	f.fund("alice", 1000)

	if err := f.bet("alice", types.DirectionUp, 300); err != nil {
		t.Fatalf("first bet: %v", err)
	}

	err := f.bet("alice", types.DirectionDown, 200)
	if !errors.Is(err, types.ErrValidation) {
		t.Errorf("opposite-side bet error = %v, want %v", err, types.ErrValidation)
	}

	// The failed bet must leave no trace.
	round, _ := f.eng.GetRound(testMarket, 1)
	if round.TotalDown != 0 {
		t.Errorf("total down after rejected bet = %d, want 0", round.TotalDown)
	}
	if got := f.led.Balance("alice"); got != 700 {
		t.Errorf("alice balance = %d, want 700", got)
	}
}

func TestPlaceBet_InsufficientFundsLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	f.fund("alice", 50)

	err := f.bet("alice", types.DirectionUp, 100)
	if !errors.Is(err, types.ErrInsufficientFunds) {
		t.Fatalf("error = %v, want %v", err, types.ErrInsufficientFunds)
	}

	round, _ := f.eng.GetRound(testMarket, 1)
	if len(round.Bets) != 0 || round.TotalUp != 0 {
		t.Errorf("failed bet left state: bets=%d totalUp=%d", len(round.Bets), round.TotalUp)
	}
	if got := f.led.Balance(testEscrow); got != 0 {
		t.Errorf("escrow balance = %d, want 0", got)
	}
}

func TestRedeemBatch_RequiresSettledRound(t *testing.T) {
	f := newFixture(t)
	f.fund("alice", 1000)
	if err := f.bet("alice", types.DirectionUp, 100); err != nil {
		t.Fatalf("bet: %v", err)
	}

	_, err := f.eng.RedeemBatch(context.Background(), testMarket, 1, []types.AccountID{"alice"})
	if !errors.Is(err, types.ErrRoundNotSettled) {
		t.Errorf("error = %v, want %v", err, types.ErrRoundNotSettled)
	}
}

func TestCloseRound(t *testing.T) {
	f := newFixture(t)
	f.fund("alice", 1000)
	f.fund("bob", 1000)
	if err := f.bet("alice", types.DirectionUp, 100); err != nil {
		t.Fatalf("bet: %v", err)
	}
	if err := f.bet("bob", types.DirectionDown, 100); err != nil {
		t.Fatalf("bet: %v", err)
	}

	// Not settled yet.
	err := f.eng.CloseRound(testCreator, testMarket, 1)
	if !errors.Is(err, types.ErrRoundNotSettled) {
		t.Fatalf("close before settle error = %v, want %v", err, types.ErrRoundNotSettled)
	}

	// Settle: up wins.
	f.clock = testBase.Add(10 * time.Minute)
	f.oracle.price = 100
	if _, err := f.process(testAdmin); err != nil {
		t.Fatalf("process start: %v", err)
	}
	f.clock = testBase.Add(20 * time.Minute)
	f.oracle.price = 110
	if _, err := f.process(testAdmin); err != nil {
		t.Fatalf("process end: %v", err)
	}

	// Winner has not redeemed yet.
	err = f.eng.CloseRound(testCreator, testMarket, 1)
	if !errors.Is(err, types.ErrRoundNotRedeemed) {
		t.Fatalf("close before redeem error = %v, want %v", err, types.ErrRoundNotRedeemed)
	}

	if _, err := f.eng.RedeemBatch(context.Background(), testMarket, 1, []types.AccountID{"alice"}); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	// Only the creator may reclaim.
	err = f.eng.CloseRound(testAdmin, testMarket, 1)
	if !errors.Is(err, types.ErrUnauthorized) {
		t.Fatalf("close by admin error = %v, want %v", err, types.ErrUnauthorized)
	}

	if err := f.eng.CloseRound(testCreator, testMarket, 1); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, err = f.eng.GetRound(testMarket, 1)
	if !errors.Is(err, types.ErrRoundNotFound) {
		t.Errorf("round after close error = %v, want %v", err, types.ErrRoundNotFound)
	}
}
