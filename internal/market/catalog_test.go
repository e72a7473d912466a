package market

import (
	"errors"
	"testing"
	"time"

	"github.com/ravenmarkets/raven-engine/pkg/types"
	"go.uber.org/zap"
)

const (
	admin   = types.AccountID("admin")
	creator = types.AccountID("carol")
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := NewCatalog(&CatalogConfig{
		Admin:             admin,
		CreatorFeePercent: 40,
		Logger:            zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	return cat
}

func btcFeed() *PriceFeedConfig {
	return &PriceFeedConfig{
		Symbol:            "BTC/USD",
		FeedID:            "0xbtcusd",
		CreateMarketFee:   50,
		MinBet:            10,
		MinBettingPeriod:  time.Minute,
		MaxBettingPeriod:  time.Hour,
		MinSettlingPeriod: time.Minute,
		MaxSettlingPeriod: time.Hour,
	}
}

func TestNewCatalog_Validation(t *testing.T) {
	if _, err := NewCatalog(&CatalogConfig{Logger: zap.NewNop()}); !errors.Is(err, types.ErrValidation) {
		t.Errorf("missing admin error = %v, want %v", err, types.ErrValidation)
	}
	if _, err := NewCatalog(&CatalogConfig{Admin: admin, CreatorFeePercent: 101, Logger: zap.NewNop()}); !errors.Is(err, types.ErrInvalidFeeRate) {
		t.Errorf("fee percent error = %v, want %v", err, types.ErrInvalidFeeRate)
	}
}

func TestAddPriceFeed(t *testing.T) {
	cat := newTestCatalog(t)

	// Admin only.
	if err := cat.AddPriceFeed("mallory", btcFeed()); !errors.Is(err, types.ErrUnauthorized) {
		t.Errorf("non-admin error = %v, want %v", err, types.ErrUnauthorized)
	}

	if err := cat.AddPriceFeed(admin, btcFeed()); err != nil {
		t.Fatalf("add feed: %v", err)
	}
	if err := cat.AddPriceFeed(admin, btcFeed()); !errors.Is(err, types.ErrFeedExists) {
		t.Errorf("duplicate error = %v, want %v", err, types.ErrFeedExists)
	}

	inverted := btcFeed()
	inverted.Symbol = "ETH/USD"
	inverted.MinBettingPeriod = time.Hour
	inverted.MaxBettingPeriod = time.Minute
	if err := cat.AddPriceFeed(admin, inverted); !errors.Is(err, types.ErrInvalidPeriod) {
		t.Errorf("inverted bounds error = %v, want %v", err, types.ErrInvalidPeriod)
	}

	feed, err := cat.Feed("BTC/USD")
	if err != nil {
		t.Fatalf("feed lookup: %v", err)
	}
	if feed.FeedID != "0xbtcusd" || feed.MinBet != 10 {
		t.Errorf("feed = %+v", feed)
	}
}

func TestRemovePriceFeed(t *testing.T) {
	cat := newTestCatalog(t)
	if err := cat.AddPriceFeed(admin, btcFeed()); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := cat.RemovePriceFeed(creator, "BTC/USD"); !errors.Is(err, types.ErrUnauthorized) {
		t.Errorf("non-admin error = %v, want %v", err, types.ErrUnauthorized)
	}
	if err := cat.RemovePriceFeed(admin, "BTC/USD"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := cat.RemovePriceFeed(admin, "BTC/USD"); !errors.Is(err, types.ErrFeedNotFound) {
		t.Errorf("repeat remove error = %v, want %v", err, types.ErrFeedNotFound)
	}
}

func TestValidateCreateAndInsert(t *testing.T) {
	cat := newTestCatalog(t)
	if err := cat.AddPriceFeed(admin, btcFeed()); err != nil {
		t.Fatalf("add: %v", err)
	}

	args := &CreateArgs{
		ID:             "btc-1",
		Symbol:         "BTC/USD",
		FeeRateBps:     500,
		BettingPeriod:  10 * time.Minute,
		SettlingPeriod: 10 * time.Minute,
	}

	feed, err := cat.ValidateCreate(args)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mk, err := cat.Insert(args, feed, creator, now)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if mk.CurrentRound != 1 || mk.MinBet != 10 || mk.Creator != creator {
		t.Errorf("market = %+v", mk)
	}

	// Duplicate id caught both before and at insert.
	if _, err := cat.ValidateCreate(args); !errors.Is(err, types.ErrMarketExists) {
		t.Errorf("duplicate validate error = %v, want %v", err, types.ErrMarketExists)
	}
	if _, err := cat.Insert(args, feed, creator, now); !errors.Is(err, types.ErrMarketExists) {
		t.Errorf("duplicate insert error = %v, want %v", err, types.ErrMarketExists)
	}

	// Lookup returns a copy: mutating it must not touch the catalog.
	got, err := cat.Lookup("btc-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	got.Paused = true
	fresh, _ := cat.Lookup("btc-1")
	if fresh.Paused {
		t.Error("Lookup returned a shared record")
	}
}

func TestPauseResume(t *testing.T) {
	cat := newTestCatalog(t)
	if err := cat.AddPriceFeed(admin, btcFeed()); err != nil {
		t.Fatalf("add: %v", err)
	}
	args := &CreateArgs{
		ID: "btc-1", Symbol: "BTC/USD", FeeRateBps: 500,
		BettingPeriod: 10 * time.Minute, SettlingPeriod: 10 * time.Minute,
	}
	feed, _ := cat.ValidateCreate(args)
	if _, err := cat.Insert(args, feed, creator, time.Now()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Pause: admin or the creator; nobody else.
	if err := cat.Pause("mallory", "btc-1"); !errors.Is(err, types.ErrUnauthorized) {
		t.Errorf("stranger pause error = %v, want %v", err, types.ErrUnauthorized)
	}
	if err := cat.Pause(creator, "btc-1"); err != nil {
		t.Fatalf("creator pause: %v", err)
	}
	mk, _ := cat.Lookup("btc-1")
	if !mk.Paused {
		t.Error("market not paused")
	}

	// Resume: admin only, not even the creator.
	if err := cat.Resume(creator, "btc-1"); !errors.Is(err, types.ErrUnauthorized) {
		t.Errorf("creator resume error = %v, want %v", err, types.ErrUnauthorized)
	}
	if err := cat.Resume(admin, "btc-1"); err != nil {
		t.Fatalf("admin resume: %v", err)
	}
	mk, _ = cat.Lookup("btc-1")
	if mk.Paused {
		t.Error("market still paused")
	}

	if err := cat.Pause(admin, "nope"); !errors.Is(err, types.ErrMarketNotFound) {
		t.Errorf("unknown market error = %v, want %v", err, types.ErrMarketNotFound)
	}
}

func TestSettleIncentives(t *testing.T) {
	cat := newTestCatalog(t)

	start, end := cat.SettleIncentives()
	if start != 0 || end != 0 {
		t.Errorf("default incentives = %d/%d, want 0/0", start, end)
	}

	if err := cat.SetSettleIncentives(creator, 10, 5); !errors.Is(err, types.ErrUnauthorized) {
		t.Errorf("non-admin error = %v, want %v", err, types.ErrUnauthorized)
	}
	if err := cat.SetSettleIncentives(admin, 101, 5); !errors.Is(err, types.ErrValidation) {
		t.Errorf("out-of-range error = %v, want %v", err, types.ErrValidation)
	}

	if err := cat.SetSettleIncentives(admin, 10, 5); err != nil {
		t.Fatalf("set: %v", err)
	}
	start, end = cat.SettleIncentives()
	if start != 10 || end != 5 {
		t.Errorf("incentives = %d/%d, want 10/5", start, end)
	}
}

func TestAuthorize(t *testing.T) {
	cat := newTestCatalog(t)
	mk := &Config{ID: "m", Creator: creator}

	tests := []struct {
		name    string
		caller  types.AccountID
		mk      *Config
		roles   []Role
		wantErr bool
	}{
		{name: "admin_as_admin", caller: admin, roles: []Role{RoleAdmin}},
		{name: "creator_as_creator", caller: creator, mk: mk, roles: []Role{RoleCreator}},
		{name: "creator_as_admin_rejected", caller: creator, roles: []Role{RoleAdmin}, wantErr: true},
		{name: "admin_as_creator_rejected", caller: admin, mk: mk, roles: []Role{RoleCreator}, wantErr: true},
		{name: "either_role_accepts_admin", caller: admin, mk: mk, roles: []Role{RoleAdmin, RoleCreator}},
		{name: "either_role_accepts_creator", caller: creator, mk: mk, roles: []Role{RoleAdmin, RoleCreator}},
		{name: "creator_role_without_market", caller: creator, roles: []Role{RoleCreator}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cat.Authorize(tt.caller, tt.mk, tt.roles...)
			if (err != nil) != tt.wantErr {
				t.Errorf("Authorize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, types.ErrUnauthorized) {
				t.Errorf("error class = %v, want %v", err, types.ErrUnauthorized)
			}
		})
	}
}

func TestAdvanceRound(t *testing.T) {
	cat := newTestCatalog(t)
	if err := cat.AddPriceFeed(admin, btcFeed()); err != nil {
		t.Fatalf("add: %v", err)
	}
	args := &CreateArgs{
		ID: "btc-1", Symbol: "BTC/USD", FeeRateBps: 500,
		BettingPeriod: 10 * time.Minute, SettlingPeriod: 10 * time.Minute,
	}
	feed, _ := cat.ValidateCreate(args)
	if _, err := cat.Insert(args, feed, creator, time.Now()); err != nil {
		t.Fatalf("insert: %v", err)
	}

	next, err := cat.AdvanceRound("btc-1")
	if err != nil || next != 2 {
		t.Errorf("AdvanceRound() = %d, %v, want 2", next, err)
	}
	mk, _ := cat.Lookup("btc-1")
	if mk.CurrentRound != 2 {
		t.Errorf("current round = %d, want 2", mk.CurrentRound)
	}

	if _, err := cat.AdvanceRound("nope"); !errors.Is(err, types.ErrMarketNotFound) {
		t.Errorf("unknown market error = %v, want %v", err, types.ErrMarketNotFound)
	}
}
