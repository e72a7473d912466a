package market

import (
	"fmt"
	"sync"
	"time"

	"github.com/ravenmarkets/raven-engine/pkg/types"
	"go.uber.org/zap"
)

// FeeDenominator fixes the fee-rate unit for the whole engine: fee rates are
// basis points and every fee computation divides by this value.
const FeeDenominator = 10_000

// PriceFeedConfig describes one whitelisted oracle feed and the bounds it
// imposes on markets created against it.
type PriceFeedConfig struct {
	Symbol            string
	FeedID            string
	CreateMarketFee   uint64
	MinBet            uint64
	MinBettingPeriod  time.Duration
	MaxBettingPeriod  time.Duration
	MinSettlingPeriod time.Duration
	MaxSettlingPeriod time.Duration
}

// Config is the per-market configuration record. The engine reads it on every
// operation and mutates only CurrentRound, through AdvanceRound.
type Config struct {
	ID             string
	Symbol         string
	FeedID         string
	CreationTime   time.Time
	Paused         bool
	FeeRateBps     uint64
	MinBet         uint64
	BettingPeriod  time.Duration
	SettlingPeriod time.Duration
	Creator        types.AccountID
	CurrentRound   uint64
}

// CreateArgs are the caller-supplied parameters for a new market.
type CreateArgs struct {
	ID             string
	Symbol         string
	FeeRateBps     uint64
	BettingPeriod  time.Duration
	SettlingPeriod time.Duration
}

// Catalog is the keyed market catalog plus the price-feed whitelist and the
// global protocol parameters. Lookups are O(1); the linear scans of earlier
// designs do not survive here.
type Catalog struct {
	mu                    sync.RWMutex
	admin                 types.AccountID
	creatorFeePercent     uint64
	startIncentivePercent uint64
	endIncentivePercent   uint64
	feeds                 map[string]*PriceFeedConfig
	markets               map[string]*Config
	logger                *zap.Logger
}

// CatalogConfig holds catalog bootstrap parameters.
type CatalogConfig struct {
	Admin             types.AccountID
	CreatorFeePercent uint64 // 0-100
	Logger            *zap.Logger
}

// NewCatalog bootstraps the global state record.
func NewCatalog(cfg *CatalogConfig) (*Catalog, error) {
	if cfg.Admin.Zero() {
		return nil, fmt.Errorf("%w: admin account required", types.ErrValidation)
	}
	if cfg.CreatorFeePercent > 100 {
		return nil, fmt.Errorf("%w: creator fee percent %d", types.ErrInvalidFeeRate, cfg.CreatorFeePercent)
	}

	return &Catalog{
		admin:             cfg.Admin,
		creatorFeePercent: cfg.CreatorFeePercent,
		feeds:             make(map[string]*PriceFeedConfig),
		markets:           make(map[string]*Config),
		logger:            cfg.Logger,
	}, nil
}

// Admin returns the protocol admin identity.
func (c *Catalog) Admin() types.AccountID {
	return c.admin
}

// CreatorFeePercent returns the creator share of the total fee, 0-100.
func (c *Catalog) CreatorFeePercent() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creatorFeePercent
}

// AddPriceFeed whitelists a feed. Admin only.
func (c *Catalog) AddPriceFeed(caller types.AccountID, feed *PriceFeedConfig) error {
	if err := c.Authorize(caller, nil, RoleAdmin); err != nil {
		return err
	}
	if feed.Symbol == "" || feed.FeedID == "" {
		return fmt.Errorf("%w: feed symbol and id required", types.ErrValidation)
	}
	if feed.MaxBettingPeriod < feed.MinBettingPeriod || feed.MaxSettlingPeriod < feed.MinSettlingPeriod {
		return fmt.Errorf("%w: feed %s bounds inverted", types.ErrInvalidPeriod, feed.Symbol)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.feeds[feed.Symbol]; ok {
		return fmt.Errorf("%w: %s", types.ErrFeedExists, feed.Symbol)
	}

	copied := *feed
	c.feeds[feed.Symbol] = &copied
	FeedsGauge.Set(float64(len(c.feeds)))

	c.logger.Info("price-feed-added",
		zap.String("symbol", feed.Symbol),
		zap.String("feed-id", feed.FeedID))

	return nil
}

// RemovePriceFeed removes a feed from the whitelist. Admin only. Markets
// already created against it keep running.
func (c *Catalog) RemovePriceFeed(caller types.AccountID, symbol string) error {
	if err := c.Authorize(caller, nil, RoleAdmin); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.feeds[symbol]; !ok {
		return fmt.Errorf("%w: %s", types.ErrFeedNotFound, symbol)
	}

	delete(c.feeds, symbol)
	FeedsGauge.Set(float64(len(c.feeds)))

	c.logger.Info("price-feed-removed", zap.String("symbol", symbol))

	return nil
}

// Feed returns a whitelisted feed by symbol.
func (c *Catalog) Feed(symbol string) (*PriceFeedConfig, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	feed, ok := c.feeds[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrFeedNotFound, symbol)
	}

	copied := *feed
	return &copied, nil
}

// Feeds returns the whitelist.
func (c *Catalog) Feeds() []*PriceFeedConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*PriceFeedConfig, 0, len(c.feeds))
	for _, feed := range c.feeds {
		copied := *feed
		out = append(out, &copied)
	}
	return out
}

// ValidateCreate checks CreateArgs against the whitelist and returns the
// feed the market would bind to. It does not insert; the engine charges the
// creation fee in between.
func (c *Catalog) ValidateCreate(args *CreateArgs) (*PriceFeedConfig, error) {
	if args.ID == "" {
		return nil, fmt.Errorf("%w: market id required", types.ErrValidation)
	}
	if args.FeeRateBps > FeeDenominator {
		return nil, fmt.Errorf("%w: %d bps", types.ErrInvalidFeeRate, args.FeeRateBps)
	}

	feed, err := c.Feed(args.Symbol)
	if err != nil {
		return nil, err
	}

	if args.BettingPeriod < feed.MinBettingPeriod || args.BettingPeriod > feed.MaxBettingPeriod ||
		args.SettlingPeriod < feed.MinSettlingPeriod || args.SettlingPeriod > feed.MaxSettlingPeriod {
		return nil, fmt.Errorf("%w: market %s on feed %s", types.ErrInvalidPeriod, args.ID, args.Symbol)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.markets[args.ID]; ok {
		return nil, fmt.Errorf("%w: %s", types.ErrMarketExists, args.ID)
	}

	return feed, nil
}

// Insert adds a validated market record. Round 1 bookkeeping (CurrentRound=1)
// is set here; the engine creates the matching Round.
func (c *Catalog) Insert(args *CreateArgs, feed *PriceFeedConfig, creator types.AccountID, now time.Time) (*Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.markets[args.ID]; ok {
		return nil, fmt.Errorf("%w: %s", types.ErrMarketExists, args.ID)
	}

	mk := &Config{
		ID:             args.ID,
		Symbol:         args.Symbol,
		FeedID:         feed.FeedID,
		CreationTime:   now,
		FeeRateBps:     args.FeeRateBps,
		MinBet:         feed.MinBet,
		BettingPeriod:  args.BettingPeriod,
		SettlingPeriod: args.SettlingPeriod,
		Creator:        creator,
		CurrentRound:   1,
	}
	c.markets[args.ID] = mk
	MarketsGauge.Set(float64(len(c.markets)))

	c.logger.Info("market-created",
		zap.String("market-id", mk.ID),
		zap.String("symbol", mk.Symbol),
		zap.Uint64("fee-rate-bps", mk.FeeRateBps),
		zap.String("creator", string(creator)))

	copied := *mk
	return &copied, nil
}

// Lookup returns a copy of the market config.
func (c *Catalog) Lookup(marketID string) (*Config, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	mk, ok := c.markets[marketID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrMarketNotFound, marketID)
	}

	copied := *mk
	return &copied, nil
}

// Markets returns every market config.
func (c *Catalog) Markets() []*Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Config, 0, len(c.markets))
	for _, mk := range c.markets {
		copied := *mk
		out = append(out, &copied)
	}
	return out
}

// Pause stops bet acceptance. Admin or the market creator.
func (c *Catalog) Pause(caller types.AccountID, marketID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	mk, ok := c.markets[marketID]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrMarketNotFound, marketID)
	}

	if err := c.authorizeLocked(caller, mk, RoleAdmin, RoleCreator); err != nil {
		return err
	}

	mk.Paused = true
	c.logger.Info("market-paused",
		zap.String("market-id", marketID),
		zap.String("caller", string(caller)))

	return nil
}

// Resume re-opens bet acceptance. Admin only.
func (c *Catalog) Resume(caller types.AccountID, marketID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	mk, ok := c.markets[marketID]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrMarketNotFound, marketID)
	}

	if err := c.authorizeLocked(caller, mk, RoleAdmin); err != nil {
		return err
	}

	mk.Paused = false
	c.logger.Info("market-resumed", zap.String("market-id", marketID))

	return nil
}

// AdvanceRound moves the market to the next round index and returns it.
// Called only by the settlement engine, co-located with the settled latch.
func (c *Catalog) AdvanceRound(marketID string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mk, ok := c.markets[marketID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", types.ErrMarketNotFound, marketID)
	}

	mk.CurrentRound++
	return mk.CurrentRound, nil
}

// SettleIncentives returns the start/end latch incentive percents.
func (c *Catalog) SettleIncentives() (start, end uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.startIncentivePercent, c.endIncentivePercent
}

// SetSettleIncentives updates the latch incentives. Admin only.
func (c *Catalog) SetSettleIncentives(caller types.AccountID, start, end uint64) error {
	if err := c.Authorize(caller, nil, RoleAdmin); err != nil {
		return err
	}
	if start > 100 || end > 100 {
		return fmt.Errorf("%w: incentive percent above 100", types.ErrValidation)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.startIncentivePercent = start
	c.endIncentivePercent = end

	c.logger.Info("settle-incentives-updated",
		zap.Uint64("start-percent", start),
		zap.Uint64("end-percent", end))

	return nil
}
