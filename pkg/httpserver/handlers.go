package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/ravenmarkets/raven-engine/internal/engine"
	"github.com/ravenmarkets/raven-engine/internal/market"
	"github.com/ravenmarkets/raven-engine/pkg/types"
	"go.uber.org/zap"
)

// accountHeader carries the caller identity. The ledger substrate is assumed
// to authenticate callers; over plain HTTP this header stands in for the
// transaction signer.
const accountHeader = "X-Raven-Account"

// Handler serves the engine API.
type Handler struct {
	engine *engine.Engine
	logger *zap.Logger
}

// NewHandler creates the API handler.
func NewHandler(eng *engine.Engine, logger *zap.Logger) *Handler {
	return &Handler{engine: eng, logger: logger}
}

func caller(r *http.Request) types.AccountID {
	return types.AccountID(r.Header.Get(accountHeader))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// writeError maps the engine error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrAuthorization):
		status = http.StatusForbidden
	case errors.Is(err, types.ErrState):
		status = http.StatusConflict
	case errors.Is(err, types.ErrOracle):
		status = http.StatusBadGateway
	case errors.Is(err, types.ErrTransfer):
		status = http.StatusPaymentRequired
	}

	writeJSON(w, status, errorResponse{
		Error:     err.Error(),
		Retryable: types.Retryable(err),
	})
}

type placeBetRequest struct {
	MarketID   string `json:"market_id"`
	RoundIndex uint64 `json:"round_index"`
	Direction  string `json:"direction"`
	Amount     uint64 `json:"amount"`
}

type betResponse struct {
	BetID      string `json:"bet_id"`
	MarketID   string `json:"market_id"`
	RoundIndex uint64 `json:"round_index"`
	Direction  string `json:"direction"`
	Amount     uint64 `json:"amount"`
}

// HandlePlaceBet accepts a wager on the current round.
func (h *Handler) HandlePlaceBet(w http.ResponseWriter, r *http.Request) {
	var req placeBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Join(types.ErrValidation, err))
		return
	}

	dir, err := types.ParseDirection(req.Direction)
	if err != nil {
		writeError(w, err)
		return
	}

	bet, err := h.engine.PlaceBet(r.Context(), caller(r), req.MarketID, req.RoundIndex, dir, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, betResponse{
		BetID:      bet.ID,
		MarketID:   req.MarketID,
		RoundIndex: req.RoundIndex,
		Direction:  bet.Direction.String(),
		Amount:     bet.Amount,
	})
}

type processRoundRequest struct {
	MarketID      string `json:"market_id"`
	RoundIndex    uint64 `json:"round_index"`
	FeedID        string `json:"feed_id"`
	MaxAgeSeconds int64  `json:"max_age_seconds"`
	MaxConfidence uint64 `json:"max_confidence"`
}

// HandleProcessRound runs the permissionless price-lock/settle crank once.
func (h *Handler) HandleProcessRound(w http.ResponseWriter, r *http.Request) {
	var req processRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Join(types.ErrValidation, err))
		return
	}

	res, err := h.engine.ProcessRound(r.Context(), caller(r), req.MarketID, req.RoundIndex,
		req.FeedID, time.Duration(req.MaxAgeSeconds)*time.Second, req.MaxConfidence)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

type redeemBatchRequest struct {
	MarketID   string   `json:"market_id"`
	RoundIndex uint64   `json:"round_index"`
	Bettors    []string `json:"bettors"`
}

// HandleRedeemBatch sweeps payouts for the listed bettors.
func (h *Handler) HandleRedeemBatch(w http.ResponseWriter, r *http.Request) {
	var req redeemBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Join(types.ErrValidation, err))
		return
	}

	bettors := make([]types.AccountID, len(req.Bettors))
	for i, b := range req.Bettors {
		bettors[i] = types.AccountID(b)
	}

	res, err := h.engine.RedeemBatch(r.Context(), req.MarketID, req.RoundIndex, bettors)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

type closeRoundRequest struct {
	MarketID   string `json:"market_id"`
	RoundIndex uint64 `json:"round_index"`
}

// HandleCloseRound reclaims a fully redeemed round.
func (h *Handler) HandleCloseRound(w http.ResponseWriter, r *http.Request) {
	var req closeRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Join(types.ErrValidation, err))
		return
	}

	err := h.engine.CloseRound(caller(r), req.MarketID, req.RoundIndex)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

type createMarketRequest struct {
	ID                    string `json:"id"`
	Symbol                string `json:"symbol"`
	FeeRateBps            uint64 `json:"fee_rate_bps"`
	BettingPeriodSeconds  int64  `json:"betting_period_seconds"`
	SettlingPeriodSeconds int64  `json:"settling_period_seconds"`
}

// HandleCreateMarket creates a market against a whitelisted feed.
func (h *Handler) HandleCreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Join(types.ErrValidation, err))
		return
	}

	mk, err := h.engine.CreateMarket(r.Context(), caller(r), &market.CreateArgs{
		ID:             req.ID,
		Symbol:         req.Symbol,
		FeeRateBps:     req.FeeRateBps,
		BettingPeriod:  time.Duration(req.BettingPeriodSeconds) * time.Second,
		SettlingPeriod: time.Duration(req.SettlingPeriodSeconds) * time.Second,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, marketView(mk))
}

// HandleListMarkets returns every market config.
func (h *Handler) HandleListMarkets(w http.ResponseWriter, r *http.Request) {
	markets := h.engine.Catalog().Markets()
	out := make([]map[string]interface{}, len(markets))
	for i, mk := range markets {
		out[i] = marketView(mk)
	}
	writeJSON(w, http.StatusOK, out)
}

func marketView(mk *market.Config) map[string]interface{} {
	return map[string]interface{}{
		"id":                      mk.ID,
		"symbol":                  mk.Symbol,
		"feed_id":                 mk.FeedID,
		"creation_time":           mk.CreationTime,
		"paused":                  mk.Paused,
		"fee_rate_bps":            mk.FeeRateBps,
		"min_bet":                 mk.MinBet,
		"betting_period_seconds":  int64(mk.BettingPeriod / time.Second),
		"settling_period_seconds": int64(mk.SettlingPeriod / time.Second),
		"creator":                 string(mk.Creator),
		"current_round":           mk.CurrentRound,
	}
}

// HandlePauseMarket pauses bet acceptance.
func (h *Handler) HandlePauseMarket(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")
	if err := h.engine.Catalog().Pause(caller(r), marketID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

// HandleResumeMarket resumes bet acceptance.
func (h *Handler) HandleResumeMarket(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")
	if err := h.engine.Catalog().Resume(caller(r), marketID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

// HandleGetRound returns a round snapshot.
func (h *Handler) HandleGetRound(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")
	index, err := strconv.ParseUint(chi.URLParam(r, "roundIndex"), 10, 64)
	if err != nil {
		writeError(w, errors.Join(types.ErrValidation, err))
		return
	}

	round, err := h.engine.GetRound(marketID, index)
	if err != nil {
		writeError(w, err)
		return
	}

	bets := make([]map[string]interface{}, len(round.Bets))
	for i, bet := range round.Bets {
		bets[i] = map[string]interface{}{
			"bettor":    string(bet.Bettor),
			"direction": bet.Direction.String(),
			"amount":    bet.Amount,
			"result":    bet.Result,
			"redeemed":  bet.Redeemed,
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"market_id":       round.MarketID,
		"round_index":     round.Index,
		"start_time":      round.StartTime,
		"end_time":        round.EndTime,
		"start_price":     round.StartPrice,
		"end_price":       round.EndPrice,
		"start_price_set": round.StartPriceSet,
		"end_price_set":   round.EndPriceSet,
		"total_up":        round.TotalUp,
		"total_down":      round.TotalDown,
		"settled":         round.Settled,
		"bets":            bets,
	})
}

type addFeedRequest struct {
	Symbol                   string `json:"symbol"`
	FeedID                   string `json:"feed_id"`
	CreateMarketFee          uint64 `json:"create_market_fee"`
	MinBet                   uint64 `json:"min_bet"`
	MinBettingPeriodSeconds  int64  `json:"min_betting_period_seconds"`
	MaxBettingPeriodSeconds  int64  `json:"max_betting_period_seconds"`
	MinSettlingPeriodSeconds int64  `json:"min_settling_period_seconds"`
	MaxSettlingPeriodSeconds int64  `json:"max_settling_period_seconds"`
}

// HandleAddFeed whitelists a price feed. Admin only.
func (h *Handler) HandleAddFeed(w http.ResponseWriter, r *http.Request) {
	var req addFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Join(types.ErrValidation, err))
		return
	}

	err := h.engine.Catalog().AddPriceFeed(caller(r), &market.PriceFeedConfig{
		Symbol:            req.Symbol,
		FeedID:            req.FeedID,
		CreateMarketFee:   req.CreateMarketFee,
		MinBet:            req.MinBet,
		MinBettingPeriod:  time.Duration(req.MinBettingPeriodSeconds) * time.Second,
		MaxBettingPeriod:  time.Duration(req.MaxBettingPeriodSeconds) * time.Second,
		MinSettlingPeriod: time.Duration(req.MinSettlingPeriodSeconds) * time.Second,
		MaxSettlingPeriod: time.Duration(req.MaxSettlingPeriodSeconds) * time.Second,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

// HandleRemoveFeed removes a feed from the whitelist. Admin only.
func (h *Handler) HandleRemoveFeed(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	if err := h.engine.Catalog().RemovePriceFeed(caller(r), symbol); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// HandleListFeeds returns the feed whitelist.
func (h *Handler) HandleListFeeds(w http.ResponseWriter, r *http.Request) {
	feeds := h.engine.Catalog().Feeds()
	out := make([]map[string]interface{}, len(feeds))
	for i, feed := range feeds {
		out[i] = map[string]interface{}{
			"symbol":                      feed.Symbol,
			"feed_id":                     feed.FeedID,
			"create_market_fee":           feed.CreateMarketFee,
			"min_bet":                     feed.MinBet,
			"min_betting_period_seconds":  int64(feed.MinBettingPeriod / time.Second),
			"max_betting_period_seconds":  int64(feed.MaxBettingPeriod / time.Second),
			"min_settling_period_seconds": int64(feed.MinSettlingPeriod / time.Second),
			"max_settling_period_seconds": int64(feed.MaxSettlingPeriod / time.Second),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type incentivesRequest struct {
	StartPercent uint64 `json:"start_percent"`
	EndPercent   uint64 `json:"end_percent"`
}

// HandleSetIncentives updates the latch incentives. Admin only.
func (h *Handler) HandleSetIncentives(w http.ResponseWriter, r *http.Request) {
	var req incentivesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Join(types.ErrValidation, err))
		return
	}

	err := h.engine.Catalog().SetSettleIncentives(caller(r), req.StartPercent, req.EndPercent)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// HandleStatus reports engine-level state useful for operators.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	startPct, endPct := h.engine.Catalog().SettleIncentives()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"escrow_surplus":          h.engine.EscrowSurplus(),
		"markets":                 len(h.engine.Catalog().Markets()),
		"start_incentive_percent": startPct,
		"end_incentive_percent":   endPct,
	})
}
