package oracle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/ravenmarkets/raven-engine/pkg/types"
	"go.uber.org/zap"
)

// PythClient fetches prices from a Pyth Hermes endpoint.
type PythClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// PythConfig holds Pyth client configuration.
type PythConfig struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewPythClient creates a new Hermes price client.
func NewPythClient(cfg *PythConfig) *PythClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &PythClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: cfg.Logger,
	}
}

// hermesResponse mirrors the /v2/updates/price/latest parsed payload.
type hermesResponse struct {
	Parsed []struct {
		ID    string `json:"id"`
		Price struct {
			Price       string `json:"price"`
			Conf        string `json:"conf"`
			Expo        int32  `json:"expo"`
			PublishTime int64  `json:"publish_time"`
		} `json:"price"`
	} `json:"parsed"`
}

// GetPrice fetches the latest published price for a feed.
func (c *PythClient) GetPrice(ctx context.Context, feedID string) (*types.OraclePrice, error) {
	start := time.Now()
	defer func() {
		FetchDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	endpoint := fmt.Sprintf("%s/v2/updates/price/latest?ids[]=%s&parsed=true", c.baseURL, url.QueryEscape(feedID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", types.ErrOracle, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		FetchesTotal.WithLabelValues("network_error").Inc()
		return nil, fmt.Errorf("%w: fetch %s: %v", types.ErrOracle, feedID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		FetchesTotal.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%w: feed %s", types.ErrPriceNotFound, feedID)
	}
	if resp.StatusCode != http.StatusOK {
		FetchesTotal.WithLabelValues("http_error").Inc()
		return nil, fmt.Errorf("%w: feed %s: status %d", types.ErrOracle, feedID, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		FetchesTotal.WithLabelValues("read_error").Inc()
		return nil, fmt.Errorf("%w: read body: %v", types.ErrOracle, err)
	}

	var data hermesResponse
	if err := json.Unmarshal(body, &data); err != nil {
		FetchesTotal.WithLabelValues("decode_error").Inc()
		return nil, fmt.Errorf("%w: decode body: %v", types.ErrOracle, err)
	}

	if len(data.Parsed) == 0 {
		FetchesTotal.WithLabelValues("empty").Inc()
		return nil, fmt.Errorf("%w: feed %s", types.ErrPriceNotFound, feedID)
	}

	parsed := data.Parsed[0]

	price, err := strconv.ParseInt(parsed.Price.Price, 10, 64)
	if err != nil {
		FetchesTotal.WithLabelValues("decode_error").Inc()
		return nil, fmt.Errorf("%w: parse price %q: %v", types.ErrOracle, parsed.Price.Price, err)
	}

	conf, err := strconv.ParseUint(parsed.Price.Conf, 10, 64)
	if err != nil {
		FetchesTotal.WithLabelValues("decode_error").Inc()
		return nil, fmt.Errorf("%w: parse confidence %q: %v", types.ErrOracle, parsed.Price.Conf, err)
	}

	FetchesTotal.WithLabelValues("ok").Inc()

	c.logger.Debug("oracle-price-fetched",
		zap.String("feed-id", feedID),
		zap.Int64("price", price),
		zap.Uint64("confidence", conf),
		zap.Int64("publish-time", parsed.Price.PublishTime))

	return &types.OraclePrice{
		FeedID:      feedID,
		Price:       price,
		Confidence:  conf,
		Exponent:    parsed.Price.Expo,
		PublishedAt: time.Unix(parsed.Price.PublishTime, 0),
	}, nil
}
