// Package polymarket provides the market feed adapter for Polymarket's
// public Gamma API.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const (
	// GammaAPIBase is the public market discovery API.
	GammaAPIBase = "https://gamma-api.polymarket.com"

	defaultTimeout = 30 * time.Second
)

// Client fetches market data from the Gamma API.
type Client struct {
	http *resty.Client
}

// NewClient creates a Gamma API client with a bounded request timeout and
// retries. A stalled feed call fails the batch instead of hanging the run.
func NewClient() *Client {
	return NewClientWithBase(GammaAPIBase)
}

// NewClientWithBase creates a client against a specific base URL.
func NewClientWithBase(base string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(base).
			SetTimeout(defaultTimeout).
			SetRetryCount(2).
			SetRetryWaitTime(1 * time.Second),
	}
}

// JSONStringArray handles fields the feed serves either as a JSON array or
// as a JSON-encoded string containing an array.
type JSONStringArray []string

func (j *JSONStringArray) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*j = arr
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	if str == "" {
		*j = []string{}
		return nil
	}

	if err := json.Unmarshal([]byte(str), &arr); err != nil {
		return err
	}
	*j = arr
	return nil
}

// RawMarket is one market object as the Gamma API returns it.
type RawMarket struct {
	ID            string          `json:"id"`
	Question      string          `json:"question"`
	Title         string          `json:"title"`
	Slug          string          `json:"slug"`
	Description   string          `json:"description"`
	OutcomePrices json.RawMessage `json:"outcomePrices"`
	Volume        json.RawMessage `json:"volume"`
	VolumeNum     float64         `json:"volumeNum"`
	Liquidity     json.RawMessage `json:"liquidity"`
	LiquidityNum  float64         `json:"liquidityNum"`
	EndDate       string          `json:"endDate"`
	Category      string          `json:"category"`
	Active        bool            `json:"active"`
	Closed        bool            `json:"closed"`
}

// GetActiveMarkets retrieves up to limit active, open markets ordered by
// volume descending.
func (c *Client) GetActiveMarkets(ctx context.Context, limit int) ([]RawMarket, error) {
	params := url.Values{}
	params.Set("active", "true")
	params.Set("closed", "false")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("order", "volume")
	params.Set("ascending", "false")

	log.Debug().
		Str("endpoint", "/markets").
		Int("limit", limit).
		Msg("Fetching markets from Gamma API")

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get("/markets")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch markets: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("markets API returned %d: %s", resp.StatusCode(), resp.String())
	}

	var markets []RawMarket
	if err := json.Unmarshal(resp.Body(), &markets); err != nil {
		return nil, fmt.Errorf("failed to parse markets: %w", err)
	}

	log.Debug().Int("count", len(markets)).Msg("Fetched markets")
	return markets, nil
}

// GetMarket retrieves a single market by ID.
func (c *Client) GetMarket(ctx context.Context, marketID string) (*RawMarket, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/markets/" + marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("market API returned %d: %s", resp.StatusCode(), resp.String())
	}

	var market RawMarket
	if err := json.Unmarshal(resp.Body(), &market); err != nil {
		return nil, fmt.Errorf("failed to parse market: %w", err)
	}
	return &market, nil
}
