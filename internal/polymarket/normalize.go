package polymarket

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/predictedpress/backend/internal/models"
	"github.com/rs/zerolog/log"
)

// DefaultProbability is used when a market's outcome prices cannot be
// parsed. The record is kept rather than dropped.
const DefaultProbability = 50

// FetchMarkets retrieves a batch of active, open markets and normalizes
// them into the canonical shape.
func (c *Client) FetchMarkets(ctx context.Context, limit int) ([]models.Market, error) {
	raws, err := c.GetActiveMarkets(ctx, limit)
	if err != nil {
		return nil, err
	}
	return Normalize(raws, time.Now()), nil
}

// Normalize converts raw feed records into canonical markets. Records with
// no identifier are skipped; any other malformed field degrades to a default
// instead of rejecting the record. Duplicate ids are deduped last-wins.
func Normalize(raws []RawMarket, now time.Time) []models.Market {
	markets := make([]models.Market, 0, len(raws))
	index := make(map[string]int, len(raws))

	for _, raw := range raws {
		if raw.ID == "" {
			log.Warn().Msg("Skipping market record with no id")
			continue
		}

		m := normalizeOne(raw, now)
		if i, seen := index[m.MarketID]; seen {
			markets[i] = m
			continue
		}
		index[m.MarketID] = len(markets)
		markets = append(markets, m)
	}

	return markets
}

func normalizeOne(raw RawMarket, now time.Time) models.Market {
	title := raw.Question
	if title == "" {
		title = raw.Title
	}

	slug := raw.Slug
	if slug == "" {
		slug = raw.ID
	}

	probability, ok := parseProbability(raw.OutcomePrices)
	if !ok {
		log.Warn().
			Str("market_id", raw.ID).
			Msg("Unparseable outcome prices, defaulting probability")
		probability = DefaultProbability
	}

	return models.Market{
		MarketID:     raw.ID,
		Title:        title,
		Slug:         slug,
		Category:     models.ClassifyCategory(title, raw.Description),
		Probability:  probability,
		Volume:       parseCurrency(raw.Volume, raw.VolumeNum),
		Liquidity:    parseCurrency(raw.Liquidity, raw.LiquidityNum),
		EndDate:      parseEndDate(raw.EndDate),
		Source:       models.SourcePolymarket,
		LastSyncedAt: now,
	}
}

// parseProbability extracts the first outcome price and converts it to an
// integer percent.
func parseProbability(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var prices JSONStringArray
	if err := json.Unmarshal(raw, &prices); err != nil || len(prices) == 0 {
		return 0, false
	}

	price, err := strconv.ParseFloat(prices[0], 64)
	if err != nil {
		return 0, false
	}

	pct := int(math.Round(price * 100))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct, true
}

// parseCurrency reads a currency amount the feed serves either as a decimal
// string or a number. A pre-parsed numeric field takes precedence; missing
// or malformed values become 0.
func parseCurrency(raw json.RawMessage, num float64) float64 {
	if num > 0 {
		return num
	}
	if len(raw) == 0 {
		return 0
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
			return f
		}
		return 0
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil && f > 0 {
		return f
	}
	return 0
}

func parseEndDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
