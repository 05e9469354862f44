package polymarket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/predictedpress/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawMarket(id string) RawMarket {
	return RawMarket{
		ID:            id,
		Question:      "Will the Fed cut rates in March?",
		Slug:          "fed-cut-march",
		OutcomePrices: json.RawMessage(`["0.72", "0.28"]`),
		VolumeNum:     2_500_000,
		LiquidityNum:  80_000,
		EndDate:       "2026-03-31T00:00:00Z",
	}
}

func TestNormalize(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	markets := Normalize([]RawMarket{rawMarket("m1")}, now)
	require.Len(t, markets, 1)

	m := markets[0]
	assert.Equal(t, "m1", m.MarketID)
	assert.Equal(t, "Will the Fed cut rates in March?", m.Title)
	assert.Equal(t, "fed-cut-march", m.Slug)
	assert.Equal(t, models.CategoryEconomics, m.Category)
	assert.Equal(t, 72, m.Probability)
	assert.Equal(t, 2_500_000.0, m.Volume)
	assert.Equal(t, 80_000.0, m.Liquidity)
	assert.Equal(t, models.SourcePolymarket, m.Source)
	assert.Equal(t, now, m.LastSyncedAt)
	require.NotNil(t, m.EndDate)
	assert.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), m.EndDate.UTC())
}

func TestNormalizeSkipsRecordsWithoutID(t *testing.T) {
	raws := []RawMarket{rawMarket(""), rawMarket("m1")}
	markets := Normalize(raws, time.Now())
	require.Len(t, markets, 1)
	assert.Equal(t, "m1", markets[0].MarketID)
}

func TestNormalizeDedupesLastWins(t *testing.T) {
	first := rawMarket("m1")
	second := rawMarket("m1")
	second.OutcomePrices = json.RawMessage(`["0.55", "0.45"]`)

	markets := Normalize([]RawMarket{first, second, rawMarket("m2")}, time.Now())
	require.Len(t, markets, 2)
	assert.Equal(t, "m1", markets[0].MarketID)
	assert.Equal(t, 55, markets[0].Probability)
	assert.Equal(t, "m2", markets[1].MarketID)
}

func TestNormalizeMalformedPricesKeepsRecord(t *testing.T) {
	raw := rawMarket("m1")
	raw.OutcomePrices = json.RawMessage(`"not json at all`)

	markets := Normalize([]RawMarket{raw}, time.Now())
	require.Len(t, markets, 1)
	assert.Equal(t, DefaultProbability, markets[0].Probability)
}

func TestNormalizeFallbacks(t *testing.T) {
	raw := RawMarket{
		ID:            "m9",
		Title:         "Fallback title field",
		OutcomePrices: json.RawMessage(`["0.5"]`),
	}

	markets := Normalize([]RawMarket{raw}, time.Now())
	require.Len(t, markets, 1)
	assert.Equal(t, "Fallback title field", markets[0].Title)
	assert.Equal(t, "m9", markets[0].Slug, "slug falls back to the id")
	assert.Equal(t, 0.0, markets[0].Volume)
	assert.Nil(t, markets[0].EndDate)
}

func TestParseProbability(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   int
		wantOK bool
	}{
		{"plain array", `["0.72", "0.28"]`, 72, true},
		{"string-encoded array", `"[\"0.65\", \"0.35\"]"`, 65, true},
		{"rounds to nearest point", `["0.666"]`, 67, true},
		{"clamps above one", `["1.5"]`, 100, true},
		{"clamps below zero", `["-0.1"]`, 0, true},
		{"empty array", `[]`, 0, false},
		{"empty string", `""`, 0, false},
		{"non-numeric element", `["yes", "no"]`, 0, false},
		{"missing field", ``, 0, false},
		{"garbage", `{{`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseProbability(json.RawMessage(tt.raw))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		num  float64
		want float64
	}{
		{"numeric field wins", `"123.45"`, 999, 999},
		{"decimal string", `"2500000.5"`, 0, 2500000.5},
		{"plain number", `1500000`, 0, 1500000},
		{"missing", ``, 0, 0},
		{"empty string", `""`, 0, 0},
		{"malformed", `"abc"`, 0, 0},
		{"negative becomes zero", `"-5"`, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCurrency(json.RawMessage(tt.raw), tt.num))
		})
	}
}

func TestJSONStringArray(t *testing.T) {
	var arr JSONStringArray
	require.NoError(t, json.Unmarshal([]byte(`["a", "b"]`), &arr))
	assert.Equal(t, JSONStringArray{"a", "b"}, arr)

	arr = nil
	require.NoError(t, json.Unmarshal([]byte(`"[\"a\"]"`), &arr))
	assert.Equal(t, JSONStringArray{"a"}, arr)

	arr = nil
	require.NoError(t, json.Unmarshal([]byte(`""`), &arr))
	assert.Empty(t, arr)

	assert.Error(t, json.Unmarshal([]byte(`42`), &arr))
}
