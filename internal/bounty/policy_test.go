package bounty

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/predictedpress/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeReward(t *testing.T) {
	tests := []struct {
		name        string
		volume      float64
		priceChange int
		wantBase    int
		wantBonus   int
	}{
		{"small market small move", 500_000, 5, 250, 75},
		{"tier 1M", 2_000_000, 5, 500, 150},
		{"tier 5M", 6_000_000, 12, 960, 288},
		{"tier 10M", 12_000_000, 2, 880, 264},
		{"no movement keeps base", 500_000, 0, 200, 60},
		{"boundary exactly 1M", 1_000_000, 0, 400, 120},
		{"boundary exactly 10M", 10_000_000, 0, 800, 240},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeReward(tt.volume, tt.priceChange)
			assert.Equal(t, tt.wantBase, got.Base)
			assert.Equal(t, tt.wantBonus, got.BonusPool)
		})
	}
}

func TestComputeRewardMonotonic(t *testing.T) {
	volumes := []float64{0, 500_000, 1_000_000, 5_000_000, 10_000_000, 50_000_000}
	changes := []int{0, 3, 5, 7, 10, 20}

	prev := -1
	for _, v := range volumes {
		r := ComputeReward(v, 5)
		require.GreaterOrEqual(t, r.Base, prev, "reward must not decrease with volume")
		prev = r.Base
	}

	prev = -1
	for _, c := range changes {
		r := ComputeReward(2_000_000, c)
		require.GreaterOrEqual(t, r.Base, prev, "reward must not decrease with movement")
		prev = r.Base
	}
}

func TestComputeRewardBonusIsThirtyPercent(t *testing.T) {
	for _, v := range []float64{0, 1_000_000, 7_500_000, 20_000_000} {
		for _, c := range []int{0, 5, 11, 25} {
			r := ComputeReward(v, c)
			want := int(float64(r.Base)*0.3 + 0.5)
			assert.Equal(t, want, r.BonusPool, "volume=%v change=%d", v, c)
		}
	}
}

func TestComputeDeadline(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(48*time.Hour), ComputeDeadline(now, 10))
	assert.Equal(t, now.Add(48*time.Hour), ComputeDeadline(now, 15))
	assert.Equal(t, now.Add(120*time.Hour), ComputeDeadline(now, 9))
	assert.Equal(t, now.Add(120*time.Hour), ComputeDeadline(now, 0))
}

func TestComputePriority(t *testing.T) {
	tests := []struct {
		name        string
		volume      float64
		priceChange int
		want        models.BountyPriority
	}{
		{"premium outranks urgent", 12_000_000, 15, models.PriorityPremium},
		{"premium on tiny move", 10_000_000, 2, models.PriorityPremium},
		{"urgent", 500_000, 10, models.PriorityUrgent},
		{"trending", 500_000, 7, models.PriorityTrending},
		{"normal", 500_000, 6, models.PriorityNormal},
		{"normal zero", 0, 0, models.PriorityNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputePriority(tt.volume, tt.priceChange))
		})
	}
}

func TestBuildRequirements(t *testing.T) {
	t.Run("baseline", func(t *testing.T) {
		reqs := BuildRequirements(500_000, models.CategoryGeneral)
		assert.Equal(t, []string{
			"800-1500 words",
			"Cite at least 2 external sources",
			"Include bull and bear cases",
		}, reqs)
	})

	t.Run("high volume adds liquidity analysis", func(t *testing.T) {
		reqs := BuildRequirements(2_000_000, models.CategoryGeneral)
		assert.Contains(t, reqs, "Include volume/liquidity analysis")
	})

	t.Run("exactly 1M is not high volume", func(t *testing.T) {
		reqs := BuildRequirements(1_000_000, models.CategoryGeneral)
		assert.NotContains(t, reqs, "Include volume/liquidity analysis")
	})

	t.Run("category requirements", func(t *testing.T) {
		assert.Contains(t, BuildRequirements(0, models.CategoryPolitics), "Reference polling data or precedents")
		assert.Contains(t, BuildRequirements(0, models.CategoryEconomics), "Include relevant economic indicators")
		assert.Contains(t, BuildRequirements(0, models.CategoryTechnology), "Technical background explanation")
		assert.Contains(t, BuildRequirements(0, models.CategoryGeopolitics), "Include international-relations context")
	})

	t.Run("closing requirements always last", func(t *testing.T) {
		reqs := BuildRequirements(5_000_000, models.CategoryPolitics)
		require.GreaterOrEqual(t, len(reqs), 2)
		assert.Equal(t, "Cite at least 2 external sources", reqs[len(reqs)-2])
		assert.Equal(t, "Include bull and bear cases", reqs[len(reqs)-1])
	})
}

func TestHeadline(t *testing.T) {
	m := &models.Market{Title: "Fed cuts rates in March?", Probability: 72}
	assert.Equal(t, "72% Chance: Fed cuts rates in March?", Headline(m))
}

type fakeBountyStore struct {
	created []*models.Bounty
	exists  bool
	err     error
}

func (f *fakeBountyStore) CreateIfNoneActive(ctx context.Context, b *models.Bounty) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.exists {
		return false, nil
	}
	f.created = append(f.created, b)
	return true, nil
}

func testMarket() *models.Market {
	return &models.Market{
		MarketID:    "0x123",
		Title:       "Will the bill pass?",
		Category:    models.CategoryPolitics,
		Probability: 64,
		Volume:      6_000_000,
	}
}

func TestEngineMint(t *testing.T) {
	store := &fakeBountyStore{}
	engine := NewEngine(store)
	engine.now = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}

	b, err := engine.Mint(context.Background(), testMarket(), 12)
	require.NoError(t, err)
	require.NotNil(t, b)
	require.Len(t, store.created, 1)

	assert.Equal(t, "64% Chance: Will the bill pass?", b.Headline)
	assert.Equal(t, "Market moved 12 points - analysis needed.", b.Description)
	assert.Equal(t, "0x123", b.MarketID)
	assert.Equal(t, models.CategoryPolitics, b.Category)
	assert.Equal(t, 960, b.BaseReward)
	assert.Equal(t, 288, b.BonusPool)
	assert.Equal(t, models.BountyOpen, b.Status)
	assert.Equal(t, models.PriorityUrgent, b.Priority)
	assert.Equal(t, engine.now().Add(48*time.Hour), b.Deadline)
}

func TestEngineMintSkipsWhenActiveExists(t *testing.T) {
	store := &fakeBountyStore{exists: true}
	engine := NewEngine(store)

	b, err := engine.Mint(context.Background(), testMarket(), 12)
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.Empty(t, store.created)
}

func TestEngineMintPropagatesStoreError(t *testing.T) {
	store := &fakeBountyStore{err: errors.New("connection reset")}
	engine := NewEngine(store)

	b, err := engine.Mint(context.Background(), testMarket(), 12)
	assert.Error(t, err)
	assert.Nil(t, b)
}
