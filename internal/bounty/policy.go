// Package bounty decides when market movement warrants paid coverage and
// computes the economics of the resulting work item.
package bounty

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/predictedpress/backend/internal/models"
	"github.com/rs/zerolog/log"
)

// Reward tiers by total market volume. The highest matching tier wins;
// tiers replace, they do not stack.
const (
	rewardBase   = 200
	rewardTier1M = 400
	rewardTier5M = 600
	rewardTier10 = 800
)

// Deadline windows. Fast-moving markets get the short window.
const (
	urgentDeadline = 48 * time.Hour
	normalDeadline = 120 * time.Hour
)

// Priority and deadline cutoffs in probability points.
const (
	urgentChange   = 10
	trendingChange = 7
)

// premiumVolume is the volume at which a bounty is PREMIUM regardless of
// how far the price moved.
const premiumVolume = 10_000_000

// Reward is the computed economics of one bounty.
type Reward struct {
	Base      int
	BonusPool int
}

// ComputeReward derives the payout from volume and movement. It is a pure
// function, monotonically non-decreasing in both arguments.
func ComputeReward(volume float64, priceChange int) Reward {
	base := rewardBase
	switch {
	case volume >= 10_000_000:
		base = rewardTier10
	case volume >= 5_000_000:
		base = rewardTier5M
	case volume >= 1_000_000:
		base = rewardTier1M
	}

	// +5% reward per point of movement.
	multiplier := 1 + float64(priceChange)/20
	final := int(math.Round(float64(base) * multiplier))

	return Reward{
		Base:      final,
		BonusPool: int(math.Round(float64(final) * 0.3)),
	}
}

// ComputeDeadline returns the submission deadline for a bounty minted now.
func ComputeDeadline(now time.Time, priceChange int) time.Time {
	if priceChange >= urgentChange {
		return now.Add(urgentDeadline)
	}
	return now.Add(normalDeadline)
}

// ComputePriority assigns a priority tier. Volume outranks movement:
// a 10M+ market is PREMIUM however small the move.
func ComputePriority(volume float64, priceChange int) models.BountyPriority {
	switch {
	case volume >= premiumVolume:
		return models.PriorityPremium
	case priceChange >= urgentChange:
		return models.PriorityUrgent
	case priceChange >= trendingChange:
		return models.PriorityTrending
	default:
		return models.PriorityNormal
	}
}

// BuildRequirements generates the writing constraints for a bounty from the
// market's volume and category.
func BuildRequirements(volume float64, category string) []string {
	reqs := []string{"800-1500 words"}

	if volume > 1_000_000 {
		reqs = append(reqs, "Include volume/liquidity analysis")
	}

	switch category {
	case models.CategoryPolitics:
		reqs = append(reqs, "Reference polling data or precedents")
	case models.CategoryEconomics:
		reqs = append(reqs, "Include relevant economic indicators")
	case models.CategoryTechnology:
		reqs = append(reqs, "Technical background explanation")
	case models.CategoryGeopolitics:
		reqs = append(reqs, "Include international-relations context")
	}

	reqs = append(reqs,
		"Cite at least 2 external sources",
		"Include bull and bear cases",
	)
	return reqs
}

// Headline synthesizes the bounty headline from the market snapshot.
func Headline(m *models.Market) string {
	return fmt.Sprintf("%d%% Chance: %s", m.Probability, m.Title)
}

// Store is the storage surface the engine needs. CreateIfNoneActive must be
// a single atomic conditional insert: it inserts the bounty only when no
// bounty in an active status exists for the same market, and reports whether
// the insert happened.
type Store interface {
	CreateIfNoneActive(ctx context.Context, b *models.Bounty) (bool, error)
}

// Engine mints bounties for markets that passed the movement gate.
type Engine struct {
	store Store
	now   func() time.Time
}

// NewEngine creates a policy engine.
func NewEngine(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// Mint builds and conditionally inserts a bounty for a market whose price
// moved priceChange points. A concurrent run winning the insert race is
// reported as "already exists", never as an error.
func (e *Engine) Mint(ctx context.Context, m *models.Market, priceChange int) (*models.Bounty, error) {
	now := e.now()
	reward := ComputeReward(m.Volume, priceChange)

	b := &models.Bounty{
		Headline:     Headline(m),
		Description:  fmt.Sprintf("Market moved %d points - analysis needed.", priceChange),
		MarketID:     m.MarketID,
		Category:     m.Category,
		BaseReward:   reward.Base,
		BonusPool:    reward.BonusPool,
		Requirements: BuildRequirements(m.Volume, m.Category),
		Status:       models.BountyOpen,
		Priority:     ComputePriority(m.Volume, priceChange),
		Deadline:     ComputeDeadline(now, priceChange),
		CreatedAt:    now,
	}

	created, err := e.store.CreateIfNoneActive(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to create bounty: %w", err)
	}
	if !created {
		log.Debug().
			Str("market_id", m.MarketID).
			Msg("Active bounty already exists, skipping")
		return nil, nil
	}

	log.Info().
		Str("market_id", m.MarketID).
		Str("headline", b.Headline).
		Int("base_reward", b.BaseReward).
		Int("bonus_pool", b.BonusPool).
		Str("priority", string(b.Priority)).
		Msg("Bounty created")

	return b, nil
}
