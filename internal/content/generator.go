// Package content attaches AI article drafts to open bounties. Drafts are
// a best-effort starting point for writers, never a precondition for the
// bounty itself.
package content

import (
	"context"
	"fmt"
	"time"

	"github.com/predictedpress/backend/internal/llm"
	"github.com/predictedpress/backend/internal/models"
	"github.com/predictedpress/backend/internal/polymarket"
	"github.com/predictedpress/backend/internal/storage"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultBatchSize bounds how many drafts one backfill pass generates,
// to keep API spend predictable.
const DefaultBatchSize = 5

// historyWindow is how far back the draft's price history section looks.
const historyWindow = 30 * 24 * time.Hour

// Generator creates drafts for bounties that lack one.
type Generator struct {
	store *storage.Store
	feed  *polymarket.Client
	llm   *llm.Client
}

// NewGenerator creates a draft generator. llm may be nil when no API key is
// configured; generation is then skipped.
func NewGenerator(store *storage.Store, feed *polymarket.Client, llmClient *llm.Client) *Generator {
	return &Generator{store: store, feed: feed, llm: llmClient}
}

// BackfillDrafts generates drafts for up to batchSize open bounties that
// have none. Per-bounty failures are logged and skipped.
func (g *Generator) BackfillDrafts(ctx context.Context, batchSize int) (int, error) {
	if g.llm == nil {
		log.Debug().Msg("Draft generator disabled, no LLM configured")
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	bounties, err := g.store.FindBountiesNeedingDrafts(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find bounties needing drafts: %w", err)
	}

	log.Info().Int("count", len(bounties)).Msg("Bounties needing drafts")

	generated := 0
	for i := range bounties {
		if err := g.GenerateForBounty(ctx, &bounties[i]); err != nil {
			log.Error().Err(err).
				Str("headline", bounties[i].Headline).
				Msg("Failed to generate draft")
			continue
		}
		generated++
	}
	return generated, nil
}

// GenerateForBounty writes one draft from fresh market data and stores it
// on the bounty.
func (g *Generator) GenerateForBounty(ctx context.Context, b *models.Bounty) error {
	if g.llm == nil {
		return fmt.Errorf("no LLM configured")
	}

	input, err := g.buildInput(ctx, b)
	if err != nil {
		return err
	}

	draft, err := g.llm.GenerateDraft(ctx, *input)
	if err != nil {
		return err
	}

	if err := g.store.SetBountyDraft(ctx, b.ID, draft); err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}

	log.Info().
		Str("headline", b.Headline).
		Int("reading_time", draft.ReadingTime).
		Msg("Draft generated")
	return nil
}

// GenerateByID generates a draft for a single bounty on demand.
func (g *Generator) GenerateByID(ctx context.Context, id primitive.ObjectID) error {
	b, err := g.store.GetBountyByID(ctx, id)
	if err != nil {
		return fmt.Errorf("bounty not found: %w", err)
	}
	return g.GenerateForBounty(ctx, b)
}

func (g *Generator) buildInput(ctx context.Context, b *models.Bounty) (*llm.DraftInput, error) {
	market, err := g.store.GetMarketByID(ctx, b.MarketID)
	if err != nil {
		return nil, fmt.Errorf("market %s not found: %w", b.MarketID, err)
	}

	// Prefer fresh feed data when reachable; the stored snapshot is a
	// fine fallback for the draft.
	if g.feed != nil {
		if raw, err := g.feed.GetMarket(ctx, b.MarketID); err == nil {
			fresh := polymarket.Normalize([]polymarket.RawMarket{*raw}, time.Now())
			if len(fresh) == 1 {
				fresh[0].Category = market.Category
				market = &fresh[0]
			}
		} else {
			log.Warn().Err(err).
				Str("market_id", b.MarketID).
				Msg("Fresh market fetch failed, using stored snapshot")
		}
	}

	history, err := g.store.GetPricePoints(ctx, b.MarketID, historyWindow)
	if err != nil {
		log.Warn().Err(err).Msg("Price history unavailable for draft")
		history = nil
	}

	endDate := ""
	if market.EndDate != nil {
		endDate = market.EndDate.Format("January 2, 2006")
	}

	return &llm.DraftInput{
		Title:       market.Title,
		Probability: market.Probability,
		Volume:      market.Volume,
		Category:    market.Category,
		EndDate:     endDate,
		History:     history,
	}, nil
}
