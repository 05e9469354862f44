// Package sync implements the market reconciliation and bounty issuance
// loop: fetch a feed batch, merge each market into storage, record history,
// and mint bounties for significant movement.
package sync

import (
	"context"
	"errors"
	"time"

	"github.com/predictedpress/backend/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrRunInProgress is returned when another sync run holds the lease.
var ErrRunInProgress = errors.New("sync run already in progress")

// Feed supplies normalized market snapshots.
type Feed interface {
	FetchMarkets(ctx context.Context, limit int) ([]models.Market, error)
}

// Store is the persistence surface the reconciler needs.
type Store interface {
	GetMarketProbability(ctx context.Context, marketID string) (int, bool, error)
	UpsertMarket(ctx context.Context, m *models.Market) error
	AppendPricePoint(ctx context.Context, p *models.PricePoint, bucket time.Duration) error
	DeletePricePointsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Minter conditionally creates a bounty for a market that moved priceChange
// points. A nil bounty with nil error means one already exists.
type Minter interface {
	Mint(ctx context.Context, m *models.Market, priceChange int) (*models.Bounty, error)
}

// Lease serializes sync runs across processes. Acquire returns a release
// function, or ErrRunInProgress when another holder has the lease.
type Lease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// Config holds reconciliation thresholds and policies.
type Config struct {
	// BatchSize is the number of markets requested from the feed.
	BatchSize int

	// MinVolume and MinChange gate bounty minting: both must be met.
	MinVolume float64
	MinChange int

	// Retention is how long price points are kept.
	Retention time.Duration

	// PricePointBucket dedupes history from overlapping runs when > 0;
	// 0 appends a point on every run.
	PricePointBucket time.Duration

	// LeaseTTL bounds how long a crashed run can block the next one.
	LeaseTTL time.Duration
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		BatchSize: 100,
		MinVolume: 100_000,
		MinChange: 5,
		Retention: 30 * 24 * time.Hour,
		LeaseTTL:  5 * time.Minute,
	}
}

// Result summarizes one reconciliation run.
type Result struct {
	Fetched        int
	Reconciled     int
	Errors         int
	BountiesMinted int
	PointsPruned   int64
}

// Reconciler runs the sync loop. It has no internal scheduler; callers
// trigger Run from a cron binary or a scheduler job.
type Reconciler struct {
	feed   Feed
	store  Store
	minter Minter
	lease  Lease // optional
	config Config
	now    func() time.Time
}

// NewReconciler creates a reconciler. lease may be nil, in which case
// overlapping runs are guarded only by the minter's conditional insert.
func NewReconciler(feed Feed, store Store, minter Minter, lease Lease, config Config) *Reconciler {
	return &Reconciler{
		feed:   feed,
		store:  store,
		minter: minter,
		lease:  lease,
		config: config,
		now:    time.Now,
	}
}

// Run executes one reconciliation batch. Feed failure yields an empty run,
// not an error; per-market failures are logged and skipped. The only error
// returned is ErrRunInProgress when another run holds the lease.
func (r *Reconciler) Run(ctx context.Context) (Result, error) {
	if r.lease != nil {
		release, err := r.lease.Acquire(ctx, "market-sync", r.config.LeaseTTL)
		if err != nil {
			if errors.Is(err, ErrRunInProgress) {
				log.Warn().Msg("Sync run skipped, lease held by another run")
				return Result{}, ErrRunInProgress
			}
			// A broken lease backend should not stop syncing; the
			// conditional bounty insert still closes the race.
			log.Warn().Err(err).Msg("Lease acquisition failed, proceeding without it")
		} else {
			defer release()
		}
	}

	var result Result

	markets, err := r.feed.FetchMarkets(ctx, r.config.BatchSize)
	if err != nil {
		log.Warn().Err(err).Msg("Feed fetch failed, run continues with zero markets")
		r.sweep(ctx, &result)
		return result, nil
	}
	result.Fetched = len(markets)

	for i := range markets {
		minted, err := r.reconcileMarket(ctx, &markets[i])
		if err != nil {
			result.Errors++
			log.Error().Err(err).
				Str("market_id", markets[i].MarketID).
				Msg("Failed to reconcile market")
			continue
		}
		result.Reconciled++
		if minted {
			result.BountiesMinted++
		}
	}

	r.sweep(ctx, &result)

	log.Info().
		Int("fetched", result.Fetched).
		Int("reconciled", result.Reconciled).
		Int("errors", result.Errors).
		Int("bounties", result.BountiesMinted).
		Int64("points_pruned", result.PointsPruned).
		Msg("Market sync complete")

	return result, nil
}

// reconcileMarket merges one market: upsert, history append, movement gate.
func (r *Reconciler) reconcileMarket(ctx context.Context, m *models.Market) (bool, error) {
	previous, found, err := r.store.GetMarketProbability(ctx, m.MarketID)
	if err != nil {
		return false, err
	}
	if !found {
		// First sighting: zero delta by definition.
		previous = m.Probability
	}

	now := r.now()
	m.LastSyncedAt = now

	if err := r.store.UpsertMarket(ctx, m); err != nil {
		return false, err
	}

	point := &models.PricePoint{
		MarketID:    m.MarketID,
		Probability: m.Probability,
		Volume:      m.Volume,
		CapturedAt:  now,
	}
	if err := r.store.AppendPricePoint(ctx, point, r.config.PricePointBucket); err != nil {
		return false, err
	}

	priceChange := m.Probability - previous
	if priceChange < 0 {
		priceChange = -priceChange
	}

	if m.Volume < r.config.MinVolume || priceChange < r.config.MinChange {
		return false, nil
	}

	// The market row and price point are already committed; a minting
	// failure must not undo them.
	b, err := r.minter.Mint(ctx, m, priceChange)
	if err != nil {
		log.Error().Err(err).
			Str("market_id", m.MarketID).
			Msg("Failed to mint bounty")
		return false, nil
	}
	return b != nil, nil
}

// sweep prunes price points past the retention window. Errors are logged
// and never fail the run.
func (r *Reconciler) sweep(ctx context.Context, result *Result) {
	cutoff := r.now().Add(-r.config.Retention)
	pruned, err := r.store.DeletePricePointsBefore(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Retention sweep failed")
		return
	}
	result.PointsPruned = pruned
	if pruned > 0 {
		log.Debug().Int64("pruned", pruned).Msg("Old price points removed")
	}
}
