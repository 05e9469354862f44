package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/predictedpress/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeed struct {
	markets []models.Market
	err     error
}

func (f *fakeFeed) FetchMarkets(ctx context.Context, limit int) ([]models.Market, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.markets, nil
}

type fakeStore struct {
	probabilities map[string]int
	upserts       []models.Market
	points        []models.PricePoint
	pruned        int64

	probErr   error
	upsertErr error
	pointErr  error
	pruneErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{probabilities: make(map[string]int)}
}

func (f *fakeStore) GetMarketProbability(ctx context.Context, marketID string) (int, bool, error) {
	if f.probErr != nil {
		return 0, false, f.probErr
	}
	p, ok := f.probabilities[marketID]
	return p, ok, nil
}

func (f *fakeStore) UpsertMarket(ctx context.Context, m *models.Market) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, *m)
	f.probabilities[m.MarketID] = m.Probability
	return nil
}

func (f *fakeStore) AppendPricePoint(ctx context.Context, p *models.PricePoint, bucket time.Duration) error {
	if f.pointErr != nil {
		return f.pointErr
	}
	f.points = append(f.points, *p)
	return nil
}

func (f *fakeStore) DeletePricePointsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if f.pruneErr != nil {
		return 0, f.pruneErr
	}
	return f.pruned, nil
}

type mintCall struct {
	marketID    string
	priceChange int
}

type fakeMinter struct {
	calls  []mintCall
	exists bool
	err    error
}

func (f *fakeMinter) Mint(ctx context.Context, m *models.Market, priceChange int) (*models.Bounty, error) {
	f.calls = append(f.calls, mintCall{m.MarketID, priceChange})
	if f.err != nil {
		return nil, f.err
	}
	if f.exists {
		return nil, nil
	}
	return &models.Bounty{MarketID: m.MarketID}, nil
}

type fakeLease struct {
	held     bool
	err      error
	acquired int
	released int
}

func (f *fakeLease) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if f.held {
		return nil, ErrRunInProgress
	}
	if f.err != nil {
		return nil, f.err
	}
	f.acquired++
	return func() { f.released++ }, nil
}

func market(id string, probability int, volume float64) models.Market {
	return models.Market{
		MarketID:    id,
		Title:       "Test market " + id,
		Probability: probability,
		Volume:      volume,
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BatchSize = 10
	return cfg
}

func TestRunMintsOnSignificantMove(t *testing.T) {
	store := newFakeStore()
	store.probabilities["m1"] = 60

	feed := &fakeFeed{markets: []models.Market{market("m1", 72, 500_000)}}
	minter := &fakeMinter{}

	r := NewReconciler(feed, store, minter, nil, testConfig())
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, 1, result.Reconciled)
	assert.Equal(t, 1, result.BountiesMinted)
	require.Len(t, minter.calls, 1)
	assert.Equal(t, 12, minter.calls[0].priceChange)
	require.Len(t, store.points, 1)
	assert.Equal(t, 72, store.points[0].Probability)
}

func TestRunNewMarketHasZeroDelta(t *testing.T) {
	store := newFakeStore()
	feed := &fakeFeed{markets: []models.Market{market("new", 90, 5_000_000)}}
	minter := &fakeMinter{}

	r := NewReconciler(feed, store, minter, nil, testConfig())
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Reconciled)
	assert.Empty(t, minter.calls, "first sighting must not mint")
	require.Len(t, store.upserts, 1)
	require.Len(t, store.points, 1)
}

func TestRunGateRequiresVolumeAndChange(t *testing.T) {
	tests := []struct {
		name       string
		previous   int
		current    int
		volume     float64
		wantMinted bool
	}{
		{"both met", 50, 55, 100_000, true},
		{"change below threshold", 50, 54, 100_000, false},
		{"volume below threshold", 50, 60, 99_999, false},
		{"negative move counts", 60, 50, 100_000, true},
		{"no move", 50, 50, 50_000_000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.probabilities["m1"] = tt.previous
			feed := &fakeFeed{markets: []models.Market{market("m1", tt.current, tt.volume)}}
			minter := &fakeMinter{}

			r := NewReconciler(feed, store, minter, nil, testConfig())
			_, err := r.Run(context.Background())
			require.NoError(t, err)

			if tt.wantMinted {
				assert.Len(t, minter.calls, 1)
			} else {
				assert.Empty(t, minter.calls)
			}
		})
	}
}

func TestRunSameSnapshotTwiceAppendsHistoryOnly(t *testing.T) {
	store := newFakeStore()
	feed := &fakeFeed{markets: []models.Market{market("m1", 72, 2_000_000)}}
	minter := &fakeMinter{}

	r := NewReconciler(feed, store, minter, nil, testConfig())
	_, err := r.Run(context.Background())
	require.NoError(t, err)
	_, err = r.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, store.upserts, 2)
	assert.Len(t, store.points, 2, "each run appends one point per market")
	assert.Empty(t, minter.calls, "unchanged probability must not mint")
}

func TestRunPerMarketErrorContinuesBatch(t *testing.T) {
	// First market fails at the probability lookup, second succeeds.
	failing := &failFirstStore{fakeStore: newFakeStore()}
	feed := &fakeFeed{markets: []models.Market{
		market("bad", 50, 0),
		market("good", 50, 0),
	}}

	r := NewReconciler(feed, failing, &fakeMinter{}, nil, testConfig())
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, 1, result.Reconciled)
}

type failFirstStore struct {
	*fakeStore
	calls int
}

func (f *failFirstStore) GetMarketProbability(ctx context.Context, marketID string) (int, bool, error) {
	f.calls++
	if f.calls == 1 {
		return 0, false, errors.New("lookup failed")
	}
	return f.fakeStore.GetMarketProbability(ctx, marketID)
}

func TestRunMintFailureDoesNotFailMarket(t *testing.T) {
	store := newFakeStore()
	store.probabilities["m1"] = 50
	feed := &fakeFeed{markets: []models.Market{market("m1", 65, 1_000_000)}}
	minter := &fakeMinter{err: errors.New("mongo down")}

	r := NewReconciler(feed, store, minter, nil, testConfig())
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Reconciled)
	assert.Equal(t, 0, result.Errors)
	assert.Equal(t, 0, result.BountiesMinted)
	assert.Len(t, store.points, 1, "history survives a minting failure")
}

func TestRunFeedFailureStillSweeps(t *testing.T) {
	store := newFakeStore()
	store.pruned = 7
	feed := &fakeFeed{err: errors.New("gateway timeout")}

	r := NewReconciler(feed, store, &fakeMinter{}, nil, testConfig())
	result, err := r.Run(context.Background())
	require.NoError(t, err, "feed failure is an empty run, not an error")

	assert.Equal(t, 0, result.Fetched)
	assert.Equal(t, int64(7), result.PointsPruned)
}

func TestRunSweepFailureDoesNotFailRun(t *testing.T) {
	store := newFakeStore()
	store.pruneErr = errors.New("timeout")
	feed := &fakeFeed{markets: []models.Market{market("m1", 50, 0)}}

	r := NewReconciler(feed, store, &fakeMinter{}, nil, testConfig())
	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Reconciled)
	assert.Equal(t, int64(0), result.PointsPruned)
}

func TestRunLeaseHeld(t *testing.T) {
	store := newFakeStore()
	feed := &fakeFeed{markets: []models.Market{market("m1", 50, 0)}}
	lease := &fakeLease{held: true}

	r := NewReconciler(feed, store, &fakeMinter{}, lease, testConfig())
	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Empty(t, store.upserts, "a skipped run must not touch storage")
}

func TestRunLeaseBackendFailureProceeds(t *testing.T) {
	store := newFakeStore()
	feed := &fakeFeed{markets: []models.Market{market("m1", 50, 0)}}
	lease := &fakeLease{err: errors.New("redis unreachable")}

	r := NewReconciler(feed, store, &fakeMinter{}, lease, testConfig())
	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Reconciled)
}

func TestRunReleasesLease(t *testing.T) {
	store := newFakeStore()
	feed := &fakeFeed{markets: []models.Market{market("m1", 50, 0)}}
	lease := &fakeLease{}

	r := NewReconciler(feed, store, &fakeMinter{}, lease, testConfig())
	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, lease.acquired)
	assert.Equal(t, 1, lease.released)
}
