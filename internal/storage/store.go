// Package storage provides MongoDB persistence for Predicted Press.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/predictedpress/backend/internal/models"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotClaimable is returned when a bounty claim races a status change.
var ErrNotClaimable = errors.New("bounty is not open")

// Store provides access to all MongoDB collections.
type Store struct {
	client      *mongo.Client
	db          *mongo.Database
	markets     *mongo.Collection
	pricePoints *mongo.Collection
	bounties    *mongo.Collection
	articles    *mongo.Collection
}

// NewStore connects to MongoDB and prepares collections and indexes.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	log.Info().Str("db", dbName).Msg("Connected to MongoDB")

	store := &Store{
		client:      client,
		db:          db,
		markets:     db.Collection("markets"),
		pricePoints: db.Collection("price_points"),
		bounties:    db.Collection("bounties"),
		articles:    db.Collection("articles"),
	}

	if err := store.createIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create some indexes")
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) createIndexes(ctx context.Context) error {
	marketIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "market_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "volume", Value: -1}}},
	}
	if _, err := s.markets.Indexes().CreateMany(ctx, marketIndexes); err != nil {
		return err
	}

	pricePointIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "market_id", Value: 1}, {Key: "captured_at", Value: -1}}},
		{Keys: bson.D{{Key: "captured_at", Value: -1}}},
	}
	if _, err := s.pricePoints.Indexes().CreateMany(ctx, pricePointIndexes); err != nil {
		return err
	}

	bountyIndexes := []mongo.IndexModel{
		// Backs the one-active-bounty-per-market rule: without a unique
		// index, two concurrent upserts can both miss the filter and both
		// insert. The partial filter limits uniqueness to active statuses
		// so completed or expired bounties do not block a new one.
		{
			Keys: bson.D{{Key: "market_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": bson.M{"$in": activeStatuses()}}),
		},
		{Keys: bson.D{{Key: "market_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "deadline", Value: 1}}},
		{Keys: bson.D{{Key: "base_reward", Value: -1}}},
	}
	if _, err := s.bounties.Indexes().CreateMany(ctx, bountyIndexes); err != nil {
		return err
	}

	articleIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "published_at", Value: -1}}},
	}
	_, err := s.articles.Indexes().CreateMany(ctx, articleIndexes)
	return err
}

// ============================================================================
// MARKET OPERATIONS
// ============================================================================

// UpsertMarket merges one fetched market snapshot. Descriptive fields are
// first-write-wins; numeric fields are refreshed on every sync.
func (s *Store) UpsertMarket(ctx context.Context, m *models.Market) error {
	filter := bson.M{"market_id": m.MarketID}

	setOnInsert := bson.M{
		"title":           m.Title,
		"slug":            m.Slug,
		"category":        m.Category,
		"source":          m.Source,
		"first_synced_at": m.LastSyncedAt,
	}
	if m.EndDate != nil {
		setOnInsert["end_date"] = m.EndDate
	}

	update := bson.M{
		"$set": bson.M{
			"probability":    m.Probability,
			"volume":         m.Volume,
			"liquidity":      m.Liquidity,
			"last_synced_at": m.LastSyncedAt,
		},
		"$setOnInsert": setOnInsert,
	}

	_, err := s.markets.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// GetMarketProbability reads the stored probability for a market. The
// second return value is false when the market has never been seen.
func (s *Store) GetMarketProbability(ctx context.Context, marketID string) (int, bool, error) {
	var doc struct {
		Probability int `bson:"probability"`
	}
	opts := options.FindOne().SetProjection(bson.M{"probability": 1})
	err := s.markets.FindOne(ctx, bson.M{"market_id": marketID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return doc.Probability, true, nil
}

// GetMarketByID returns a market by its external identifier.
func (s *Store) GetMarketByID(ctx context.Context, marketID string) (*models.Market, error) {
	var m models.Market
	if err := s.markets.FindOne(ctx, bson.M{"market_id": marketID}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// MarketFilter selects and orders market listings.
type MarketFilter struct {
	Category string
	Sort     string // "volume" (default) or "probability"
	Limit    int
	Offset   int
}

// ListMarkets returns markets for the listing API.
func (s *Store) ListMarkets(ctx context.Context, f MarketFilter) ([]models.Market, error) {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}

	sort := bson.D{{Key: "volume", Value: -1}}
	if f.Sort == "probability" {
		sort = bson.D{{Key: "probability", Value: -1}}
	}

	opts := options.Find().
		SetSort(sort).
		SetLimit(int64(f.Limit)).
		SetSkip(int64(f.Offset))

	cursor, err := s.markets.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var markets []models.Market
	if err := cursor.All(ctx, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

// ============================================================================
// PRICE POINT OPERATIONS
// ============================================================================

// AppendPricePoint records one observation. With bucket == 0 every call
// inserts a new point. A positive bucket dedupes overlapping runs: only the
// first observation per (market, bucket) window is kept.
func (s *Store) AppendPricePoint(ctx context.Context, p *models.PricePoint, bucket time.Duration) error {
	if bucket <= 0 {
		_, err := s.pricePoints.InsertOne(ctx, p)
		return err
	}

	start := p.CapturedAt.Truncate(bucket)
	p.BucketStart = &start

	filter := bson.M{"market_id": p.MarketID, "bucket_start": start}
	update := bson.M{"$setOnInsert": bson.M{
		"probability": p.Probability,
		"volume":      p.Volume,
		"captured_at": p.CapturedAt,
	}}
	_, err := s.pricePoints.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// GetPricePoints returns the history for a market within the window.
func (s *Store) GetPricePoints(ctx context.Context, marketID string, since time.Duration) ([]models.PricePoint, error) {
	filter := bson.M{
		"market_id":   marketID,
		"captured_at": bson.M{"$gte": time.Now().Add(-since)},
	}
	opts := options.Find().SetSort(bson.D{{Key: "captured_at", Value: 1}})

	cursor, err := s.pricePoints.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var points []models.PricePoint
	if err := cursor.All(ctx, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// DeletePricePointsBefore removes observations older than cutoff and
// returns the number removed.
func (s *Store) DeletePricePointsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.pricePoints.DeleteMany(ctx, bson.M{"captured_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// ============================================================================
// BOUNTY OPERATIONS
// ============================================================================

func activeStatuses() bson.A {
	a := make(bson.A, 0, len(models.ActiveBountyStatuses))
	for _, s := range models.ActiveBountyStatuses {
		a = append(a, s)
	}
	return a
}

// CreateIfNoneActive inserts the bounty only if no bounty in an active
// status exists for the same market. The check and insert are one upsert,
// and the partial unique index on market_id closes the window where two
// concurrent upserts both miss the filter: the loser's insert fails with a
// duplicate key, which reads as "already exists". Returns true when the
// bounty was inserted.
func (s *Store) CreateIfNoneActive(ctx context.Context, b *models.Bounty) (bool, error) {
	filter := bson.M{
		"market_id": b.MarketID,
		"status":    bson.M{"$in": activeStatuses()},
	}

	// market_id comes from the filter equality on insert; listing it again
	// under $setOnInsert would conflict.
	doc := bson.M{
		"headline":     b.Headline,
		"description":  b.Description,
		"category":     b.Category,
		"base_reward":  b.BaseReward,
		"bonus_pool":   b.BonusPool,
		"requirements": b.Requirements,
		"status":       b.Status,
		"priority":     b.Priority,
		"deadline":     b.Deadline,
		"created_at":   b.CreatedAt,
	}

	result, err := s.bounties.UpdateOne(ctx, filter,
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if result.UpsertedCount == 0 {
		return false, nil
	}
	if id, ok := result.UpsertedID.(primitive.ObjectID); ok {
		b.ID = id
	}
	return true, nil
}

// GetBountyByID returns a bounty by its identifier.
func (s *Store) GetBountyByID(ctx context.Context, id primitive.ObjectID) (*models.Bounty, error) {
	var b models.Bounty
	if err := s.bounties.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

// BountyFilter selects and orders bounty listings.
type BountyFilter struct {
	Status   models.BountyStatus // empty means all
	Category string
	Sort     string // "reward" (default), "deadline", "recent"
	Limit    int
}

// ListBounties returns bounties for the listing API.
func (s *Store) ListBounties(ctx context.Context, f BountyFilter) ([]models.Bounty, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}

	sort := bson.D{{Key: "base_reward", Value: -1}}
	switch f.Sort {
	case "deadline":
		sort = bson.D{{Key: "deadline", Value: 1}}
	case "recent":
		sort = bson.D{{Key: "created_at", Value: -1}}
	}

	opts := options.Find().SetSort(sort).SetLimit(int64(f.Limit))
	cursor, err := s.bounties.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var bounties []models.Bounty
	if err := cursor.All(ctx, &bounties); err != nil {
		return nil, err
	}
	return bounties, nil
}

// ClaimBounty transitions OPEN -> CLAIMED. The status check and the write
// are one compare-and-set, so a bounty is claimed at most once. Returns
// ErrNotClaimable when the bounty is missing or no longer open.
func (s *Store) ClaimBounty(ctx context.Context, id primitive.ObjectID, authorID string) (*models.Bounty, error) {
	now := time.Now()
	filter := bson.M{"_id": id, "status": models.BountyOpen}
	update := bson.M{"$set": bson.M{
		"status":        models.BountyClaimed,
		"claimed_by_id": authorID,
		"claimed_at":    now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var b models.Bounty
	err := s.bounties.FindOneAndUpdate(ctx, filter, update, opts).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotClaimable
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ExpireOverdueBounties flips OPEN bounties past their deadline to EXPIRED
// and returns how many changed.
func (s *Store) ExpireOverdueBounties(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{
		"status":   models.BountyOpen,
		"deadline": bson.M{"$lt": now},
	}
	result, err := s.bounties.UpdateMany(ctx, filter,
		bson.M{"$set": bson.M{"status": models.BountyExpired}})
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// FindBountiesNeedingDrafts returns open bounties without an AI draft.
func (s *Store) FindBountiesNeedingDrafts(ctx context.Context, limit int) ([]models.Bounty, error) {
	filter := bson.M{
		"status":   models.BountyOpen,
		"ai_draft": bson.M{"$exists": false},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.bounties.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var bounties []models.Bounty
	if err := cursor.All(ctx, &bounties); err != nil {
		return nil, err
	}
	return bounties, nil
}

// SetBountyDraft attaches a generated draft to a bounty.
func (s *Store) SetBountyDraft(ctx context.Context, id primitive.ObjectID, draft *models.ArticleDraft) error {
	update := bson.M{"$set": bson.M{
		"ai_draft":            draft,
		"ai_draft_created_at": time.Now(),
	}}
	_, err := s.bounties.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// ============================================================================
// ARTICLE OPERATIONS
// ============================================================================

// CreateArticle saves a new article.
func (s *Store) CreateArticle(ctx context.Context, a *models.Article) error {
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Status == models.ArticlePublished && a.PublishedAt == nil {
		a.PublishedAt = &now
	}
	_, err := s.articles.InsertOne(ctx, a)
	return err
}

// GetArticleBySlug returns an article by its slug.
func (s *Store) GetArticleBySlug(ctx context.Context, slug string) (*models.Article, error) {
	var a models.Article
	if err := s.articles.FindOne(ctx, bson.M{"slug": slug}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ArticleFilter selects article listings.
type ArticleFilter struct {
	Category string
	Status   models.ArticleStatus
	Limit    int
	Offset   int
}

// ListArticles returns a page of articles plus the total match count.
func (s *Store) ListArticles(ctx context.Context, f ArticleFilter) ([]models.Article, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}

	total, err := s.articles.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "published_at", Value: -1}}).
		SetLimit(int64(f.Limit)).
		SetSkip(int64(f.Offset))

	cursor, err := s.articles.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var articles []models.Article
	if err := cursor.All(ctx, &articles); err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// ============================================================================
// STATS OPERATIONS
// ============================================================================

// Stats holds general statistics for the API.
type Stats struct {
	TotalMarkets     int64 `json:"total_markets"`
	TotalPricePoints int64 `json:"total_price_points"`
	OpenBounties     int64 `json:"open_bounties"`
	TotalArticles    int64 `json:"total_articles"`
}

// GetStats returns general statistics.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	var err error
	if stats.TotalMarkets, err = s.markets.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, err
	}
	if stats.TotalPricePoints, err = s.pricePoints.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, err
	}
	if stats.OpenBounties, err = s.bounties.CountDocuments(ctx, bson.M{"status": models.BountyOpen}); err != nil {
		return nil, err
	}
	if stats.TotalArticles, err = s.articles.CountDocuments(ctx, bson.M{"status": models.ArticlePublished}); err != nil {
		return nil, err
	}
	return stats, nil
}
