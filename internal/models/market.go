package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SourcePolymarket is the only feed source currently mirrored.
const SourcePolymarket = "polymarket"

// Market is a mirrored snapshot of one external prediction market.
// Descriptive fields (title, slug, category, end date) are written once on
// first sighting; numeric fields are refreshed on every sync.
type Market struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"-"`

	// External identifier, stable across syncs.
	MarketID string `bson:"market_id" json:"id"`

	Title    string `bson:"title" json:"title"`
	Slug     string `bson:"slug" json:"slug"`
	Category string `bson:"category" json:"category"`

	// Implied probability of the first outcome, integer percent 0-100.
	Probability int `bson:"probability" json:"probability"`

	Volume    float64 `bson:"volume" json:"volume"`
	Liquidity float64 `bson:"liquidity" json:"liquidity"`

	EndDate *time.Time `bson:"end_date,omitempty" json:"end_date,omitempty"`
	Source  string     `bson:"source" json:"source"`

	FirstSyncedAt time.Time `bson:"first_synced_at" json:"first_synced_at"`
	LastSyncedAt  time.Time `bson:"last_synced_at" json:"last_synced_at"`
}

// PricePoint is one immutable timestamped observation of a market's
// probability and volume. Points are append-only and pruned after the
// retention window.
type PricePoint struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"-"`

	MarketID    string    `bson:"market_id" json:"market_id"`
	Probability int       `bson:"probability" json:"probability"`
	Volume      float64   `bson:"volume" json:"volume"`
	CapturedAt  time.Time `bson:"captured_at" json:"captured_at"`

	// BucketStart is set only when time-bucket deduplication is enabled;
	// it holds CapturedAt truncated to the configured bucket size.
	BucketStart *time.Time `bson:"bucket_start,omitempty" json:"-"`
}
