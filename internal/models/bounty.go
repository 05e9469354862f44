package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BountyStatus tracks a bounty through the editorial workflow.
type BountyStatus string

const (
	BountyOpen       BountyStatus = "OPEN"
	BountyClaimed    BountyStatus = "CLAIMED"
	BountyInProgress BountyStatus = "IN_PROGRESS"
	BountyCompleted  BountyStatus = "COMPLETED"
	BountyExpired    BountyStatus = "EXPIRED"
)

// ActiveBountyStatuses are the statuses that count toward the
// one-active-bounty-per-market rule.
var ActiveBountyStatuses = []BountyStatus{BountyOpen, BountyClaimed, BountyInProgress}

// BountyPriority ranks how urgently a bounty should be picked up.
type BountyPriority string

const (
	PriorityNormal   BountyPriority = "NORMAL"
	PriorityTrending BountyPriority = "TRENDING"
	PriorityUrgent   BountyPriority = "URGENT"
	PriorityPremium  BountyPriority = "PREMIUM"
)

// Bounty is a unit of paid writing work, usually tied to a market that
// showed significant movement.
type Bounty struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Headline    string `bson:"headline" json:"headline"`
	Description string `bson:"description" json:"description"`
	MarketID    string `bson:"market_id,omitempty" json:"market_id,omitempty"`

	// Category is denormalized from the market at mint time so bounty
	// listings can filter without a join.
	Category string `bson:"category,omitempty" json:"category,omitempty"`

	BaseReward   int            `bson:"base_reward" json:"base_reward"`
	BonusPool    int            `bson:"bonus_pool" json:"bonus_pool"`
	Requirements []string       `bson:"requirements" json:"requirements"`
	Status       BountyStatus   `bson:"status" json:"status"`
	Priority     BountyPriority `bson:"priority" json:"priority"`
	Deadline     time.Time      `bson:"deadline" json:"deadline"`

	ClaimedByID string     `bson:"claimed_by_id,omitempty" json:"claimed_by_id,omitempty"`
	ClaimedAt   *time.Time `bson:"claimed_at,omitempty" json:"claimed_at,omitempty"`

	AIDraft          *ArticleDraft `bson:"ai_draft,omitempty" json:"ai_draft,omitempty"`
	AIDraftCreatedAt *time.Time    `bson:"ai_draft_created_at,omitempty" json:"ai_draft_created_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// IsActive reports whether the bounty counts against the one-active-bounty
// rule for its market.
func (b *Bounty) IsActive() bool {
	for _, s := range ActiveBountyStatuses {
		if b.Status == s {
			return true
		}
	}
	return false
}

// DraftSchemaVersion identifies the current ArticleDraft shape.
const DraftSchemaVersion = 1

// ArticleDraft is a machine-generated starting point for a bounty article.
// It is stored as a structured document, not a serialized string, so the
// shape can evolve behind SchemaVersion.
type ArticleDraft struct {
	SchemaVersion    int      `bson:"schema_version" json:"schema_version"`
	Headline         string   `bson:"headline" json:"headline"`
	Subheadline      string   `bson:"subheadline" json:"subheadline"`
	Excerpt          string   `bson:"excerpt" json:"excerpt"`
	Content          string   `bson:"content" json:"content"` // markdown
	KeyFactors       []string `bson:"key_factors" json:"key_factors"`
	Counterarguments []string `bson:"counterarguments" json:"counterarguments"`
	ReadingTime      int      `bson:"reading_time" json:"reading_time"` // minutes
}
