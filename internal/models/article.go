package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ArticleStatus is the editorial state of an article.
type ArticleStatus string

const (
	ArticleDraftStatus ArticleStatus = "DRAFT"
	ArticlePublished   ArticleStatus = "PUBLISHED"
)

// Article is written content, optionally citing the market snapshot that
// existed when it was created.
type Article struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Slug        string `bson:"slug" json:"slug"`
	Headline    string `bson:"headline" json:"headline"`
	Subheadline string `bson:"subheadline,omitempty" json:"subheadline,omitempty"`
	Excerpt     string `bson:"excerpt,omitempty" json:"excerpt,omitempty"`
	Content     string `bson:"content" json:"content"` // markdown
	Category    string `bson:"category" json:"category"`

	MarketID string `bson:"market_id,omitempty" json:"market_id,omitempty"`

	// Market probability at the moment the article was created.
	ProbabilityAtGeneration int `bson:"probability_at_generation,omitempty" json:"probability_at_generation,omitempty"`

	Status      ArticleStatus `bson:"status" json:"status"`
	AIGenerated bool          `bson:"ai_generated" json:"ai_generated"`

	PublishedAt *time.Time `bson:"published_at,omitempty" json:"published_at,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// SlugFromHeadline derives a URL-safe slug from a headline.
func SlugFromHeadline(headline string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(headline) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > 60 {
		slug = strings.TrimRight(slug[:60], "-")
	}
	return slug
}
