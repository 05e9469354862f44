package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugFromHeadline(t *testing.T) {
	tests := []struct {
		headline string
		want     string
	}{
		{"72% Chance: Fed Cuts Rates", "72-chance-fed-cuts-rates"},
		{"Hello, World!", "hello-world"},
		{"  leading and trailing  ", "leading-and-trailing"},
		{"already-slugged", "already-slugged"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SlugFromHeadline(tt.headline), tt.headline)
	}
}

func TestSlugFromHeadlineCapsLength(t *testing.T) {
	long := strings.Repeat("word ", 30)
	slug := SlugFromHeadline(long)
	assert.LessOrEqual(t, len(slug), 60)
	assert.False(t, strings.HasSuffix(slug, "-"))
}

func TestBountyIsActive(t *testing.T) {
	for _, s := range ActiveBountyStatuses {
		assert.True(t, (&Bounty{Status: s}).IsActive(), string(s))
	}
	assert.False(t, (&Bounty{Status: BountyCompleted}).IsActive())
	assert.False(t, (&Bounty{Status: BountyExpired}).IsActive())
}
