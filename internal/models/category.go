// Package models defines the core data structures for Predicted Press.
package models

import "strings"

// Market categories. CategoryGeneral is the catch-all assigned when no
// keyword rule matches.
const (
	CategoryPolitics    = "Politics"
	CategoryTechnology  = "Technology"
	CategoryEconomics   = "Economics"
	CategoryGeopolitics = "Geopolitics"
	CategorySports      = "Sports"
	CategoryCulture     = "Culture"
	CategoryGeneral     = "General"
)

// Categories lists every assignable category in display order.
var Categories = []string{
	CategoryPolitics,
	CategoryTechnology,
	CategoryEconomics,
	CategoryGeopolitics,
	CategorySports,
	CategoryCulture,
	CategoryGeneral,
}

// CategoryRule maps a set of keywords to one category. Rules are evaluated
// in order; the first rule with a matching keyword wins.
type CategoryRule struct {
	Category string
	Keywords []string
}

// CategoryRules is the ordered keyword table used by ClassifyCategory.
// Politics outranks Technology, Technology outranks Economics, and so on.
var CategoryRules = []CategoryRule{
	{CategoryPolitics, []string{
		"trump", "biden", "election", "president", "congress", "senate",
		"governor", "white house", "republican", "democrat", "ballot",
		"primary", "nominee", "impeach", "legislation",
	}},
	{CategoryTechnology, []string{
		"ai", "artificial intelligence", "openai", "chatgpt", "google",
		"apple", "microsoft", "meta", "tesla", "nvidia", "spacex",
		"semiconductor", "software", "startup",
	}},
	{CategoryEconomics, []string{
		"fed", "federal reserve", "interest rate", "inflation", "gdp",
		"recession", "unemployment", "cpi", "treasury", "bitcoin", "crypto",
		"ethereum", "stock", "nasdaq", "s&p",
	}},
	{CategoryGeopolitics, []string{
		"war", "ukraine", "china", "russia", "nato", "taiwan", "iran",
		"israel", "ceasefire", "sanctions", "military",
	}},
	{CategorySports, []string{
		"nba", "nfl", "mlb", "nhl", "championship", "super bowl",
		"world cup", "world series", "playoffs", "olympics",
	}},
	{CategoryCulture, []string{
		"oscar", "grammy", "emmy", "movie", "album", "celebrity",
		"box office", "netflix", "streaming",
	}},
}

// ClassifyCategory maps market text to one category via ordered keyword
// matching. Single-word keywords match whole words only, so "ukraine" does
// not trigger the "ai" rule. It is a pure function of its input.
func ClassifyCategory(title, description string) string {
	text := strings.ToLower(title + " " + description)
	words := wordSet(text)

	for _, rule := range CategoryRules {
		for _, kw := range rule.Keywords {
			if strings.ContainsRune(kw, ' ') {
				if strings.Contains(text, kw) {
					return rule.Category
				}
			} else if words[kw] {
				return rule.Category
			}
		}
	}

	return CategoryGeneral
}

func wordSet(text string) map[string]bool {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '&')
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// ValidCategory reports whether s is a known category.
func ValidCategory(s string) bool {
	for _, c := range Categories {
		if c == s {
			return true
		}
	}
	return false
}
