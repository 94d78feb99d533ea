// Package classifyintent maps a free-text query to a coarse intent label via
// keyword heuristics. No learning, no external calls.
package classifyintent

import "strings"

// Intent labels, first matching group wins in this priority order.
const (
	IntentDining        = "dining"
	IntentDrinks        = "drinks"
	IntentShopping      = "shopping"
	IntentEntertainment = "entertainment"
	IntentWork          = "work"
	IntentGeneral       = "general"
)

// keywordGroups holds the fixed priority-ordered keyword sets.
var keywordGroups = []struct {
	intent   string
	keywords []string
}{
	{IntentDining, []string{
		"restaurant", "food", "eat", "dinner", "lunch", "breakfast",
		"brunch", "hungry", "pizza", "burger", "sushi",
	}},
	{IntentDrinks, []string{
		"coffee", "cafe", "bar", "beer", "wine", "cocktail", "drink",
		"tea", "brewery", "pub",
	}},
	{IntentShopping, []string{
		"shop", "store", "mall", "buy", "market", "boutique", "grocery",
	}},
	{IntentEntertainment, []string{
		"movie", "cinema", "museum", "park", "concert", "theater",
		"show", "arcade", "fun",
	}},
	{IntentWork, []string{
		"work", "coworking", "office", "study", "wifi", "quiet", "meeting",
	}},
}

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Classify returns the intent label for a query. Case-insensitive substring
// matching; defaults to general when nothing matches.
func (h *Handler) Classify(query string) string {
	q := strings.ToLower(query)
	if strings.TrimSpace(q) == "" {
		return IntentGeneral
	}

	for _, group := range keywordGroups {
		for _, kw := range group.keywords {
			if strings.Contains(q, kw) {
				return group.intent
			}
		}
	}

	return IntentGeneral
}
