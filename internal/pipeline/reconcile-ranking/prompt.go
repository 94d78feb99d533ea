package reconcileranking

import (
	"fmt"
	"strings"

	"poi-recommender/internal/models"
)

// BuildRankingPrompt renders the deterministic ranking prompt from the
// request context and candidate set. Same input, same prompt.
func BuildRankingPrompt(input *Input) string {
	var parts []string

	parts = append(parts, "You are a local recommendation assistant. Rank the candidate places for this user.")
	parts = append(parts, fmt.Sprintf("\nUser query: %s", input.Query))
	parts = append(parts, fmt.Sprintf("Current time: %s (day %d of week)",
		input.Context.CurrentTime.Format("15:04"), input.Context.DayOfWeek))
	parts = append(parts, fmt.Sprintf("Intent: %s", input.Context.Intent))
	parts = append(parts, fmt.Sprintf("Group size: %d", input.Context.GroupSize))
	parts = append(parts, fmt.Sprintf("Urgency: %s", input.Context.Urgency))
	if input.Context.DurationMinutes != nil {
		parts = append(parts, fmt.Sprintf("Available time: %d minutes", *input.Context.DurationMinutes))
	}

	if len(input.Preferences.Categories) > 0 {
		parts = append(parts, fmt.Sprintf("Preferred categories: %s", strings.Join(input.Preferences.Categories, ", ")))
	}
	parts = append(parts, fmt.Sprintf("Price range: %d-%d, max distance: %.0fm",
		input.Preferences.PriceRange.Min, input.Preferences.PriceRange.Max, input.Preferences.MaxDistance))

	parts = append(parts, "\nCandidates:")
	for _, c := range input.Candidates {
		parts = append(parts, describeCandidate(c))
	}

	parts = append(parts, "\nReturn JSON only, in this shape:")
	parts = append(parts, `{"rankedPlaces":[{"id":"...","relevanceScore":0.0,"reasoning":"...","tags":["..."],"estimatedBusyness":"low|medium|high"}]}`)
	parts = append(parts, "Use only the candidate ids listed above. Score every candidate between 0 and 1.")

	return strings.Join(parts, "\n")
}

func describeCandidate(c models.Place) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- id=%s name=%q", c.ID, c.Name)
	if c.Location.Address != "" {
		fmt.Fprintf(&b, " address=%q", c.Location.Address)
	}
	if len(c.Categories) > 0 {
		names := make([]string, len(c.Categories))
		for i, cat := range c.Categories {
			names[i] = cat.Name
		}
		fmt.Fprintf(&b, " categories=%s", strings.Join(names, "/"))
	}
	if c.Distance != nil {
		fmt.Fprintf(&b, " distance=%.0fm", *c.Distance)
	}
	if c.Rating != nil {
		fmt.Fprintf(&b, " rating=%.1f/10", *c.Rating)
	}
	if c.Price != nil {
		fmt.Fprintf(&b, " price=%d/4", *c.Price)
	}
	if c.Hours != nil {
		if c.Hours.OpenNow {
			b.WriteString(" openNow=yes")
		} else {
			b.WriteString(" openNow=no")
		}
	}
	return b.String()
}
