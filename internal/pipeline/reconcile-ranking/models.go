package reconcileranking

import "poi-recommender/internal/models"

type Input struct {
	// ModelText is the raw generative-model response. May be empty when the
	// model call failed or timed out; the fallback path handles that.
	ModelText    string
	Query        string
	Candidates   []models.Place
	UserLocation models.Location
	Context      models.UserContext
	Preferences  models.UserPreferences
}

type Output struct {
	Ranked     []models.RankedPlace
	Confidence float64
	Reasoning  string
	// Degraded is true when the deterministic fallback produced the ranking.
	Degraded bool
}

// rankedEntry is the expected wire shape of one model ranking entry.
type rankedEntry struct {
	ID                string   `json:"id"`
	RelevanceScore    float64  `json:"relevanceScore"`
	Reasoning         string   `json:"reasoning"`
	Tags              []string `json:"tags"`
	EstimatedBusyness string   `json:"estimatedBusyness"`
}

// modelEnvelope is the object form the model usually returns. A bare JSON
// array of entries is also accepted.
type modelEnvelope struct {
	RankedPlaces []rankedEntry `json:"rankedPlaces"`
}
