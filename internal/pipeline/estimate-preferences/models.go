package estimatepreferences

import "poi-recommender/internal/models"

// Input carries a user's feedback batch plus the place records the feedback
// refers to, keyed by place id. Places missing from the map simply do not
// contribute price or distance signal.
type Input struct {
	History []models.FeedbackItem
	Places  map[string]models.Place
}

// preferenceEnvelope is the wire shape the model is asked to produce. Pointer
// fields are repaired to defaults individually when absent or invalid.
type preferenceEnvelope struct {
	Categories  []string `json:"categories"`
	PriceRange  *[2]int  `json:"priceRange"`
	MaxDistance *float64 `json:"maxDistance"`
	Hours       *[2]int  `json:"preferredHours"`
}
