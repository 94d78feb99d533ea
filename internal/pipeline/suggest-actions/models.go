package suggestactions

import "poi-recommender/internal/models"

// Input scopes a suggestion request to one place and the requesting user's
// context.
type Input struct {
	Place   models.Place
	Context models.UserContext
}

// actionEntry is the wire shape the model is asked to produce.
type actionEntry struct {
	Type         string  `json:"type"`
	Label        string  `json:"label"`
	URL          string  `json:"url"`
	Priority     float64 `json:"priority"`
	Availability string  `json:"availability"`
}
