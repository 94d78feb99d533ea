package recommend

import "poi-recommender/internal/models"

// Request is one recommendation request as received from the API surface.
type Request struct {
	UserID       string             `json:"userId"`
	Query        string             `json:"query"`
	Center       models.Location    `json:"center"`
	RadiusMeters float64            `json:"radiusMeters"`
	Limit        int                `json:"limit"`
	Context      models.UserContext `json:"context"`
}

// Metadata summarizes how the response was produced.
type Metadata struct {
	Total      int     `json:"total"`
	Ranked     int     `json:"ranked"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	SearchID   string  `json:"searchId"`
	Degraded   bool    `json:"degraded"`
}

// Response is the assembled recommendation payload.
type Response struct {
	Places      []models.RankedPlace `json:"places"`
	Metadata    Metadata             `json:"metadata"`
	UserContext models.UserContext   `json:"userContext"`
	Suggestions []string             `json:"suggestions,omitempty"`
}

// state tracks a request through the pipeline for logging.
type state string

const (
	stateReceived          state = "RECEIVED"
	stateValidated         state = "VALIDATED"
	stateCandidatesFetched state = "CANDIDATES_FETCHED"
	stateRanked            state = "RANKED"
	stateActionsGenerated  state = "ACTIONS_GENERATED"
	stateResponded         state = "RESPONDED"
	stateFailed            state = "FAILED"
)
