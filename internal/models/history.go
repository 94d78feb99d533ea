package models

import "time"

// SearchHistory is the append-only log entry for a completed recommendation
// request. Indexed fire-and-forget; time-sorted per user on read.
type SearchHistory struct {
	SearchID    string      `json:"searchId"`
	UserID      string      `json:"userId"`
	Query       string      `json:"query"`
	Center      Location    `json:"center"`
	RadiusM     float64     `json:"radiusMeters"`
	Context     UserContext `json:"context"`
	ResultIDs   []string    `json:"resultIds"`
	ResultCount int         `json:"resultCount"`
	Confidence  float64     `json:"confidence"`
	Degraded    bool        `json:"degraded"`
	Timestamp   time.Time   `json:"timestamp"`
}
