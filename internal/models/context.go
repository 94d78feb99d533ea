package models

import "time"

// Urgency levels for UserContext.Urgency.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// UserContext is the request-scoped situational snapshot. Constructed fresh
// per request; never stored on its own, only embedded into history and
// feedback records.
type UserContext struct {
	Intent          string    `json:"intent"`
	CurrentTime     time.Time `json:"currentTime"`
	DayOfWeek       int       `json:"dayOfWeek"` // 0 = Sunday .. 6 = Saturday
	GroupSize       int       `json:"groupSize"` // >= 1
	Urgency         string    `json:"urgency"`
	DurationMinutes *int      `json:"durationMinutes,omitempty"`
}
