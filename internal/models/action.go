package models

// ActionType identifies a suggested next step for a place.
type ActionType string

const (
	ActionNavigate     ActionType = "navigate"
	ActionCall         ActionType = "call"
	ActionBook         ActionType = "book"
	ActionSave         ActionType = "save"
	ActionShare        ActionType = "share"
	ActionVisitWebsite ActionType = "visitWebsite"
)

// Availability states for an action suggestion.
const (
	AvailabilityAvailable   = "available"
	AvailabilityLimited     = "limited"
	AvailabilityUnavailable = "unavailable"
)

// ActionSuggestion is a derived, ephemeral next step for a ranked place.
// Priority runs 1-5 with 5 the most important.
type ActionSuggestion struct {
	Type         ActionType `json:"type"`
	Label        string     `json:"label"`
	URL          string     `json:"url,omitempty"`
	Priority     int        `json:"priority"`
	Availability string     `json:"availability"`
}

// KnownActionType reports whether t is one of the recognized action types.
func KnownActionType(t ActionType) bool {
	switch t {
	case ActionNavigate, ActionCall, ActionBook, ActionSave, ActionShare, ActionVisitWebsite:
		return true
	}
	return false
}
