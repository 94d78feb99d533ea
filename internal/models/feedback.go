package models

import "time"

// FeedbackItem is an append-only record of explicit user feedback for a
// place. Never mutated; removed only by retention cleanup.
type FeedbackItem struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	PlaceID     string      `json:"placeId"`
	Rating      int         `json:"rating"` // 1-5
	Comment     string      `json:"comment,omitempty"`
	Context     UserContext `json:"context"`
	ActionTaken string      `json:"actionTaken,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// PositiveRating is the threshold at or above which feedback counts as
// positive for preference estimation.
const PositiveRating = 4
