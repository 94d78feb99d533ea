package scorerelevance

import "poi-recommender/internal/models"

// ScoredPlace pairs a candidate with its deterministic score. InputIndex is
// the position in the original candidate slice, kept for tie-break auditing.
type ScoredPlace struct {
	Place      models.Place
	Score      float64
	InputIndex int
}
