// Package scorerelevance computes the deterministic relevance score used as
// the ranking fallback. Pure, side-effect-free, never fails.
package scorerelevance

import (
	"math"
	"sort"
	"strings"

	"poi-recommender/internal/models"
)

// Fixed component weights. The four terms sum to 1.0 so the clamped result
// stays in [0,1] without rescaling.
const (
	WeightDistance = 0.3
	WeightPrice    = 0.2
	WeightCategory = 0.3
	WeightRating   = 0.2
)

const defaultMaxDistanceM = 1000

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Score computes the relevance of one place for the given user location and
// preferences. Optional place fields contribute zero when absent.
func (h *Handler) Score(place models.Place, _ models.Location, prefs models.UserPreferences) float64 {
	maxDistance := prefs.MaxDistance
	if maxDistance <= 0 {
		maxDistance = defaultMaxDistanceM
	}

	score := 0.0

	// Distance term: linear falloff toward the preference ceiling.
	if place.Distance != nil {
		score += WeightDistance * math.Max(0, 1-*place.Distance/maxDistance)
	}

	// Price term: all-or-nothing band membership.
	priceMin, priceMax := prefs.PriceRange.Min, prefs.PriceRange.Max
	if priceMin < 1 || priceMax > 4 || priceMin > priceMax {
		priceMin, priceMax = 1, 4
	}
	if place.Price != nil && *place.Price >= priceMin && *place.Price <= priceMax {
		score += WeightPrice
	}

	// Category term: fraction of preferred categories matched.
	if len(prefs.Categories) > 0 && len(place.Categories) > 0 {
		matched := 0
		for _, want := range prefs.Categories {
			if categoryMatches(want, place.Categories) {
				matched++
			}
		}
		score += WeightCategory * float64(matched) / float64(len(prefs.Categories))
	}

	// Rating term: 0-10 scale normalized.
	if place.Rating != nil {
		rating := math.Min(math.Max(*place.Rating, 0), 10)
		score += WeightRating * rating / 10
	}

	return math.Min(math.Max(score, 0), 1)
}

// RankAll scores every candidate and returns them strictly descending by
// score, ties broken by input order so repeated runs are bit-identical.
func (h *Handler) RankAll(candidates []models.Place, userLocation models.Location, prefs models.UserPreferences) []ScoredPlace {
	scored := make([]ScoredPlace, len(candidates))
	for i, place := range candidates {
		scored[i] = ScoredPlace{
			Place:      place,
			Score:      h.Score(place, userLocation, prefs),
			InputIndex: i,
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored
}

// categoryMatches reports whether the preferred category substring-matches
// any of the place's category names, case-insensitively, in either direction.
func categoryMatches(want string, categories []models.Category) bool {
	want = strings.ToLower(want)
	if want == "" {
		return false
	}
	for _, c := range categories {
		name := strings.ToLower(c.Name)
		if name == "" {
			continue
		}
		if strings.Contains(name, want) || strings.Contains(want, name) {
			return true
		}
	}
	return false
}
