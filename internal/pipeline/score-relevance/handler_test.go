package scorerelevance

import (
	"testing"

	"poi-recommender/internal/models"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Test Helper Functions
// ==========================

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func coffeePlace() models.Place {
	return models.Place{
		ID:         "A",
		Name:       "Corner Coffee",
		Distance:   floatPtr(100),
		Rating:     floatPtr(8),
		Price:      intPtr(2),
		Categories: []models.Category{{ID: "13035", Name: "Coffee"}},
	}
}

func diningPlace() models.Place {
	return models.Place{
		ID:         "B",
		Name:       "Maison Perdue",
		Distance:   floatPtr(900),
		Rating:     floatPtr(9),
		Price:      intPtr(4),
		Categories: []models.Category{{ID: "13049", Name: "Fine Dining"}},
	}
}

func coffeePrefs() models.UserPreferences {
	return models.UserPreferences{
		Categories:     []string{"Coffee"},
		PriceRange:     models.PriceRange{Min: 1, Max: 2},
		MaxDistance:    1000,
		PreferredHours: models.HourRange{Start: 8, End: 22},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Score_WeightedSum(t *testing.T) {
	handler := NewHandler()
	prefs := coffeePrefs()

	// 0.3*0.9 + 0.2 + 0.3*1 + 0.2*0.8 = 0.93
	scoreA := handler.Score(coffeePlace(), models.Location{}, prefs)
	assert.InDelta(t, 0.93, scoreA, 1e-9)

	// 0.3*0.1 + 0 + 0 + 0.2*0.9 = 0.21
	scoreB := handler.Score(diningPlace(), models.Location{}, prefs)
	assert.InDelta(t, 0.21, scoreB, 1e-9)
}

func TestHandler_Score_MissingOptionalFields(t *testing.T) {
	handler := NewHandler()

	tests := []struct {
		name     string
		place    models.Place
		prefs    models.UserPreferences
		expected float64
	}{
		{
			name:     "no fields at all",
			place:    models.Place{ID: "x", Name: "Bare"},
			prefs:    coffeePrefs(),
			expected: 0,
		},
		{
			name: "distance undefined contributes zero",
			place: models.Place{
				ID:     "x",
				Rating: floatPtr(10),
			},
			prefs:    coffeePrefs(),
			expected: 0.2,
		},
		{
			name: "price outside range contributes zero",
			place: models.Place{
				ID:    "x",
				Price: intPtr(4),
			},
			prefs:    coffeePrefs(),
			expected: 0,
		},
		{
			name: "empty preference categories contribute zero",
			place: models.Place{
				ID:         "x",
				Categories: []models.Category{{Name: "Coffee"}},
			},
			prefs: models.UserPreferences{
				PriceRange:  models.PriceRange{Min: 1, Max: 4},
				MaxDistance: 1000,
			},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := handler.Score(tt.place, models.Location{}, tt.prefs)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestHandler_Score_DefensiveDefaults(t *testing.T) {
	handler := NewHandler()

	place := coffeePlace()

	// Zero MaxDistance falls back to the 1000m default instead of dividing
	// by zero.
	prefs := coffeePrefs()
	prefs.MaxDistance = 0
	assert.InDelta(t, 0.93, handler.Score(place, models.Location{}, prefs), 1e-9)

	// An inverted price range is replaced by the full band.
	prefs = coffeePrefs()
	prefs.PriceRange = models.PriceRange{Min: 3, Max: 1}
	got := handler.Score(place, models.Location{}, prefs)
	assert.InDelta(t, 0.93, got, 1e-9)

	// Rating above the 0-10 scale is clamped.
	wild := coffeePlace()
	wild.Rating = floatPtr(42)
	got = handler.Score(wild, models.Location{}, coffeePrefs())
	assert.LessOrEqual(t, got, 1.0)
}

func TestHandler_Score_Deterministic(t *testing.T) {
	handler := NewHandler()
	prefs := coffeePrefs()
	place := coffeePlace()

	first := handler.Score(place, models.Location{}, prefs)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, handler.Score(place, models.Location{}, prefs))
	}
}

func TestHandler_Score_CategoryFraction(t *testing.T) {
	handler := NewHandler()

	place := models.Place{
		ID: "x",
		Categories: []models.Category{
			{Name: "Coffee Shop"},
			{Name: "Bakery"},
		},
	}
	prefs := models.UserPreferences{
		Categories:  []string{"coffee", "sushi"},
		PriceRange:  models.PriceRange{Min: 1, Max: 4},
		MaxDistance: 1000,
	}

	// One of two preferred categories matches: 0.3 * 0.5.
	got := handler.Score(place, models.Location{}, prefs)
	assert.InDelta(t, 0.15, got, 1e-9)
}

func TestHandler_RankAll_StableOrder(t *testing.T) {
	handler := NewHandler()
	prefs := coffeePrefs()

	candidates := []models.Place{diningPlace(), coffeePlace()}
	ranked := handler.RankAll(candidates, models.Location{}, prefs)

	assert.Equal(t, "A", ranked[0].Place.ID)
	assert.Equal(t, "B", ranked[1].Place.ID)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
}

func TestHandler_RankAll_TiesPreserveInputOrder(t *testing.T) {
	handler := NewHandler()

	// Identical attributes produce identical scores; the input order must
	// survive the sort.
	a := models.Place{ID: "first", Rating: floatPtr(5)}
	b := models.Place{ID: "second", Rating: floatPtr(5)}
	c := models.Place{ID: "third", Rating: floatPtr(5)}

	ranked := handler.RankAll([]models.Place{a, b, c}, models.Location{}, models.UserPreferences{})

	assert.Equal(t, "first", ranked[0].Place.ID)
	assert.Equal(t, "second", ranked[1].Place.ID)
	assert.Equal(t, "third", ranked[2].Place.ID)
	assert.Equal(t, 0, ranked[0].InputIndex)
	assert.Equal(t, 2, ranked[2].InputIndex)
}
