package estimatepreferences

import (
	"context"
	"errors"
	"testing"
	"time"

	"poi-recommender/internal/common/logger"
	"poi-recommender/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type stubGenerator struct {
	text string
	err  error
}

func (s *stubGenerator) Generate(_ context.Context, _ string) (string, error) {
	return s.text, s.err
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func feedback(placeID, intent string, rating int) models.FeedbackItem {
	return models.FeedbackItem{
		ID:        "fb-" + placeID,
		UserID:    "u1",
		PlaceID:   placeID,
		Rating:    rating,
		Context:   models.UserContext{Intent: intent},
		Timestamp: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func place(id string, price int, distance float64) models.Place {
	return models.Place{
		ID:       id,
		Name:     "Place " + id,
		Price:    intPtr(price),
		Distance: floatPtr(distance),
	}
}

// ==========================
// Default Profile
// ==========================

func TestHandler_Execute_EmptyHistoryReturnsDefaults(t *testing.T) {
	handler := NewHandler(&stubGenerator{text: `{"maxDistance":50}`}, logger.NewTestLogger(t))

	got := handler.Execute(context.Background(), &Input{})

	// The model must not even be consulted for an empty history.
	assert.Equal(t, models.DefaultPreferences(), got)
	assert.Equal(t, []string{}, got.Categories)
	assert.Equal(t, models.PriceRange{Min: 1, Max: 4}, got.PriceRange)
	assert.Equal(t, 1000.0, got.MaxDistance)
	assert.Equal(t, models.HourRange{Start: 8, End: 22}, got.PreferredHours)
}

// ==========================
// Heuristic Path
// ==========================

func TestHeuristic_RecurringIntentsBecomeCategories(t *testing.T) {
	input := &Input{
		History: []models.FeedbackItem{
			feedback("a", "dining", 5),
			feedback("b", "dining", 4),
			feedback("c", "drinks", 3),
			feedback("d", "shopping", 2),
		},
	}

	got := Heuristic(input)
	assert.Equal(t, []string{"dining"}, got.Categories)
}

func TestHeuristic_IntentOrderingByCountThenName(t *testing.T) {
	input := &Input{
		History: []models.FeedbackItem{
			feedback("a", "drinks", 3),
			feedback("b", "drinks", 3),
			feedback("c", "dining", 3),
			feedback("d", "dining", 3),
			feedback("e", "dining", 3),
		},
	}

	got := Heuristic(input)
	assert.Equal(t, []string{"dining", "drinks"}, got.Categories)
}

func TestHeuristic_PriceBandFromPositiveRatings(t *testing.T) {
	input := &Input{
		History: []models.FeedbackItem{
			feedback("cheap", "dining", 5),
			feedback("mid", "dining", 4),
			feedback("fancy", "dining", 1), // negative, must not widen the band
		},
		Places: map[string]models.Place{
			"cheap": place("cheap", 1, 200),
			"mid":   place("mid", 2, 400),
			"fancy": place("fancy", 4, 300),
		},
	}

	got := Heuristic(input)
	assert.Equal(t, models.PriceRange{Min: 1, Max: 2}, got.PriceRange)
}

func TestHeuristic_DistanceCeilingIs75thPercentile(t *testing.T) {
	input := &Input{
		History: []models.FeedbackItem{
			feedback("a", "dining", 5),
			feedback("b", "dining", 5),
			feedback("c", "dining", 4),
			feedback("d", "dining", 4),
		},
		Places: map[string]models.Place{
			"a": place("a", 2, 100),
			"b": place("b", 2, 200),
			"c": place("c", 2, 300),
			"d": place("d", 2, 400),
		},
	}

	got := Heuristic(input)
	assert.InDelta(t, 300, got.MaxDistance, 1e-9)
}

func TestHeuristic_NoSignalKeepsDefaults(t *testing.T) {
	input := &Input{
		History: []models.FeedbackItem{
			feedback("unknown", "general", 5),
		},
	}

	got := Heuristic(input)
	assert.Equal(t, models.DefaultPreferences(), got)
}

// ==========================
// Model Path
// ==========================

func TestHandler_Execute_ValidModelOutput(t *testing.T) {
	gen := &stubGenerator{text: "```json\n" +
		`{"categories":["sushi","ramen"],"priceRange":[2,3],"maxDistance":750,"preferredHours":[18,23]}` +
		"\n```"}
	handler := NewHandler(gen, logger.NewTestLogger(t))

	got := handler.Execute(context.Background(), &Input{
		History: []models.FeedbackItem{feedback("a", "dining", 5)},
	})

	assert.Equal(t, []string{"sushi", "ramen"}, got.Categories)
	assert.Equal(t, models.PriceRange{Min: 2, Max: 3}, got.PriceRange)
	assert.InDelta(t, 750, got.MaxDistance, 1e-9)
	assert.Equal(t, models.HourRange{Start: 18, End: 23}, got.PreferredHours)
}

func TestHandler_Execute_InvalidFieldsRepairedToDefaults(t *testing.T) {
	gen := &stubGenerator{text: `{"priceRange":[0,9],"maxDistance":-5,"preferredHours":[22,8]}`}
	handler := NewHandler(gen, logger.NewTestLogger(t))

	got := handler.Execute(context.Background(), &Input{
		History: []models.FeedbackItem{feedback("a", "dining", 5)},
	})

	defaults := models.DefaultPreferences()
	assert.Equal(t, defaults.PriceRange, got.PriceRange)
	assert.Equal(t, defaults.MaxDistance, got.MaxDistance)
	assert.Equal(t, defaults.PreferredHours, got.PreferredHours)
	assert.Equal(t, defaults.Categories, got.Categories)
}

func TestHandler_Execute_ModelFailureFallsBackToHeuristic(t *testing.T) {
	tests := []struct {
		name string
		gen  *stubGenerator
	}{
		{"transport error", &stubGenerator{err: errors.New("boom")}},
		{"empty output", &stubGenerator{text: ""}},
		{"prose output", &stubGenerator{text: "they seem to like coffee"}},
		{"array instead of object", &stubGenerator{text: `["coffee"]`}},
		{"wrong field types", &stubGenerator{text: `{"priceRange":"cheap"}`}},
	}

	history := []models.FeedbackItem{
		feedback("a", "dining", 5),
		feedback("b", "dining", 4),
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(tt.gen, logger.NewTestLogger(t))

			got := handler.Execute(context.Background(), &Input{History: history})

			// Heuristic output, never a zero value and never a panic.
			require.NotNil(t, got.Categories)
			assert.Equal(t, []string{"dining"}, got.Categories)
		})
	}
}
