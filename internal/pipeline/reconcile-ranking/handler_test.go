package reconcileranking

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"poi-recommender/internal/common/logger"
	"poi-recommender/internal/models"
	scorerelevance "poi-recommender/internal/pipeline/score-relevance"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestHandler(t *testing.T) *Handler {
	return NewHandler(DefaultConfig(), scorerelevance.NewHandler(), logger.NewTestLogger(t))
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func testCandidates() []models.Place {
	return []models.Place{
		{
			ID:         "A",
			Name:       "Corner Coffee",
			Distance:   floatPtr(100),
			Rating:     floatPtr(8),
			Price:      intPtr(2),
			Categories: []models.Category{{Name: "Coffee"}},
		},
		{
			ID:         "B",
			Name:       "Maison Perdue",
			Distance:   floatPtr(900),
			Rating:     floatPtr(9),
			Price:      intPtr(4),
			Categories: []models.Category{{Name: "Fine Dining"}},
		},
	}
}

func testInput(modelText string) *Input {
	return &Input{
		ModelText:  modelText,
		Query:      "coffee nearby",
		Candidates: testCandidates(),
		Context: models.UserContext{
			Intent:      "drinks",
			CurrentTime: time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC),
			DayOfWeek:   1,
			GroupSize:   2,
			Urgency:     models.UrgencyLow,
		},
		Preferences: models.UserPreferences{
			Categories:  []string{"Coffee"},
			PriceRange:  models.PriceRange{Min: 1, Max: 2},
			MaxDistance: 1000,
		},
	}
}

// ==========================
// Model-Backed Path
// ==========================

func TestHandler_Execute_ValidModelOutput(t *testing.T) {
	handler := newTestHandler(t)

	modelText := `{"rankedPlaces":[
		{"id":"B","relevanceScore":0.9,"reasoning":"great for dinner","tags":["upscale"],"estimatedBusyness":"high"},
		{"id":"A","relevanceScore":0.6,"reasoning":"solid coffee","tags":[],"estimatedBusyness":"low"}
	]}`

	output, err := handler.Execute(testInput(modelText))
	require.NoError(t, err)

	require.Len(t, output.Ranked, 2)
	assert.Equal(t, "B", output.Ranked[0].ID)
	assert.Equal(t, "A", output.Ranked[1].ID)
	assert.Equal(t, "great for dinner", output.Ranked[0].Reasoning)
	assert.Equal(t, models.BusynessHigh, output.Ranked[0].EstimatedBusyness)
	assert.False(t, output.Degraded)
	assert.InDelta(t, 1.0, output.Confidence, 1e-9)
}

func TestHandler_Execute_CodeFencedModelOutput(t *testing.T) {
	handler := newTestHandler(t)

	modelText := "```json\n" + `{"rankedPlaces":[{"id":"A","relevanceScore":0.8}]}` + "\n```"

	output, err := handler.Execute(testInput(modelText))
	require.NoError(t, err)

	require.Len(t, output.Ranked, 1)
	assert.Equal(t, "A", output.Ranked[0].ID)
	assert.False(t, output.Degraded)
	// Partial coverage: one of two candidates ranked.
	assert.InDelta(t, 0.75, output.Confidence, 1e-9)
}

func TestHandler_Execute_BareArrayAccepted(t *testing.T) {
	handler := newTestHandler(t)

	modelText := `[{"id":"A","relevanceScore":0.7},{"id":"B","relevanceScore":0.4}]`

	output, err := handler.Execute(testInput(modelText))
	require.NoError(t, err)
	assert.Len(t, output.Ranked, 2)
	assert.False(t, output.Degraded)
}

func TestHandler_Execute_UnknownIDsDropped(t *testing.T) {
	handler := newTestHandler(t)

	modelText := `{"rankedPlaces":[
		{"id":"Z","relevanceScore":0.95},
		{"id":"A","relevanceScore":0.5}
	]}`

	output, err := handler.Execute(testInput(modelText))
	require.NoError(t, err)

	require.Len(t, output.Ranked, 1)
	assert.Equal(t, "A", output.Ranked[0].ID)
	assert.False(t, output.Degraded)
}

func TestHandler_Execute_DuplicateIDsKeepFirst(t *testing.T) {
	handler := newTestHandler(t)

	modelText := `{"rankedPlaces":[
		{"id":"A","relevanceScore":0.9,"reasoning":"first"},
		{"id":"A","relevanceScore":0.2,"reasoning":"second"}
	]}`

	output, err := handler.Execute(testInput(modelText))
	require.NoError(t, err)

	require.Len(t, output.Ranked, 1)
	assert.Equal(t, "first", output.Ranked[0].Reasoning)
}

func TestHandler_Execute_ScoreClampedAndBusynessRepaired(t *testing.T) {
	handler := newTestHandler(t)

	modelText := `{"rankedPlaces":[
		{"id":"A","relevanceScore":7.5,"estimatedBusyness":"packed"},
		{"id":"B","relevanceScore":-3}
	]}`

	output, err := handler.Execute(testInput(modelText))
	require.NoError(t, err)

	require.Len(t, output.Ranked, 2)
	assert.Equal(t, 1.0, output.Ranked[0].RelevanceScore)
	assert.Equal(t, models.BusynessMedium, output.Ranked[0].EstimatedBusyness)
	assert.Equal(t, 0.0, output.Ranked[1].RelevanceScore)
	assert.NotNil(t, output.Ranked[0].Tags)
}

func TestHandler_Execute_TiesPreserveCandidateOrder(t *testing.T) {
	handler := newTestHandler(t)

	// Model lists B before A with equal scores; candidate order (A first)
	// must win the tie.
	modelText := `{"rankedPlaces":[
		{"id":"B","relevanceScore":0.5},
		{"id":"A","relevanceScore":0.5}
	]}`

	output, err := handler.Execute(testInput(modelText))
	require.NoError(t, err)

	require.Len(t, output.Ranked, 2)
	assert.Equal(t, "A", output.Ranked[0].ID)
	assert.Equal(t, "B", output.Ranked[1].ID)
}

// ==========================
// Fallback Path
// ==========================

func TestHandler_Execute_MalformedModelOutputNeverThrows(t *testing.T) {
	handler := newTestHandler(t)

	tests := []struct {
		name      string
		modelText string
	}{
		{"empty string", ""},
		{"whitespace", "   \n\t"},
		{"plain prose", "I think the coffee place is best."},
		{"truncated json", `{"rankedPlaces":[{"id":"A"`},
		{"wrong envelope", `{"results":[{"id":"A"}]}`},
		{"entries missing ids", `{"rankedPlaces":[{"relevanceScore":0.9}]}`},
		{"number instead of array", `{"rankedPlaces":42}`},
		{"unknown ids only", `{"rankedPlaces":[{"id":"Z","relevanceScore":0.9}]}`},
		{"fenced garbage", "```json\nnot json at all\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := handler.Execute(testInput(tt.modelText))
			require.NoError(t, err)

			require.Len(t, output.Ranked, 2)
			assert.True(t, output.Degraded)
			assert.Less(t, output.Confidence, 0.5)
			for _, rp := range output.Ranked {
				assert.Equal(t, "fallback ranking", rp.Reasoning)
				assert.Equal(t, models.BusynessMedium, rp.EstimatedBusyness)
				assert.Equal(t, []string{}, rp.Tags)
			}
		})
	}
}

func TestHandler_Execute_FallbackScenario(t *testing.T) {
	handler := newTestHandler(t)

	// Unknown id "Z" leaves zero valid entries; the fallback must rank by
	// the deterministic scorer: A 0.93, B 0.21.
	modelText := "```json\n" + `{"rankedPlaces":[{"id":"Z","relevanceScore":0.9}]}` + "\n```"

	output, err := handler.Execute(testInput(modelText))
	require.NoError(t, err)

	require.Len(t, output.Ranked, 2)
	assert.Equal(t, "A", output.Ranked[0].ID)
	assert.Equal(t, "B", output.Ranked[1].ID)
	assert.InDelta(t, 0.93, output.Ranked[0].RelevanceScore, 1e-9)
	assert.InDelta(t, 0.21, output.Ranked[1].RelevanceScore, 1e-9)
	assert.True(t, output.Degraded)
	assert.InDelta(t, 0.3, output.Confidence, 1e-9)
}

func TestHandler_Execute_EmptyCandidatesIsError(t *testing.T) {
	handler := newTestHandler(t)

	input := testInput("")
	input.Candidates = nil

	output, err := handler.Execute(input)
	assert.Error(t, err)
	assert.Nil(t, output)
}

// ==========================
// Property Checks
// ==========================

func TestHandler_Execute_IDIntegrity(t *testing.T) {
	handler := newTestHandler(t)

	// A soup of valid, unknown and duplicate ids.
	modelText := `{"rankedPlaces":[
		{"id":"A","relevanceScore":0.9},
		{"id":"Q","relevanceScore":0.8},
		{"id":"B","relevanceScore":0.7},
		{"id":"A","relevanceScore":0.6}
	]}`

	input := testInput(modelText)
	output, err := handler.Execute(input)
	require.NoError(t, err)

	valid := map[string]bool{}
	for _, c := range input.Candidates {
		valid[c.ID] = true
	}

	seen := map[string]bool{}
	for _, rp := range output.Ranked {
		assert.True(t, valid[rp.ID], "id %q not in candidate set", rp.ID)
		assert.False(t, seen[rp.ID], "id %q appears twice", rp.ID)
		seen[rp.ID] = true
	}
}

func TestHandler_Execute_TotalOrder(t *testing.T) {
	handler := newTestHandler(t)

	output, err := handler.Execute(testInput(""))
	require.NoError(t, err)

	for i := 1; i < len(output.Ranked); i++ {
		assert.GreaterOrEqual(t, output.Ranked[i-1].RelevanceScore, output.Ranked[i].RelevanceScore)
	}
}

// ==========================
// Prompt Building
// ==========================

func TestBuildRankingPrompt_Deterministic(t *testing.T) {
	input := testInput("")

	first := BuildRankingPrompt(input)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildRankingPrompt(input))
	}
}

func TestBuildRankingPrompt_ContainsSignals(t *testing.T) {
	input := testInput("")
	minutes := 45
	input.Context.DurationMinutes = &minutes

	prompt := BuildRankingPrompt(input)

	for _, want := range []string{
		"coffee nearby",
		"10:30",
		"day 1",
		"Intent: drinks",
		"Group size: 2",
		"Urgency: low",
		"45 minutes",
		"id=A",
		"id=B",
		"rating=8.0/10",
		"price=2/4",
		"distance=900m",
	} {
		assert.True(t, strings.Contains(prompt, want), "prompt missing %q:\n%s", want, prompt)
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"{}", "{}"},
		{"```json\n{}\n```", "{}"},
		{"```\n[]\n```", "[]"},
		{"```{}```", "{}"},
		{"  \n```json\n[1]\n```\n ", "[1]"},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFences(tt.in))
		})
	}
}
