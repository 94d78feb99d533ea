// Package estimatepreferences infers a user's taste profile from their
// feedback history. The estimator never fails: an empty history or any
// model problem collapses to the default profile or the deterministic
// heuristic.
package estimatepreferences

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"poi-recommender/internal/common/logger"
	"poi-recommender/internal/common/metrics"
	"poi-recommender/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// minIntentRecurrence is how often an intent must repeat in the history
// before it becomes a preferred category.
const minIntentRecurrence = 2

const preferencesSchema = `{
	"type": "object",
	"properties": {
		"categories": {"type": "array", "items": {"type": "string"}},
		"priceRange": {"type": "array", "items": {"type": "integer"}, "minItems": 2, "maxItems": 2},
		"maxDistance": {"type": "number"},
		"preferredHours": {"type": "array", "items": {"type": "integer"}, "minItems": 2, "maxItems": 2}
	}
}`

// Generator is the model collaborator. A nil generator means heuristic only.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Handler struct {
	generator Generator
	schema    *gojsonschema.Schema
	logger    logger.Logger
}

func NewHandler(generator Generator, log logger.Logger) *Handler {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(preferencesSchema))
	if err != nil {
		panic(fmt.Sprintf("estimate-preferences: invalid schema: %v", err))
	}
	return &Handler{
		generator: generator,
		schema:    schema,
		logger:    log.WithFields(map[string]interface{}{"stage": "estimate-preferences"}),
	}
}

// Execute estimates preferences from the feedback batch. An empty history
// returns the default profile; model failures route to the heuristic.
func (h *Handler) Execute(ctx context.Context, input *Input) models.UserPreferences {
	if len(input.History) == 0 {
		return models.DefaultPreferences()
	}

	if h.generator != nil {
		if prefs, ok := h.fromModel(ctx, input); ok {
			metrics.ModelCalls.WithLabelValues("estimate_preferences", "success").Inc()
			return prefs
		}
		metrics.FallbacksUsed.WithLabelValues("estimate_preferences").Inc()
	}
	return Heuristic(input)
}

// Heuristic derives preferences without the model. Categories come from
// recurring intents; price band and distance ceiling come from positively
// rated places.
func Heuristic(input *Input) models.UserPreferences {
	prefs := models.DefaultPreferences()

	prefs.Categories = recurringIntents(input.History)

	positives := positivePlaces(input)
	if band, ok := priceBand(positives); ok {
		prefs.PriceRange = band
	}
	if ceiling, ok := distanceCeiling(positives); ok {
		prefs.MaxDistance = ceiling
	}

	return prefs
}

// recurringIntents returns intents seen at least minIntentRecurrence times,
// ordered by count descending then alphabetically for stability.
func recurringIntents(history []models.FeedbackItem) []string {
	counts := make(map[string]int)
	for _, item := range history {
		intent := strings.ToLower(strings.TrimSpace(item.Context.Intent))
		if intent == "" || intent == "general" {
			continue
		}
		counts[intent]++
	}

	recurring := make([]string, 0, len(counts))
	for intent, n := range counts {
		if n >= minIntentRecurrence {
			recurring = append(recurring, intent)
		}
	}

	sort.Slice(recurring, func(i, j int) bool {
		if counts[recurring[i]] != counts[recurring[j]] {
			return counts[recurring[i]] > counts[recurring[j]]
		}
		return recurring[i] < recurring[j]
	})
	return recurring
}

func positivePlaces(input *Input) []models.Place {
	var places []models.Place
	for _, item := range input.History {
		if item.Rating < models.PositiveRating {
			continue
		}
		if place, ok := input.Places[item.PlaceID]; ok {
			places = append(places, place)
		}
	}
	return places
}

// priceBand narrows toward the price levels of positively rated places.
func priceBand(positives []models.Place) (models.PriceRange, bool) {
	minPrice, maxPrice := 5, 0
	for _, place := range positives {
		if place.Price == nil || *place.Price < 1 || *place.Price > 4 {
			continue
		}
		if *place.Price < minPrice {
			minPrice = *place.Price
		}
		if *place.Price > maxPrice {
			maxPrice = *place.Price
		}
	}
	if maxPrice == 0 {
		return models.PriceRange{}, false
	}
	return models.PriceRange{Min: minPrice, Max: maxPrice}, true
}

// distanceCeiling is the 75th percentile of observed distances among
// positively rated places.
func distanceCeiling(positives []models.Place) (float64, bool) {
	var distances []float64
	for _, place := range positives {
		if place.Distance != nil && *place.Distance >= 0 {
			distances = append(distances, *place.Distance)
		}
	}
	if len(distances) == 0 {
		return 0, false
	}

	sort.Float64s(distances)
	idx := int(math.Ceil(0.75*float64(len(distances)))) - 1
	if idx < 0 {
		idx = 0
	}
	return distances[idx], true
}

func (h *Handler) fromModel(ctx context.Context, input *Input) (models.UserPreferences, bool) {
	prompt := buildPreferencePrompt(input)

	text, err := h.generator.Generate(ctx, prompt)
	if err != nil {
		h.logger.Warn("preference model call failed, using heuristic", map[string]interface{}{
			"error": err.Error(),
		})
		metrics.ModelCalls.WithLabelValues("estimate_preferences", "error").Inc()
		return models.UserPreferences{}, false
	}

	prefs, err := h.parsePreferences(text)
	if err != nil {
		h.logger.Warn("preference model output unusable, using heuristic", map[string]interface{}{
			"error": err.Error(),
		})
		metrics.ModelCalls.WithLabelValues("estimate_preferences", "invalid").Inc()
		return models.UserPreferences{}, false
	}
	return prefs, true
}

// parsePreferences validates the model envelope and repairs each field to
// its default when absent or out of range.
func (h *Handler) parsePreferences(text string) (models.UserPreferences, error) {
	raw := stripCodeFences(text)
	if raw == "" {
		return models.UserPreferences{}, fmt.Errorf("empty model output")
	}

	result, err := h.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return models.UserPreferences{}, fmt.Errorf("output is not valid JSON: %w", err)
	}
	if !result.Valid() {
		return models.UserPreferences{}, fmt.Errorf("output failed structural validation: %v", result.Errors())
	}

	var envelope preferenceEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return models.UserPreferences{}, fmt.Errorf("decoding preferences: %w", err)
	}

	prefs := models.DefaultPreferences()

	if envelope.Categories != nil {
		categories := make([]string, 0, len(envelope.Categories))
		for _, c := range envelope.Categories {
			if trimmed := strings.TrimSpace(c); trimmed != "" {
				categories = append(categories, trimmed)
			}
		}
		prefs.Categories = categories
	}

	if envelope.PriceRange != nil {
		band := models.PriceRange{Min: envelope.PriceRange[0], Max: envelope.PriceRange[1]}
		if band.Min >= 1 && band.Max <= 4 && band.Min <= band.Max {
			prefs.PriceRange = band
		}
	}

	if envelope.MaxDistance != nil && *envelope.MaxDistance > 0 && !math.IsInf(*envelope.MaxDistance, 0) {
		prefs.MaxDistance = *envelope.MaxDistance
	}

	if envelope.Hours != nil {
		hours := models.HourRange{Start: envelope.Hours[0], End: envelope.Hours[1]}
		if hours.Start >= 0 && hours.End <= 23 && hours.Start <= hours.End {
			prefs.PreferredHours = hours
		}
	}

	return prefs, nil
}

func buildPreferencePrompt(input *Input) string {
	var b strings.Builder

	b.WriteString("Infer this user's place preferences from their feedback history.\n\nFeedback:\n")
	for _, item := range input.History {
		fmt.Fprintf(&b, "- rating=%d intent=%s", item.Rating, item.Context.Intent)
		if place, ok := input.Places[item.PlaceID]; ok {
			fmt.Fprintf(&b, " place=%q", place.Name)
			if place.Price != nil {
				fmt.Fprintf(&b, " price=%d/4", *place.Price)
			}
			if place.Distance != nil {
				fmt.Fprintf(&b, " distance=%.0fm", *place.Distance)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("\nReturn JSON only, in this shape:\n")
	b.WriteString(`{"categories":["..."],"priceRange":[1,4],"maxDistance":1000,"preferredHours":[8,22]}`)

	return b.String()
}

func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(text[:idx])
		if len(firstLine) <= 10 && !strings.ContainsAny(firstLine, "{}[]") {
			text = text[idx+1:]
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
