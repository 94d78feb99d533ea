// Package reconcileranking validates and repairs model-generated rankings
// against the true candidate set, falling back to the deterministic scorer
// when the model output is unusable. Malformed model output is a recoverable
// condition here, never an error.
package reconcileranking

import (
	"encoding/json"
	"math"
	"sort"
	"strings"

	stderrors "poi-recommender/internal/common/errors"
	"poi-recommender/internal/common/logger"
	"poi-recommender/internal/models"
	scorerelevance "poi-recommender/internal/pipeline/score-relevance"

	"github.com/xeipuuv/gojsonschema"
)

// entryListSchema is the structural contract for the model's entry array.
// Unknown ids and out-of-range scores are repaired in code afterwards; the
// schema only rejects shapes that cannot be interpreted at all.
const entryListSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["id"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"relevanceScore": {"type": "number"},
			"reasoning": {"type": "string"},
			"tags": {"type": "array", "items": {"type": "string"}},
			"estimatedBusyness": {"type": "string"}
		}
	}
}`

const fallbackReasoning = "fallback ranking"

type Handler struct {
	config *Config
	scorer *scorerelevance.Handler
	schema *gojsonschema.Schema
	logger logger.Logger
}

func NewHandler(config *Config, scorer *scorerelevance.Handler, log logger.Logger) *Handler {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(entryListSchema))
	if err != nil {
		// The schema is a compile-time constant; failing to parse it is a
		// programming error, not a runtime condition.
		panic("reconcile-ranking: invalid entry schema: " + err.Error())
	}

	return &Handler{
		config: config,
		scorer: scorer,
		schema: schema,
		logger: log.WithFields(map[string]interface{}{"stage": "reconcile-ranking"}),
	}
}

// Execute reconciles the model output with the candidate set. The only error
// it returns is an empty candidate set; every malformed-model path completes
// with the fallback ranking instead.
func (h *Handler) Execute(input *Input) (*Output, error) {
	if len(input.Candidates) == 0 {
		return nil, stderrors.NewNoCandidatesError()
	}

	entries, ok := h.parseEntries(input.ModelText)
	if !ok {
		return h.fallback(input, "model output unusable"), nil
	}

	ranked, dropped := h.repairEntries(entries, input.Candidates)
	if len(ranked) == 0 {
		return h.fallback(input, "no model entries matched the candidate set"), nil
	}

	if dropped > 0 {
		h.logger.Warn("dropped model entries referencing unknown places", map[string]interface{}{
			"dropped": dropped,
			"kept":    len(ranked),
		})
	}

	sortRanked(ranked, input.Candidates)

	// Coverage-scaled confidence: full coverage scores 1.0, partial output
	// decays toward 0.5 so callers can still tell it apart from the 0.3
	// fallback constant.
	coverage := float64(len(ranked)) / float64(len(input.Candidates))
	confidence := 0.5 + 0.5*coverage

	return &Output{
		Ranked:     ranked,
		Confidence: confidence,
		Reasoning:  "ranking derived from model output",
		Degraded:   false,
	}, nil
}

// parseEntries strips code fences and attempts a structural parse. The second
// return is false whenever nothing usable could be extracted.
func (h *Handler) parseEntries(text string) ([]rankedEntry, bool) {
	text = stripCodeFences(text)
	if text == "" {
		return nil, false
	}

	// Accept either the envelope object or a bare array of entries.
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, false
	}

	arrayText := text
	if strings.HasPrefix(strings.TrimSpace(text), "{") {
		var envelope struct {
			RankedPlaces json.RawMessage `json:"rankedPlaces"`
		}
		if err := json.Unmarshal([]byte(text), &envelope); err != nil || envelope.RankedPlaces == nil {
			return nil, false
		}
		arrayText = string(envelope.RankedPlaces)
	}

	result, err := h.schema.Validate(gojsonschema.NewStringLoader(arrayText))
	if err != nil || !result.Valid() {
		return nil, false
	}

	var entries []rankedEntry
	if err := json.Unmarshal([]byte(arrayText), &entries); err != nil {
		return nil, false
	}

	return entries, true
}

// repairEntries drops entries referencing unknown or duplicate ids and
// normalizes the remaining fields. Returns the survivors and the drop count.
func (h *Handler) repairEntries(entries []rankedEntry, candidates []models.Place) ([]models.RankedPlace, int) {
	byID := make(map[string]models.Place, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	seen := make(map[string]bool, len(entries))
	dropped := 0
	var ranked []models.RankedPlace

	for _, e := range entries {
		place, exists := byID[e.ID]
		if !exists || seen[e.ID] {
			dropped++
			continue
		}
		seen[e.ID] = true

		busyness := e.EstimatedBusyness
		switch busyness {
		case models.BusynessLow, models.BusynessMedium, models.BusynessHigh:
		default:
			busyness = models.BusynessMedium
		}

		tags := e.Tags
		if tags == nil {
			tags = []string{}
		}

		ranked = append(ranked, models.RankedPlace{
			Place:             place,
			RelevanceScore:    math.Min(math.Max(e.RelevanceScore, 0), 1),
			Reasoning:         e.Reasoning,
			Tags:              tags,
			EstimatedBusyness: busyness,
		})
	}

	return ranked, dropped
}

// fallback scores every candidate deterministically.
func (h *Handler) fallback(input *Input, why string) *Output {
	h.logger.Warn("using deterministic fallback ranking", map[string]interface{}{
		"reason":     why,
		"candidates": len(input.Candidates),
	})

	scored := h.scorer.RankAll(input.Candidates, input.UserLocation, input.Preferences)

	ranked := make([]models.RankedPlace, len(scored))
	for i, s := range scored {
		ranked[i] = models.RankedPlace{
			Place:             s.Place,
			RelevanceScore:    s.Score,
			Reasoning:         fallbackReasoning,
			Tags:              []string{},
			EstimatedBusyness: models.BusynessMedium,
		}
	}

	return &Output{
		Ranked:     ranked,
		Confidence: h.config.FallbackConfidence,
		Reasoning:  "model output unusable, deterministic relevance ranking applied",
		Degraded:   true,
	}
}

// sortRanked orders strictly descending by score; equal scores keep the
// original candidate order regardless of the model's entry order.
func sortRanked(ranked []models.RankedPlace, candidates []models.Place) {
	index := make(map[string]int, len(candidates))
	for i, c := range candidates {
		index[c.ID] = i
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].RelevanceScore != ranked[j].RelevanceScore {
			return ranked[i].RelevanceScore > ranked[j].RelevanceScore
		}
		return index[ranked[i].ID] < index[ranked[j].ID]
	})
}

// stripCodeFences removes surrounding ``` markers, with or without a language
// tag, and trims whitespace.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	// Drop a language tag such as "json" on the opening fence line.
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(text[:idx])
		if len(firstLine) <= 10 && !strings.ContainsAny(firstLine, "{}[]") {
			text = text[idx+1:]
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
