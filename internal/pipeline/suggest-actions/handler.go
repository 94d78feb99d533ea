// Package suggestactions derives the next-step actions shown with each
// ranked place. A model-backed suggester is tried first when a generator is
// wired; the deterministic rule set is both the fallback and the floor, so
// the operation never fails.
package suggestactions

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"poi-recommender/internal/common/logger"
	"poi-recommender/internal/common/metrics"
	"poi-recommender/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// actionListSchema rejects anything that is not an array of objects with a
// string type field. Semantic repair happens after this structural gate.
const actionListSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["type"],
		"properties": {
			"type": {"type": "string"},
			"label": {"type": "string"},
			"url": {"type": "string"},
			"priority": {"type": "number"},
			"availability": {"type": "string"}
		}
	}
}`

// Generator is the model collaborator. A nil generator means rule-set only.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Handler struct {
	generator Generator
	schema    *gojsonschema.Schema
	logger    logger.Logger
}

func NewHandler(generator Generator, log logger.Logger) *Handler {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(actionListSchema))
	if err != nil {
		panic(fmt.Sprintf("suggest-actions: invalid action schema: %v", err))
	}
	return &Handler{
		generator: generator,
		schema:    schema,
		logger:    log.WithFields(map[string]interface{}{"stage": "suggest-actions"}),
	}
}

// Execute returns the action suggestions for one place, ordered by
// descending priority. Any model failure routes to the rule set.
func (h *Handler) Execute(ctx context.Context, input *Input) []models.ActionSuggestion {
	if h.generator != nil {
		if actions, ok := h.fromModel(ctx, input); ok {
			metrics.ModelCalls.WithLabelValues("suggest_actions", "success").Inc()
			return actions
		}
		metrics.FallbacksUsed.WithLabelValues("suggest_actions").Inc()
	}
	return RuleActions(input.Place)
}

// RuleActions is the deterministic rule set. Presence of contact details on
// the place decides which optional actions appear.
func RuleActions(place models.Place) []models.ActionSuggestion {
	actions := []models.ActionSuggestion{
		{
			Type:         models.ActionNavigate,
			Label:        "Navigate",
			URL:          navigateURL(place),
			Priority:     5,
			Availability: models.AvailabilityAvailable,
		},
	}

	if place.Phone != "" {
		actions = append(actions, models.ActionSuggestion{
			Type:         models.ActionCall,
			Label:        "Call",
			URL:          "tel:" + place.Phone,
			Priority:     4,
			Availability: models.AvailabilityAvailable,
		})
	}

	if place.Website != "" {
		actions = append(actions, models.ActionSuggestion{
			Type:         models.ActionVisitWebsite,
			Label:        "Visit website",
			URL:          place.Website,
			Priority:     3,
			Availability: models.AvailabilityAvailable,
		})
	}

	actions = append(actions, models.ActionSuggestion{
		Type:         models.ActionSave,
		Label:        "Save",
		Priority:     2,
		Availability: models.AvailabilityAvailable,
	})

	return actions
}

func (h *Handler) fromModel(ctx context.Context, input *Input) ([]models.ActionSuggestion, bool) {
	prompt := buildActionPrompt(input)

	text, err := h.generator.Generate(ctx, prompt)
	if err != nil {
		h.logger.Warn("action model call failed, using rule set", map[string]interface{}{
			"place_id": input.Place.ID,
			"error":    err.Error(),
		})
		metrics.ModelCalls.WithLabelValues("suggest_actions", "error").Inc()
		return nil, false
	}

	actions, err := h.parseActions(text, input.Place)
	if err != nil {
		h.logger.Warn("action model output unusable, using rule set", map[string]interface{}{
			"place_id": input.Place.ID,
			"error":    err.Error(),
		})
		metrics.ModelCalls.WithLabelValues("suggest_actions", "invalid").Inc()
		return nil, false
	}
	return actions, true
}

func (h *Handler) parseActions(text string, place models.Place) ([]models.ActionSuggestion, error) {
	raw := stripCodeFences(text)
	if raw == "" {
		return nil, fmt.Errorf("empty model output")
	}

	result, err := h.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("output failed structural validation: %v", result.Errors())
	}

	var entries []actionEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decoding action list: %w", err)
	}

	actions := make([]models.ActionSuggestion, 0, len(entries))
	seen := make(map[models.ActionType]bool, len(entries))
	for _, e := range entries {
		t := models.ActionType(e.Type)
		if !models.KnownActionType(t) || seen[t] {
			continue
		}
		seen[t] = true

		priority := int(e.Priority)
		if priority < 1 {
			priority = 1
		} else if priority > 5 {
			priority = 5
		}

		availability := e.Availability
		switch availability {
		case models.AvailabilityAvailable, models.AvailabilityLimited, models.AvailabilityUnavailable:
		default:
			availability = models.AvailabilityAvailable
		}

		label := e.Label
		if label == "" {
			label = defaultLabel(e.Type)
		}

		actions = append(actions, models.ActionSuggestion{
			Type:         t,
			Label:        label,
			URL:          e.URL,
			Priority:     priority,
			Availability: availability,
		})
	}

	if len(actions) == 0 {
		return nil, fmt.Errorf("no recognized action types in model output")
	}

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Priority > actions[j].Priority
	})
	return actions, nil
}

func defaultLabel(actionType string) string {
	if actionType == "" {
		return ""
	}
	return strings.ToUpper(actionType[:1]) + actionType[1:]
}

func navigateURL(place models.Place) string {
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&destination=%f,%f",
		place.Location.Lat, place.Location.Lng)
}

func buildActionPrompt(input *Input) string {
	var b strings.Builder

	b.WriteString("Suggest the next actions a user could take for this place.\n")
	fmt.Fprintf(&b, "Place: %s", input.Place.Name)
	if input.Place.Location.Address != "" {
		fmt.Fprintf(&b, " (%s)", input.Place.Location.Address)
	}
	b.WriteString("\n")
	if input.Place.Phone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", input.Place.Phone)
	}
	if input.Place.Website != "" {
		fmt.Fprintf(&b, "Website: %s\n", input.Place.Website)
	}
	fmt.Fprintf(&b, "Time: %s, urgency: %s, group size: %d\n",
		input.Context.CurrentTime.Format("15:04"), input.Context.Urgency, input.Context.GroupSize)

	b.WriteString("\nReturn JSON only: an array of objects with fields type, label, url, priority (1-5), availability.\n")
	b.WriteString(`Allowed types: "navigate", "call", "book", "save", "share", "visitWebsite".`)

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
