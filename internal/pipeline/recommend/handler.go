// Package recommend orchestrates one recommendation request end to end:
// validate, fetch candidates and profile, rank, attach actions, respond.
// Model-backed stages degrade to deterministic paths; only validation
// failures and an unavailable candidate source fail the request.
package recommend

import (
	"context"
	"math"
	"sync"
	"time"

	"poi-recommender/internal/clients/places"
	"poi-recommender/internal/common/errors"
	"poi-recommender/internal/common/logger"
	"poi-recommender/internal/common/metrics"
	"poi-recommender/internal/models"
	classifyintent "poi-recommender/internal/pipeline/classify-intent"
	reconcileranking "poi-recommender/internal/pipeline/reconcile-ranking"
	suggestactions "poi-recommender/internal/pipeline/suggest-actions"

	"github.com/google/uuid"
)

// Generator is the ranking-model collaborator. A nil generator skips the
// model round trip and ranks with the deterministic scorer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Searcher is the candidate-source collaborator, satisfied by the places
// client.
type Searcher = places.Searcher

// PreferenceReader loads the stored taste profile for a user.
type PreferenceReader interface {
	GetPreferences(ctx context.Context, userID string) (models.UserPreferences, error)
}

// HistoryAppender records a completed search. Failures are swallowed.
type HistoryAppender interface {
	Append(ctx context.Context, entry models.SearchHistory) error
}

// PlaceCacher keeps fetched candidates around so later feedback on them can
// recover price and distance signal.
type PlaceCacher interface {
	StorePlaces(ctx context.Context, places []models.Place)
}

// zeroCandidateSuggestions is returned verbatim when the search comes back
// empty.
var zeroCandidateSuggestions = []string{
	"expand the search radius",
	"broaden or simplify the query",
	"remove category filters",
}

type Handler struct {
	config     *Config
	searcher   Searcher
	generator  Generator
	profiles   PreferenceReader
	history    HistoryAppender
	placeCache PlaceCacher
	classifier *classifyintent.Handler
	reconciler *reconcileranking.Handler
	actions    *suggestactions.Handler
	logger     logger.Logger

	// Injection points for tests.
	now   func() time.Time
	newID func() string
}

func NewHandler(
	config *Config,
	searcher Searcher,
	generator Generator,
	profiles PreferenceReader,
	history HistoryAppender,
	reconciler *reconcileranking.Handler,
	actions *suggestactions.Handler,
	log logger.Logger,
) *Handler {
	config.normalize()
	return &Handler{
		config:     config,
		searcher:   searcher,
		generator:  generator,
		profiles:   profiles,
		history:    history,
		classifier: classifyintent.NewHandler(),
		reconciler: reconciler,
		actions:    actions,
		logger:     log.WithFields(map[string]interface{}{"stage": "recommend"}),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// SetPlaceCache wires the optional candidate cache.
func (h *Handler) SetPlaceCache(pc PlaceCacher) {
	h.placeCache = pc
}

// Execute runs the full pipeline for one request.
func (h *Handler) Execute(ctx context.Context, req *Request) (*Response, error) {
	searchID := h.newID()
	started := h.now()
	log := h.logger.WithFields(map[string]interface{}{"search_id": searchID})
	log.Info("request received", map[string]interface{}{
		"state":   string(stateReceived),
		"user_id": req.UserID,
		"query":   req.Query,
	})

	if err := h.validate(req); err != nil {
		return nil, h.fail(log, err)
	}
	h.applyDefaults(req)
	log.Debug("request validated", map[string]interface{}{"state": string(stateValidated)})

	candidates, prefs, err := h.fetch(ctx, req, log)
	if err != nil {
		return nil, h.fail(log, err)
	}
	log.Info("candidates fetched", map[string]interface{}{
		"state": string(stateCandidatesFetched),
		"count": len(candidates),
	})
	if h.placeCache != nil && len(candidates) > 0 {
		go h.placeCache.StorePlaces(context.WithoutCancel(ctx), candidates)
	}

	if req.Context.Intent == "" {
		req.Context.Intent = h.classifier.Classify(req.Query)
	}
	if req.Context.CurrentTime.IsZero() {
		req.Context.CurrentTime = started
		req.Context.DayOfWeek = int(started.Weekday())
	}
	if req.Context.GroupSize < 1 {
		req.Context.GroupSize = 1
	}

	if len(candidates) == 0 {
		resp := &Response{
			Places:      []models.RankedPlace{},
			Metadata:    Metadata{SearchID: searchID, Reasoning: "no candidates found"},
			UserContext: req.Context,
			Suggestions: zeroCandidateSuggestions,
		}
		h.respond(ctx, log, req, resp, started)
		return resp, nil
	}

	ranked := h.rank(ctx, req, candidates, prefs, log)
	log.Info("candidates ranked", map[string]interface{}{
		"state":      string(stateRanked),
		"ranked":     len(ranked.Ranked),
		"confidence": ranked.Confidence,
		"degraded":   ranked.Degraded,
	})

	places := h.attachActions(ctx, ranked.Ranked, req.Context)
	log.Debug("actions generated", map[string]interface{}{"state": string(stateActionsGenerated)})

	resp := &Response{
		Places: places,
		Metadata: Metadata{
			Total:      len(candidates),
			Ranked:     len(places),
			Confidence: ranked.Confidence,
			Reasoning:  ranked.Reasoning,
			SearchID:   searchID,
			Degraded:   ranked.Degraded,
		},
		UserContext: req.Context,
	}
	h.respond(ctx, log, req, resp, started)
	return resp, nil
}

func (h *Handler) validate(req *Request) error {
	if req.Query == "" {
		return errors.NewValidationError("query", "must not be empty")
	}
	if req.Center.Lat < -90 || req.Center.Lat > 90 {
		return errors.NewValidationError("center.lat", "must be within [-90, 90]")
	}
	if req.Center.Lng < -180 || req.Center.Lng > 180 {
		return errors.NewValidationError("center.lng", "must be within [-180, 180]")
	}
	if math.IsNaN(req.RadiusMeters) || math.IsInf(req.RadiusMeters, 0) || req.RadiusMeters < 0 || req.RadiusMeters > 100000 {
		return errors.NewValidationError("radiusMeters", "must be a finite value within [0, 100000]")
	}
	if req.Limit < 0 || req.Limit > 50 {
		return errors.NewValidationError("limit", "must be within [1, 50]")
	}
	return nil
}

func (h *Handler) applyDefaults(req *Request) {
	if req.RadiusMeters == 0 {
		req.RadiusMeters = h.config.DefaultRadiusM
	}
	if req.Limit == 0 {
		req.Limit = h.config.DefaultLimit
	}
}

// fetch runs the candidate search and the profile read concurrently. A
// failed profile read degrades to the default preferences; a failed search
// fails the request.
func (h *Handler) fetch(ctx context.Context, req *Request, log logger.Logger) ([]models.Place, models.UserPreferences, error) {
	var (
		wg         sync.WaitGroup
		candidates []models.Place
		searchErr  error
		prefs      = models.DefaultPreferences()
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		candidates, searchErr = h.searcher.Search(ctx, places.Request{
			Query:        req.Query,
			Center:       req.Center,
			RadiusMeters: req.RadiusMeters,
			Limit:        req.Limit,
		})
	}()

	if h.profiles != nil && req.UserID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stored, err := h.profiles.GetPreferences(ctx, req.UserID)
			if err != nil {
				log.Warn("profile fetch failed, using default preferences", map[string]interface{}{
					"user_id": req.UserID,
					"error":   err.Error(),
				})
				return
			}
			prefs = stored
		}()
	}

	wg.Wait()

	if searchErr != nil {
		return nil, prefs, errors.NewPlaceSearchUnavailableError(searchErr)
	}
	return candidates, prefs, nil
}

// rank consults the model when wired, then reconciles. Model transport
// failures are treated the same as unusable output: the reconciler's
// deterministic fallback handles both.
func (h *Handler) rank(ctx context.Context, req *Request, candidates []models.Place, prefs models.UserPreferences, log logger.Logger) *reconcileranking.Output {
	input := &reconcileranking.Input{
		Query:        req.Query,
		Candidates:   candidates,
		UserLocation: req.Center,
		Context:      req.Context,
		Preferences:  prefs,
	}

	if h.generator != nil {
		stageStart := h.now()
		text, err := h.generator.Generate(ctx, reconcileranking.BuildRankingPrompt(input))
		metrics.StageDuration.WithLabelValues("rank_model").Observe(h.now().Sub(stageStart).Seconds())
		if err != nil {
			log.Warn("ranking model call failed", map[string]interface{}{"error": err.Error()})
			metrics.ModelCalls.WithLabelValues("rank", "error").Inc()
		} else {
			metrics.ModelCalls.WithLabelValues("rank", "success").Inc()
			input.ModelText = text
		}
	}

	output, err := h.reconciler.Execute(input)
	if err != nil {
		// Only an empty candidate set errors, and that is handled before
		// ranking. Guard anyway.
		log.Error("reconciliation failed", map[string]interface{}{"error": err.Error()})
		return &reconcileranking.Output{
			Ranked:     []models.RankedPlace{},
			Confidence: 0,
			Reasoning:  "ranking unavailable",
			Degraded:   true,
		}
	}
	if output.Degraded {
		metrics.FallbacksUsed.WithLabelValues("rank").Inc()
		log.Warn("serving fallback ranking", map[string]interface{}{
			"code": string(errors.ErrCodeRankingDegraded),
		})
	}
	return output
}

// attachActions generates suggestions for the top-K ranked places with a
// bounded fan-out, then merges results back in rank order.
func (h *Handler) attachActions(ctx context.Context, ranked []models.RankedPlace, userContext models.UserContext) []models.RankedPlace {
	topK := h.config.TopKActions
	if topK > len(ranked) {
		topK = len(ranked)
	}

	out := make([]models.RankedPlace, len(ranked))
	copy(out, ranked)

	var wg sync.WaitGroup
	sem := make(chan struct{}, h.config.ActionConcurrency)
	for i := 0; i < topK; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			out[i].ActionSuggestions = h.actions.Execute(ctx, &suggestactions.Input{
				Place:   out[i].Place,
				Context: userContext,
			})
		}(i)
	}
	wg.Wait()

	return out
}

// respond finalizes metrics and logs the search to history fire-and-forget.
func (h *Handler) respond(ctx context.Context, log logger.Logger, req *Request, resp *Response, started time.Time) {
	duration := h.now().Sub(started)
	metrics.StageDuration.WithLabelValues("total").Observe(duration.Seconds())
	metrics.RecommendationsCompleted.WithLabelValues(boolLabel(resp.Metadata.Degraded)).Inc()
	log.Info("request responded", map[string]interface{}{
		"state":       string(stateResponded),
		"ranked":      resp.Metadata.Ranked,
		"duration_ms": duration.Milliseconds(),
	})

	if h.history == nil {
		return
	}

	entry := models.SearchHistory{
		SearchID:    resp.Metadata.SearchID,
		UserID:      req.UserID,
		Query:       req.Query,
		Center:      req.Center,
		RadiusM:     req.RadiusMeters,
		Context:     resp.UserContext,
		ResultIDs:   resultIDs(resp.Places),
		ResultCount: resp.Metadata.Ranked,
		Confidence:  resp.Metadata.Confidence,
		Degraded:    resp.Metadata.Degraded,
		Timestamp:   started,
	}

	go func() {
		// The request context may already be done once the response is
		// written; history logging gets its own deadline.
		logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := h.history.Append(logCtx, entry); err != nil {
			log.Warn("history logging failed", map[string]interface{}{"error": err.Error()})
		}
	}()
}

func (h *Handler) fail(log logger.Logger, err error) error {
	code := errors.CodeOf(err)
	metrics.RecommendationsFailed.WithLabelValues(string(code)).Inc()
	log.Error("request failed", map[string]interface{}{
		"state": string(stateFailed),
		"code":  string(code),
		"error": err.Error(),
	})
	return err
}

func resultIDs(places []models.RankedPlace) []string {
	ids := make([]string, len(places))
	for i, p := range places {
		ids[i] = p.ID
	}
	return ids
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
