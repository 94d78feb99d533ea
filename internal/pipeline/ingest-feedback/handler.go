// Package ingestfeedback records explicit user feedback and refreshes the
// user's taste profile in the background. Submission only fails on invalid
// input or a failed feedback write; everything downstream is best-effort.
package ingestfeedback

import (
	"context"
	"time"

	"poi-recommender/internal/common/errors"
	"poi-recommender/internal/common/logger"
	"poi-recommender/internal/common/metrics"
	"poi-recommender/internal/models"
	estimatepreferences "poi-recommender/internal/pipeline/estimate-preferences"

	"github.com/google/uuid"
)

// FeedbackStore is the append-only feedback log.
type FeedbackStore interface {
	Insert(ctx context.Context, item models.FeedbackItem) error
	ListByUser(ctx context.Context, userID string) ([]models.FeedbackItem, error)
}

// ProfileWriter persists a re-estimated taste profile.
type ProfileWriter interface {
	SavePreferences(ctx context.Context, userID string, prefs models.UserPreferences) error
}

// PlaceResolver looks up place records referenced by feedback. Missing
// places are fine, they just carry no price or distance signal.
type PlaceResolver interface {
	GetPlace(ctx context.Context, placeID string) (models.Place, bool)
}

// CacheInvalidator drops the cached profile after a refresh.
type CacheInvalidator interface {
	InvalidatePreferences(ctx context.Context, userID string) error
}

type Handler struct {
	feedback  FeedbackStore
	profiles  ProfileWriter
	resolver  PlaceResolver
	cache     CacheInvalidator
	estimator *estimatepreferences.Handler
	logger    logger.Logger

	now   func() time.Time
	newID func() string
}

func NewHandler(
	feedback FeedbackStore,
	profiles ProfileWriter,
	resolver PlaceResolver,
	cache CacheInvalidator,
	estimator *estimatepreferences.Handler,
	log logger.Logger,
) *Handler {
	return &Handler{
		feedback:  feedback,
		profiles:  profiles,
		resolver:  resolver,
		cache:     cache,
		estimator: estimator,
		logger:    log.WithFields(map[string]interface{}{"stage": "ingest-feedback"}),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Execute validates and persists one feedback item, then kicks off the
// profile refresh in the background.
func (h *Handler) Execute(ctx context.Context, item models.FeedbackItem) (*models.FeedbackItem, error) {
	if err := h.validate(item); err != nil {
		return nil, err
	}

	if item.ID == "" {
		item.ID = h.newID()
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = h.now()
	}

	if err := h.feedback.Insert(ctx, item); err != nil {
		return nil, errors.NewPersistenceFailedError("feedback insert", err)
	}
	metrics.FeedbackSubmitted.Inc()

	go h.refreshProfile(context.WithoutCancel(ctx), item.UserID)

	return &item, nil
}

func (h *Handler) validate(item models.FeedbackItem) error {
	if item.UserID == "" {
		return errors.NewValidationError("userId", "must not be empty")
	}
	if item.PlaceID == "" {
		return errors.NewValidationError("placeId", "must not be empty")
	}
	if item.Rating < 1 || item.Rating > 5 {
		return errors.NewValidationError("rating", "must be within [1, 5]")
	}
	return nil
}

// refreshProfile re-estimates preferences from the full feedback history and
// persists the result. Any failure is logged and dropped.
func (h *Handler) refreshProfile(ctx context.Context, userID string) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	log := h.logger.WithFields(map[string]interface{}{"user_id": userID})

	history, err := h.feedback.ListByUser(ctx, userID)
	if err != nil {
		log.Warn("profile refresh skipped, history read failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	prefs := h.estimator.Execute(ctx, &estimatepreferences.Input{
		History: history,
		Places:  h.resolvePlaces(ctx, history),
	})

	if err := h.profiles.SavePreferences(ctx, userID, prefs); err != nil {
		log.Warn("profile refresh failed, preferences not saved", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if h.cache != nil {
		if err := h.cache.InvalidatePreferences(ctx, userID); err != nil {
			log.Warn("preference cache invalidation failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	log.Info("preferences refreshed", map[string]interface{}{
		"history_size": len(history),
	})
}

func (h *Handler) resolvePlaces(ctx context.Context, history []models.FeedbackItem) map[string]models.Place {
	places := make(map[string]models.Place, len(history))
	if h.resolver == nil {
		return places
	}
	for _, item := range history {
		if _, ok := places[item.PlaceID]; ok {
			continue
		}
		if place, ok := h.resolver.GetPlace(ctx, item.PlaceID); ok {
			places[item.PlaceID] = place
		}
	}
	return places
}
