package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"poi-recommender/internal/common/logger"
	"poi-recommender/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	preferenceKeyPrefix = "prefs:"
	placeKeyPrefix      = "place:"
)

// Cache keeps hot reads out of the primary stores: preference documents and
// recently seen place records. Every miss or Redis failure is reported as a
// miss; callers always have a slower source of truth.
type Cache struct {
	client        *redis.Client
	preferenceTTL time.Duration
	placeTTL      time.Duration
	logger        logger.Logger
}

func NewCache(client *redis.Client, preferenceTTL, placeTTL time.Duration, log logger.Logger) *Cache {
	if preferenceTTL <= 0 {
		preferenceTTL = 15 * time.Minute
	}
	if placeTTL <= 0 {
		placeTTL = time.Hour
	}
	return &Cache{
		client:        client,
		preferenceTTL: preferenceTTL,
		placeTTL:      placeTTL,
		logger:        log.WithFields(map[string]interface{}{"store": "cache"}),
	}
}

// GetPreferences returns the cached profile and whether it was present.
func (c *Cache) GetPreferences(ctx context.Context, userID string) (models.UserPreferences, bool) {
	raw, err := c.client.Get(ctx, preferenceKeyPrefix+userID).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("preference cache read failed", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
		return models.UserPreferences{}, false
	}

	var prefs models.UserPreferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return models.UserPreferences{}, false
	}
	return prefs, true
}

// SetPreferences caches the profile for the configured TTL.
func (c *Cache) SetPreferences(ctx context.Context, userID string, prefs models.UserPreferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}
	return c.client.Set(ctx, preferenceKeyPrefix+userID, raw, c.preferenceTTL).Err()
}

// InvalidatePreferences drops the cached profile after a refresh.
func (c *Cache) InvalidatePreferences(ctx context.Context, userID string) error {
	return c.client.Del(ctx, preferenceKeyPrefix+userID).Err()
}

// StorePlaces caches candidate places by id so later feedback can recover
// price and distance signal without another provider round trip.
func (c *Cache) StorePlaces(ctx context.Context, places []models.Place) {
	for _, place := range places {
		raw, err := json.Marshal(place)
		if err != nil {
			continue
		}
		if err := c.client.Set(ctx, placeKeyPrefix+place.ID, raw, c.placeTTL).Err(); err != nil {
			c.logger.Warn("place cache write failed", map[string]interface{}{
				"place_id": place.ID,
				"error":    err.Error(),
			})
			return
		}
	}
}

// GetPlace returns a cached place record and whether it was present.
func (c *Cache) GetPlace(ctx context.Context, placeID string) (models.Place, bool) {
	raw, err := c.client.Get(ctx, placeKeyPrefix+placeID).Bytes()
	if err != nil {
		return models.Place{}, false
	}

	var place models.Place
	if err := json.Unmarshal(raw, &place); err != nil {
		return models.Place{}, false
	}
	return place, true
}
