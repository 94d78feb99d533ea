package store

import (
	"context"

	"poi-recommender/internal/common/logger"
	"poi-recommender/internal/models"
)

// CachedPreferences fronts the user store with the Redis cache for the hot
// preference read on every recommendation request. Writes go through to the
// store and refresh the cache.
type CachedPreferences struct {
	users  *UserStore
	cache  *Cache
	logger logger.Logger
}

func NewCachedPreferences(users *UserStore, cache *Cache, log logger.Logger) *CachedPreferences {
	return &CachedPreferences{
		users:  users,
		cache:  cache,
		logger: log.WithFields(map[string]interface{}{"store": "preferences"}),
	}
}

// GetPreferences serves from cache when possible, falling back to Postgres.
func (p *CachedPreferences) GetPreferences(ctx context.Context, userID string) (models.UserPreferences, error) {
	if p.cache != nil {
		if prefs, ok := p.cache.GetPreferences(ctx, userID); ok {
			return prefs, nil
		}
	}

	prefs, err := p.users.GetPreferences(ctx, userID)
	if err != nil {
		return prefs, err
	}

	if p.cache != nil {
		if err := p.cache.SetPreferences(ctx, userID, prefs); err != nil {
			p.logger.Warn("preference cache write failed", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}
	return prefs, nil
}

// SavePreferences writes through to the store and refreshes the cache.
func (p *CachedPreferences) SavePreferences(ctx context.Context, userID string, prefs models.UserPreferences) error {
	if err := p.users.SavePreferences(ctx, userID, prefs); err != nil {
		return err
	}
	if p.cache != nil {
		if err := p.cache.SetPreferences(ctx, userID, prefs); err != nil {
			p.logger.Warn("preference cache refresh failed", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}
	return nil
}
