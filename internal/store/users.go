// Package store holds the durable persistence layer: users and feedback in
// Postgres, search history in Elasticsearch, hot reads cached in Redis.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"poi-recommender/internal/common/errors"
	"poi-recommender/internal/common/logger"
	"poi-recommender/internal/models"
)

// UserStore persists user records. Preferences travel as a JSON document so
// profile shape changes do not need schema migrations.
type UserStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewUserStore(db *sql.DB, log logger.Logger) *UserStore {
	return &UserStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"store": "users"}),
	}
}

// Create inserts a new user. The preference document defaults when empty.
func (s *UserStore) Create(ctx context.Context, user models.User) (models.User, error) {
	if user.Preferences.PriceRange.Min == 0 && user.Preferences.PriceRange.Max == 0 {
		user.Preferences = models.DefaultPreferences()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	prefs, err := json.Marshal(user.Preferences)
	if err != nil {
		return models.User{}, errors.NewPersistenceFailedError("user create", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, preferences, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.DisplayName, prefs, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return models.User{}, errors.NewPersistenceFailedError("user create", err)
	}
	return user, nil
}

// Get loads one user by id.
func (s *UserStore) Get(ctx context.Context, userID string) (models.User, error) {
	var (
		user  models.User
		prefs []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, preferences, created_at, updated_at
		 FROM users WHERE id = $1`,
		userID,
	).Scan(&user.ID, &user.Email, &user.DisplayName, &prefs, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.User{}, errors.NewUserNotFoundError(userID)
	}
	if err != nil {
		return models.User{}, errors.NewPersistenceFailedError("user read", err)
	}

	if err := json.Unmarshal(prefs, &user.Preferences); err != nil {
		s.logger.Warn("stored preferences unreadable, using defaults", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		user.Preferences = models.DefaultPreferences()
	}
	return user, nil
}

// GetPreferences loads just the preference document for a user. Unknown
// users get the default profile rather than an error so recommendation
// requests do not depend on prior signup.
func (s *UserStore) GetPreferences(ctx context.Context, userID string) (models.UserPreferences, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT preferences FROM users WHERE id = $1`, userID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return models.DefaultPreferences(), nil
	}
	if err != nil {
		return models.DefaultPreferences(), errors.NewPersistenceFailedError("preferences read", err)
	}

	var prefs models.UserPreferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return models.DefaultPreferences(), fmt.Errorf("decoding preferences for %s: %w", userID, err)
	}
	return prefs, nil
}

// SavePreferences upserts the preference document, last write wins.
func (s *UserStore) SavePreferences(ctx context.Context, userID string, prefs models.UserPreferences) error {
	raw, err := json.Marshal(prefs)
	if err != nil {
		return errors.NewPersistenceFailedError("preferences save", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, preferences, created_at, updated_at)
		 VALUES ($1, $2, NOW(), NOW())
		 ON CONFLICT (id) DO UPDATE SET preferences = $2, updated_at = NOW()`,
		userID, raw,
	)
	if err != nil {
		return errors.NewPersistenceFailedError("preferences save", err)
	}
	return nil
}

// Delete removes a user record.
func (s *UserStore) Delete(ctx context.Context, userID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return errors.NewPersistenceFailedError("user delete", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return errors.NewUserNotFoundError(userID)
	}
	return nil
}
