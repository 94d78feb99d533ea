package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"poi-recommender/internal/common/errors"
	"poi-recommender/internal/common/logger"
	"poi-recommender/internal/common/metrics"
	"poi-recommender/internal/models"
)

// FeedbackStore is the append-only feedback log. Rows are never updated;
// retention cleanup is the only delete path.
type FeedbackStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewFeedbackStore(db *sql.DB, log logger.Logger) *FeedbackStore {
	return &FeedbackStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"store": "feedback"}),
	}
}

// Insert appends one feedback item.
func (s *FeedbackStore) Insert(ctx context.Context, item models.FeedbackItem) error {
	rawContext, err := json.Marshal(item.Context)
	if err != nil {
		return errors.NewPersistenceFailedError("feedback insert", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, user_id, place_id, rating, comment, context, action_taken, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.UserID, item.PlaceID, item.Rating, item.Comment, rawContext, item.ActionTaken, item.Timestamp,
	)
	if err != nil {
		return errors.NewPersistenceFailedError("feedback insert", err)
	}
	return nil
}

// ListByUser returns a user's feedback, newest first.
func (s *FeedbackStore) ListByUser(ctx context.Context, userID string) ([]models.FeedbackItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, place_id, rating, comment, context, action_taken, created_at
		 FROM feedback WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.NewPersistenceFailedError("feedback list", err)
	}
	defer rows.Close()

	var items []models.FeedbackItem
	for rows.Next() {
		var (
			item       models.FeedbackItem
			rawContext []byte
		)
		if err := rows.Scan(&item.ID, &item.UserID, &item.PlaceID, &item.Rating,
			&item.Comment, &rawContext, &item.ActionTaken, &item.Timestamp); err != nil {
			return nil, errors.NewPersistenceFailedError("feedback list", err)
		}
		if err := json.Unmarshal(rawContext, &item.Context); err != nil {
			s.logger.Warn("stored feedback context unreadable", map[string]interface{}{
				"feedback_id": item.ID,
				"error":       err.Error(),
			})
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewPersistenceFailedError("feedback list", err)
	}
	return items, nil
}

// DeleteOlderThan removes feedback past the retention window and returns how
// many rows went away.
func (s *FeedbackStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM feedback WHERE created_at < $1`, cutoff,
	)
	if err != nil {
		return 0, errors.NewPersistenceFailedError("feedback retention delete", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewPersistenceFailedError("feedback retention delete", err)
	}
	metrics.RetentionDeleted.Add(float64(deleted))
	return deleted, nil
}
