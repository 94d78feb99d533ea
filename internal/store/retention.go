package store

import (
	"context"
	"time"

	"poi-recommender/internal/common/logger"
)

// ageDeleter is what the janitor needs from each cleaned store.
type ageDeleter interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJanitor periodically deletes feedback and history older than the
// retention window. Sweep failures are logged and retried next interval.
type RetentionJanitor struct {
	feedback ageDeleter
	history  ageDeleter
	maxAge   time.Duration
	interval time.Duration
	logger   logger.Logger

	now func() time.Time
}

func NewRetentionJanitor(feedback, history ageDeleter, maxAge, interval time.Duration, log logger.Logger) *RetentionJanitor {
	if maxAge <= 0 {
		maxAge = 90 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionJanitor{
		feedback: feedback,
		history:  history,
		maxAge:   maxAge,
		interval: interval,
		logger:   log.WithFields(map[string]interface{}{"component": "retention"}),
		now:      time.Now,
	}
}

// Run sweeps until the context is cancelled. One sweep happens immediately.
func (j *RetentionJanitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one retention pass over both stores.
func (j *RetentionJanitor) Sweep(ctx context.Context) {
	cutoff := j.now().Add(-j.maxAge)

	if j.feedback != nil {
		deleted, err := j.feedback.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			j.logger.Warn("feedback retention sweep failed", map[string]interface{}{
				"error": err.Error(),
			})
		} else if deleted > 0 {
			j.logger.Info("feedback retention sweep removed rows", map[string]interface{}{
				"deleted": deleted,
			})
		}
	}

	if j.history != nil {
		deleted, err := j.history.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			j.logger.Warn("history retention sweep failed", map[string]interface{}{
				"error": err.Error(),
			})
		} else if deleted > 0 {
			j.logger.Info("history retention sweep removed entries", map[string]interface{}{
				"deleted": deleted,
			})
		}
	}
}
