package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecommendationsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_requests_completed_total",
			Help: "Total number of recommendation requests completed",
		},
		[]string{"degraded"},
	)

	RecommendationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_requests_failed_total",
			Help: "Total number of recommendation requests failed",
		},
		[]string{"error_code"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "recommendation_stage_duration_seconds",
			Help: "Duration of each pipeline stage in seconds",
		},
		[]string{"stage"},
	)

	ModelCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_calls_total",
			Help: "Total number of generative model calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	FallbacksUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deterministic_fallbacks_total",
			Help: "Times a deterministic fallback replaced a model-backed path",
		},
		[]string{"operation"},
	)

	FeedbackSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedback_items_submitted_total",
			Help: "Total number of feedback items accepted",
		},
	)

	RetentionDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retention_feedback_deleted_total",
			Help: "Feedback records removed by the retention janitor",
		},
	)
)
