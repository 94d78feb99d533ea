// Package server exposes the recommendation pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"poi-recommender/internal/common/errors"
	"poi-recommender/internal/common/logger"
	"poi-recommender/internal/models"
	ingestfeedback "poi-recommender/internal/pipeline/ingest-feedback"
	"poi-recommender/internal/pipeline/recommend"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HistoryReader serves the per-user search history endpoint.
type HistoryReader interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]models.SearchHistory, error)
}

// Pinger reports liveness of one backing dependency.
type Pinger func(ctx context.Context) error

// Telemetry records request-level measurements for the recommendation
// endpoint. A nil telemetry disables recording.
type Telemetry interface {
	RecordRequest(ctx context.Context, status string)
	RecordRequestDuration(ctx context.Context, duration time.Duration, status string)
}

type Server struct {
	recommender *recommend.Handler
	feedback    *ingestfeedback.Handler
	history     HistoryReader
	pingers     map[string]Pinger
	telemetry   Telemetry
	logger      logger.Logger
	httpServer  *http.Server
}

func New(
	addr string,
	recommender *recommend.Handler,
	feedback *ingestfeedback.Handler,
	history HistoryReader,
	pingers map[string]Pinger,
	log logger.Logger,
) *Server {
	s := &Server{
		recommender: recommender,
		feedback:    feedback,
		history:     history,
		pingers:     pingers,
		logger:      log.WithFields(map[string]interface{}{"component": "http"}),
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// SetTelemetry attaches a request recorder. Call before Start.
func (s *Server) SetTelemetry(t Telemetry) {
	s.telemetry = t
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/recommendations", s.handleRecommend)
	mux.HandleFunc("POST /api/feedback", s.handleFeedback)
	mux.HandleFunc("GET /api/users/{id}/history", s.handleHistory)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Start blocks serving requests until the listener closes.
func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{
		"addr": s.httpServer.Addr,
	})
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommend.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.NewValidationError("body", "request body must be valid JSON"))
		return
	}

	start := time.Now()
	resp, err := s.recommender.Execute(r.Context(), &req)
	s.record(r.Context(), time.Since(start), err)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) record(ctx context.Context, elapsed time.Duration, err error) {
	if s.telemetry == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.telemetry.RecordRequest(ctx, status)
	s.telemetry.RecordRequestDuration(ctx, elapsed, status)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var item models.FeedbackItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		s.writeError(w, errors.NewValidationError("body", "request body must be valid JSON"))
		return
	}

	saved, err := s.feedback.Execute(r.Context(), item)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		s.writeError(w, errors.NewValidationError("id", "user id must not be empty"))
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			s.writeError(w, errors.NewValidationError("limit", "must be an integer within [1, 100]"))
			return
		}
		limit = parsed
	}

	entries, err := s.history.ListByUser(r.Context(), userID, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"history": entries,
		"count":   len(entries),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.pingers))
	for name, ping := range s.pingers {
		if err := ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := map[string]interface{}{"status": "ok", "checks": checks}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	s.writeJSON(w, status, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("response encoding failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)
	status := errors.HTTPStatus(code)

	stdErr, ok := err.(*errors.StandardError)
	if !ok {
		stdErr = errors.NewInternalError(err)
	}

	if status >= 500 {
		s.logger.Error("request failed", map[string]interface{}{
			"code":  string(code),
			"error": err.Error(),
		})
	}
	s.writeJSON(w, status, map[string]interface{}{"error": stdErr})
}
