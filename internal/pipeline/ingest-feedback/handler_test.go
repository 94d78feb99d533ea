package ingestfeedback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	commonerrors "poi-recommender/internal/common/errors"
	"poi-recommender/internal/common/logger"
	"poi-recommender/internal/models"
	estimatepreferences "poi-recommender/internal/pipeline/estimate-preferences"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type stubFeedbackStore struct {
	mu        sync.Mutex
	inserted  []models.FeedbackItem
	insertErr error
	listErr   error
}

func (s *stubFeedbackStore) Insert(_ context.Context, item models.FeedbackItem) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserted = append(s.inserted, item)
	return nil
}

func (s *stubFeedbackStore) ListByUser(_ context.Context, userID string) ([]models.FeedbackItem, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.FeedbackItem
	for _, item := range s.inserted {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

type stubProfileWriter struct {
	saved   chan models.UserPreferences
	saveErr error
}

func newStubProfileWriter() *stubProfileWriter {
	return &stubProfileWriter{saved: make(chan models.UserPreferences, 1)}
}

func (s *stubProfileWriter) SavePreferences(_ context.Context, _ string, prefs models.UserPreferences) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved <- prefs
	return nil
}

type stubCache struct {
	invalidated chan string
}

func newStubCache() *stubCache {
	return &stubCache{invalidated: make(chan string, 1)}
}

func (s *stubCache) InvalidatePreferences(_ context.Context, userID string) error {
	s.invalidated <- userID
	return nil
}

func newTestHandler(t *testing.T, store *stubFeedbackStore, profiles *stubProfileWriter, cache *stubCache) *Handler {
	log := logger.NewTestLogger(t)
	estimator := estimatepreferences.NewHandler(nil, log)

	var profileWriter ProfileWriter
	if profiles != nil {
		profileWriter = profiles
	}
	var invalidator CacheInvalidator
	if cache != nil {
		invalidator = cache
	}

	h := NewHandler(store, profileWriter, nil, invalidator, estimator, log)
	h.now = func() time.Time { return time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC) }
	h.newID = func() string { return "fb-123" }
	return h
}

func validFeedback() models.FeedbackItem {
	return models.FeedbackItem{
		UserID:  "u1",
		PlaceID: "place-a",
		Rating:  5,
		Context: models.UserContext{Intent: "dining"},
	}
}

// ==========================
// Validation
// ==========================

func TestHandler_Execute_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.FeedbackItem)
	}{
		{"missing user id", func(f *models.FeedbackItem) { f.UserID = "" }},
		{"missing place id", func(f *models.FeedbackItem) { f.PlaceID = "" }},
		{"rating too low", func(f *models.FeedbackItem) { f.Rating = 0 }},
		{"rating too high", func(f *models.FeedbackItem) { f.Rating = 6 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &stubFeedbackStore{}
			handler := newTestHandler(t, store, newStubProfileWriter(), nil)

			item := validFeedback()
			tt.mutate(&item)

			saved, err := handler.Execute(context.Background(), item)
			require.Error(t, err)
			assert.Nil(t, saved)
			assert.Equal(t, commonerrors.ErrCodeValidationFailed, commonerrors.CodeOf(err))
			assert.Empty(t, store.inserted)
		})
	}
}

// ==========================
// Submission
// ==========================

func TestHandler_Execute_AssignsIDAndTimestamp(t *testing.T) {
	store := &stubFeedbackStore{}
	profiles := newStubProfileWriter()
	handler := newTestHandler(t, store, profiles, nil)

	saved, err := handler.Execute(context.Background(), validFeedback())
	require.NoError(t, err)

	assert.Equal(t, "fb-123", saved.ID)
	assert.Equal(t, time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC), saved.Timestamp)
	<-profiles.saved
}

func TestHandler_Execute_InsertFailureSurfaced(t *testing.T) {
	store := &stubFeedbackStore{insertErr: errors.New("connection reset")}
	handler := newTestHandler(t, store, newStubProfileWriter(), nil)

	saved, err := handler.Execute(context.Background(), validFeedback())
	require.Error(t, err)
	assert.Nil(t, saved)
	assert.Equal(t, commonerrors.ErrCodePersistenceFailed, commonerrors.CodeOf(err))
}

// ==========================
// Profile Refresh
// ==========================

func TestHandler_Execute_RefreshesProfile(t *testing.T) {
	store := &stubFeedbackStore{}
	profiles := newStubProfileWriter()
	cache := newStubCache()
	handler := newTestHandler(t, store, profiles, cache)

	// Two dining items make "dining" a recurring intent.
	first := validFeedback()
	_, err := handler.Execute(context.Background(), first)
	require.NoError(t, err)
	<-profiles.saved
	<-cache.invalidated

	second := validFeedback()
	second.PlaceID = "place-b"
	_, err = handler.Execute(context.Background(), second)
	require.NoError(t, err)

	select {
	case prefs := <-profiles.saved:
		assert.Equal(t, []string{"dining"}, prefs.Categories)
	case <-time.After(2 * time.Second):
		t.Fatal("preferences were never saved")
	}

	select {
	case userID := <-cache.invalidated:
		assert.Equal(t, "u1", userID)
	case <-time.After(2 * time.Second):
		t.Fatal("preference cache was never invalidated")
	}
}

func TestHandler_Execute_RefreshFailureDoesNotAffectSubmission(t *testing.T) {
	store := &stubFeedbackStore{listErr: errors.New("history unavailable")}
	handler := newTestHandler(t, store, newStubProfileWriter(), nil)

	saved, err := handler.Execute(context.Background(), validFeedback())
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Len(t, store.inserted, 1)
}

func TestHandler_Execute_SaveFailureSwallowed(t *testing.T) {
	store := &stubFeedbackStore{}
	profiles := newStubProfileWriter()
	profiles.saveErr = errors.New("write refused")
	handler := newTestHandler(t, store, profiles, nil)

	saved, err := handler.Execute(context.Background(), validFeedback())
	require.NoError(t, err)
	assert.NotNil(t, saved)
}
