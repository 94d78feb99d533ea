package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poi-recommender/internal/common/logger"
	"poi-recommender/internal/models"
)

func TestCachedPreferences_MissLoadsFromStoreAndCaches(t *testing.T) {
	db, mock := newMockDB(t)
	cache, _ := newTestCache(t)
	log := logger.NewTestLogger(t)
	prefsStore := NewCachedPreferences(NewUserStore(db, log), cache, log)

	stored := models.UserPreferences{
		Categories:     []string{"ramen"},
		PriceRange:     models.PriceRange{Min: 2, Max: 3},
		MaxDistance:    800,
		PreferredHours: models.HourRange{Start: 11, End: 22},
	}
	mock.ExpectQuery("SELECT preferences FROM users").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"preferences"}).AddRow(prefsJSON(t, stored)))

	ctx := context.Background()

	got, err := prefsStore.GetPreferences(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, stored, got)

	// Second read must be served from the cache: no further query expected.
	got, err = prefsStore.GetPreferences(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, stored, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedPreferences_SaveWritesThroughAndRefreshesCache(t *testing.T) {
	db, mock := newMockDB(t)
	cache, _ := newTestCache(t)
	log := logger.NewTestLogger(t)
	prefsStore := NewCachedPreferences(NewUserStore(db, log), cache, log)

	mock.ExpectExec("INSERT INTO users").
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	prefs := models.DefaultPreferences()
	prefs.MaxDistance = 250

	require.NoError(t, prefsStore.SavePreferences(ctx, "u1", prefs))

	cached, ok := cache.GetPreferences(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, 250.0, cached.MaxDistance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedPreferences_NilCacheStillWorks(t *testing.T) {
	db, mock := newMockDB(t)
	log := logger.NewTestLogger(t)
	prefsStore := NewCachedPreferences(NewUserStore(db, log), nil, log)

	mock.ExpectQuery("SELECT preferences FROM users").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"preferences"}).AddRow(prefsJSON(t, models.DefaultPreferences())))

	got, err := prefsStore.GetPreferences(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPreferences(), got)
}
