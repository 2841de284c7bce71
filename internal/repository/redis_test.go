package repository

import (
	"context"
	"testing"
	"time"

	"hostsweep/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStateRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	repo := NewRedisStateRepository(client, time.Hour)
	ctx := context.Background()

	t.Run("SetAndGetLastReport", func(t *testing.T) {
		report := &models.SyncReport{
			Summary: models.SyncSummary{Total: 3, Successful: 2, Failed: 1},
			Results: []models.ListingSyncResult{
				{ListingID: "l1", Status: models.ResultSuccess, ItemsCreated: 2},
			},
			SyncedAt: time.Date(2024, 2, 20, 15, 0, 0, 0, time.UTC),
		}

		err := repo.SetLastReport(ctx, "owner-1", report)
		require.NoError(t, err)

		got, err := repo.GetLastReport(ctx, "owner-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, report.Summary, got.Summary)
		assert.Equal(t, "l1", got.Results[0].ListingID)
	})

	t.Run("GetNonExistentReport", func(t *testing.T) {
		got, err := repo.GetLastReport(ctx, "owner-none")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("RateLimit", func(t *testing.T) {
		key := "preview:owner-2"
		limit := 2
		window := time.Second

		// First request
		allowed, err := repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		// Second request
		allowed, err = repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		// Third request (exceeds limit)
		allowed, err = repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.False(t, allowed)

		// Wait for window to expire
		s.FastForward(window + time.Millisecond)

		// Should be allowed again
		allowed, err = repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("NilClient", func(t *testing.T) {
		repo := NewRedisStateRepository(nil, time.Hour)
		_, err := repo.GetLastReport(ctx, "owner-1")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis client is nil")
	})

	t.Run("Ping", func(t *testing.T) {
		err := Ping(ctx, client)
		assert.NoError(t, err)
	})

	t.Run("Close", func(t *testing.T) {
		err := Close(client)
		assert.NoError(t, err)
	})
}
