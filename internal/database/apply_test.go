package database

import (
	"context"
	"testing"
	"time"

	"hostsweep/internal/models"
	"hostsweep/internal/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runPlan reconciles the listing's current open items against a feed
// snapshot and applies the result, the way a sync pass does.
func runPlan(t *testing.T, db *DB, target reconcile.Target, bookings []models.Booking, now time.Time) Applied {
	t.Helper()
	items, err := db.OpenScheduleItems(context.Background(), target.ListingID)
	require.NoError(t, err)
	plan := reconcile.Reconcile(target, items, bookings, now)
	applied, err := db.ApplyPlan(context.Background(), plan, now)
	require.NoError(t, err)
	return applied
}

func TestApplyPlan_FullLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	target := reconcile.Target{ListingID: "l1", CleanerID: "c1"}
	now := time.Date(2024, 2, 20, 15, 30, 0, 0, time.UTC)

	booking := models.Booking{
		UID:       "res-1",
		GuestName: "John Smith",
		CheckIn:   day(2024, 3, 1),
		CheckOut:  day(2024, 3, 5),
	}

	// First pass inserts the booking.
	applied := runPlan(t, db, target, []models.Booking{booking}, now)
	assert.Equal(t, Applied{Inserted: 1}, applied)

	// Second pass with an unchanged feed is a no-op.
	applied = runPlan(t, db, target, []models.Booking{booking}, now)
	assert.Equal(t, Applied{}, applied)

	// Guest extends the stay.
	booking.CheckOut = day(2024, 3, 8)
	applied = runPlan(t, db, target, []models.Booking{booking}, now)
	assert.Equal(t, Applied{Updated: 1}, applied)

	items, err := db.OpenScheduleItems(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].IsExtended)
	assert.Equal(t, int64(1), items[0].ExtensionCount)
	assert.True(t, items[0].OriginalCheckOut.Equal(day(2024, 3, 5)))

	// Booking disappears from the feed: cancelled, not deleted.
	applied = runPlan(t, db, target, nil, now)
	assert.Equal(t, Applied{Cancelled: 1}, applied)

	history, err := db.ScheduleItemsByBookingUID(ctx, "res-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusCancelled, history[0].Status)
	assert.Contains(t, history[0].Notes, "Cancelled on 2024-02-20")

	// Re-reconciling an empty feed against the now-empty open set does
	// nothing further.
	applied = runPlan(t, db, target, nil, now)
	assert.Equal(t, Applied{}, applied)
}

func TestApplyPlan_CompletionSweep(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	target := reconcile.Target{ListingID: "l1", CleanerID: "c1"}
	now := time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC)

	past := seedItem(t, db, "l1", "c1", "old-1", day(2024, 2, 1), day(2024, 2, 3))

	applied := runPlan(t, db, target, nil, now)
	assert.Equal(t, Applied{Completed: 1}, applied)

	got, err := db.GetScheduleItem(ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
}

func TestApplyPlan_StaleVersionSkippedNotFatal(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC)

	item := seedItem(t, db, "l1", "c1", "u1", day(2024, 3, 1), day(2024, 3, 5))

	// Another run bumped the version after this plan was computed.
	change := CheckoutChange{CheckIn: day(2024, 3, 1), CheckOut: day(2024, 3, 6), CheckoutTime: "11:00"}
	require.NoError(t, db.ApplyCheckoutChange(ctx, item.ID, item.Version, change, now))

	plan := reconcile.Plan{
		Updates: []reconcile.Update{{
			ItemID:       item.ID,
			Version:      item.Version, // stale
			CheckIn:      day(2024, 3, 1),
			CheckOut:     day(2024, 3, 9),
			CheckoutTime: "11:00",
		}},
	}
	applied, err := db.ApplyPlan(ctx, plan, now)
	require.NoError(t, err)
	assert.Equal(t, Applied{}, applied)

	got, err := db.GetScheduleItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.CheckOut.Equal(day(2024, 3, 6)), "the winning write is kept")
}

func TestApplyPlan_DuplicateInsertSkipped(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC)

	seedItem(t, db, "l1", "c1", "u1", day(2024, 3, 1), day(2024, 3, 5))

	plan := reconcile.Plan{
		Inserts: []models.ScheduleItem{{
			ListingID: "l1", CleanerID: "c1", BookingUID: "u1",
			CheckIn: day(2024, 3, 1), CheckOut: day(2024, 3, 5),
			OriginalCheckIn: day(2024, 3, 1), OriginalCheckOut: day(2024, 3, 5),
		}},
	}
	applied, err := db.ApplyPlan(context.Background(), plan, now)
	require.NoError(t, err)
	assert.Equal(t, Applied{}, applied)
}
