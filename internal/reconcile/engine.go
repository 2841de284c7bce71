// Package reconcile turns a persisted schedule snapshot plus a freshly
// parsed feed into the minimal mutation set that converges them. The feed
// is a stateless full snapshot, so every pass re-derives completions,
// cancellations and upserts from scratch; re-running an unchanged feed
// must produce an empty plan.
package reconcile

import (
	"fmt"
	"time"

	"hostsweep/internal/models"
)

// Reconcile computes the plan for one listing. Pass order is fixed:
//
//  1. completion sweep - pending items with check_out before today
//  2. cancellation detection - future airbnb items missing from the feed
//  3. per-booking upsert - insert new uids, update moved checkouts
//
// The sweep runs first so stale items are never reconsidered by the later
// steps. items must be the listing's non-terminal snapshot.
func Reconcile(target Target, items []models.ScheduleItem, bookings []models.Booking, now time.Time) Plan {
	today := dateOf(now)
	plan := Plan{TotalBookings: len(bookings)}

	swept := make(map[string]bool, len(items))
	for _, item := range items {
		if item.Status != models.StatusPending {
			continue
		}
		if dateOf(item.CheckOut).Before(today) {
			plan.Completions = append(plan.Completions, Completion{ItemID: item.ID, Version: item.Version})
			swept[item.ID] = true
		}
	}

	feedUids := make(map[string]bool, len(bookings))
	for _, b := range bookings {
		feedUids[b.UID] = true
	}

	// The feed can only speak to bookings it sourced: manual items are
	// never cancelled by their absence from it.
	cancelMarker := "Cancelled on " + today.Format("2006-01-02")
	for _, item := range items {
		if item.Terminal() || swept[item.ID] || item.Source != models.SourceAirbnb {
			continue
		}
		if !dateOf(item.CheckOut).After(today) {
			continue
		}
		if !feedUids[item.BookingUID] {
			plan.Cancellations = append(plan.Cancellations, Cancellation{
				ItemID:  item.ID,
				Version: item.Version,
				Marker:  cancelMarker,
			})
		}
	}

	byUID := make(map[string]models.ScheduleItem, len(items))
	for _, item := range items {
		byUID[item.BookingUID] = item
	}

	seen := make(map[string]bool, len(bookings))
	for _, booking := range bookings {
		if seen[booking.UID] {
			continue
		}
		seen[booking.UID] = true

		existing, ok := byUID[booking.UID]
		if !ok {
			plan.Inserts = append(plan.Inserts, newItem(target, booking))
			continue
		}

		if existing.CheckOut.Equal(booking.CheckOut) {
			continue // unchanged, idempotent no-op
		}

		update := Update{
			ItemID:       existing.ID,
			Version:      existing.Version,
			GuestName:    booking.GuestName,
			CheckIn:      booking.CheckIn,
			CheckOut:     booking.CheckOut,
			CheckoutTime: models.DefaultCheckoutTime,
			Notes:        booking.Description,
		}

		// Extension bookkeeping only when the stay got longer. A shortened
		// stay still applies the new dates but leaves the extension fields
		// alone.
		if booking.CheckOut.After(existing.CheckOut) {
			update.Extended = true
			update.ExtensionNotes = fmt.Sprintf("Extended from %s to %s on %s",
				existing.CheckOut.Format("2006-01-02"),
				booking.CheckOut.Format("2006-01-02"),
				today.Format("2006-01-02"))
		}

		plan.Updates = append(plan.Updates, update)
	}

	return plan
}

func newItem(target Target, booking models.Booking) models.ScheduleItem {
	return models.ScheduleItem{
		ListingID:        target.ListingID,
		CleanerID:        target.CleanerID,
		BookingUID:       booking.UID,
		GuestName:        booking.GuestName,
		CheckIn:          booking.CheckIn,
		CheckOut:         booking.CheckOut,
		CheckoutTime:     models.DefaultCheckoutTime,
		Notes:            booking.Description,
		Status:           models.StatusPending,
		Source:           models.SourceAirbnb,
		OriginalCheckIn:  booking.CheckIn,
		OriginalCheckOut: booking.CheckOut,
	}
}

func dateOf(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
