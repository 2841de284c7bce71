package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hostsweep/internal/reconcile"
)

// Applied counts the mutations a plan actually landed. It can undercount
// the plan when a racing sync run applied an operation first; that outcome
// is converged state, not an error.
type Applied struct {
	Inserted  int
	Updated   int
	Cancelled int
	Completed int
}

// ApplyPlan executes a reconciliation plan in plan order: completions,
// cancellations, then upserts. Lost version races and duplicate pending
// inserts are skipped; any other store failure aborts the listing's pass.
func (db *DB) ApplyPlan(ctx context.Context, plan reconcile.Plan, now time.Time) (Applied, error) {
	var applied Applied
	today := now.UTC()

	for _, c := range plan.Completions {
		err := db.CompleteScheduleItem(ctx, c.ItemID, c.Version)
		if errors.Is(err, ErrConcurrentModification) {
			db.logger.Debug().Str("item_id", c.ItemID).Msg("completion lost version race, skipping")
			continue
		}
		if err != nil {
			return applied, fmt.Errorf("apply completion: %w", err)
		}
		applied.Completed++
	}

	for _, c := range plan.Cancellations {
		err := db.CancelScheduleItem(ctx, c.ItemID, c.Version, c.Marker, now)
		if errors.Is(err, ErrConcurrentModification) {
			db.logger.Debug().Str("item_id", c.ItemID).Msg("cancellation lost version race, skipping")
			continue
		}
		if err != nil {
			return applied, fmt.Errorf("apply cancellation: %w", err)
		}
		applied.Cancelled++
	}

	for i := range plan.Inserts {
		item := &plan.Inserts[i]
		err := db.InsertScheduleItem(ctx, item)
		if errors.Is(err, ErrDuplicateBooking) {
			db.logger.Debug().Str("booking_uid", item.BookingUID).Msg("pending item already exists, skipping insert")
			continue
		}
		if err != nil {
			return applied, fmt.Errorf("apply insert: %w", err)
		}
		applied.Inserted++
	}

	for _, u := range plan.Updates {
		change := CheckoutChange{
			GuestName:      u.GuestName,
			CheckIn:        u.CheckIn,
			CheckOut:       u.CheckOut,
			CheckoutTime:   u.CheckoutTime,
			Notes:          u.Notes,
			Extended:       u.Extended,
			ExtensionNotes: u.ExtensionNotes,
		}
		err := db.ApplyCheckoutChange(ctx, u.ItemID, u.Version, change, today)
		if errors.Is(err, ErrConcurrentModification) {
			db.logger.Debug().Str("item_id", u.ItemID).Msg("update lost version race, skipping")
			continue
		}
		if err != nil {
			return applied, fmt.Errorf("apply update: %w", err)
		}
		applied.Updated++
	}

	return applied, nil
}
