package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hostsweep/internal/models"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
)

const scheduleItemColumns = `id, listing_id, cleaner_id, booking_uid, guest_name,
        check_in, check_out, checkout_time, notes, status, source,
        original_check_in, original_check_out, is_extended, extension_count,
        extension_notes, cancelled_at, version, created_at, updated_at`

// InsertScheduleItem creates a new pending item. A racing insert for the
// same booking_uid hits the partial unique index and is reported as
// ErrDuplicateBooking so the caller can treat it as already-done.
func (db *DB) InsertScheduleItem(ctx context.Context, item *models.ScheduleItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Status == "" {
		item.Status = models.StatusPending
	}
	if item.Source == "" {
		item.Source = models.SourceAirbnb
	}
	if item.CheckoutTime == "" {
		item.CheckoutTime = models.DefaultCheckoutTime
	}
	now := time.Now().UTC()

	query := `INSERT INTO schedule_items
              (id, listing_id, cleaner_id, booking_uid, guest_name, check_in, check_out,
               checkout_time, notes, status, source, original_check_in, original_check_out,
               is_extended, extension_count, extension_notes, cancelled_at, version,
               created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`

	_, err := db.ExecContext(ctx, query,
		item.ID,
		item.ListingID,
		item.CleanerID,
		item.BookingUID,
		nullable(item.GuestName),
		item.CheckIn.UTC(),
		item.CheckOut.UTC(),
		item.CheckoutTime,
		nullable(item.Notes),
		item.Status,
		item.Source,
		item.OriginalCheckIn.UTC(),
		item.OriginalCheckOut.UTC(),
		item.IsExtended,
		item.ExtensionCount,
		nullable(item.ExtensionNotes),
		item.CancelledAt,
		now,
		now,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicateBooking
		}
		return fmt.Errorf("failed to insert schedule item: %w", err)
	}

	item.Version = 1
	item.CreatedAt = now
	item.UpdatedAt = now
	return nil
}

// CheckoutChange carries the replacement fields for an item whose checkout
// moved in the feed.
type CheckoutChange struct {
	GuestName      string
	CheckIn        time.Time
	CheckOut       time.Time
	CheckoutTime   string
	Notes          string
	Extended       bool
	ExtensionNotes string
}

// ApplyCheckoutChange rewrites the feed-owned fields of a pending item.
// The write is guarded three ways: optimistic version token, pending
// status, and check_out >= today against racing with a completion sweep.
// original_check_in/out are deliberately never touched.
func (db *DB) ApplyCheckoutChange(ctx context.Context, itemID string, fromVersion int64, change CheckoutChange, today time.Time) error {
	query := `UPDATE schedule_items
              SET guest_name = ?,
                  check_in = ?,
                  check_out = ?,
                  checkout_time = ?,
                  notes = ?,
                  is_extended = CASE WHEN ? THEN 1 ELSE is_extended END,
                  extension_count = extension_count + CASE WHEN ? THEN 1 ELSE 0 END,
                  extension_notes = CASE WHEN ? THEN ? ELSE extension_notes END,
                  version = version + 1,
                  updated_at = ?
              WHERE id = ? AND version = ? AND status = ? AND date(check_out) >= date(?)`

	result, err := db.ExecContext(ctx, query,
		nullable(change.GuestName),
		change.CheckIn.UTC(),
		change.CheckOut.UTC(),
		change.CheckoutTime,
		nullable(change.Notes),
		change.Extended,
		change.Extended,
		change.Extended,
		nullable(change.ExtensionNotes),
		time.Now().UTC(),
		itemID,
		fromVersion,
		models.StatusPending,
		today.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule item: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// CancelScheduleItem moves a pending item to cancelled, appending the
// marker to notes. Prior note content is always retained as a prefix.
func (db *DB) CancelScheduleItem(ctx context.Context, itemID string, fromVersion int64, marker string, cancelledAt time.Time) error {
	query := `UPDATE schedule_items
              SET status = ?,
                  cancelled_at = ?,
                  notes = COALESCE(notes || ' | ', '') || ?,
                  version = version + 1,
                  updated_at = ?
              WHERE id = ? AND version = ? AND status = ?`

	result, err := db.ExecContext(ctx, query,
		models.StatusCancelled,
		cancelledAt.UTC(),
		marker,
		time.Now().UTC(),
		itemID,
		fromVersion,
		models.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel schedule item: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// CompleteScheduleItem moves a pending item to completed.
func (db *DB) CompleteScheduleItem(ctx context.Context, itemID string, fromVersion int64) error {
	query := `UPDATE schedule_items
              SET status = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ? AND status = ?`

	result, err := db.ExecContext(ctx, query,
		models.StatusCompleted, time.Now().UTC(), itemID, fromVersion, models.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to complete schedule item: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// OpenScheduleItems returns the listing's non-terminal items, the snapshot
// the reconciliation engine works from.
func (db *DB) OpenScheduleItems(ctx context.Context, listingID string) ([]models.ScheduleItem, error) {
	query := `SELECT ` + scheduleItemColumns + `
              FROM schedule_items
              WHERE listing_id = ? AND status NOT IN (?, ?)
              ORDER BY check_in, created_at`

	rows, err := db.QueryContext(ctx, query, listingID, models.StatusCancelled, models.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to get open schedule items: %w", err)
	}
	defer rows.Close()

	return collectScheduleItems(rows)
}

func (db *DB) GetScheduleItem(ctx context.Context, id string) (*models.ScheduleItem, error) {
	query := `SELECT ` + scheduleItemColumns + ` FROM schedule_items WHERE id = ?`

	item, err := scanScheduleItem(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get schedule item: %w", err)
	}
	return item, nil
}

// ScheduleItemsByBookingUID returns every row ever recorded for a booking,
// newest first. Cancelled and completed history rows are included.
func (db *DB) ScheduleItemsByBookingUID(ctx context.Context, bookingUID string) ([]models.ScheduleItem, error) {
	query := `SELECT ` + scheduleItemColumns + `
              FROM schedule_items WHERE booking_uid = ? ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, query, bookingUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule items by booking uid: %w", err)
	}
	defer rows.Close()

	return collectScheduleItems(rows)
}

// ScheduleItemsByRange returns an owner's schedule items whose checkout
// falls within [from, to], for exports and schedule views.
func (db *DB) ScheduleItemsByRange(ctx context.Context, ownerID string, from, to time.Time) ([]models.ScheduleItem, error) {
	query := `SELECT si.id, si.listing_id, si.cleaner_id, si.booking_uid, si.guest_name,
                     si.check_in, si.check_out, si.checkout_time, si.notes, si.status, si.source,
                     si.original_check_in, si.original_check_out, si.is_extended, si.extension_count,
                     si.extension_notes, si.cancelled_at, si.version, si.created_at, si.updated_at
              FROM schedule_items si
              JOIN listings l ON l.id = si.listing_id
              WHERE l.user_id = ? AND date(si.check_out) BETWEEN date(?) AND date(?)
              ORDER BY si.check_out, si.created_at`

	rows, err := db.QueryContext(ctx, query, ownerID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule items by range: %w", err)
	}
	defer rows.Close()

	return collectScheduleItems(rows)
}

func collectScheduleItems(rows *sql.Rows) ([]models.ScheduleItem, error) {
	var items []models.ScheduleItem
	for rows.Next() {
		item, err := scanScheduleItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanScheduleItem(row rowScanner) (*models.ScheduleItem, error) {
	var item models.ScheduleItem
	var guestName, notes, extensionNotes sql.NullString
	var cancelledAt sql.NullTime

	err := row.Scan(
		&item.ID,
		&item.ListingID,
		&item.CleanerID,
		&item.BookingUID,
		&guestName,
		&item.CheckIn,
		&item.CheckOut,
		&item.CheckoutTime,
		&notes,
		&item.Status,
		&item.Source,
		&item.OriginalCheckIn,
		&item.OriginalCheckOut,
		&item.IsExtended,
		&item.ExtensionCount,
		&extensionNotes,
		&cancelledAt,
		&item.Version,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.GuestName = guestName.String
	item.Notes = notes.String
	item.ExtensionNotes = extensionNotes.String
	if cancelledAt.Valid {
		t := cancelledAt.Time
		item.CancelledAt = &t
	}
	return &item, nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
