package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hostsweep/internal/models"

	"github.com/google/uuid"
)

func (db *DB) CreateListing(ctx context.Context, listing *models.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	query := `INSERT INTO listings (id, user_id, name, ics_url, last_sync, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`

	var icsURL sql.NullString
	if listing.ICSURL != "" {
		icsURL = sql.NullString{String: listing.ICSURL, Valid: true}
	}

	_, err := db.ExecContext(ctx, query,
		listing.ID, listing.OwnerID, listing.Name, icsURL, listing.LastSync, now, now)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	listing.CreatedAt = now
	listing.UpdatedAt = now
	return nil
}

func (db *DB) GetListing(ctx context.Context, id string) (*models.Listing, error) {
	query := `SELECT id, user_id, name, ics_url, last_sync, created_at, updated_at
              FROM listings WHERE id = ?`

	listing, err := scanListing(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return listing, nil
}

// FeedListings returns the owner's listings that have a calendar feed
// connected, in creation order.
func (db *DB) FeedListings(ctx context.Context, ownerID string) ([]models.Listing, error) {
	query := `SELECT id, user_id, name, ics_url, last_sync, created_at, updated_at
              FROM listings
              WHERE user_id = ? AND ics_url IS NOT NULL AND ics_url != ''
              ORDER BY created_at, id`

	rows, err := db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get feed listings: %w", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, *listing)
	}
	return listings, rows.Err()
}

// UpdateLastSync records a successful sync pass for the listing.
func (db *DB) UpdateLastSync(ctx context.Context, listingID string, syncedAt time.Time) error {
	query := `UPDATE listings SET last_sync = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, syncedAt.UTC(), time.Now().UTC(), listingID)
	if err != nil {
		return fmt.Errorf("failed to update last sync: %w", err)
	}
	return nil
}

func (db *DB) CreateCleaner(ctx context.Context, cleaner *models.Cleaner) error {
	if cleaner.ID == "" {
		cleaner.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	query := `INSERT INTO cleaners (id, user_id, name, phone, email, created_at)
              VALUES (?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		cleaner.ID, cleaner.OwnerID, cleaner.Name, cleaner.Phone, cleaner.Email, now)
	if err != nil {
		return fmt.Errorf("failed to create cleaner: %w", err)
	}
	cleaner.CreatedAt = now
	return nil
}

func (db *DB) CreateAssignment(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	query := `INSERT INTO assignments (id, listing_id, cleaner_id, created_at)
              VALUES (?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		assignment.ID, assignment.ListingID, assignment.CleanerID, now)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	assignment.CreatedAt = now
	return nil
}

// DefaultCleaner resolves the listing's default cleaner: the earliest
// assignment wins. ErrNoCleanerAssigned when the listing has none.
func (db *DB) DefaultCleaner(ctx context.Context, listingID string) (string, error) {
	query := `SELECT cleaner_id FROM assignments
              WHERE listing_id = ? ORDER BY created_at, id LIMIT 1`

	var cleanerID string
	err := db.QueryRowContext(ctx, query, listingID).Scan(&cleanerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoCleanerAssigned
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve default cleaner: %w", err)
	}
	return cleanerID, nil
}

// UpsertSyncAccount marks an owner as cron-sync eligible (or not).
func (db *DB) UpsertSyncAccount(ctx context.Context, ownerID string, enabled bool) error {
	query := `INSERT INTO sync_accounts (user_id, enabled, created_at)
              VALUES (?, ?, ?)
              ON CONFLICT(user_id) DO UPDATE SET enabled = excluded.enabled`
	_, err := db.ExecContext(ctx, query, ownerID, enabled, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert sync account: %w", err)
	}
	return nil
}

// SyncAccounts lists the owners eligible for cron-mode sync.
func (db *DB) SyncAccounts(ctx context.Context) ([]string, error) {
	query := `SELECT user_id FROM sync_accounts WHERE enabled = 1 ORDER BY created_at, user_id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync accounts: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan sync account: %w", err)
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanListing(row rowScanner) (*models.Listing, error) {
	var listing models.Listing
	var icsURL sql.NullString
	var lastSync sql.NullTime

	err := row.Scan(
		&listing.ID,
		&listing.OwnerID,
		&listing.Name,
		&icsURL,
		&lastSync,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	listing.ICSURL = icsURL.String
	if lastSync.Valid {
		t := lastSync.Time
		listing.LastSync = &t
	}
	return &listing, nil
}
