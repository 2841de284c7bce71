package domain

import (
	"context"
	"time"

	"hostsweep/internal/database"
	"hostsweep/internal/models"
	"hostsweep/internal/reconcile"
)

type Store interface {
	GetListing(ctx context.Context, id string) (*models.Listing, error)
	FeedListings(ctx context.Context, ownerID string) ([]models.Listing, error)
	UpdateLastSync(ctx context.Context, listingID string, syncedAt time.Time) error
	DefaultCleaner(ctx context.Context, listingID string) (string, error)
	OpenScheduleItems(ctx context.Context, listingID string) ([]models.ScheduleItem, error)
	ScheduleItemsByRange(ctx context.Context, ownerID string, from, to time.Time) ([]models.ScheduleItem, error)
	ApplyPlan(ctx context.Context, plan reconcile.Plan, now time.Time) (database.Applied, error)
	SyncAccounts(ctx context.Context) ([]string, error)
}

type FeedSource interface {
	FetchBookings(ctx context.Context, url string) ([]models.Booking, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// StateRepository caches small per-owner state in redis with an in-memory
// fallback: the last sync report and preview rate-limit windows.
type StateRepository interface {
	GetLastReport(ctx context.Context, ownerID string) (*models.SyncReport, error)
	SetLastReport(ctx context.Context, ownerID string, report *models.SyncReport) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type SheetsWriter interface {
	ReplaceScheduleSheet(ctx context.Context, items []models.ScheduleItem) error
}

type SyncWorker interface {
	EnqueueScheduleMirror(ctx context.Context, ownerID string) error
}
