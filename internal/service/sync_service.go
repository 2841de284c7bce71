package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hostsweep/internal/database"
	"hostsweep/internal/domain"
	"hostsweep/internal/events"
	"hostsweep/internal/metrics"
	"hostsweep/internal/models"
	"hostsweep/internal/reconcile"

	"github.com/rs/zerolog"
)

// ErrRateLimited is returned when a preview request exceeds its caller's
// window.
var ErrRateLimited = errors.New("rate limit exceeded")

// SyncService drives full sync passes: fetch every listing's feed, diff it
// against stored schedule state and apply the result. One listing failing
// never aborts the pass for the rest.
type SyncService struct {
	store        domain.Store
	feeds        domain.FeedSource
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	stateRepo    domain.StateRepository
	logger       *zerolog.Logger
}

func NewSyncService(
	store domain.Store,
	feeds domain.FeedSource,
	eventBus domain.EventPublisher,
	sheetsWorker domain.SyncWorker,
	stateRepo domain.StateRepository,
	logger *zerolog.Logger,
) *SyncService {
	return &SyncService{
		store:        store,
		feeds:        feeds,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		stateRepo:    stateRepo,
		logger:       logger,
	}
}

// SyncOwner runs a sync pass over every feed-connected listing the owner
// has. The returned report always covers all listings; per-listing failures
// are carried in the results, not returned as an error.
func (s *SyncService) SyncOwner(ctx context.Context, ownerID string) (*models.SyncReport, error) {
	listings, err := s.store.FeedListings(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed listings: %w", err)
	}

	now := time.Now().UTC()
	report := &models.SyncReport{SyncedAt: now}

	for i := range listings {
		res := s.syncListing(ctx, &listings[i], now)
		report.Add(res)
		metrics.IncListingResult(res.Status)
	}
	metrics.IncSyncRun()

	s.logger.Info().
		Str("owner_id", ownerID).
		Int("total", report.Summary.Total).
		Int("successful", report.Summary.Successful).
		Int("failed", report.Summary.Failed).
		Int("skipped", report.Summary.Skipped).
		Msg("sync pass finished")

	if err := s.stateRepo.SetLastReport(ctx, ownerID, report); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache sync report")
	}

	s.eventBus.PublishJSON(events.EventSyncCompleted, events.SyncEventPayload{
		OwnerID:    ownerID,
		Total:      report.Summary.Total,
		Successful: report.Summary.Successful,
		Failed:     report.Summary.Failed,
		Skipped:    report.Summary.Skipped,
		SyncedAt:   now,
	})

	if s.sheetsWorker != nil && report.Summary.Successful > 0 {
		if err := s.sheetsWorker.EnqueueScheduleMirror(ctx, ownerID); err != nil {
			s.logger.Warn().Err(err).Msg("failed to enqueue sheets mirror task")
		}
	}

	return report, nil
}

// SyncAll runs SyncOwner for every enabled sync account. Used by the cron
// endpoint and the interval worker.
func (s *SyncService) SyncAll(ctx context.Context) (map[string]*models.SyncReport, error) {
	owners, err := s.store.SyncAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync accounts: %w", err)
	}

	reports := make(map[string]*models.SyncReport, len(owners))
	for _, ownerID := range owners {
		if ctx.Err() != nil {
			return reports, ctx.Err()
		}
		report, err := s.SyncOwner(ctx, ownerID)
		if err != nil {
			s.logger.Error().Err(err).Str("owner_id", ownerID).Msg("sync failed for account")
			continue
		}
		reports[ownerID] = report
	}
	return reports, nil
}

func (s *SyncService) syncListing(ctx context.Context, listing *models.Listing, now time.Time) models.ListingSyncResult {
	res := models.ListingSyncResult{
		ListingID:   listing.ID,
		ListingName: listing.Name,
	}

	cleanerID, err := s.store.DefaultCleaner(ctx, listing.ID)
	if errors.Is(err, database.ErrNoCleanerAssigned) {
		res.Status = models.ResultSkipped
		res.Reason = models.ReasonNoCleaner
		return res
	}
	if err != nil {
		res.Status = models.ResultError
		res.Error = err.Error()
		return res
	}

	bookings, err := s.feeds.FetchBookings(ctx, listing.ICSURL)
	if err != nil {
		metrics.IncFeedFetchError()
		s.logger.Error().Err(err).Str("listing_id", listing.ID).Msg("feed fetch failed")
		res.Status = models.ResultError
		res.Error = err.Error()
		return res
	}
	res.TotalBookings = len(bookings)

	items, err := s.store.OpenScheduleItems(ctx, listing.ID)
	if err != nil {
		res.Status = models.ResultError
		res.Error = err.Error()
		return res
	}

	target := reconcile.Target{ListingID: listing.ID, CleanerID: cleanerID}
	plan := reconcile.Reconcile(target, items, bookings, now)

	applied, err := s.store.ApplyPlan(ctx, plan, now)
	if err != nil {
		res.Status = models.ResultError
		res.Error = err.Error()
		return res
	}

	metrics.AddItemOps("inserted", applied.Inserted)
	metrics.AddItemOps("updated", applied.Updated)
	metrics.AddItemOps("cancelled", applied.Cancelled)
	metrics.AddItemOps("completed", applied.Completed)
	s.publishPlanEvents(plan, items)

	if err := s.store.UpdateLastSync(ctx, listing.ID, now); err != nil {
		s.logger.Warn().Err(err).Str("listing_id", listing.ID).Msg("failed to record last sync time")
	}

	res.Status = models.ResultSuccess
	res.ItemsCreated = applied.Inserted
	res.ItemsUpdated = applied.Updated
	res.ItemsCancelled = applied.Cancelled
	return res
}

func (s *SyncService) publishPlanEvents(plan reconcile.Plan, items []models.ScheduleItem) {
	byID := make(map[string]*models.ScheduleItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	for i := range plan.Inserts {
		item := &plan.Inserts[i]
		s.eventBus.PublishJSON(events.EventItemCreated, events.ItemEventPayload{
			ItemID:     item.ID,
			ListingID:  item.ListingID,
			BookingUID: item.BookingUID,
			GuestName:  item.GuestName,
			CheckIn:    item.CheckIn,
			CheckOut:   item.CheckOut,
			Status:     models.StatusPending,
		})
	}
	for _, u := range plan.Updates {
		if !u.Extended {
			continue
		}
		item, ok := byID[u.ItemID]
		if !ok {
			continue
		}
		s.eventBus.PublishJSON(events.EventItemExtended, events.ItemEventPayload{
			ItemID:     u.ItemID,
			ListingID:  item.ListingID,
			BookingUID: item.BookingUID,
			GuestName:  u.GuestName,
			CheckIn:    u.CheckIn,
			CheckOut:   u.CheckOut,
			Status:     models.StatusPending,
		})
	}
	for _, c := range plan.Cancellations {
		if item, ok := byID[c.ItemID]; ok {
			s.eventBus.PublishJSON(events.EventItemCancelled, s.itemPayload(item, models.StatusCancelled))
		}
	}
	for _, c := range plan.Completions {
		if item, ok := byID[c.ItemID]; ok {
			s.eventBus.PublishJSON(events.EventItemCompleted, s.itemPayload(item, models.StatusCompleted))
		}
	}
}

func (s *SyncService) itemPayload(item *models.ScheduleItem, status string) events.ItemEventPayload {
	return events.ItemEventPayload{
		ItemID:     item.ID,
		ListingID:  item.ListingID,
		BookingUID: item.BookingUID,
		GuestName:  item.GuestName,
		CheckIn:    item.CheckIn,
		CheckOut:   item.CheckOut,
		Status:     status,
	}
}

// LastReport returns the cached report from the owner's most recent sync
// pass, or nil when the owner has never synced.
func (s *SyncService) LastReport(ctx context.Context, ownerID string) (*models.SyncReport, error) {
	return s.stateRepo.GetLastReport(ctx, ownerID)
}

// PreviewFeed fetches and parses a feed without touching stored state.
// The endpoint is anonymous and previews hit an external calendar host,
// so they are rate limited per client IP.
func (s *SyncService) PreviewFeed(ctx context.Context, clientIP, url string, limit int, window time.Duration) ([]models.Booking, error) {
	allowed, err := s.stateRepo.CheckRateLimit(ctx, "preview:"+clientIP, limit, window)
	if err != nil {
		s.logger.Warn().Err(err).Msg("rate limit check failed, allowing preview")
	} else if !allowed {
		return nil, ErrRateLimited
	}

	bookings, err := s.feeds.FetchBookings(ctx, url)
	if err != nil {
		metrics.IncFeedFetchError()
		return nil, err
	}
	return bookings, nil
}

// Schedule returns stored schedule items for an owner in a date range.
func (s *SyncService) Schedule(ctx context.Context, ownerID string, from, to time.Time) ([]models.ScheduleItem, error) {
	return s.store.ScheduleItemsByRange(ctx, ownerID, from, to)
}
