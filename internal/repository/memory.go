package repository

import (
	"context"
	"sync"
	"time"

	"hostsweep/internal/models"
)

type MemoryStateRepository struct {
	reports    sync.Map
	rateLimits sync.Map
	ttl        time.Duration
}

func NewMemoryStateRepository(ttl time.Duration) *MemoryStateRepository {
	return &MemoryStateRepository{
		ttl: ttl,
	}
}

func (r *MemoryStateRepository) GetLastReport(ctx context.Context, ownerID string) (*models.SyncReport, error) {
	val, ok := r.reports.Load(ownerID)
	if !ok {
		return nil, nil
	}
	return val.(*models.SyncReport), nil
}

func (r *MemoryStateRepository) SetLastReport(ctx context.Context, ownerID string, report *models.SyncReport) error {
	r.reports.Store(ownerID, report)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(key)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(key, entry)
	return entry.count <= limit, nil
}
