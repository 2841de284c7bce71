package repository

import (
	"context"
	"sync/atomic"
	"time"

	"hostsweep/internal/domain"
	"hostsweep/internal/models"

	"github.com/rs/zerolog"
)

// FailoverStateRepository serves from the primary (redis) until a call
// fails, then degrades to the in-memory fallback and probes the primary
// again after a minute.
type FailoverStateRepository struct {
	primary   domain.StateRepository
	fallback  domain.StateRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverStateRepository(primary, fallback domain.StateRepository, logger *zerolog.Logger) *FailoverStateRepository {
	return &FailoverStateRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStateRepository) GetLastReport(ctx context.Context, ownerID string) (*models.SyncReport, error) {
	if !r.isDown.Load() {
		report, err := r.primary.GetLastReport(ctx, ownerID)
		if err == nil {
			return report, nil
		}
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		report, err := r.primary.GetLastReport(ctx, ownerID)
		if err == nil {
			r.isDown.Store(false)
			return report, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetLastReport(ctx, ownerID)
}

func (r *FailoverStateRepository) SetLastReport(ctx context.Context, ownerID string, report *models.SyncReport) error {
	if !r.isDown.Load() {
		err := r.primary.SetLastReport(ctx, ownerID, report)
		if err == nil {
			return nil
		}
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.SetLastReport(ctx, ownerID, report)
}

func (r *FailoverStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.logger.Error().Err(err).Msg("Primary state repository failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
