package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hostsweep/internal/config"
	"hostsweep/internal/database"
	"hostsweep/internal/domain"
	"hostsweep/internal/events"
	"hostsweep/internal/ics"
	"hostsweep/internal/logging"
	"hostsweep/internal/repository"
	"hostsweep/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// The sync binary runs scheduled passes without the HTTP surface, for
// deployments that drive syncs from systemd or cron instead of an external
// scheduler hitting the API.
func main() {
	once := flag.Bool("once", false, "run a single sync pass and exit")
	flag.Parse()

	if err := run(*once); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(once bool) error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := baseLogger.With().Str("component", "sync-main").Logger()

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var stateRepo domain.StateRepository = repository.NewMemoryStateRepository(24 * time.Hour)
	if redisClient != nil {
		primary := repository.NewRedisStateRepository(redisClient, 24*time.Hour)
		stateRepo = repository.NewFailoverStateRepository(primary, stateRepo, &logger)
	}

	fetchTimeout := cfg.Sync.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}
	fetcher := ics.NewFetcher(fetchTimeout, &logger)

	svc := service.NewSyncService(db, fetcher, events.NewEventBus(), nil, stateRepo, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if once {
		return runPass(ctx, svc, &logger)
	}

	interval := cfg.Sync.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	logger.Info().Dur("interval", interval).Msg("sync loop started")

	if err := runPass(ctx, svc, &logger); err != nil {
		logger.Error().Err(err).Msg("sync pass failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("sync loop stopped")
			return nil
		case <-ticker.C:
			if err := runPass(ctx, svc, &logger); err != nil {
				logger.Error().Err(err).Msg("sync pass failed")
			}
		}
	}
}

func runPass(ctx context.Context, svc *service.SyncService, logger *zerolog.Logger) error {
	reports, err := svc.SyncAll(ctx)
	if err != nil {
		return err
	}
	for ownerID, report := range reports {
		logger.Info().
			Str("owner_id", ownerID).
			Int("successful", report.Summary.Successful).
			Int("failed", report.Summary.Failed).
			Int("skipped", report.Summary.Skipped).
			Msg("account synced")
	}
	return nil
}
