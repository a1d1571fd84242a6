package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/quill/internal/signing/store"
	"github.com/aussiebroadwan/quill/internal/signing/telemetry"
)

// DefaultJobRetention is how long completed outbox jobs are kept.
const DefaultJobRetention = 7 * 24 * time.Hour

// HousekeepingService periodically deactivates expired preview grants and
// prunes completed outbox jobs and stale idempotency records. Grants are
// never deleted; they stay as an access audit trail.
type HousekeepingService struct {
	Store          store.Store
	Logger         *slog.Logger
	Metrics        *telemetry.Metrics
	Interval       time.Duration
	JobRetention   time.Duration
	IdempotencyTTL time.Duration
	Now            func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:          store,
		Logger:         logger,
		Interval:       interval,
		JobRetention:   DefaultJobRetention,
		IdempotencyTTL: DefaultIdempotencyTTL,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one pass. Each step is independent; a failure in one does
// not stop the others.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	s.Logger.Info("starting housekeeping cleanup")

	var ok int

	if n, err := s.Store.PreviewGrants().DeactivateExpired(ctx, now); err != nil {
		s.Logger.Error("failed to deactivate expired preview grants", "error", err)
	} else {
		s.Logger.Debug("deactivated expired preview grants", "count", n)
		ok++
	}

	if n, err := s.Store.Outbox().DeleteCompletedBefore(ctx, now.Add(-s.JobRetention)); err != nil {
		s.Logger.Error("failed to delete completed outbox jobs", "error", err)
	} else {
		s.Logger.Debug("deleted completed outbox jobs", "count", n)
		ok++
	}

	if n, err := s.Store.Idempotency().DeleteBefore(ctx, now.Add(-s.IdempotencyTTL)); err != nil {
		s.Logger.Error("failed to delete idempotency records", "error", err)
	} else {
		s.Logger.Debug("deleted idempotency records", "count", n)
		ok++
	}

	if counts, err := s.Store.Outbox().CountByStatus(ctx); err != nil {
		s.Logger.Error("failed to count outbox jobs", "error", err)
	} else {
		s.Metrics.OutboxDepth(counts)
		ok++
	}

	s.Logger.Info("housekeeping cleanup completed", "successful_cleanups", ok)
}
