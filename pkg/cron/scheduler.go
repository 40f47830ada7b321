// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/weekly-pulse/internal/domain/importer"
)

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron          *cron.Cron
	uploads       importer.UploadRepository
	retentionDays int
	logger        *slog.Logger
	metrics       *importer.Metrics
}

// NewScheduler creates a new job scheduler. retentionDays bounds how long
// rollback snapshots are kept before being purged. metrics may be nil.
func NewScheduler(uploads importer.UploadRepository, retentionDays int, logger *slog.Logger, metrics *importer.Metrics) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:          c,
		uploads:       uploads,
		retentionDays: retentionDays,
		logger:        logger,
		metrics:       metrics,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	// Snapshot retention: runs daily at 3:00 AM
	_, err := s.cron.AddFunc("0 3 * * *", s.purgeExpiredSnapshots)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the retention purge (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.purgeExpiredSnapshots()
}

// purgeExpiredSnapshots clears rollback data on uploads older than the
// retention window. The audit rows themselves stay; only the ability to
// roll those imports back expires.
func (s *Scheduler) purgeExpiredSnapshots() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	s.logger.Info("starting snapshot retention purge",
		slog.Time("cutoff", cutoff),
	)

	purged, err := s.uploads.PurgeSnapshotsBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to purge rollback snapshots", slog.Any("error", err))
		return
	}
	if s.metrics != nil {
		s.metrics.SnapshotsPurgedTotal.Add(float64(purged))
	}

	s.logger.Info("snapshot retention purge finished",
		slog.Int("purged", purged),
	)
}
