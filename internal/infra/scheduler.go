package infra

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultPurgeSchedule runs the retention job daily at 03:00
const DefaultPurgeSchedule = "0 3 * * *"

// NotificationPurger deletes read notifications older than the retention window
type NotificationPurger interface {
	PurgeRead(ctx context.Context, retention time.Duration) (int64, error)
}

// Scheduler manages scheduled maintenance tasks
type Scheduler struct {
	cron      *cron.Cron
	purger    NotificationPurger
	retention time.Duration
	schedule  string
}

// NewScheduler creates a new scheduler
// schedule defaults to DefaultPurgeSchedule if empty
func NewScheduler(purger NotificationPurger, retention time.Duration, schedule string) *Scheduler {
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}
	return &Scheduler{
		cron:      cron.New(),
		purger:    purger,
		retention: retention,
		schedule:  schedule,
	}
}

// Start registers the jobs and starts the cron scheduler
func (s *Scheduler) Start() error {
	zap.L().Info("Starting scheduler",
		zap.String("purge_schedule", s.schedule),
		zap.Duration("retention", s.retention),
	)

	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunPurge(context.Background()); err != nil {
			zap.L().Error("Scheduled notification purge failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	zap.L().Info("Scheduler started")
	return nil
}

// RunPurge runs the retention job once
func (s *Scheduler) RunPurge(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	purged, err := s.purger.PurgeRead(ctx, s.retention)
	if err != nil {
		return 0, err
	}
	zap.L().Info("[CRON] Notification purge complete", zap.Int64("purged", purged))
	return purged, nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	zap.L().Info("Stopping scheduler")
	<-s.cron.Stop().Done()
	zap.L().Info("Scheduler stopped")
}
