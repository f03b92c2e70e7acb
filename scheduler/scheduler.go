// Package scheduler runs the periodic gallery sweep and blob release retry.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kb-portal/config"

	"github.com/robfig/cron/v3"
)

const retryBatchSize = 100

type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type Retrier interface {
	RetryPending(ctx context.Context, limit int) (int, error)
}

type Scheduler struct {
	cron         *cron.Cron
	sweeper      Sweeper
	retrier      Retrier
	config       config.GalleryConfig
	sweepEntryID cron.EntryID
	retryEntryID cron.EntryID
}

func NewScheduler(sweeper Sweeper, retrier Retrier, cfg config.GalleryConfig, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DiscardLogger))),
		sweeper: sweeper,
		retrier: retrier,
		config:  cfg,
	}
}

// Start registers both jobs and starts the cron loop. A bad schedule
// expression is returned before anything runs.
func (s *Scheduler) Start() error {
	var err error
	s.sweepEntryID, err = s.cron.AddFunc(s.config.SweepSchedule, s.SweepTemporary)
	if err != nil {
		return fmt.Errorf("sweep schedule %q: %w", s.config.SweepSchedule, err)
	}
	s.retryEntryID, err = s.cron.AddFunc(s.config.RetrySchedule, s.RetryReleases)
	if err != nil {
		return fmt.Errorf("retry schedule %q: %w", s.config.RetrySchedule, err)
	}

	s.cron.Start()
	slog.Info("scheduler started", "sweep", s.config.SweepSchedule, "retry", s.config.RetrySchedule)
	return nil
}

func (s *Scheduler) SweepTemporary() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := s.sweeper.Sweep(ctx)
	if err != nil {
		slog.Error("gallery sweep failed", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("gallery sweep", "removed", removed)
	}
}

func (s *Scheduler) RetryReleases() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	released, err := s.retrier.RetryPending(ctx, retryBatchSize)
	if err != nil {
		slog.Error("blob release retry failed", "error", err)
		return
	}
	if released > 0 {
		slog.Info("blob release retry", "released", released)
	}
}

// NextSweep returns the next scheduled sweep time.
func (s *Scheduler) NextSweep() time.Time {
	return s.cron.Entry(s.sweepEntryID).Next
}

func (s *Scheduler) NextRetry() time.Time {
	return s.cron.Entry(s.retryEntryID).Next
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
