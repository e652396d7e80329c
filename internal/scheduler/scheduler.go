package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JL037/mlbtracker/internal/pipeline"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Runner is the part of the pipeline the scheduler drives
type Runner interface {
	Bootstrap(ctx context.Context) (pipeline.BootstrapSummary, error)
	Daily(ctx context.Context) (pipeline.LoadSummary, error)
}

// Options holds the cron expressions. An empty expression disables that job.
type Options struct {
	DailyCron     string
	BootstrapCron string
}

// Scheduler runs the daily refresh and the static data refresh on cron schedules.
// At most one pipeline run is active at a time.
type Scheduler struct {
	opts   Options
	runner Runner
	cron   *cron.Cron

	running sync.Mutex
}

// NewScheduler creates a new scheduler instance
func NewScheduler(opts Options, runner Runner) *Scheduler {
	logger := cron.PrintfLogger(&log.Logger)
	return &Scheduler{
		opts:   opts,
		runner: runner,
		cron: cron.New(cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		)),
	}
}

// Start registers the jobs and starts the cron scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if s.opts.DailyCron != "" {
		if _, err := s.cron.AddFunc(s.opts.DailyCron, func() { s.RunDaily(ctx) }); err != nil {
			return fmt.Errorf("failed to schedule daily refresh: %w", err)
		}
		log.Info().Str("schedule", s.opts.DailyCron).Msg("Daily refresh scheduled")
	}

	if s.opts.BootstrapCron != "" {
		if _, err := s.cron.AddFunc(s.opts.BootstrapCron, func() { s.RunBootstrap(ctx) }); err != nil {
			return fmt.Errorf("failed to schedule bootstrap refresh: %w", err)
		}
		log.Info().Str("schedule", s.opts.BootstrapCron).Msg("Bootstrap refresh scheduled")
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")
	<-s.cron.Stop().Done()
	log.Info().Msg("Scheduler stopped")
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// RunDaily runs one daily refresh unless another run is in progress
func (s *Scheduler) RunDaily(ctx context.Context) bool {
	return s.exclusive("daily", func() error {
		summary, err := s.runner.Daily(ctx)
		if err == nil {
			log.Info().
				Str("run_id", summary.RunID).
				Int("written", summary.Load.Written).
				Int("rejected", summary.Rejected).
				Msg("Daily refresh complete")
		}
		return err
	})
}

// RunBootstrap refreshes teams and seasons unless another run is in progress
func (s *Scheduler) RunBootstrap(ctx context.Context) bool {
	return s.exclusive("bootstrap", func() error {
		summary, err := s.runner.Bootstrap(ctx)
		if err == nil {
			log.Info().
				Str("run_id", summary.RunID).
				Int("teams", summary.TeamsUpserted).
				Int("seasons", summary.SeasonsUpserted).
				Msg("Bootstrap refresh complete")
		}
		return err
	})
}

func (s *Scheduler) exclusive(job string, fn func() error) bool {
	if !s.running.TryLock() {
		log.Warn().Str("job", job).Msg("Previous run still active, skipping")
		return false
	}
	defer s.running.Unlock()

	start := time.Now()
	if err := fn(); err != nil {
		log.Error().Err(err).Str("job", job).Dur("duration", time.Since(start)).Msg("Scheduled run failed")
	}
	return true
}
