package scheduler

import (
	"log/slog"
	"time"

	"tourism-booking/internal/jobs"
	"tourism-booking/internal/pkg/config"

	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
	cfg  config.SchedulerConfig
}

// NewScheduler uses UTC with a leading seconds field in every spec.
func NewScheduler(jobRunner *jobs.JobRunner, cfg config.SchedulerConfig) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
		cfg:  cfg,
	}
	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs() error {
	if _, err := s.cron.AddFunc(s.cfg.ReleaseExpiredHolds, s.jobs.ReleaseExpiredHolds); err != nil {
		slog.Error("failed to register ReleaseExpiredHolds job", "error", err)
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.DispatchNotices, s.jobs.DispatchNotifications); err != nil {
		slog.Error("failed to register DispatchNotifications job", "error", err)
		return err
	}

	slog.Info("cron jobs registered", "count", len(s.cron.Entries()))
	return nil
}

func (s *Scheduler) Start() {
	slog.Info("starting cron scheduler")
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("cron scheduler stopped")
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
