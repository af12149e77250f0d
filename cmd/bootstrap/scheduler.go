package bootstrap

import (
	"context"
	"log/slog"

	"tourism-booking/internal/infra/notifier"
	"tourism-booking/internal/jobs"
	"tourism-booking/internal/pkg/clock"
	"tourism-booking/internal/pkg/config"
	"tourism-booking/internal/scheduler"
	"tourism-booking/internal/usecase/commands"
	"tourism-booking/internal/usecase/queries"
	"tourism-booking/internal/usecase/shared"

	"go.uber.org/fx"
)

var SchedulerModule = fx.Module("scheduler",
	fx.Provide(
		NewNotifier,
		NewJobRunner,
		NewScheduler,
	),
	fx.Invoke(startScheduler),
)

func NewNotifier(cfg config.Config) shared.Notifier {
	return notifier.New(cfg.Notifier)
}

func NewJobRunner(
	uow shared.UnitOfWork,
	reservations commands.ReservationCommands,
	users queries.UserQueries,
	n shared.Notifier,
	clk clock.Clock,
	cfg config.Config,
) *jobs.JobRunner {
	return jobs.NewJobRunner(uow, reservations, users, n, clk, cfg.Notifier)
}

func NewScheduler(jobRunner *jobs.JobRunner, cfg config.Config) (*scheduler.Scheduler, error) {
	return scheduler.NewScheduler(jobRunner, cfg.Scheduler)
}

func startScheduler(lc fx.Lifecycle, s *scheduler.Scheduler, cfg config.Config, logger *slog.Logger) {
	if !cfg.Scheduler.Enabled {
		logger.Info("scheduler disabled")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			s.Start()
			logger.Info("scheduler started", "entries", s.Entries())
			return nil
		},
		OnStop: func(_ context.Context) error {
			s.Stop()
			return nil
		},
	})
}
