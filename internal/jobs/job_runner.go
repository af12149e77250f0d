package jobs

import (
	"context"
	"log/slog"
	"time"

	"tourism-booking/internal/pkg/clock"
	"tourism-booking/internal/pkg/config"
	"tourism-booking/internal/usecase/commands"
	"tourism-booking/internal/usecase/queries"
	"tourism-booking/internal/usecase/shared"
)

const (
	holdReleaseBatch = 100
	jobTimeout       = 2 * time.Minute
)

// JobRunner coordinates the scheduled background jobs.
type JobRunner struct {
	uow          shared.UnitOfWork
	reservations commands.ReservationCommands
	users        queries.UserQueries
	notifier     shared.Notifier
	clock        clock.Clock
	cfg          config.NotifierConfig
}

func NewJobRunner(
	uow shared.UnitOfWork,
	reservations commands.ReservationCommands,
	users queries.UserQueries,
	notifier shared.Notifier,
	clock clock.Clock,
	cfg config.NotifierConfig,
) *JobRunner {
	return &JobRunner{
		uow:          uow,
		reservations: reservations,
		users:        users,
		notifier:     notifier,
		clock:        clock,
		cfg:          cfg,
	}
}

// runWithRecovery keeps a panicking job from taking the scheduler down.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("job panicked", "job", jobName, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	slog.Debug("starting job", "job", jobName)
	jobFunc(ctx)
	slog.Debug("job completed", "job", jobName)
}

// ReleaseExpiredHolds frees dates held by reservations that were never paid.
func (jr *JobRunner) ReleaseExpiredHolds() {
	jr.runWithRecovery("ReleaseExpiredHolds", func(ctx context.Context) {
		total := 0
		for {
			n, err := jr.reservations.ReleaseExpiredHolds(ctx, holdReleaseBatch)
			if err != nil {
				slog.Error("failed to release expired holds", "error", err.Error())
				return
			}
			total += n
			if n < holdReleaseBatch {
				break
			}
		}
		if total > 0 {
			slog.Info("released expired reservation holds", "count", total)
		}
	})
}

// DispatchNotifications delivers queued outbox rows.
func (jr *JobRunner) DispatchNotifications() {
	jr.runWithRecovery("DispatchNotifications", func(ctx context.Context) {
		sent, err := jr.dispatchBatch(ctx)
		if err != nil {
			slog.Error("failed to dispatch notifications", "error", err.Error())
			return
		}
		if sent > 0 {
			slog.Info("dispatched notifications", "count", sent)
		}
	})
}
