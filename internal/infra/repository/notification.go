package repository

import (
	"context"
	"time"

	"tourism-booking/internal/infra"
	"tourism-booking/internal/infra/db"
	"tourism-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

const (
	createNotificationJobSQL = `
INSERT INTO notification_jobs (kind, topic, payload, run_at, status)
VALUES ($1, $2, $3, $4, 'queued')`

	claimDueNotificationJobsSQL = `
UPDATE notification_jobs SET run_at = $2, updated_at = now()
WHERE id IN (
    SELECT id FROM notification_jobs
    WHERE status = 'queued' AND run_at <= $1
    ORDER BY run_at
    LIMIT $3
    FOR UPDATE SKIP LOCKED
)
RETURNING id, kind, topic, payload, attempts, run_at`

	markNotificationSentSQL = `
UPDATE notification_jobs SET status = 'sent', attempts = attempts + 1, last_error = NULL, updated_at = now()
WHERE id = $1`

	markNotificationRetrySQL = `
UPDATE notification_jobs SET attempts = attempts + 1, last_error = $2, run_at = $3, updated_at = now()
WHERE id = $1`

	markNotificationDeadSQL = `
UPDATE notification_jobs SET status = 'dead', attempts = attempts + 1, last_error = $2, updated_at = now()
WHERE id = $1`
)

type NotificationRepository struct {
	dbtx db.DBTX
}

func NewNotificationRepository(dbtx db.DBTX) *NotificationRepository {
	return &NotificationRepository{dbtx: dbtx}
}

func (r *NotificationRepository) CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error {
	if _, err := r.dbtx.Exec(ctx, createNotificationJobSQL, kind, topic, payload, runAt); err != nil {
		return infra.WrapRepoErr("failed to create notification job", err)
	}
	return nil
}

func (r *NotificationRepository) ClaimDue(ctx context.Context, now, leaseUntil time.Time, limit int32) ([]shared.NotificationJob, error) {
	rows, err := r.dbtx.Query(ctx, claimDueNotificationJobsSQL, now, leaseUntil, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to claim notification jobs", err)
	}
	defer rows.Close()

	var jobs []shared.NotificationJob
	for rows.Next() {
		var j shared.NotificationJob
		if err := rows.Scan(&j.ID, &j.Kind, &j.Topic, &j.Payload, &j.Attempts, &j.RunAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan notification job", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate notification jobs", err)
	}
	return jobs, nil
}

func (r *NotificationRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, "failed to mark notification sent", markNotificationSentSQL, id)
}

func (r *NotificationRepository) MarkRetry(ctx context.Context, id uuid.UUID, lastError string, nextRunAt time.Time) error {
	return r.exec(ctx, "failed to reschedule notification", markNotificationRetrySQL, id, lastError, nextRunAt)
}

func (r *NotificationRepository) MarkDead(ctx context.Context, id uuid.UUID, lastError string) error {
	return r.exec(ctx, "failed to mark notification dead", markNotificationDeadSQL, id, lastError)
}

func (r *NotificationRepository) exec(ctx context.Context, msg, query string, args ...any) error {
	if _, err := r.dbtx.Exec(ctx, query, args...); err != nil {
		return infra.WrapRepoErr(msg, err)
	}
	return nil
}
