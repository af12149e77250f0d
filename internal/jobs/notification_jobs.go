package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"tourism-booking/internal/domain/user"
	"tourism-booking/internal/pkg/errs"
	"tourism-booking/internal/usecase/queries"
	"tourism-booking/internal/usecase/shared"
)

const (
	retryBaseDelay = 30 * time.Second
	// claimLease hides claimed rows from other dispatchers while they are being sent.
	// It outlasts jobTimeout, so a crashed run is retried only after its lease lapses.
	claimLease = 5 * time.Minute
)

// errUndeliverable marks jobs that no retry can fix.
var errUndeliverable = errs.New("notification cannot be delivered")

// dispatchBatch claims due jobs under a lease in one short transaction, sends them
// with no transaction open, and records each result in its own transaction.
func (jr *JobRunner) dispatchBatch(ctx context.Context) (int, error) {
	var due []shared.NotificationJob
	err := jr.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := jr.clock.Now()
		var err error
		due, err = tx.Notifications().ClaimDue(ctx, now, now.Add(claimLease), jr.cfg.BatchSize)
		return err
	})
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, job := range due {
		deliverErr := jr.deliver(ctx, job)
		if err := jr.recordDelivery(ctx, job, deliverErr); err != nil {
			return sent, err
		}
		if deliverErr == nil {
			sent++
		}
	}
	return sent, nil
}

func (jr *JobRunner) recordDelivery(ctx context.Context, job shared.NotificationJob, deliverErr error) error {
	return jr.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if deliverErr == nil {
			return tx.Notifications().MarkSent(ctx, job.ID)
		}

		if job.Attempts+1 >= jr.cfg.MaxAttempts || errs.Is(deliverErr, errUndeliverable) {
			slog.Error("notification abandoned",
				"job_id", job.ID,
				"topic", job.Topic,
				"attempts", job.Attempts+1,
				"error", deliverErr.Error())
			return tx.Notifications().MarkDead(ctx, job.ID, deliverErr.Error())
		}

		slog.Warn("notification delivery failed; will retry",
			"job_id", job.ID,
			"topic", job.Topic,
			"attempt", job.Attempts+1,
			"error", deliverErr.Error())
		now := jr.clock.Now()
		return tx.Notifications().MarkRetry(ctx, job.ID, deliverErr.Error(), now.Add(retryDelay(job.Attempts)))
	})
}

func (jr *JobRunner) deliver(ctx context.Context, job shared.NotificationJob) error {
	var payload shared.NotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return errs.Mark(errs.Wrap(err, "decode payload"), errUndeliverable)
	}

	contact, err := jr.users.GetContact(ctx, payload.UserID)
	if err != nil {
		return errs.Wrap(err, "load recipient")
	}

	msg, err := renderMessage(job.Topic, contact, payload)
	if err != nil {
		return err
	}
	return jr.notifier.Send(ctx, msg)
}

func renderMessage(topic string, to *queries.UserContactView, p shared.NotificationPayload) (shared.EmailMessage, error) {
	email, err := user.NewEmail(to.Email)
	if err != nil {
		return shared.EmailMessage{}, errs.Mark(errs.Wrapf(err, "recipient %s", to.ID), errUndeliverable)
	}
	msg := shared.EmailMessage{ToEmail: email.Value(), ToName: to.Name}
	ref := p.ReservationID.String()

	switch topic {
	case shared.TopicReservationCreated:
		msg.Subject = "Booking received"
		msg.PlainText = fmt.Sprintf("Hi %s,\n\nYour booking %s has been received and is awaiting payment.", to.Name, ref)
	case shared.TopicReservationCancelled:
		msg.Subject = "Booking cancelled"
		msg.PlainText = fmt.Sprintf("Hi %s,\n\nYour booking %s was cancelled. Reason: %s", to.Name, ref, p.Reason)
	case shared.TopicPaymentConfirmed:
		msg.Subject = "Payment confirmed"
		msg.PlainText = fmt.Sprintf("Hi %s,\n\nWe received your payment for booking %s. M-Pesa receipt: %s", to.Name, ref, p.ReceiptID)
	default:
		return shared.EmailMessage{}, errs.Mark(errs.Newf("unknown topic %q", topic), errUndeliverable)
	}
	msg.HTML = "<p>" + strings.ReplaceAll(html.EscapeString(msg.PlainText), "\n", "<br>") + "</p>"
	return msg, nil
}

func retryDelay(attempts int32) time.Duration {
	if attempts > 6 {
		attempts = 6
	}
	return retryBaseDelay * time.Duration(1<<attempts)
}
