package shared

import (
	"context"
	"time"

	"tourism-booking/internal/domain/payment"
	"tourism-booking/internal/domain/reservation"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: Full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// CommandReads: Direct access to command reads for validation outside transactions
	CommandReads() CommandReads
}

type Tx interface {
	Reservations() ReservationRepository
	Payments() PaymentRepository
	Notifications() NotificationRepository
	Reads() CommandReads
}

type CommandReads interface {
	ResourceByID(ctx context.Context, id uuid.UUID) (*ResourceSnapshot, error)
	ReservationByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error)
	PaymentByCheckoutID(ctx context.Context, checkoutRequestID string) (*payment.Payment, error)
}

type ReservationRepository interface {
	// Create fails with infra.KindConflict when the stay overlaps a live reservation.
	Create(ctx context.Context, res *reservation.Reservation) error
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error)
	Update(ctx context.Context, res *reservation.Reservation) error
	// LockExpiredHolds returns pending unpaid reservations past their hold with no
	// pending payment, skipping rows locked by other workers.
	LockExpiredHolds(ctx context.Context, now time.Time, limit int32) ([]*reservation.Reservation, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *payment.Payment) error
	// FindByCheckoutIDForUpdate serializes reconciliation per payment.
	FindByCheckoutIDForUpdate(ctx context.Context, checkoutRequestID string) (*payment.Payment, error)
	Update(ctx context.Context, p *payment.Payment) error
}

type NotificationRepository interface {
	CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error
	// ClaimDue leases due jobs until leaseUntil; an unrecorded job becomes due again then.
	ClaimDue(ctx context.Context, now, leaseUntil time.Time, limit int32) ([]NotificationJob, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkRetry(ctx context.Context, id uuid.UUID, lastError string, nextRunAt time.Time) error
	MarkDead(ctx context.Context, id uuid.UUID, lastError string) error
}
