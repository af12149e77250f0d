package reservation

import (
	"errors"
	"strings"
	"time"

	"tourism-booking/internal/domain/money"
	"tourism-booking/internal/domain/resource"
	"tourism-booking/internal/pkg/clock"

	"github.com/google/uuid"
)

const (
	DefaultCancellationReason = "No reason provided"
	HoldExpiredReason         = "Payment hold expired"
)

var (
	ErrCapacityExceeded     = errors.New("number of guests exceeds resource capacity")
	ErrResourceInactive     = errors.New("resource is not available for booking")
	ErrReservationCancelled = errors.New("reservation is cancelled")
	ErrReservationCompleted = errors.New("reservation is already completed")
	ErrAlreadyPaid          = errors.New("reservation is already paid")
)

type Factory struct {
	Clock           clock.Clock
	PriceCalculator PriceCalculator
	HoldTTL         time.Duration
}

func NewFactory(clk clock.Clock, priceCalculator PriceCalculator, holdTTL time.Duration) *Factory {
	return &Factory{
		Clock:           clk,
		PriceCalculator: priceCalculator,
		HoldTTL:         holdTTL,
	}
}

// CreateReservation prices the stay once; the total is never recomputed afterwards.
func (f *Factory) CreateReservation(
	res *resource.Resource,
	userID uuid.UUID,
	stay Stay,
	occupants Occupants,
	requests SpecialRequests,
) (*Reservation, error) {
	if !res.IsActive() {
		return nil, ErrResourceInactive
	}
	if !res.Accommodates(occupants.Total()) {
		return nil, ErrCapacityExceeded
	}

	now := f.Clock.Now()
	return &Reservation{
		id:              uuid.New(),
		resourceID:      res.ID(),
		userID:          userID,
		stay:            stay,
		occupants:       occupants,
		totalPrice:      f.PriceCalculator.Quote(res, stay),
		paymentState:    PaymentUnpaid,
		lifecycleState:  LifecyclePending,
		specialRequests: requests,
		holdExpiresAt:   now.Add(f.HoldTTL),
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

type Reservation struct {
	id                 uuid.UUID
	resourceID         uuid.UUID
	userID             uuid.UUID
	stay               Stay
	occupants          Occupants
	totalPrice         money.Money
	paymentState       PaymentState
	lifecycleState     LifecycleState
	cancellationReason *string
	specialRequests    SpecialRequests
	holdExpiresAt      time.Time
	createdAt          time.Time
	updatedAt          time.Time
}

func ReconstructReservation(
	id, resourceID, userID uuid.UUID,
	stay Stay,
	occupants Occupants,
	totalPrice money.Money,
	paymentState PaymentState,
	lifecycleState LifecycleState,
	cancellationReason *string,
	specialRequests SpecialRequests,
	holdExpiresAt, createdAt, updatedAt time.Time,
) *Reservation {
	return &Reservation{
		id:                 id,
		resourceID:         resourceID,
		userID:             userID,
		stay:               stay,
		occupants:          occupants,
		totalPrice:         totalPrice,
		paymentState:       paymentState,
		lifecycleState:     lifecycleState,
		cancellationReason: cancellationReason,
		specialRequests:    specialRequests,
		holdExpiresAt:      holdExpiresAt,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
}

// Cancel reports false when the reservation was already cancelled; the stored
// reason is kept in that case.
func (r *Reservation) Cancel(reason string, now time.Time) (bool, error) {
	switch r.lifecycleState {
	case LifecycleCancelled:
		return false, nil
	case LifecycleCompleted:
		return false, ErrReservationCompleted
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultCancellationReason
	}
	r.lifecycleState = LifecycleCancelled
	r.cancellationReason = &reason
	r.updatedAt = now
	return true, nil
}

// Confirm is applied by payment reconciliation only. A reservation is paid once;
// a second confirmation means a second charge and fails with ErrAlreadyPaid.
func (r *Reservation) Confirm(now time.Time) error {
	if r.lifecycleState == LifecycleCancelled {
		return ErrReservationCancelled
	}
	if r.paymentState == PaymentPaid {
		return ErrAlreadyPaid
	}
	r.paymentState = PaymentPaid
	if r.lifecycleState == LifecyclePending {
		r.lifecycleState = LifecycleConfirmed
	}
	r.updatedAt = now
	return nil
}

// CanInitiatePayment checks the reservation side of payment initiation.
func (r *Reservation) CanInitiatePayment() error {
	if r.paymentState == PaymentPaid {
		return ErrAlreadyPaid
	}
	switch r.lifecycleState {
	case LifecycleCancelled:
		return ErrReservationCancelled
	case LifecycleCompleted:
		return ErrReservationCompleted
	}
	return nil
}

// ExtendHold never shortens an existing hold.
func (r *Reservation) ExtendHold(until time.Time) {
	if until.After(r.holdExpiresAt) {
		r.holdExpiresAt = until
	}
}

func (r *Reservation) HoldExpired(now time.Time) bool {
	return r.lifecycleState == LifecyclePending &&
		r.paymentState != PaymentPaid &&
		now.After(r.holdExpiresAt)
}

func (r *Reservation) IsOwnedBy(userID uuid.UUID) bool {
	return r.userID == userID
}

func (r *Reservation) IsCancelled() bool {
	return r.lifecycleState == LifecycleCancelled
}

func (r *Reservation) IsPaid() bool {
	return r.paymentState == PaymentPaid
}

func (r *Reservation) ID() uuid.UUID                    { return r.id }
func (r *Reservation) ResourceID() uuid.UUID            { return r.resourceID }
func (r *Reservation) UserID() uuid.UUID                { return r.userID }
func (r *Reservation) Stay() Stay                       { return r.stay }
func (r *Reservation) Occupants() Occupants             { return r.occupants }
func (r *Reservation) TotalPrice() money.Money          { return r.totalPrice }
func (r *Reservation) PaymentState() PaymentState       { return r.paymentState }
func (r *Reservation) LifecycleState() LifecycleState   { return r.lifecycleState }
func (r *Reservation) CancellationReason() *string      { return r.cancellationReason }
func (r *Reservation) SpecialRequests() SpecialRequests { return r.specialRequests }
func (r *Reservation) HoldExpiresAt() time.Time         { return r.holdExpiresAt }
func (r *Reservation) CreatedAt() time.Time             { return r.createdAt }
func (r *Reservation) UpdatedAt() time.Time             { return r.updatedAt }
