package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"tourism-booking/internal/domain/money"
	"tourism-booking/internal/domain/reservation"
	"tourism-booking/internal/domain/resource"
	"tourism-booking/internal/infra"
	"tourism-booking/internal/pkg/clock"
	"tourism-booking/internal/pkg/errs"
	"tourism-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrResourceNotFound    = errs.Mark(errs.New("resource not found"), errs.ErrNotFound)
	ErrReservationNotFound = errs.Mark(errs.New("reservation not found"), errs.ErrNotFound)
	ErrReservationConflict = errs.Mark(errs.New("resource is already booked for the requested dates"), errs.ErrConflict)
	ErrCancelForbidden     = errs.Mark(errs.New("not allowed to cancel this reservation"), errs.ErrForbidden)
	ErrPaidCancelForbidden = errs.Mark(errs.New("paid reservations can only be cancelled by an administrator"), errs.ErrForbidden)
	ErrReservationClosed   = errs.Mark(errs.New("reservation can no longer be changed"), errs.ErrInvalidState)
)

type ReserveInput struct {
	ResourceID      uuid.UUID
	UserID          uuid.UUID
	Start           time.Time
	End             time.Time
	Adults          int
	Children        int
	SpecialRequests string
}

type CancelInput struct {
	ReservationID uuid.UUID
	CallerID      uuid.UUID
	CallerIsAdmin bool
	Reason        string
}

type ReservationCommands interface {
	Quote(ctx context.Context, resourceID uuid.UUID, start, end time.Time) (money.Money, error)
	Reserve(ctx context.Context, in ReserveInput) (*reservation.Reservation, error)
	// Cancel on an already cancelled reservation returns it unchanged.
	Cancel(ctx context.Context, in CancelInput) (*reservation.Reservation, error)
	// Confirm runs inside the reconciliation transaction; it is not exposed over HTTP.
	Confirm(ctx context.Context, tx shared.Tx, reservationID uuid.UUID) (*reservation.Reservation, error)
	ReleaseExpiredHolds(ctx context.Context, limit int32) (int, error)
}

type reservationUseCaseImpl struct {
	uow                shared.UnitOfWork
	reservationFactory *reservation.Factory
	clock              clock.Clock
	metrics            Metrics
}

func NewReservationUseCase(
	uow shared.UnitOfWork,
	reservationFactory *reservation.Factory,
	clock clock.Clock,
	metrics Metrics,
) ReservationCommands {
	if metrics == nil {
		metrics = NoopMetrics()
	}
	return &reservationUseCaseImpl{
		uow:                uow,
		reservationFactory: reservationFactory,
		clock:              clock,
		metrics:            metrics,
	}
}

func (r *reservationUseCaseImpl) Quote(ctx context.Context, resourceID uuid.UUID, start, end time.Time) (money.Money, error) {
	stay, err := reservation.NewStay(start, end)
	if err != nil {
		return money.Money{}, errs.Mark(err, errs.ErrInvalidRange)
	}

	res, err := r.loadResource(ctx, r.uow.CommandReads(), resourceID)
	if err != nil {
		return money.Money{}, err
	}
	return r.reservationFactory.PriceCalculator.Quote(res, stay), nil
}

func (r *reservationUseCaseImpl) Reserve(ctx context.Context, in ReserveInput) (*reservation.Reservation, error) {
	stay, err := reservation.NewStay(in.Start, in.End)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrInvalidRange)
	}
	occupants, err := reservation.NewOccupants(in.Adults, in.Children)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrValidation)
	}
	requests, err := reservation.NewSpecialRequests(in.SpecialRequests)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrValidation)
	}

	res, err := r.loadResource(ctx, r.uow.CommandReads(), in.ResourceID)
	if err != nil {
		return nil, err
	}

	entity, err := r.reservationFactory.CreateReservation(res, in.UserID, stay, occupants, requests)
	if err != nil {
		if errs.Is(err, reservation.ErrResourceInactive) {
			return nil, errs.Mark(err, ErrResourceNotFound)
		}
		return nil, errs.Mark(err, errs.ErrValidation)
	}

	err = r.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Reservations().Create(ctx, entity); err != nil {
			if infra.IsKind(err, infra.KindConflict) {
				return ErrReservationConflict
			}
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		return enqueueNotification(ctx, tx, shared.TopicReservationCreated, shared.NotificationPayload{
			ReservationID: entity.ID(),
			UserID:        entity.UserID(),
		}, r.clock.Now())
	})
	if err != nil {
		if errs.Is(err, ErrReservationConflict) {
			r.metrics.ReservationConflict()
		}
		return nil, err
	}

	r.metrics.ReservationCreated()
	slog.Info("reservation created",
		"reservation_id", entity.ID(),
		"resource_id", entity.ResourceID(),
		"total_cents", entity.TotalPrice().Cents())
	return entity, nil
}

func (r *reservationUseCaseImpl) Cancel(ctx context.Context, in CancelInput) (*reservation.Reservation, error) {
	var (
		result  *reservation.Reservation
		changed bool
	)
	err := r.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		entity, err := findForUpdate(ctx, tx, in.ReservationID)
		if err != nil {
			return err
		}
		if !in.CallerIsAdmin && !entity.IsOwnedBy(in.CallerID) {
			return ErrCancelForbidden
		}
		if entity.IsPaid() && !entity.IsCancelled() && !in.CallerIsAdmin {
			return ErrPaidCancelForbidden
		}

		changed, err = entity.Cancel(in.Reason, r.clock.Now())
		if err != nil {
			return errs.Mark(err, ErrReservationClosed)
		}
		result = entity
		if !changed {
			return nil
		}

		if err := tx.Reservations().Update(ctx, entity); err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		return enqueueNotification(ctx, tx, shared.TopicReservationCancelled, shared.NotificationPayload{
			ReservationID: entity.ID(),
			UserID:        entity.UserID(),
			Reason:        *entity.CancellationReason(),
		}, r.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	if changed {
		r.metrics.ReservationCancelled("requested")
		slog.Info("reservation cancelled",
			"reservation_id", result.ID(),
			"by_admin", in.CallerIsAdmin,
			"paid", result.IsPaid())
	}
	return result, nil
}

func (r *reservationUseCaseImpl) Confirm(ctx context.Context, tx shared.Tx, reservationID uuid.UUID) (*reservation.Reservation, error) {
	entity, err := findForUpdate(ctx, tx, reservationID)
	if err != nil {
		return nil, err
	}
	if err := entity.Confirm(r.clock.Now()); err != nil {
		return entity, errs.Mark(err, ErrReservationClosed)
	}
	if err := tx.Reservations().Update(ctx, entity); err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return entity, nil
}

// ReleaseExpiredHolds cancels pending reservations whose payment hold lapsed.
func (r *reservationUseCaseImpl) ReleaseExpiredHolds(ctx context.Context, limit int32) (int, error) {
	released := 0
	err := r.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		released = 0
		now := r.clock.Now()
		expired, err := tx.Reservations().LockExpiredHolds(ctx, now, limit)
		if err != nil {
			return errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}

		for _, entity := range expired {
			changed, err := entity.Cancel(reservation.HoldExpiredReason, now)
			if err != nil || !changed {
				continue
			}
			if err := tx.Reservations().Update(ctx, entity); err != nil {
				return errs.Mark(err, errs.ErrDatabaseOperationFailed)
			}
			if err := enqueueNotification(ctx, tx, shared.TopicReservationCancelled, shared.NotificationPayload{
				ReservationID: entity.ID(),
				UserID:        entity.UserID(),
				Reason:        reservation.HoldExpiredReason,
			}, now); err != nil {
				return err
			}
			released++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for range released {
		r.metrics.ReservationCancelled("hold_expired")
	}
	return released, nil
}

func (r *reservationUseCaseImpl) loadResource(ctx context.Context, reads shared.CommandReads, id uuid.UUID) (*resource.Resource, error) {
	snapshot, err := reads.ResourceByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return resourceFromSnapshot(snapshot)
}

func findForUpdate(ctx context.Context, tx shared.Tx, id uuid.UUID) (*reservation.Reservation, error) {
	entity, err := tx.Reservations().FindByIDForUpdate(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return entity, nil
}

func resourceFromSnapshot(s *shared.ResourceSnapshot) (*resource.Resource, error) {
	var special *resource.SpecialPrice
	if s.SpecialRateCents != nil && s.SpecialFrom != nil && s.SpecialTo != nil {
		sp, err := resource.NewSpecialPrice(money.FromCents(*s.SpecialRateCents), *s.SpecialFrom, *s.SpecialTo)
		if err != nil {
			return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
		}
		special = &sp
	}
	res, err := resource.NewResource(s.ID, s.Name, s.Capacity, money.FromCents(s.NightlyRateCents), special, s.IsActive)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return res, nil
}

func enqueueNotification(ctx context.Context, tx shared.Tx, topic string, payload shared.NotificationPayload, runAt time.Time) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errs.Wrap(err, "encode notification payload")
	}
	if err := tx.Notifications().CreateJob(ctx, shared.NotificationKindEmail, topic, body, runAt); err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	return nil
}
