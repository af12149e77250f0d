package queries

import (
	"context"
	"time"

	"tourism-booking/internal/infra"
	"tourism-booking/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrReservationNotFound     = errs.Mark(errs.New("reservation not found"), errs.ErrNotFound)
	ErrReservationAccessDenied = errs.Mark(errs.New("reservation belongs to another user"), errs.ErrForbidden)
	ErrReservationListDenied   = errs.Mark(errs.New("cannot list another user's reservations"), errs.ErrForbidden)
)

type ReservationQueries interface {
	GetByID(ctx context.Context, callerID uuid.UUID, isAdmin bool, id uuid.UUID) (*ReservationView, error)
	ListByUser(ctx context.Context, callerID uuid.UUID, isAdmin bool, userID uuid.UUID, after *Cursor, limit int) ([]*ReservationView, *Cursor, error)
}

type ReservationViewRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ReservationView, error)
	FindByUserIDFirstPage(ctx context.Context, userID uuid.UUID, limit int32) ([]*ReservationView, error)
	FindByUserIDKeyset(ctx context.Context, userID uuid.UUID, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*ReservationView, error)
}

type reservationQueriesImpl struct {
	repo ReservationViewRepo
}

func NewReservationQueries(repo ReservationViewRepo) ReservationQueries {
	return &reservationQueriesImpl{repo: repo}
}

func (q *reservationQueriesImpl) GetByID(ctx context.Context, callerID uuid.UUID, isAdmin bool, id uuid.UUID) (*ReservationView, error) {
	view, err := q.repo.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if !isAdmin && view.UserID != callerID {
		return nil, ErrReservationAccessDenied
	}
	return view, nil
}

// ListByUser pages a user's reservations newest first, cancelled ones included.
func (q *reservationQueriesImpl) ListByUser(
	ctx context.Context,
	callerID uuid.UUID,
	isAdmin bool,
	userID uuid.UUID,
	after *Cursor,
	limit int,
) ([]*ReservationView, *Cursor, error) {
	if !isAdmin && callerID != userID {
		return nil, nil, ErrReservationListDenied
	}
	limit = ValidateLimit(limit)
	fetch := int32(limit + 1) // #nosec G115 -- bounded by MaxListLimit

	var (
		rows []*ReservationView
		err  error
	)
	if after == nil || after.After == "" {
		rows, err = q.repo.FindByUserIDFirstPage(ctx, userID, fetch)
	} else {
		lastCreatedAt, lastID, derr := DecodeAfterCursor(after.After)
		if derr != nil {
			return nil, nil, errs.Mark(derr, ErrInvalidCursor)
		}
		rows, err = q.repo.FindByUserIDKeyset(ctx, userID, lastCreatedAt, lastID, fetch)
	}
	if err != nil {
		return nil, nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	rows, next := nextPage(rows, limit, func(v *ReservationView) (time.Time, uuid.UUID) { return v.CreatedAt, v.ID })
	return rows, next, nil
}
