package queries

import (
	"context"
	"time"

	"tourism-booking/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrPaymentListForbidden = errs.Mark(errs.New("cannot list another user's payments"), errs.ErrForbidden)
	ErrInvalidCursor        = errs.Mark(errs.New("invalid pagination cursor"), errs.ErrValidation)
)

type PaymentQueries interface {
	ListByUser(ctx context.Context, callerID uuid.UUID, isAdmin bool, userID uuid.UUID, after *Cursor, limit int) ([]*PaymentView, *Cursor, error)
}

type PaymentViewRepo interface {
	FindByUserIDFirstPage(ctx context.Context, userID uuid.UUID, limit int32) ([]*PaymentView, error)
	FindByUserIDKeyset(ctx context.Context, userID uuid.UUID, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*PaymentView, error)
}

type paymentQueriesImpl struct {
	repo PaymentViewRepo
}

func NewPaymentQueries(repo PaymentViewRepo) PaymentQueries {
	return &paymentQueriesImpl{repo: repo}
}

// ListByUser pages newest first. The returned cursor is nil on the last page.
func (q *paymentQueriesImpl) ListByUser(
	ctx context.Context,
	callerID uuid.UUID,
	isAdmin bool,
	userID uuid.UUID,
	after *Cursor,
	limit int,
) ([]*PaymentView, *Cursor, error) {
	if !isAdmin && callerID != userID {
		return nil, nil, ErrPaymentListForbidden
	}
	limit = ValidateLimit(limit)
	// Fetch one extra row to learn whether another page exists.
	fetch := int32(limit + 1) // #nosec G115 -- bounded by MaxListLimit

	var (
		rows []*PaymentView
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

	rows, next := nextPage(rows, limit, func(v *PaymentView) (time.Time, uuid.UUID) { return v.CreatedAt, v.ID })
	return rows, next, nil
}
