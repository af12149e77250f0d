package readstore

import (
	"context"
	"time"

	"tourism-booking/internal/infra"
	"tourism-booking/internal/infra/db"
	"tourism-booking/internal/pkg/pgconv"
	"tourism-booking/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentViewColumns = `id, reservation_id, user_id, amount_cents, currency, method, phone_number,
	merchant_request_id, checkout_request_id, status, receipt_id, transaction_at, failure_reason,
	created_at, updated_at`

const (
	getPaymentsByUserFirstPageSQL = `SELECT ` + paymentViewColumns + `
FROM payments
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

	getPaymentsByUserKeysetSQL = `SELECT ` + paymentViewColumns + `
FROM payments
WHERE user_id = $1 AND (created_at, id) < ($2, $3)
ORDER BY created_at DESC, id DESC
LIMIT $4`
)

type PaymentReadStore struct {
	db db.DBTX
}

func NewPaymentReadStore(dbtx db.DBTX) *PaymentReadStore {
	return &PaymentReadStore{db: dbtx}
}

func (r *PaymentReadStore) FindByUserIDFirstPage(ctx context.Context, userID uuid.UUID, limit int32) ([]*queries.PaymentView, error) {
	rows, err := r.db.Query(ctx, getPaymentsByUserFirstPageSQL, userID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find payments first page", err)
	}
	return collectPaymentViews(rows)
}

func (r *PaymentReadStore) FindByUserIDKeyset(ctx context.Context, userID uuid.UUID, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*queries.PaymentView, error) {
	rows, err := r.db.Query(ctx, getPaymentsByUserKeysetSQL, userID, pgconv.TimeToPgtype(lastCreatedAt), lastID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find payments keyset", err)
	}
	return collectPaymentViews(rows)
}

func collectPaymentViews(rows pgx.Rows) ([]*queries.PaymentView, error) {
	defer rows.Close()

	result := make([]*queries.PaymentView, 0)
	for rows.Next() {
		var (
			v                queries.PaymentView
			receipt, failure pgtype.Text
			transactionAt    pgtype.Timestamptz
		)
		if err := rows.Scan(
			&v.ID, &v.ReservationID, &v.UserID, &v.AmountCents, &v.Currency, &v.Method, &v.PhoneNumber,
			&v.MerchantRequestID, &v.CheckoutRequestID, &v.Status, &receipt, &transactionAt, &failure,
			&v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, infra.WrapRepoErr("failed to scan payment", err)
		}
		v.ReceiptID = pgconv.StringPtrFromPgtype(receipt)
		v.TransactionAt = pgconv.TimePtrFromPgtype(transactionAt)
		v.FailureReason = pgconv.StringPtrFromPgtype(failure)
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate payments", err)
	}
	return result, nil
}
