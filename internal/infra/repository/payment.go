package repository

import (
	"context"

	"tourism-booking/internal/domain/payment"
	"tourism-booking/internal/infra"
	"tourism-booking/internal/infra/db"
	"tourism-booking/internal/infra/repository/converter"
	"tourism-booking/internal/pkg/pgconv"

	"github.com/jackc/pgx/v5"
)

const paymentColumns = `id, reservation_id, user_id, amount_cents, currency, method, phone_number,
	merchant_request_id, checkout_request_id, status, receipt_id, transaction_at,
	reported_phone, failure_reason, review_note, created_at, updated_at`

const (
	createPaymentSQL = `INSERT INTO payments (` + paymentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	getPaymentByCheckoutIDSQL = `SELECT ` + paymentColumns + ` FROM payments WHERE checkout_request_id = $1`

	getPaymentByCheckoutIDForUpdateSQL = getPaymentByCheckoutIDSQL + ` FOR UPDATE`

	updatePaymentSQL = `
UPDATE payments
SET status = $2, receipt_id = $3, transaction_at = $4, reported_phone = $5,
    failure_reason = $6, review_note = $7, updated_at = $8
WHERE id = $1`
)

type PaymentRepository struct {
	dbtx db.DBTX
}

func NewPaymentRepository(dbtx db.DBTX) *PaymentRepository {
	return &PaymentRepository{dbtx: dbtx}
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	if _, err := r.dbtx.Exec(ctx, createPaymentSQL, converter.PaymentToInfra(p)...); err != nil {
		return infra.WrapRepoErr("failed to create payment", err)
	}
	return nil
}

func (r *PaymentRepository) FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*payment.Payment, error) {
	return r.findOne(ctx, getPaymentByCheckoutIDSQL, checkoutRequestID)
}

func (r *PaymentRepository) FindByCheckoutIDForUpdate(ctx context.Context, checkoutRequestID string) (*payment.Payment, error) {
	return r.findOne(ctx, getPaymentByCheckoutIDForUpdateSQL, checkoutRequestID)
}

func (r *PaymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	tag, err := r.dbtx.Exec(ctx, updatePaymentSQL,
		p.ID(),
		p.Status().String(),
		pgconv.StringPtrToPgtype(p.ReceiptID()),
		pgconv.TimePtrToPgtype(p.TransactionAt()),
		pgconv.StringPtrToPgtype(p.ReportedPhone()),
		pgconv.StringPtrToPgtype(p.FailureReason()),
		pgconv.StringPtrToPgtype(p.ReviewNote()),
		p.UpdatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update payment", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("payment not found", nil, infra.KindNotFound)
	}
	return nil
}

func (r *PaymentRepository) findOne(ctx context.Context, query, checkoutRequestID string) (*payment.Payment, error) {
	p, err := scanPayment(r.dbtx.QueryRow(ctx, query, checkoutRequestID))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("payment not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find payment by checkout id", err)
	}
	return p, nil
}

func scanPayment(row pgx.Row) (*payment.Payment, error) {
	var pr converter.PaymentRow
	if err := row.Scan(pr.ScanTargets()...); err != nil {
		return nil, err
	}
	return converter.PaymentToDomain(pr), nil
}
