package converter

import (
	"time"

	"tourism-booking/internal/domain/money"
	"tourism-booking/internal/domain/payment"
	"tourism-booking/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type PaymentRow struct {
	ID                uuid.UUID
	ReservationID     uuid.UUID
	UserID            uuid.UUID
	AmountCents       int64
	Currency          string
	Method            string
	PhoneNumber       string
	MerchantRequestID string
	CheckoutRequestID string
	Status            string
	ReceiptID         pgtype.Text
	TransactionAt     pgtype.Timestamptz
	ReportedPhone     pgtype.Text
	FailureReason     pgtype.Text
	ReviewNote        pgtype.Text
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (r *PaymentRow) ScanTargets() []any {
	return []any{
		&r.ID, &r.ReservationID, &r.UserID, &r.AmountCents, &r.Currency, &r.Method,
		&r.PhoneNumber, &r.MerchantRequestID, &r.CheckoutRequestID, &r.Status,
		&r.ReceiptID, &r.TransactionAt, &r.ReportedPhone, &r.FailureReason, &r.ReviewNote,
		&r.CreatedAt, &r.UpdatedAt,
	}
}

func PaymentToDomain(r PaymentRow) *payment.Payment {
	return payment.ReconstructPayment(
		r.ID, r.ReservationID, r.UserID,
		money.FromCents(r.AmountCents),
		r.Currency,
		payment.Method(r.Method),
		r.PhoneNumber, r.MerchantRequestID, r.CheckoutRequestID,
		payment.Status(r.Status),
		pgconv.StringPtrFromPgtype(r.ReceiptID),
		pgconv.TimePtrFromPgtype(r.TransactionAt),
		pgconv.StringPtrFromPgtype(r.ReportedPhone),
		pgconv.StringPtrFromPgtype(r.FailureReason),
		pgconv.StringPtrFromPgtype(r.ReviewNote),
		r.CreatedAt, r.UpdatedAt,
	)
}

func PaymentToInfra(p *payment.Payment) []any {
	return []any{
		p.ID(),
		p.ReservationID(),
		p.UserID(),
		p.Amount().Cents(),
		p.Currency(),
		string(p.Method()),
		p.PhoneNumber(),
		p.MerchantRequestID(),
		p.CheckoutRequestID(),
		p.Status().String(),
		pgconv.StringPtrToPgtype(p.ReceiptID()),
		pgconv.TimePtrToPgtype(p.TransactionAt()),
		pgconv.StringPtrToPgtype(p.ReportedPhone()),
		pgconv.StringPtrToPgtype(p.FailureReason()),
		pgconv.StringPtrToPgtype(p.ReviewNote()),
		p.CreatedAt(),
		p.UpdatedAt(),
	}
}
