//go:build unit || e2e

package builder

import (
	"time"

	"tourism-booking/internal/domain/money"
	"tourism-booking/internal/domain/payment"
	"tourism-booking/internal/usecase/queries"

	"github.com/google/uuid"
)

type PaymentBuilder struct {
	ID                uuid.UUID
	ReservationID     uuid.UUID
	UserID            uuid.UUID
	AmountCents       int64
	Currency          string
	PhoneNumber       string
	MerchantRequestID string
	CheckoutRequestID string
	Status            payment.Status
	ReceiptID         *string
	FailureReason     *string
	CreatedAt         time.Time
}

func NewPaymentBuilder() *PaymentBuilder {
	return &PaymentBuilder{
		ID:                uuid.New(),
		ReservationID:     uuid.New(),
		UserID:            uuid.New(),
		AmountCents:       30000,
		Currency:          "KES",
		PhoneNumber:       "254712345678",
		MerchantRequestID: "29115-34620561-1",
		CheckoutRequestID: "ws_CO_" + uuid.NewString(),
		Status:            payment.StatusPending,
		CreatedAt:         time.Now(),
	}
}

func (p *PaymentBuilder) With(mutate func(*PaymentBuilder)) *PaymentBuilder {
	mutate(p)
	return p
}

func (p *PaymentBuilder) ForReservation(reservationID, userID uuid.UUID, amountCents int64) *PaymentBuilder {
	p.ReservationID = reservationID
	p.UserID = userID
	p.AmountCents = amountCents
	return p
}

func (p *PaymentBuilder) AsCompleted(receipt string) *PaymentBuilder {
	p.Status = payment.StatusCompleted
	p.ReceiptID = &receipt
	return p
}

func (p *PaymentBuilder) AsFailed(reason string) *PaymentBuilder {
	p.Status = payment.StatusFailed
	p.FailureReason = &reason
	return p
}

// Build methods
func (p *PaymentBuilder) BuildDomain() *payment.Payment {
	return payment.ReconstructPayment(
		p.ID, p.ReservationID, p.UserID,
		money.FromCents(p.AmountCents),
		p.Currency,
		payment.MethodMpesa,
		p.PhoneNumber, p.MerchantRequestID, p.CheckoutRequestID,
		p.Status,
		p.ReceiptID,
		nil,
		nil, p.FailureReason, nil,
		p.CreatedAt, p.CreatedAt,
	)
}

func (p *PaymentBuilder) BuildView() *queries.PaymentView {
	return &queries.PaymentView{
		ID:                p.ID,
		ReservationID:     p.ReservationID,
		UserID:            p.UserID,
		AmountCents:       p.AmountCents,
		Currency:          p.Currency,
		Method:            string(payment.MethodMpesa),
		PhoneNumber:       p.PhoneNumber,
		MerchantRequestID: p.MerchantRequestID,
		CheckoutRequestID: p.CheckoutRequestID,
		Status:            p.Status.String(),
		ReceiptID:         p.ReceiptID,
		FailureReason:     p.FailureReason,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.CreatedAt,
	}
}
