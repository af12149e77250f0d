package response

import (
	"time"

	"tourism-booking/internal/domain/payment"
	"tourism-booking/internal/usecase/commands"
	"tourism-booking/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type PaymentResponse struct {
	ID                uuid.UUID  `json:"id"`
	ReservationID     uuid.UUID  `json:"reservationId"`
	UserID            uuid.UUID  `json:"userId"`
	AmountCents       int64      `json:"amountCents"`
	Currency          string     `json:"currency"`
	Method            string     `json:"method"`
	PhoneNumber       string     `json:"phoneNumber"`
	MerchantRequestID string     `json:"merchantRequestId"`
	CheckoutRequestID string     `json:"checkoutRequestId"`
	Status            string     `json:"status"`
	ReceiptID         *string    `json:"receiptId,omitempty"`
	TransactionAt     *time.Time `json:"transactionAt,omitempty"`
	FailureReason     *string    `json:"failureReason,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func FromPayment(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:                p.ID(),
		ReservationID:     p.ReservationID(),
		UserID:            p.UserID(),
		AmountCents:       p.Amount().Cents(),
		Currency:          p.Currency(),
		Method:            string(p.Method()),
		PhoneNumber:       p.PhoneNumber(),
		MerchantRequestID: p.MerchantRequestID(),
		CheckoutRequestID: p.CheckoutRequestID(),
		Status:            p.Status().String(),
		ReceiptID:         p.ReceiptID(),
		TransactionAt:     p.TransactionAt(),
		FailureReason:     p.FailureReason(),
		CreatedAt:         p.CreatedAt(),
		UpdatedAt:         p.UpdatedAt(),
	}
}

func FromPaymentViews(views []*queries.PaymentView) ([]PaymentResponse, error) {
	out := make([]PaymentResponse, len(views))
	for i, v := range views {
		if err := copier.Copy(&out[i], v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type InitiatePaymentResponse struct {
	Payment           *PaymentResponse `json:"payment"`
	CheckoutRequestID string           `json:"checkoutRequestId"`
	CustomerMessage   string           `json:"customerMessage,omitempty"`
}

func FromInitiateResult(r *commands.InitiateResult) *InitiatePaymentResponse {
	return &InitiatePaymentResponse{
		Payment:           FromPayment(r.Payment),
		CheckoutRequestID: r.CheckoutRequestID,
		CustomerMessage:   r.CustomerMessage,
	}
}

type PaymentListResponse struct {
	Payments   []PaymentResponse `json:"payments"`
	NextCursor *string           `json:"nextCursor,omitempty"`
}
