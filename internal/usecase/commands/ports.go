package commands

import (
	"context"

	"tourism-booking/internal/domain/money"
	"tourism-booking/internal/domain/payment"
)

// PaymentGateway is the narrow contract the reconciliation engine needs from the
// mobile-money provider. Implementations must not be called while a row lock is held.
type PaymentGateway interface {
	InitiatePush(ctx context.Context, req PushRequest) (*PushResponse, error)
	QueryStatus(ctx context.Context, checkoutRequestID string) (*StatusResult, error)
	// ParseCallback turns a raw webhook body into a normalized outcome.
	ParseCallback(body []byte) (payment.Outcome, error)
}

type PushRequest struct {
	Phone       string
	Amount      money.Money
	Reference   string
	Description string
}

type PushResponse struct {
	MerchantRequestID string
	CheckoutRequestID string
	CustomerMessage   string
}

// StatusResult is the provider's current view of a push payment. Processing means
// the payer has not answered yet and no outcome exists.
type StatusResult struct {
	Processing bool
	Outcome    payment.Outcome
}

// CallbackAck is the body the provider expects from the webhook, whatever happened.
type CallbackAck struct {
	ResponseCode string `json:"ResponseCode"`
	ResponseDesc string `json:"ResponseDesc"`
}

var SuccessAck = CallbackAck{ResponseCode: "00000000", ResponseDesc: "success"}

// Metrics records reconciliation and allocation events.
type Metrics interface {
	ReservationCreated()
	ReservationConflict()
	ReservationCancelled(reason string)
	PaymentInitiated(ok bool)
	PaymentReconciled(source string, resolution payment.Resolution)
}

type noopMetrics struct{}

func (noopMetrics) ReservationCreated()                          {}
func (noopMetrics) ReservationConflict()                         {}
func (noopMetrics) ReservationCancelled(string)                  {}
func (noopMetrics) PaymentInitiated(bool)                        {}
func (noopMetrics) PaymentReconciled(string, payment.Resolution) {}

// NoopMetrics discards every event.
func NoopMetrics() Metrics { return noopMetrics{} }
