package payment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tourism-booking/internal/domain/money"

	"github.com/google/uuid"
)

var (
	ErrMissingCorrelationID = errors.New("gateway correlation ids are required")
	ErrUnsupportedMethod    = errors.New("payment method is not supported")
	ErrOutcomeMismatch      = errors.New("outcome does not belong to this payment")
)

type Payment struct {
	id                uuid.UUID
	reservationID     uuid.UUID
	userID            uuid.UUID
	amount            money.Money
	currency          string
	method            Method
	phoneNumber       string
	merchantRequestID string
	checkoutRequestID string
	status            Status
	receiptID         *string
	transactionAt     *time.Time
	reportedPhone     *string
	failureReason     *string
	reviewNote        *string
	createdAt         time.Time
	updatedAt         time.Time
}

// NewPayment records an attempt the gateway has already accepted.
func NewPayment(
	reservationID, userID uuid.UUID,
	amount money.Money,
	currency string,
	method Method,
	phoneNumber, merchantRequestID, checkoutRequestID string,
	now time.Time,
) (*Payment, error) {
	if method != MethodMpesa {
		return nil, ErrUnsupportedMethod
	}
	if strings.TrimSpace(merchantRequestID) == "" || strings.TrimSpace(checkoutRequestID) == "" {
		return nil, ErrMissingCorrelationID
	}

	return &Payment{
		id:                uuid.New(),
		reservationID:     reservationID,
		userID:            userID,
		amount:            amount,
		currency:          currency,
		method:            method,
		phoneNumber:       phoneNumber,
		merchantRequestID: merchantRequestID,
		checkoutRequestID: checkoutRequestID,
		status:            StatusPending,
		createdAt:         now,
		updatedAt:         now,
	}, nil
}

func ReconstructPayment(
	id, reservationID, userID uuid.UUID,
	amount money.Money,
	currency string,
	method Method,
	phoneNumber, merchantRequestID, checkoutRequestID string,
	status Status,
	receiptID *string,
	transactionAt *time.Time,
	reportedPhone, failureReason, reviewNote *string,
	createdAt, updatedAt time.Time,
) *Payment {
	return &Payment{
		id:                id,
		reservationID:     reservationID,
		userID:            userID,
		amount:            amount,
		currency:          currency,
		method:            method,
		phoneNumber:       phoneNumber,
		merchantRequestID: merchantRequestID,
		checkoutRequestID: checkoutRequestID,
		status:            status,
		receiptID:         receiptID,
		transactionAt:     transactionAt,
		reportedPhone:     reportedPhone,
		failureReason:     failureReason,
		reviewNote:        reviewNote,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

// Apply is the only way the status changes. Terminal payments are never
// modified; only a pending payment transitions.
func (p *Payment) Apply(o Outcome, now time.Time) (Resolution, error) {
	if o.CheckoutRequestID != p.checkoutRequestID {
		return 0, ErrOutcomeMismatch
	}

	if p.status.IsTerminal() {
		if p.agreesWith(o) {
			return ResolutionDuplicate, nil
		}
		return ResolutionContradiction, nil
	}

	if !o.Success {
		reason := strings.TrimSpace(o.FailureReason)
		if reason == "" {
			reason = "Payment failed"
		}
		p.status = StatusFailed
		p.failureReason = &reason
		p.updatedAt = now
		return ResolutionFailed, nil
	}

	// A success without a reported amount is no evidence of payment.
	if o.Amount == nil {
		note := fmt.Sprintf("success reported without an amount; expected %d", p.amount.Units())
		p.reviewNote = &note
		p.updatedAt = now
		return ResolutionAmountMismatch, nil
	}
	if o.Amount.Units() != p.amount.Units() {
		note := fmt.Sprintf("reported amount %d does not match expected %d", o.Amount.Units(), p.amount.Units())
		p.reviewNote = &note
		p.updatedAt = now
		return ResolutionAmountMismatch, nil
	}

	p.status = StatusCompleted
	if o.ReceiptID != "" {
		receipt := o.ReceiptID
		p.receiptID = &receipt
	}
	p.transactionAt = o.TransactionAt
	if o.Phone != "" {
		phone := o.Phone
		p.reportedPhone = &phone
	}
	p.reviewNote = nil
	p.updatedAt = now
	return ResolutionCompleted, nil
}

func (p *Payment) agreesWith(o Outcome) bool {
	switch p.status {
	case StatusCompleted:
		if !o.Success {
			return false
		}
		return o.ReceiptID == "" || p.receiptID == nil || *p.receiptID == o.ReceiptID
	case StatusFailed:
		return !o.Success
	default:
		return false
	}
}

// FlagForReview records a note for manual follow-up without changing the status.
func (p *Payment) FlagForReview(note string, now time.Time) {
	p.reviewNote = &note
	p.updatedAt = now
}

func (p *Payment) IsOwnedBy(userID uuid.UUID) bool {
	return p.userID == userID
}

func (p *Payment) ID() uuid.UUID             { return p.id }
func (p *Payment) ReservationID() uuid.UUID  { return p.reservationID }
func (p *Payment) UserID() uuid.UUID         { return p.userID }
func (p *Payment) Amount() money.Money       { return p.amount }
func (p *Payment) Currency() string          { return p.currency }
func (p *Payment) Method() Method            { return p.method }
func (p *Payment) PhoneNumber() string       { return p.phoneNumber }
func (p *Payment) MerchantRequestID() string { return p.merchantRequestID }
func (p *Payment) CheckoutRequestID() string { return p.checkoutRequestID }
func (p *Payment) Status() Status            { return p.status }
func (p *Payment) ReceiptID() *string        { return p.receiptID }
func (p *Payment) TransactionAt() *time.Time { return p.transactionAt }
func (p *Payment) ReportedPhone() *string    { return p.reportedPhone }
func (p *Payment) FailureReason() *string    { return p.failureReason }
func (p *Payment) ReviewNote() *string       { return p.reviewNote }
func (p *Payment) CreatedAt() time.Time      { return p.createdAt }
func (p *Payment) UpdatedAt() time.Time      { return p.updatedAt }
