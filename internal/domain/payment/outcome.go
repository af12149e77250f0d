package payment

import (
	"time"

	"tourism-booking/internal/domain/money"
)

// Outcome is a gateway report normalized from either the status query or the callback.
type Outcome struct {
	CheckoutRequestID string
	Success           bool
	ReceiptID         string
	TransactionAt     *time.Time
	Amount            *money.Money
	Phone             string
	ResultCode        int
	FailureReason     string
}

// Resolution describes what applying an Outcome did to a Payment.
type Resolution int

const (
	ResolutionCompleted Resolution = iota
	ResolutionFailed
	// ResolutionDuplicate: the payment was already terminal and the outcome agrees with it.
	ResolutionDuplicate
	// ResolutionContradiction: the payment was already terminal and the outcome disagrees.
	ResolutionContradiction
	// ResolutionAmountMismatch: a success whose amount differs from the payment; held for review.
	ResolutionAmountMismatch
)

func (r Resolution) String() string {
	switch r {
	case ResolutionCompleted:
		return "completed"
	case ResolutionFailed:
		return "failed"
	case ResolutionDuplicate:
		return "duplicate"
	case ResolutionContradiction:
		return "contradiction"
	case ResolutionAmountMismatch:
		return "amount_mismatch"
	default:
		return "unknown"
	}
}

// Transitioned reports whether the payment moved out of pending.
func (r Resolution) Transitioned() bool {
	return r == ResolutionCompleted || r == ResolutionFailed
}

// IsAnomaly reports resolutions that need an operator to look at them.
func (r Resolution) IsAnomaly() bool {
	return r == ResolutionContradiction || r == ResolutionAmountMismatch
}
