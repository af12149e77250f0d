package queries

import (
	"time"

	"github.com/google/uuid"
)

// ResourceView represents read-optimized resource data
type ResourceView struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Capacity         int32      `json:"capacity"`
	NightlyRateCents int64      `json:"nightly_rate_cents"`
	SpecialRateCents *int64     `json:"special_rate_cents,omitempty"`
	SpecialFrom      *time.Time `json:"special_from,omitempty"`
	SpecialTo        *time.Time `json:"special_to,omitempty"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type ReservationView struct {
	ID                 uuid.UUID `json:"id"`
	ResourceID         uuid.UUID `json:"resource_id"`
	ResourceName       string    `json:"resource_name"`
	UserID             uuid.UUID `json:"user_id"`
	UserEmail          string    `json:"user_email"`
	StartDate          time.Time `json:"start_date"`
	EndDate            time.Time `json:"end_date"`
	Adults             int32     `json:"adults"`
	Children           int32     `json:"children"`
	TotalPriceCents    int64     `json:"total_price_cents"`
	PaymentState       string    `json:"payment_state"`
	LifecycleState     string    `json:"lifecycle_state"`
	CancellationReason *string   `json:"cancellation_reason,omitempty"`
	SpecialRequests    *string   `json:"special_requests,omitempty"`
	HoldExpiresAt      time.Time `json:"hold_expires_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type PaymentView struct {
	ID                uuid.UUID  `json:"id"`
	ReservationID     uuid.UUID  `json:"reservation_id"`
	UserID            uuid.UUID  `json:"user_id"`
	AmountCents       int64      `json:"amount_cents"`
	Currency          string     `json:"currency"`
	Method            string     `json:"method"`
	PhoneNumber       string     `json:"phone_number"`
	MerchantRequestID string     `json:"merchant_request_id"`
	CheckoutRequestID string     `json:"checkout_request_id"`
	Status            string     `json:"status"`
	ReceiptID         *string    `json:"receipt_id,omitempty"`
	TransactionAt     *time.Time `json:"transaction_at,omitempty"`
	FailureReason     *string    `json:"failure_reason,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// UserContactView is what notifications need to address a user.
type UserContactView struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}
