package shared

import (
	"time"

	"github.com/google/uuid"
)

// Write-side snapshots prevent dependency on Read-side query types (CQRS separation)
type ResourceSnapshot struct {
	ID               uuid.UUID
	Name             string
	Capacity         int
	NightlyRateCents int64
	SpecialRateCents *int64
	SpecialFrom      *time.Time
	SpecialTo        *time.Time
	IsActive         bool
}

type NotificationJob struct {
	ID       uuid.UUID
	Kind     string
	Topic    string
	Payload  []byte
	Attempts int32
	RunAt    time.Time
}

const (
	NotificationKindEmail = "email"

	TopicReservationCreated   = "reservation_created"
	TopicReservationCancelled = "reservation_cancelled"
	TopicPaymentConfirmed     = "payment_confirmed"
)

// NotificationPayload is the JSON body of an outbox row.
type NotificationPayload struct {
	ReservationID uuid.UUID  `json:"reservation_id"`
	UserID        uuid.UUID  `json:"user_id"`
	PaymentID     *uuid.UUID `json:"payment_id,omitempty"`
	ReceiptID     string     `json:"receipt_id,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}
