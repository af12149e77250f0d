package request

import (
	"github.com/google/uuid"
)

type InitiatePaymentRequest struct {
	ReservationID uuid.UUID `json:"reservationId" binding:"required"`
	PhoneNumber   string    `json:"phoneNumber" binding:"required,max=20"`
}
