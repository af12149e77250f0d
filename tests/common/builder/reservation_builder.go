//go:build unit || e2e

package builder

import (
	"time"

	"tourism-booking/internal/domain/money"
	"tourism-booking/internal/domain/reservation"
	"tourism-booking/internal/usecase/queries"

	"github.com/google/uuid"
)

type ReservationBuilder struct {
	ID                 uuid.UUID
	ResourceID         uuid.UUID
	ResourceName       string
	UserID             uuid.UUID
	UserEmail          string
	Start              time.Time
	End                time.Time
	Adults             int
	Children           int
	TotalPriceCents    int64
	PaymentState       reservation.PaymentState
	LifecycleState     reservation.LifecycleState
	CancellationReason *string
	SpecialRequests    string
	HoldExpiresAt      time.Time
	CreatedAt          time.Time
}

func NewReservationBuilder() *ReservationBuilder {
	start := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	return &ReservationBuilder{
		ID:              uuid.New(),
		ResourceID:      uuid.New(),
		ResourceName:    "Lake Cabin",
		UserID:          uuid.New(),
		UserEmail:       "guest@example.com",
		Start:           start,
		End:             start.Add(3 * 24 * time.Hour),
		Adults:          2,
		TotalPriceCents: 30000,
		PaymentState:    reservation.PaymentUnpaid,
		LifecycleState:  reservation.LifecyclePending,
		HoldExpiresAt:   now.Add(30 * time.Minute),
		CreatedAt:       now,
	}
}

func (r *ReservationBuilder) With(mutate func(*ReservationBuilder)) *ReservationBuilder {
	mutate(r)
	return r
}

func (r *ReservationBuilder) AsPaid() *ReservationBuilder {
	r.PaymentState = reservation.PaymentPaid
	r.LifecycleState = reservation.LifecycleConfirmed
	return r
}

func (r *ReservationBuilder) AsCancelled(reason string) *ReservationBuilder {
	r.LifecycleState = reservation.LifecycleCancelled
	r.CancellationReason = &reason
	return r
}

// Build methods
func (r *ReservationBuilder) BuildDomain() *reservation.Reservation {
	stay, err := reservation.NewStay(r.Start, r.End)
	if err != nil {
		panic(err)
	}
	occupants, err := reservation.NewOccupants(r.Adults, r.Children)
	if err != nil {
		panic(err)
	}
	requests, err := reservation.NewSpecialRequests(r.SpecialRequests)
	if err != nil {
		panic(err)
	}

	return reservation.ReconstructReservation(
		r.ID, r.ResourceID, r.UserID,
		stay,
		occupants,
		money.FromCents(r.TotalPriceCents),
		r.PaymentState,
		r.LifecycleState,
		r.CancellationReason,
		requests,
		r.HoldExpiresAt, r.CreatedAt, r.CreatedAt,
	)
}

func (r *ReservationBuilder) BuildView() *queries.ReservationView {
	var requests *string
	if r.SpecialRequests != "" {
		s := r.SpecialRequests
		requests = &s
	}
	return &queries.ReservationView{
		ID:                 r.ID,
		ResourceID:         r.ResourceID,
		ResourceName:       r.ResourceName,
		UserID:             r.UserID,
		UserEmail:          r.UserEmail,
		StartDate:          r.Start,
		EndDate:            r.End,
		Adults:             int32(r.Adults),
		Children:           int32(r.Children),
		TotalPriceCents:    r.TotalPriceCents,
		PaymentState:       r.PaymentState.String(),
		LifecycleState:     r.LifecycleState.String(),
		CancellationReason: r.CancellationReason,
		SpecialRequests:    requests,
		HoldExpiresAt:      r.HoldExpiresAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.CreatedAt,
	}
}
