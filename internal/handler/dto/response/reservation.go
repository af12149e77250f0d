package response

import (
	"time"

	"tourism-booking/internal/domain/money"
	"tourism-booking/internal/domain/reservation"
	"tourism-booking/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type ReservationResponse struct {
	ID                 uuid.UUID `json:"id"`
	ResourceID         uuid.UUID `json:"resourceId"`
	ResourceName       string    `json:"resourceName,omitempty"`
	UserID             uuid.UUID `json:"userId"`
	StartDate          time.Time `json:"startDate"`
	EndDate            time.Time `json:"endDate"`
	Adults             int32     `json:"adults"`
	Children           int32     `json:"children"`
	TotalPriceCents    int64     `json:"totalPriceCents"`
	PaymentState       string    `json:"paymentState"`
	LifecycleState     string    `json:"lifecycleState"`
	CancellationReason *string   `json:"cancellationReason,omitempty"`
	SpecialRequests    *string   `json:"specialRequests,omitempty"`
	HoldExpiresAt      time.Time `json:"holdExpiresAt"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func FromReservationView(v *queries.ReservationView) (*ReservationResponse, error) {
	var resp ReservationResponse
	if err := copier.Copy(&resp, v); err != nil {
		return nil, err
	}
	return &resp, nil
}

type ReservationListResponse struct {
	Reservations []ReservationResponse `json:"reservations"`
	NextCursor   *string               `json:"nextCursor,omitempty"`
}

func FromReservationViews(views []*queries.ReservationView) ([]ReservationResponse, error) {
	out := make([]ReservationResponse, len(views))
	for i, v := range views {
		if err := copier.Copy(&out[i], v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func FromReservation(r *reservation.Reservation) *ReservationResponse {
	resp := &ReservationResponse{
		ID:                 r.ID(),
		ResourceID:         r.ResourceID(),
		UserID:             r.UserID(),
		StartDate:          r.Stay().Start(),
		EndDate:            r.Stay().End(),
		Adults:             int32(r.Occupants().Adults()),   // #nosec G115 -- bounded by resource capacity
		Children:           int32(r.Occupants().Children()), // #nosec G115 -- bounded by resource capacity
		TotalPriceCents:    r.TotalPrice().Cents(),
		PaymentState:       r.PaymentState().String(),
		LifecycleState:     r.LifecycleState().String(),
		CancellationReason: r.CancellationReason(),
		HoldExpiresAt:      r.HoldExpiresAt(),
		CreatedAt:          r.CreatedAt(),
		UpdatedAt:          r.UpdatedAt(),
	}
	if !r.SpecialRequests().IsEmpty() {
		s := r.SpecialRequests().String()
		resp.SpecialRequests = &s
	}
	return resp
}

type QuoteResponse struct {
	ResourceID      uuid.UUID `json:"resourceId"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	Nights          int64     `json:"nights"`
	TotalPriceCents int64     `json:"totalPriceCents"`
	Currency        string    `json:"currency"`
}

func NewQuoteResponse(resourceID uuid.UUID, start, end time.Time, nights int64, total money.Money, currency string) *QuoteResponse {
	return &QuoteResponse{
		ResourceID:      resourceID,
		StartDate:       start,
		EndDate:         end,
		Nights:          nights,
		TotalPriceCents: total.Cents(),
		Currency:        currency,
	}
}
