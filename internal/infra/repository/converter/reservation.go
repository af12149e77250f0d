package converter

import (
	"time"

	"tourism-booking/internal/domain/money"
	"tourism-booking/internal/domain/reservation"
	"tourism-booking/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ReservationRow mirrors the reservations table with the stay split into bounds.
type ReservationRow struct {
	ID                 uuid.UUID
	ResourceID         uuid.UUID
	UserID             uuid.UUID
	StayStart          time.Time
	StayEnd            time.Time
	Adults             int32
	Children           int32
	TotalPriceCents    int64
	PaymentState       string
	LifecycleState     string
	CancellationReason pgtype.Text
	SpecialRequests    pgtype.Text
	HoldExpiresAt      time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ScanTargets lists destinations in the column order used by the repository queries.
func (r *ReservationRow) ScanTargets() []any {
	return []any{
		&r.ID, &r.ResourceID, &r.UserID, &r.StayStart, &r.StayEnd, &r.Adults, &r.Children,
		&r.TotalPriceCents, &r.PaymentState, &r.LifecycleState, &r.CancellationReason,
		&r.SpecialRequests, &r.HoldExpiresAt, &r.CreatedAt, &r.UpdatedAt,
	}
}

func ReservationToDomain(r ReservationRow) (*reservation.Reservation, error) {
	stay, err := reservation.NewStay(r.StayStart, r.StayEnd)
	if err != nil {
		return nil, err
	}
	occupants, err := reservation.NewOccupants(int(r.Adults), int(r.Children))
	if err != nil {
		return nil, err
	}
	requests, err := reservation.NewSpecialRequests(r.SpecialRequests.String)
	if err != nil {
		return nil, err
	}

	return reservation.ReconstructReservation(
		r.ID, r.ResourceID, r.UserID,
		stay,
		occupants,
		money.FromCents(r.TotalPriceCents),
		reservation.PaymentState(r.PaymentState),
		reservation.LifecycleState(r.LifecycleState),
		pgconv.StringPtrFromPgtype(r.CancellationReason),
		requests,
		r.HoldExpiresAt, r.CreatedAt, r.UpdatedAt,
	), nil
}

// ReservationToInfra returns the insert arguments in column order.
func ReservationToInfra(res *reservation.Reservation) []any {
	stay := res.Stay()
	return []any{
		res.ID(),
		res.ResourceID(),
		res.UserID(),
		stay.Start(),
		stay.End(),
		int32(res.Occupants().Adults()),
		int32(res.Occupants().Children()),
		res.TotalPrice().Cents(),
		res.PaymentState().String(),
		res.LifecycleState().String(),
		pgconv.StringPtrToPgtype(res.CancellationReason()),
		pgconv.StringOrNull(res.SpecialRequests().String()),
		res.HoldExpiresAt(),
		res.CreatedAt(),
		res.UpdatedAt(),
	}
}
