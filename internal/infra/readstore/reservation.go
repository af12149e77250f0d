package readstore

import (
	"context"
	"time"

	"tourism-booking/internal/infra"
	"tourism-booking/internal/infra/db"
	"tourism-booking/internal/pkg/pgconv"
	"tourism-booking/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const reservationViewSelect = `
SELECT r.id, r.resource_id, res.name, r.user_id, u.email,
       lower(r.stay), upper(r.stay), r.adults, r.children, r.total_price_cents,
       r.payment_state, r.lifecycle_state, r.cancellation_reason, r.special_requests,
       r.hold_expires_at, r.created_at, r.updated_at
FROM reservations r
JOIN resources res ON res.id = r.resource_id
JOIN users u ON u.id = r.user_id`

const (
	getReservationViewSQL = reservationViewSelect + `
WHERE r.id = $1`

	getReservationsByUserFirstPageSQL = reservationViewSelect + `
WHERE r.user_id = $1
ORDER BY r.created_at DESC, r.id DESC
LIMIT $2`

	getReservationsByUserKeysetSQL = reservationViewSelect + `
WHERE r.user_id = $1 AND (r.created_at, r.id) < ($2, $3)
ORDER BY r.created_at DESC, r.id DESC
LIMIT $4`
)

type ReservationReadStore struct {
	db db.DBTX
}

func NewReservationReadStore(dbtx db.DBTX) *ReservationReadStore {
	return &ReservationReadStore{db: dbtx}
}

func (r *ReservationReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.ReservationView, error) {
	v, err := scanReservationView(r.db.QueryRow(ctx, getReservationViewSQL, id))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("reservation not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find reservation by ID", err)
	}
	return v, nil
}

func (r *ReservationReadStore) FindByUserIDFirstPage(ctx context.Context, userID uuid.UUID, limit int32) ([]*queries.ReservationView, error) {
	rows, err := r.db.Query(ctx, getReservationsByUserFirstPageSQL, userID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find reservations first page", err)
	}
	return collectReservationViews(rows)
}

func (r *ReservationReadStore) FindByUserIDKeyset(ctx context.Context, userID uuid.UUID, lastCreatedAt time.Time, lastID uuid.UUID, limit int32) ([]*queries.ReservationView, error) {
	rows, err := r.db.Query(ctx, getReservationsByUserKeysetSQL, userID, pgconv.TimeToPgtype(lastCreatedAt), lastID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to find reservations keyset", err)
	}
	return collectReservationViews(rows)
}

func scanReservationView(row pgx.Row) (*queries.ReservationView, error) {
	var (
		v                         queries.ReservationView
		cancellation, specialReqs pgtype.Text
	)
	if err := row.Scan(
		&v.ID, &v.ResourceID, &v.ResourceName, &v.UserID, &v.UserEmail,
		&v.StartDate, &v.EndDate, &v.Adults, &v.Children, &v.TotalPriceCents,
		&v.PaymentState, &v.LifecycleState, &cancellation, &specialReqs,
		&v.HoldExpiresAt, &v.CreatedAt, &v.UpdatedAt,
	); err != nil {
		return nil, err
	}
	v.CancellationReason = pgconv.StringPtrFromPgtype(cancellation)
	v.SpecialRequests = pgconv.StringPtrFromPgtype(specialReqs)
	return &v, nil
}

func collectReservationViews(rows pgx.Rows) ([]*queries.ReservationView, error) {
	defer rows.Close()

	result := make([]*queries.ReservationView, 0)
	for rows.Next() {
		v, err := scanReservationView(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan reservation", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate reservations", err)
	}
	return result, nil
}
