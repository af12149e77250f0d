package repository

import (
	"context"
	"time"

	"tourism-booking/internal/domain/reservation"
	"tourism-booking/internal/infra"
	"tourism-booking/internal/infra/db"
	"tourism-booking/internal/infra/repository/converter"
	"tourism-booking/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const reservationColumns = `r.id, r.resource_id, r.user_id, lower(r.stay), upper(r.stay), r.adults, r.children,
	r.total_price_cents, r.payment_state, r.lifecycle_state, r.cancellation_reason,
	r.special_requests, r.hold_expires_at, r.created_at, r.updated_at`

const (
	createReservationSQL = `
INSERT INTO reservations (
	id, resource_id, user_id, stay, adults, children, total_price_cents,
	payment_state, lifecycle_state, cancellation_reason, special_requests,
	hold_expires_at, created_at, updated_at
) VALUES ($1, $2, $3, tstzrange($4, $5, '[)'), $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	getReservationByIDSQL = `SELECT ` + reservationColumns + ` FROM reservations r WHERE r.id = $1`

	getReservationByIDForUpdateSQL = getReservationByIDSQL + ` FOR UPDATE`

	updateReservationStateSQL = `
UPDATE reservations
SET payment_state = $2, lifecycle_state = $3, cancellation_reason = $4, hold_expires_at = $5, updated_at = $6
WHERE id = $1`

	lockExpiredHoldsSQL = `SELECT ` + reservationColumns + `
FROM reservations r
WHERE r.lifecycle_state = 'pending'
  AND r.payment_state <> 'paid'
  AND r.hold_expires_at < $1
ORDER BY r.hold_expires_at
LIMIT $2
FOR UPDATE SKIP LOCKED`
)

type ReservationRepository struct {
	dbtx db.DBTX
}

func NewReservationRepository(dbtx db.DBTX) *ReservationRepository {
	return &ReservationRepository{dbtx: dbtx}
}

func (r *ReservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	if _, err := r.dbtx.Exec(ctx, createReservationSQL, converter.ReservationToInfra(res)...); err != nil {
		return infra.WrapRepoErr("failed to create reservation", err)
	}
	return nil
}

func (r *ReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	return r.findOne(ctx, getReservationByIDSQL, id)
}

func (r *ReservationRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*reservation.Reservation, error) {
	return r.findOne(ctx, getReservationByIDForUpdateSQL, id)
}

func (r *ReservationRepository) Update(ctx context.Context, res *reservation.Reservation) error {
	tag, err := r.dbtx.Exec(ctx, updateReservationStateSQL,
		res.ID(),
		res.PaymentState().String(),
		res.LifecycleState().String(),
		pgconv.StringPtrToPgtype(res.CancellationReason()),
		res.HoldExpiresAt(),
		res.UpdatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update reservation", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("reservation not found", nil, infra.KindNotFound)
	}
	return nil
}

func (r *ReservationRepository) LockExpiredHolds(ctx context.Context, now time.Time, limit int32) ([]*reservation.Reservation, error) {
	rows, err := r.dbtx.Query(ctx, lockExpiredHoldsSQL, now, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to lock expired holds", err)
	}
	defer rows.Close()

	var result []*reservation.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan expired hold", err)
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate expired holds", err)
	}
	return result, nil
}

func (r *ReservationRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*reservation.Reservation, error) {
	res, err := scanReservation(r.dbtx.QueryRow(ctx, query, id))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("reservation not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find reservation by ID", err)
	}
	return res, nil
}

func scanReservation(row pgx.Row) (*reservation.Reservation, error) {
	var rr converter.ReservationRow
	if err := row.Scan(rr.ScanTargets()...); err != nil {
		return nil, err
	}
	return converter.ReservationToDomain(rr)
}
