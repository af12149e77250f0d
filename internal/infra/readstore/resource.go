package readstore

import (
	"context"

	"tourism-booking/internal/infra"
	"tourism-booking/internal/infra/db"
	"tourism-booking/internal/pkg/pgconv"
	"tourism-booking/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getResourceByIDSQL = `
SELECT id, name, capacity, nightly_rate_cents, special_rate_cents, special_from, special_to,
       is_active, created_at, updated_at
FROM resources
WHERE id = $1`

type ResourceReadStore struct {
	db db.DBTX
}

func NewResourceReadStore(dbtx db.DBTX) *ResourceReadStore {
	return &ResourceReadStore{db: dbtx}
}

func (r *ResourceReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.ResourceView, error) {
	var (
		v          queries.ResourceView
		special    pgtype.Int8
		from, till pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, getResourceByIDSQL, id).Scan(
		&v.ID, &v.Name, &v.Capacity, &v.NightlyRateCents, &special, &from, &till,
		&v.IsActive, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("resource not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find resource by ID", err)
	}
	v.SpecialRateCents = pgconv.Int64PtrFromPgtype(special)
	v.SpecialFrom = pgconv.TimePtrFromPgtype(from)
	v.SpecialTo = pgconv.TimePtrFromPgtype(till)
	return &v, nil
}
