package readstore

import (
	"context"

	"tourism-booking/internal/infra"
	"tourism-booking/internal/infra/db"
	"tourism-booking/internal/pkg/pgconv"
	"tourism-booking/internal/usecase/queries"

	"github.com/google/uuid"
)

const getUserContactSQL = `SELECT id, name, email, role FROM users WHERE id = $1`

type UserReadStore struct {
	db db.DBTX
}

func NewUserReadStore(dbtx db.DBTX) *UserReadStore {
	return &UserReadStore{db: dbtx}
}

func (r *UserReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.UserContactView, error) {
	var v queries.UserContactView
	err := r.db.QueryRow(ctx, getUserContactSQL, id).Scan(&v.ID, &v.Name, &v.Email, &v.Role)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("user not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find user by ID", err)
	}
	return &v, nil
}
