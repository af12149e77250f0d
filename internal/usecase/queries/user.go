package queries

import (
	"context"

	"github.com/google/uuid"

	"tourism-booking/internal/infra"
	"tourism-booking/internal/pkg/errs"
)

var ErrUserNotFound = errs.Mark(errs.New("user not found"), errs.ErrNotFound)

type UserQueries interface {
	GetContact(ctx context.Context, userID uuid.UUID) (*UserContactView, error)
}

type UserReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*UserContactView, error)
}

type userQueriesImpl struct {
	readStore UserReadStore
}

func NewUserQueries(readStore UserReadStore) UserQueries {
	return &userQueriesImpl{
		readStore: readStore,
	}
}

func (q *userQueriesImpl) GetContact(ctx context.Context, userID uuid.UUID) (*UserContactView, error) {
	u, err := q.readStore.FindByID(ctx, userID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}
