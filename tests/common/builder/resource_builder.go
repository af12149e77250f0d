//go:build unit || e2e

package builder

import (
	"time"

	"tourism-booking/internal/usecase/queries"
	"tourism-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type ResourceBuilder struct {
	ID               uuid.UUID
	Name             string
	Capacity         int
	NightlyRateCents int64
	SpecialRateCents *int64
	SpecialFrom      *time.Time
	SpecialTo        *time.Time
	IsActive         bool
}

func NewResourceBuilder() *ResourceBuilder {
	return &ResourceBuilder{
		ID:               uuid.New(),
		Name:             "Lake Cabin",
		Capacity:         4,
		NightlyRateCents: 10000,
		IsActive:         true,
	}
}

func (r *ResourceBuilder) With(mutate func(*ResourceBuilder)) *ResourceBuilder {
	mutate(r)
	return r
}

func (r *ResourceBuilder) WithSpecial(rateCents int64, from, to time.Time) *ResourceBuilder {
	r.SpecialRateCents = &rateCents
	r.SpecialFrom = &from
	r.SpecialTo = &to
	return r
}

func (r *ResourceBuilder) AsInactive() *ResourceBuilder {
	r.IsActive = false
	return r
}

// Build methods
func (r *ResourceBuilder) BuildSnapshot() shared.ResourceSnapshot {
	return shared.ResourceSnapshot{
		ID:               r.ID,
		Name:             r.Name,
		Capacity:         r.Capacity,
		NightlyRateCents: r.NightlyRateCents,
		SpecialRateCents: r.SpecialRateCents,
		SpecialFrom:      r.SpecialFrom,
		SpecialTo:        r.SpecialTo,
		IsActive:         r.IsActive,
	}
}

func (r *ResourceBuilder) BuildView() *queries.ResourceView {
	now := time.Now()
	return &queries.ResourceView{
		ID:               r.ID,
		Name:             r.Name,
		Capacity:         int32(r.Capacity),
		NightlyRateCents: r.NightlyRateCents,
		SpecialRateCents: r.SpecialRateCents,
		SpecialFrom:      r.SpecialFrom,
		SpecialTo:        r.SpecialTo,
		IsActive:         r.IsActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
