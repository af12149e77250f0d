package resource

import (
	"errors"
	"strings"
	"time"

	"tourism-booking/internal/domain/money"

	"github.com/google/uuid"
)

var (
	ErrEmptyResourceName    = errors.New("resource name cannot be empty")
	ErrResourceNameTooLong  = errors.New("resource name is too long (max 100 characters)")
	ErrInvalidCapacity      = errors.New("capacity must be at least 1")
	ErrInvalidSpecialWindow = errors.New("special price window must start before it ends")
)

const (
	MaxResourceNameLength = 100
)

// SpecialPrice replaces the nightly rate for stays that fall entirely inside [from, to].
type SpecialPrice struct {
	rate money.Money
	from time.Time
	to   time.Time
}

func NewSpecialPrice(rate money.Money, from, to time.Time) (SpecialPrice, error) {
	if !from.Before(to) {
		return SpecialPrice{}, ErrInvalidSpecialWindow
	}
	return SpecialPrice{rate: rate, from: from, to: to}, nil
}

// Covers has no partial blending: a stay crossing either edge is not covered.
func (s SpecialPrice) Covers(start, end time.Time) bool {
	return !start.Before(s.from) && !end.After(s.to)
}

func (s SpecialPrice) Rate() money.Money { return s.rate }
func (s SpecialPrice) From() time.Time   { return s.from }
func (s SpecialPrice) To() time.Time     { return s.to }

type Resource struct {
	id           uuid.UUID
	name         string
	capacity     int
	nightlyRate  money.Money
	specialPrice *SpecialPrice
	isActive     bool
	createdAt    time.Time
	updatedAt    time.Time
}

func NewResource(id uuid.UUID, name string, capacity int, nightlyRate money.Money, special *SpecialPrice, isActive bool) (*Resource, error) {
	if err := validateResourceName(name); err != nil {
		return nil, err
	}
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}

	return &Resource{
		id:           id,
		name:         strings.TrimSpace(name),
		capacity:     capacity,
		nightlyRate:  nightlyRate,
		specialPrice: special,
		isActive:     isActive,
	}, nil
}

// RateFor returns the per-night rate applied to the whole stay.
func (r *Resource) RateFor(start, end time.Time) money.Money {
	if r.specialPrice != nil && r.specialPrice.Covers(start, end) {
		return r.specialPrice.rate
	}
	return r.nightlyRate
}

func (r *Resource) Accommodates(guests int) bool {
	return guests <= r.capacity
}

func validateResourceName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyResourceName
	}
	if len(name) > MaxResourceNameLength {
		return ErrResourceNameTooLong
	}
	return nil
}

func (r *Resource) ID() uuid.UUID               { return r.id }
func (r *Resource) Name() string                { return r.name }
func (r *Resource) Capacity() int               { return r.capacity }
func (r *Resource) NightlyRate() money.Money    { return r.nightlyRate }
func (r *Resource) SpecialPrice() *SpecialPrice { return r.specialPrice }
func (r *Resource) IsActive() bool              { return r.isActive }
func (r *Resource) CreatedAt() time.Time        { return r.createdAt }
func (r *Resource) UpdatedAt() time.Time        { return r.updatedAt }
