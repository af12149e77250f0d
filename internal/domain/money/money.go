package money

import (
	"errors"
	"math"
)

var ErrNegativeAmount = errors.New("money cannot be negative")

// Money is an amount in minor units (cents) of the booking currency.
type Money struct {
	cents int64
}

func New(cents int64) (Money, error) {
	if cents < 0 {
		return Money{}, ErrNegativeAmount
	}
	return Money{cents: cents}, nil
}

// FromCents is for values that were validated when first stored.
func FromCents(cents int64) Money {
	return Money{cents: cents}
}

// FromUnits converts a whole-unit amount as reported by the gateway.
func FromUnits(units float64) Money {
	return Money{cents: int64(math.Round(units * 100))}
}

func (m Money) Cents() int64 {
	return m.cents
}

// Units rounds to the nearest whole currency unit; the gateway only accepts integers.
func (m Money) Units() int64 {
	return int64(math.Round(float64(m.cents) / 100.0))
}

func (m Money) Times(n int64) Money {
	return Money{cents: m.cents * n}
}

func (m Money) Add(other Money) Money {
	return Money{cents: m.cents + other.cents}
}

func (m Money) Equal(other Money) bool {
	return m.cents == other.cents
}

func (m Money) IsZero() bool {
	return m.cents == 0
}
