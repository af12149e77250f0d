package reservation

import (
	"tourism-booking/internal/domain/money"
	"tourism-booking/internal/domain/resource"
)

type PriceCalculator interface {
	Quote(res *resource.Resource, stay Stay) money.Money
}

// NightlyPriceCalculator charges one rate for every night of the stay. A special
// window applies only when it contains the whole stay.
type NightlyPriceCalculator struct{}

func NewNightlyPriceCalculator() *NightlyPriceCalculator {
	return &NightlyPriceCalculator{}
}

func (pc *NightlyPriceCalculator) Quote(res *resource.Resource, stay Stay) money.Money {
	return res.RateFor(stay.Start(), stay.End()).Times(stay.Nights())
}
