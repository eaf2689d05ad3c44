// Package trading provides price and quantity rounding for exchange filters.
package trading

import (
	"math"

	"github.com/shopspring/decimal"
)

// Precision returns the number of decimals implied by a tick or step size,
// round(-log10(size)). Sizes >= 1 yield 0.
func Precision(size decimal.Decimal) int {
	if !size.IsPositive() {
		return 0
	}
	p := int(math.Round(-math.Log10(size.InexactFloat64())))
	if p < 0 {
		return 0
	}
	return p
}

// RoundToStep rounds x to the nearest multiple of step.
// A non-positive step leaves x unchanged.
func RoundToStep(x, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return x
	}
	return x.Div(step).Round(0).Mul(step)
}

// Filter bundles the instrument filters needed to build order parameters.
type Filter struct {
	TickSize       decimal.Decimal
	StepSize       decimal.Decimal
	PricePrecision int
	QtyPrecision   int
}

// NewFilter derives precisions from tick and step sizes.
func NewFilter(tick, step decimal.Decimal) Filter {
	return Filter{
		TickSize:       tick,
		StepSize:       step,
		PricePrecision: Precision(tick),
		QtyPrecision:   Precision(step),
	}
}

// Price rounds to the tick size and formats to the price precision.
func (f Filter) Price(px decimal.Decimal) string {
	return RoundToStep(px, f.TickSize).StringFixed(int32(f.PricePrecision))
}

// Quantity rounds to the step size and formats to the quantity precision.
func (f Filter) Quantity(qty decimal.Decimal) string {
	return RoundToStep(qty, f.StepSize).StringFixed(int32(f.QtyPrecision))
}

// RoundQuantity returns the step-rounded quantity as a decimal.
func (f Filter) RoundQuantity(qty decimal.Decimal) decimal.Decimal {
	return RoundToStep(qty, f.StepSize)
}
