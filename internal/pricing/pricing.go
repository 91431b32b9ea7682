// Package pricing computes product prices from a product and a selection.
//
// Every function here is pure and works on whole currency units; the
// calculator, the comparison table and the admin editor all go through the
// same four functions so a displayed price is always reproducible.
package pricing

import (
	"math"

	"github.com/siteforge/backend/internal/model"
)

// BasePrice is the sum of the product's fixed cost components.
func BasePrice(p model.Product) int64 {
	return p.ThemeCost + p.PlanningCost + p.HostingCost
}

// FinalBasePrice is the base price minus the discount. It is not clamped:
// a discount larger than the costs yields a negative amount.
func FinalBasePrice(p model.Product) int64 {
	return BasePrice(p) - p.Discount
}

// OptionPrice is the amount one selected value adds for one binding.
//
// Boolean: the price is charged only when the option is chosen and not
// already included by default. Integer: each unit above the included default
// is charged at the unit price; choosing less than the default never reduces
// the price. A charge too large for int64 saturates at math.MaxInt64.
func OptionPrice(b model.ProductOptionBinding, chosen model.OptionValue) int64 {
	switch b.Kind() {
	case model.OptionKindBoolean:
		if chosen.Kind == model.OptionKindBoolean && chosen.Bool && !b.Default.Bool {
			return b.PriceOrZero()
		}
	case model.OptionKindInteger:
		if chosen.Kind == model.OptionKindInteger && chosen.Int > b.Default.Int {
			return unitCharge(chosen.Int-b.Default.Int, b.PricePerUnitOrZero())
		}
	}
	return 0
}

// SelectionPrice sums OptionPrice over the selection. Options the product has
// no binding for contribute nothing.
func SelectionPrice(p model.Product, sel model.Selection) int64 {
	var total int64
	for key, chosen := range sel {
		b, ok := p.Options.Get(key)
		if !ok {
			continue
		}
		total = addSaturated(total, OptionPrice(b, chosen))
	}
	return total
}

// TotalPrice is FinalBasePrice plus SelectionPrice.
func TotalPrice(p model.Product, sel model.Selection) int64 {
	return addSaturated(FinalBasePrice(p), SelectionPrice(p, sel))
}

// unitCharge is units * ppu for units above the included default.
func unitCharge(units, ppu int64) int64 {
	// chosen - default wrapped around
	if units < 0 {
		units = math.MaxInt64
	}
	if ppu > 0 && units > math.MaxInt64/ppu {
		return math.MaxInt64
	}
	return units * ppu
}

func addSaturated(a, b int64) int64 {
	s := a + b
	switch {
	case a > 0 && b > 0 && s < 0:
		return math.MaxInt64
	case a < 0 && b < 0 && s >= 0:
		return math.MinInt64
	}
	return s
}
