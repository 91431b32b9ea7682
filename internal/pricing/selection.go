package pricing

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/samber/lo"
	ierr "github.com/siteforge/backend/internal/errors"
	"github.com/siteforge/backend/internal/model"
)

// Control describes one input the calculator renders for a product.
type Control struct {
	Option       string            `json:"option"`
	Category     string            `json:"category"`
	Name         string            `json:"name"`
	Kind         model.OptionKind  `json:"kind"`
	Default      model.OptionValue `json:"default"`
	Locked       bool              `json:"locked"`
	Min          *int64            `json:"min,omitempty"`
	Max          *int64            `json:"max,omitempty"`
	Price        int64             `json:"price,omitempty"`
	PricePerUnit int64             `json:"price_per_unit,omitempty"`
}

// Controls lists the enabled options of p in display order. Bindings whose
// definition is missing or of another kind are skipped.
func Controls(p model.Product, order []model.OptionView) []Control {
	out := []Control{}
	for _, v := range order {
		b, ok := p.Options.Get(v.Key)
		if !ok || !b.Enabled || b.Kind() != v.Definition.Type {
			continue
		}
		c := Control{
			Option:   v.Key,
			Category: v.Category,
			Name:     v.Definition.Name,
			Kind:     b.Kind(),
			Default:  b.Default,
		}
		switch b.Kind() {
		case model.OptionKindBoolean:
			c.Locked = b.Default.Bool
			c.Price = b.PriceOrZero()
		case model.OptionKindInteger:
			c.Min = v.Definition.Min
			c.Max = v.Definition.Max
			c.PricePerUnit = b.PricePerUnitOrZero()
		}
		out = append(out, c)
	}
	return out
}

// DefaultSelection is the selection the calculator starts from: every
// enabled option at its included default.
func DefaultSelection(p model.Product, order []model.OptionView) model.Selection {
	sel := make(model.Selection)
	for _, c := range Controls(p, order) {
		sel[c.Option] = c.Default
	}
	return sel
}

// NormalizeSelection checks user input against what the calculator could
// have produced and fills unspecified options with their defaults. Options
// included by default are always selected. Any value the calculator would
// not offer is a validation error.
func NormalizeSelection(p model.Product, order []model.OptionView, sel model.Selection) (model.Selection, error) {
	controls := lo.SliceToMap(Controls(p, order), func(c Control) (string, Control) {
		return c.Option, c
	})

	keys := lo.Keys(sel)
	sort.Strings(keys)

	var problems []string
	out := DefaultSelection(p, order)
	for _, key := range keys {
		v := sel[key]
		c, ok := controls[key]
		if !ok {
			problems = append(problems, key+": not offered by this product")
			continue
		}
		if v.Kind != c.Kind {
			problems = append(problems, fmt.Sprintf("%s: expected %s value", key, c.Kind))
			continue
		}
		if c.Kind == model.OptionKindInteger {
			def := model.OptionDefinition{Min: c.Min, Max: c.Max}
			if !def.InRange(v.Int) {
				problems = append(problems, fmt.Sprintf("%s: %d out of range", key, v.Int))
				continue
			}
			if b, _ := p.Options.Get(key); OptionPrice(b, v) == math.MaxInt64 {
				problems = append(problems, fmt.Sprintf("%s: %d units cannot be priced", key, v.Int))
				continue
			}
		}
		if c.Locked {
			v = model.BoolValue(true)
		}
		out[key] = v
	}

	if len(problems) > 0 {
		return nil, ierr.NewErrorf("invalid selection: %s", strings.Join(problems, "; ")).
			WithHintf("Invalid selection: %s", strings.Join(problems, "; ")).
			WithReportableDetails(map[string]any{"selection": problems}).
			Mark(ierr.ErrValidation)
	}
	return out, nil
}
