package pricing

import (
	"github.com/siteforge/backend/internal/model"
)

// QuoteLine is the contribution of one selected option.
type QuoteLine struct {
	Option   string            `json:"option"`
	Name     string            `json:"name"`
	Kind     model.OptionKind  `json:"kind"`
	Chosen   model.OptionValue `json:"chosen"`
	Included model.OptionValue `json:"included"`
	Units    int64             `json:"units,omitempty"`
	Unit     int64             `json:"unit_price,omitempty"`
	Amount   int64             `json:"amount"`
}

// Quote is an auditable price breakdown for one product and selection.
type Quote struct {
	Product      string      `json:"product"`
	Name         string      `json:"name"`
	ThemeCost    int64       `json:"theme_cost"`
	PlanningCost int64       `json:"planning_cost"`
	HostingCost  int64       `json:"hosting_cost"`
	Base         int64       `json:"base_price"`
	Discount     int64       `json:"discount"`
	FinalBase    int64       `json:"final_base_price"`
	Lines        []QuoteLine `json:"lines"`
	OptionsTotal int64       `json:"options_total"`
	Total        int64       `json:"total"`
}

// BuildQuote prices sel for product. order lists option keys in display
// order; it only affects the order of Lines. Selected keys missing from order
// are appended in the order they appear in the product's bindings.
func BuildQuote(key string, p model.Product, sel model.Selection, order []model.OptionView) Quote {
	q := Quote{
		Product:      key,
		Name:         p.Name,
		ThemeCost:    p.ThemeCost,
		PlanningCost: p.PlanningCost,
		HostingCost:  p.HostingCost,
		Base:         BasePrice(p),
		Discount:     p.Discount,
		FinalBase:    FinalBasePrice(p),
		Lines:        []QuoteLine{},
	}

	emitted := make(map[string]bool, len(sel))
	emit := func(optKey, name string) {
		chosen, ok := sel[optKey]
		if !ok || emitted[optKey] {
			return
		}
		b, ok := p.Options.Get(optKey)
		if !ok {
			return
		}
		emitted[optKey] = true
		line := QuoteLine{
			Option:   optKey,
			Name:     name,
			Kind:     b.Kind(),
			Chosen:   chosen,
			Included: b.Default,
			Amount:   OptionPrice(b, chosen),
		}
		if b.Kind() == model.OptionKindInteger {
			line.Unit = b.PricePerUnitOrZero()
			if chosen.Int > b.Default.Int {
				line.Units = chosen.Int - b.Default.Int
			}
		}
		q.Lines = append(q.Lines, line)
	}

	for _, v := range order {
		emit(v.Key, v.Definition.Name)
	}
	p.Options.Each(func(optKey string, _ model.ProductOptionBinding) bool {
		emit(optKey, optKey)
		return true
	})

	q.OptionsTotal = SelectionPrice(p, sel)
	q.Total = TotalPrice(p, sel)
	return q
}
