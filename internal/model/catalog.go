package model

import "encoding/json"

// Catalog is the whole persisted document: option categories and products.
type Catalog struct {
	Categories Ordered[OptionCategory] `json:"options"`
	Products   Ordered[Product]        `json:"products"`
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		Categories: NewOrdered[OptionCategory](),
		Products:   NewOrdered[Product](),
	}
}

// OptionCategory groups option definitions under a display order.
type OptionCategory struct {
	Order   int64                     `json:"order"`
	Options Ordered[OptionDefinition] `json:"options"`
}

// Bounds given to an integer option defined without them.
const (
	DefaultIntegerMin int64 = 0
	DefaultIntegerMax int64 = 10
)

// OptionDefinition describes an option independent of any product.
// Min and Max are only meaningful for integer options; definitions saved
// through UpsertOptionDefinition always carry both.
type OptionDefinition struct {
	Name  string     `json:"name"`
	Type  OptionKind `json:"type"`
	Order int64      `json:"order"`
	Min   *int64     `json:"min,omitempty"`
	Max   *int64     `json:"max,omitempty"`
}

// MinValue returns the lower bound, 0 when unset.
func (d OptionDefinition) MinValue() int64 {
	if d.Min == nil {
		return 0
	}
	return *d.Min
}

// MaxValue returns the upper bound and whether one is set.
func (d OptionDefinition) MaxValue() (int64, bool) {
	if d.Max == nil {
		return 0, false
	}
	return *d.Max, true
}

// InRange reports whether n lies within the definition's bounds.
func (d OptionDefinition) InRange(n int64) bool {
	if n < d.MinValue() {
		return false
	}
	if max, ok := d.MaxValue(); ok && n > max {
		return false
	}
	return true
}

// Product is a sellable package with its cost breakdown and option bindings.
type Product struct {
	Name         string                        `json:"name"`
	Description  string                        `json:"description,omitempty"`
	ThemeCost    int64                         `json:"theme_cost"`
	PlanningCost int64                         `json:"planning_cost"`
	HostingCost  int64                         `json:"hosting_cost"`
	Discount     int64                         `json:"discount"`
	Options      Ordered[ProductOptionBinding] `json:"options"`
}

// UnmarshalJSON reads the cost fields as whole numbers, so 500000.0 loads
// like 500000.
func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	var doc struct {
		plain
		ThemeCost    wholeNumber `json:"theme_cost"`
		PlanningCost wholeNumber `json:"planning_cost"`
		HostingCost  wholeNumber `json:"hosting_cost"`
		Discount     wholeNumber `json:"discount"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*p = Product(doc.plain)
	p.ThemeCost = int64(doc.ThemeCost)
	p.PlanningCost = int64(doc.PlanningCost)
	p.HostingCost = int64(doc.HostingCost)
	p.Discount = int64(doc.Discount)
	return nil
}

// ProductFields are the scalar fields of a product, as edited by an operator.
type ProductFields struct {
	Name         string `json:"name" validate:"required"`
	Description  string `json:"description"`
	ThemeCost    int64  `json:"theme_cost" validate:"gte=0"`
	PlanningCost int64  `json:"planning_cost" validate:"gte=0"`
	HostingCost  int64  `json:"hosting_cost" validate:"gte=0"`
	Discount     int64  `json:"discount" validate:"gte=0"`
}

// ProductOptionBinding is a product's configuration of one option.
// Boolean bindings charge Price; integer bindings charge PricePerUnit for
// every unit above Default. Absent price fields are nil.
type ProductOptionBinding struct {
	Enabled      bool        `json:"enabled"`
	Default      OptionValue `json:"default"`
	Price        *int64      `json:"price,omitempty"`
	PricePerUnit *int64      `json:"price_per_unit,omitempty"`
}

// UnmarshalJSON reads the price fields as whole numbers, like Product.
func (b *ProductOptionBinding) UnmarshalJSON(data []byte) error {
	type plain ProductOptionBinding
	var doc struct {
		plain
		Price        *wholeNumber `json:"price"`
		PricePerUnit *wholeNumber `json:"price_per_unit"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*b = ProductOptionBinding(doc.plain)
	b.Price = doc.Price.ptr()
	b.PricePerUnit = doc.PricePerUnit.ptr()
	return nil
}

// Kind is derived from the shape of the default value.
func (b ProductOptionBinding) Kind() OptionKind { return b.Default.Kind }

// PriceOrZero returns the flat price, 0 when absent.
func (b ProductOptionBinding) PriceOrZero() int64 {
	if b.Price == nil {
		return 0
	}
	return *b.Price
}

// PricePerUnitOrZero returns the unit price, 0 when absent.
func (b ProductOptionBinding) PricePerUnitOrZero() int64 {
	if b.PricePerUnit == nil {
		return 0
	}
	return *b.PricePerUnit
}

// Selection maps option keys to the values a user picked for one product.
// It is built per interaction and never persisted.
type Selection map[string]OptionValue

// Int64 returns a pointer to n, for optional document fields.
func Int64(n int64) *int64 { return &n }
