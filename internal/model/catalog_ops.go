package model

import (
	"sort"
	"strings"

	ierr "github.com/siteforge/backend/internal/errors"
	"github.com/siteforge/backend/internal/validator"
)

// CategoryView is a category with its options sorted for display.
type CategoryView struct {
	Key     string       `json:"key"`
	Order   int64        `json:"order"`
	Options []OptionView `json:"options"`
}

// OptionView is one option definition together with its key.
type OptionView struct {
	Key        string           `json:"key"`
	Category   string           `json:"category"`
	Definition OptionDefinition `json:"definition"`
}

// FlattenOptions merges every category's options into one key → definition
// map. Option keys are catalog-global; when two categories define the same
// key the first one in storage order is kept and the collision is returned as
// a data-integrity error so the caller can report it.
func (c *Catalog) FlattenOptions() (map[string]OptionDefinition, error) {
	flat := make(map[string]OptionDefinition)
	owner := make(map[string]string)
	var collisions []string

	c.Categories.Each(func(catKey string, cat OptionCategory) bool {
		cat.Options.Each(func(optKey string, def OptionDefinition) bool {
			if first, ok := owner[optKey]; ok {
				collisions = append(collisions, optKey+" ("+first+", "+catKey+")")
				return true
			}
			owner[optKey] = catKey
			flat[optKey] = def
			return true
		})
		return true
	})

	if len(collisions) > 0 {
		return flat, ierr.NewErrorf("option keys defined in more than one category: %s", strings.Join(collisions, "; ")).
			WithHintf("Option keys must be unique across categories: %s", strings.Join(collisions, "; ")).
			WithReportableDetails(map[string]any{"collisions": collisions}).
			Mark(ierr.ErrDataIntegrity)
	}
	return flat, nil
}

// LocateOption returns the category holding optionKey.
func (c *Catalog) LocateOption(optionKey string) (string, OptionDefinition, bool) {
	var (
		found  bool
		catKey string
		def    OptionDefinition
	)
	c.Categories.Each(func(k string, cat OptionCategory) bool {
		if d, ok := cat.Options.Get(optionKey); ok {
			found, catKey, def = true, k, d
			return false
		}
		return true
	})
	return catKey, def, found
}

// SortedCategories returns categories and their options ordered by the order
// field. Equal orders keep storage order.
func (c *Catalog) SortedCategories() []CategoryView {
	views := make([]CategoryView, 0, c.Categories.Len())
	c.Categories.Each(func(catKey string, cat OptionCategory) bool {
		v := CategoryView{Key: catKey, Order: cat.Order, Options: []OptionView{}}
		cat.Options.Each(func(optKey string, def OptionDefinition) bool {
			v.Options = append(v.Options, OptionView{Key: optKey, Category: catKey, Definition: def})
			return true
		})
		sort.SliceStable(v.Options, func(i, j int) bool {
			return v.Options[i].Definition.Order < v.Options[j].Definition.Order
		})
		views = append(views, v)
		return true
	})
	sort.SliceStable(views, func(i, j int) bool { return views[i].Order < views[j].Order })
	return views
}

// SortedOptions flattens SortedCategories into display order.
func (c *Catalog) SortedOptions() []OptionView {
	var out []OptionView
	for _, cat := range c.SortedCategories() {
		out = append(out, cat.Options...)
	}
	return out
}

// DefaultBinding is the binding a new product gets for an option it does not
// offer yet: disabled, nothing included, nothing charged.
func DefaultBinding(def OptionDefinition) ProductOptionBinding {
	if def.Type == OptionKindInteger {
		return ProductOptionBinding{
			Enabled:      false,
			Default:      IntValue(def.MinValue()),
			PricePerUnit: Int64(0),
		}
	}
	return ProductOptionBinding{
		Enabled: false,
		Default: BoolValue(false),
		Price:   Int64(0),
	}
}

// UpsertProduct creates or replaces the product stored under key.
//
// With bindings == nil a new product gets one disabled binding per known
// option and a replaced product keeps its current bindings. Explicit bindings
// are checked against the option definitions first. Nothing is changed when
// an error is returned.
func (c *Catalog) UpsertProduct(key string, fields ProductFields, bindings *Ordered[ProductOptionBinding], overwrite bool) (Product, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Product{}, ierr.NewError("empty product key").
			WithHint("Product key is required").
			Mark(ierr.ErrValidation)
	}
	if fields.Name == "" {
		fields.Name = key
	}
	if err := validator.ValidateRequest(fields); err != nil {
		return Product{}, err
	}

	existing, exists := c.Products.Get(key)
	if exists && !overwrite {
		return Product{}, ierr.NewErrorf("product %q already exists", key).
			WithHintf("A product named %q already exists", key).
			Mark(ierr.ErrDuplicateKey)
	}

	defs, _ := c.FlattenOptions()

	var opts Ordered[ProductOptionBinding]
	switch {
	case bindings != nil:
		if err := checkBindings(key, *bindings, defs); err != nil {
			return Product{}, err
		}
		opts = bindings.Clone()
	case exists:
		opts = existing.Options.Clone()
	default:
		opts = NewOrdered[ProductOptionBinding]()
		for _, v := range c.flatInStorageOrder() {
			opts.Set(v.Key, DefaultBinding(v.Definition))
		}
	}

	p := Product{
		Name:         fields.Name,
		Description:  fields.Description,
		ThemeCost:    fields.ThemeCost,
		PlanningCost: fields.PlanningCost,
		HostingCost:  fields.HostingCost,
		Discount:     fields.Discount,
		Options:      opts,
	}
	c.Products.Set(key, p)
	return p, nil
}

// UpsertOptionDefinition creates or replaces an option definition, creating
// the category when needed with the next free order. Existing products are
// not given a binding for a new option. Integer options missing a bound get
// DefaultIntegerMin or DefaultIntegerMax. Nothing is changed when an error is
// returned.
func (c *Catalog) UpsertOptionDefinition(categoryKey, optionKey string, def OptionDefinition, overwrite bool) (OptionDefinition, error) {
	categoryKey = strings.TrimSpace(categoryKey)
	optionKey = strings.TrimSpace(optionKey)
	if categoryKey == "" || optionKey == "" {
		return OptionDefinition{}, ierr.NewError("empty category or option key").
			WithHint("Both a category and an option key are required").
			Mark(ierr.ErrValidation)
	}
	if def.Name == "" {
		def.Name = optionKey
	}
	if !def.Type.Valid() {
		return OptionDefinition{}, ierr.NewErrorf("unknown option type %q", def.Type).
			WithHint("Option type must be boolean or integer").
			Mark(ierr.ErrValidation)
	}
	if def.Type == OptionKindBoolean {
		def.Min, def.Max = nil, nil
	} else {
		if def.Min == nil {
			def.Min = Int64(DefaultIntegerMin)
		}
		if def.Max == nil {
			def.Max = Int64(DefaultIntegerMax)
		}
	}
	if def.Type == OptionKindInteger && *def.Min > *def.Max {
		return OptionDefinition{}, ierr.NewErrorf("min %d greater than max %d", *def.Min, *def.Max).
			WithHint("Minimum must not exceed maximum").
			Mark(ierr.ErrValidation)
	}

	owner, _, found := c.LocateOption(optionKey)
	if found && owner != categoryKey {
		return OptionDefinition{}, ierr.NewErrorf("option %q already defined in category %q", optionKey, owner).
			WithHintf("Option %q already belongs to category %q", optionKey, owner).
			Mark(ierr.ErrDuplicateKey)
	}
	if found && !overwrite {
		return OptionDefinition{}, ierr.NewErrorf("option %q already exists", optionKey).
			WithHintf("Option %q already exists", optionKey).
			Mark(ierr.ErrDuplicateKey)
	}
	if found {
		if err := c.checkRedefinition(optionKey, def); err != nil {
			return OptionDefinition{}, err
		}
	}

	cat, ok := c.Categories.Get(categoryKey)
	if !ok {
		cat = OptionCategory{Order: int64(c.Categories.Len()) + 1, Options: NewOrdered[OptionDefinition]()}
	} else {
		cat.Options = cat.Options.Clone()
	}
	cat.Options.Set(optionKey, def)
	c.Categories.Set(categoryKey, cat)
	return def, nil
}

// checkRedefinition refuses a definition change that existing bindings
// would no longer satisfy.
func (c *Catalog) checkRedefinition(optionKey string, def OptionDefinition) error {
	var broken []string
	c.Products.Each(func(pKey string, p Product) bool {
		b, ok := p.Options.Get(optionKey)
		if !ok {
			return true
		}
		if b.Kind() != def.Type {
			broken = append(broken, pKey+": kind "+string(b.Kind()))
		} else if def.Type == OptionKindInteger && !def.InRange(b.Default.Int) {
			broken = append(broken, pKey+": default "+b.Default.String()+" out of range")
		}
		return true
	})
	if len(broken) == 0 {
		return nil
	}
	return ierr.NewErrorf("redefining %q breaks bindings: %s", optionKey, strings.Join(broken, "; ")).
		WithHintf("Products bound to %q would become inconsistent: %s", optionKey, strings.Join(broken, "; ")).
		WithReportableDetails(map[string]any{"products": broken}).
		Mark(ierr.ErrDataIntegrity)
}

func (c *Catalog) flatInStorageOrder() []OptionView {
	seen := make(map[string]bool)
	var out []OptionView
	c.Categories.Each(func(catKey string, cat OptionCategory) bool {
		cat.Options.Each(func(optKey string, def OptionDefinition) bool {
			if !seen[optKey] {
				seen[optKey] = true
				out = append(out, OptionView{Key: optKey, Category: catKey, Definition: def})
			}
			return true
		})
		return true
	})
	return out
}

// Clone returns a deep copy of the catalog.
func (c *Catalog) Clone() *Catalog {
	out := NewCatalog()
	c.Categories.Each(func(k string, cat OptionCategory) bool {
		cat.Options = cat.Options.Clone()
		out.Categories.Set(k, cat)
		return true
	})
	c.Products.Each(func(k string, p Product) bool {
		p.Options = p.Options.Clone()
		out.Products.Set(k, p)
		return true
	})
	return out
}
