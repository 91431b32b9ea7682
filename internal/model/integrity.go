package model

import (
	"fmt"
	"strings"

	ierr "github.com/siteforge/backend/internal/errors"
)

// Issue is one data-integrity defect found in a catalog.
type Issue struct {
	Product string `json:"product,omitempty"`
	Option  string `json:"option"`
	Problem string `json:"problem"`
}

func (i Issue) String() string {
	if i.Product == "" {
		return fmt.Sprintf("option %s: %s", i.Option, i.Problem)
	}
	return fmt.Sprintf("product %s, option %s: %s", i.Product, i.Option, i.Problem)
}

// Check walks the whole catalog and returns every invariant violation:
// malformed definitions, option keys shared between categories, bindings to
// unknown options, bindings whose shape does not match the option kind and
// integer defaults outside the option's bounds.
func (c *Catalog) Check() []Issue {
	var issues []Issue

	seen := make(map[string]string)
	c.Categories.Each(func(catKey string, cat OptionCategory) bool {
		cat.Options.Each(func(optKey string, def OptionDefinition) bool {
			if first, ok := seen[optKey]; ok {
				issues = append(issues, Issue{Option: optKey, Problem: "defined in categories " + first + " and " + catKey})
			} else {
				seen[optKey] = catKey
			}
			if !def.Type.Valid() {
				issues = append(issues, Issue{Option: optKey, Problem: fmt.Sprintf("unknown type %q", def.Type)})
			}
			if def.Type == OptionKindBoolean && (def.Min != nil || def.Max != nil) {
				issues = append(issues, Issue{Option: optKey, Problem: "boolean option carries bounds"})
			}
			if def.Min != nil && def.Max != nil && *def.Min > *def.Max {
				issues = append(issues, Issue{Option: optKey, Problem: fmt.Sprintf("min %d greater than max %d", *def.Min, *def.Max)})
			}
			return true
		})
		return true
	})

	defs, _ := c.FlattenOptions()
	c.Products.Each(func(pKey string, p Product) bool {
		p.Options.Each(func(optKey string, b ProductOptionBinding) bool {
			for _, problem := range bindingProblems(b, defs, optKey) {
				issues = append(issues, Issue{Product: pKey, Option: optKey, Problem: problem})
			}
			return true
		})
		return true
	})
	return issues
}

// IntegrityError folds issues into a single error marked ErrDataIntegrity,
// or nil when there are none.
func IntegrityError(issues []Issue) error {
	if len(issues) == 0 {
		return nil
	}
	lines := make([]string, len(issues))
	for i, is := range issues {
		lines[i] = is.String()
	}
	return ierr.NewErrorf("catalog has %d integrity issue(s): %s", len(issues), strings.Join(lines, "; ")).
		WithHintf("Catalog data has %d integrity issue(s): %s", len(issues), strings.Join(lines, "; ")).
		WithReportableDetails(map[string]any{"issues": lines}).
		Mark(ierr.ErrDataIntegrity)
}

func bindingProblems(b ProductOptionBinding, defs map[string]OptionDefinition, optKey string) []string {
	def, ok := defs[optKey]
	if !ok {
		return []string{"unknown option"}
	}
	var problems []string
	switch b.Kind() {
	case "":
		problems = append(problems, "missing default")
	case OptionKindBoolean:
		if b.PricePerUnit != nil {
			problems = append(problems, "boolean binding carries price_per_unit")
		}
	case OptionKindInteger:
		if b.Price != nil {
			problems = append(problems, "integer binding carries price")
		}
	}
	if b.Kind() != "" && b.Kind() != def.Type {
		problems = append(problems, fmt.Sprintf("binding is %s but option is %s", b.Kind(), def.Type))
	}
	if b.Kind() == OptionKindInteger && def.Type == OptionKindInteger && !def.InRange(b.Default.Int) {
		problems = append(problems, fmt.Sprintf("default %d outside option bounds", b.Default.Int))
	}
	return problems
}

// checkBindings validates bindings submitted for productKey before they are
// stored. Shape defects are data-integrity errors; negative prices and
// out-of-range defaults are validation errors.
func checkBindings(productKey string, bindings Ordered[ProductOptionBinding], defs map[string]OptionDefinition) error {
	var (
		integrity []Issue
		invalid   []string
	)
	bindings.Each(func(optKey string, b ProductOptionBinding) bool {
		def, ok := defs[optKey]
		if !ok {
			integrity = append(integrity, Issue{Product: productKey, Option: optKey, Problem: "unknown option"})
			return true
		}
		if b.Kind() == "" {
			invalid = append(invalid, optKey+": default is required")
			return true
		}
		if b.Kind() != def.Type ||
			(b.Kind() == OptionKindBoolean && b.PricePerUnit != nil) ||
			(b.Kind() == OptionKindInteger && b.Price != nil) {
			integrity = append(integrity, Issue{Product: productKey, Option: optKey,
				Problem: fmt.Sprintf("binding shape does not match %s option", def.Type)})
			return true
		}
		if b.PriceOrZero() < 0 || b.PricePerUnitOrZero() < 0 {
			invalid = append(invalid, optKey+": price must not be negative")
		}
		if def.Type == OptionKindInteger && !def.InRange(b.Default.Int) {
			invalid = append(invalid, fmt.Sprintf("%s: default %d outside [%d, %s]", optKey, b.Default.Int, def.MinValue(), maxLabel(def)))
		}
		return true
	})

	if len(integrity) > 0 {
		return IntegrityError(integrity)
	}
	if len(invalid) > 0 {
		return ierr.NewErrorf("invalid bindings for %q: %s", productKey, strings.Join(invalid, "; ")).
			WithHintf("Invalid option settings: %s", strings.Join(invalid, "; ")).
			WithReportableDetails(map[string]any{"bindings": invalid}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func maxLabel(def OptionDefinition) string {
	if max, ok := def.MaxValue(); ok {
		return fmt.Sprint(max)
	}
	return "∞"
}
