package service

import (
	"context"
	"strings"

	"github.com/samber/lo"
	ierr "github.com/siteforge/backend/internal/errors"
	"github.com/siteforge/backend/internal/model"
	"github.com/siteforge/backend/internal/pricing"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Comparison cell markers.
const (
	CellUnavailable = "unavailable"
	CellAvailable   = "available"
)

// ComparisonColumn is one option column of the comparison table.
type ComparisonColumn struct {
	Option   string `json:"option"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ComparisonRow is one product of the comparison table. Cells is keyed by
// option key.
type ComparisonRow struct {
	Product        string            `json:"product"`
	Name           string            `json:"name"`
	ThemeCost      int64             `json:"theme_cost"`
	PlanningCost   int64             `json:"planning_cost"`
	HostingCost    int64             `json:"hosting_cost"`
	Discount       int64             `json:"discount"`
	BasePrice      int64             `json:"base_price"`
	FinalBasePrice int64             `json:"final_base_price"`
	Cells          map[string]string `json:"cells"`
}

// Comparison is the products × options table.
type Comparison struct {
	Categories []string           `json:"categories"`
	Columns    []ComparisonColumn `json:"columns"`
	Rows       []ComparisonRow    `json:"rows"`
}

// ComparisonService は商品比較表のインターフェース
type ComparisonService interface {
	Compare(ctx context.Context, categories []string) (*Comparison, error)
}

// ComparisonServiceImpl は ComparisonService の実装
type ComparisonServiceImpl struct {
	catalog CatalogService
	printer *message.Printer
}

// NewComparisonService は ComparisonServiceImpl を生成する
func NewComparisonService(catalog CatalogService) ComparisonService {
	return &ComparisonServiceImpl{
		catalog: catalog,
		printer: message.NewPrinter(language.English),
	}
}

// Compare は選択されたカテゴリのオプションについて全商品の比較表を作る。
// categories が空の場合は全カテゴリを対象にする
func (s *ComparisonServiceImpl) Compare(ctx context.Context, categories []string) (*Comparison, error) {
	res, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}
	c := res.Catalog

	if unknown := lo.Filter(categories, func(k string, _ int) bool { return !c.Categories.Has(k) }); len(unknown) > 0 {
		return nil, ierr.NewErrorf("unknown categories: %s", strings.Join(unknown, ", ")).
			WithHintf("Unknown categories: %s", strings.Join(unknown, ", ")).
			Mark(ierr.ErrValidation)
	}
	wanted := lo.SliceToMap(categories, func(k string) (string, bool) { return k, true })

	out := &Comparison{Categories: []string{}, Columns: []ComparisonColumn{}, Rows: []ComparisonRow{}}
	for _, cat := range c.SortedCategories() {
		if len(wanted) > 0 && !wanted[cat.Key] {
			continue
		}
		out.Categories = append(out.Categories, cat.Key)
		for _, opt := range cat.Options {
			out.Columns = append(out.Columns, ComparisonColumn{Option: opt.Key, Name: opt.Definition.Name, Category: cat.Key})
		}
	}

	c.Products.Each(func(key string, p model.Product) bool {
		row := ComparisonRow{
			Product:        key,
			Name:           p.Name,
			ThemeCost:      p.ThemeCost,
			PlanningCost:   p.PlanningCost,
			HostingCost:    p.HostingCost,
			Discount:       p.Discount,
			BasePrice:      pricing.BasePrice(p),
			FinalBasePrice: pricing.FinalBasePrice(p),
			Cells:          make(map[string]string, len(out.Columns)),
		}
		for _, col := range out.Columns {
			row.Cells[col.Option] = s.cell(p, col.Option)
		}
		out.Rows = append(out.Rows, row)
		return true
	})
	return out, nil
}

// cell describes whether p offers an option and what it costs. A product
// without a binding for the option does not offer it.
func (s *ComparisonServiceImpl) cell(p model.Product, optionKey string) string {
	b, ok := p.Options.Get(optionKey)
	if !ok || !b.Enabled {
		return CellUnavailable
	}
	switch {
	case b.Price != nil:
		return s.printer.Sprintf("%s (+%d)", CellAvailable, *b.Price)
	case b.PricePerUnit != nil:
		return s.printer.Sprintf("%s (+%d per unit)", CellAvailable, *b.PricePerUnit)
	default:
		return CellAvailable
	}
}
