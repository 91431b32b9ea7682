package service

import (
	"context"

	ierr "github.com/siteforge/backend/internal/errors"
	"github.com/siteforge/backend/internal/model"
	"github.com/siteforge/backend/internal/pricing"
)

// SelectionView is what the calculator needs to render one product: its
// controls, the starting selection and the price of that selection.
type SelectionView struct {
	Product   string            `json:"product"`
	Controls  []pricing.Control `json:"controls"`
	Selection model.Selection   `json:"selection"`
	Quote     pricing.Quote     `json:"quote"`
}

// QuoteService は価格計算のインターフェース
type QuoteService interface {
	Selection(ctx context.Context, productKey string) (*SelectionView, error)
	Quote(ctx context.Context, productKey string, sel model.Selection) (*pricing.Quote, error)
}

// QuoteServiceImpl は QuoteService の実装
type QuoteServiceImpl struct {
	catalog CatalogService
}

// NewQuoteService は QuoteServiceImpl を生成する
func NewQuoteService(catalog CatalogService) QuoteService {
	return &QuoteServiceImpl{catalog: catalog}
}

// Selection は商品の初期選択と入力コントロールを返す
func (s *QuoteServiceImpl) Selection(ctx context.Context, productKey string) (*SelectionView, error) {
	c, p, err := s.product(ctx, productKey)
	if err != nil {
		return nil, err
	}
	order := c.SortedOptions()
	sel := pricing.DefaultSelection(p, order)
	return &SelectionView{
		Product:   productKey,
		Controls:  pricing.Controls(p, order),
		Selection: sel,
		Quote:     pricing.BuildQuote(productKey, p, sel, order),
	}, nil
}

// Quote は選択内容を検証し、価格の内訳を返す
func (s *QuoteServiceImpl) Quote(ctx context.Context, productKey string, sel model.Selection) (*pricing.Quote, error) {
	c, p, err := s.product(ctx, productKey)
	if err != nil {
		return nil, err
	}
	order := c.SortedOptions()
	normalized, err := pricing.NormalizeSelection(p, order, sel)
	if err != nil {
		return nil, err
	}
	q := pricing.BuildQuote(productKey, p, normalized, order)
	return &q, nil
}

func (s *QuoteServiceImpl) product(ctx context.Context, productKey string) (*model.Catalog, model.Product, error) {
	res, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, model.Product{}, err
	}
	p, ok := res.Catalog.Products.Get(productKey)
	if !ok {
		return nil, model.Product{}, ierr.NewErrorf("product %q not found", productKey).
			WithHintf("Product %q does not exist", productKey).
			Mark(ierr.ErrNotFound)
	}
	return res.Catalog, p, nil
}
