package handler

import (
	"context"

	"github.com/siteforge/backend/internal/model"
	"github.com/siteforge/backend/internal/pricing"
	"github.com/siteforge/backend/internal/repository"
	"github.com/siteforge/backend/internal/service"
)

// ---------------------------------------------------------------------------
// Mock services
// ---------------------------------------------------------------------------

type mockCatalogService struct {
	loadFunc          func(ctx context.Context) (*service.LoadResult, error)
	upsertProductFunc func(ctx context.Context, in service.UpsertProductInput) (model.Product, repository.Snapshot, error)
	upsertOptionFunc  func(ctx context.Context, in service.UpsertOptionInput) (model.OptionDefinition, repository.Snapshot, error)
}

func (m *mockCatalogService) Load(ctx context.Context) (*service.LoadResult, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx)
	}
	return &service.LoadResult{Catalog: model.NewCatalog()}, nil
}
func (m *mockCatalogService) UpsertProduct(ctx context.Context, in service.UpsertProductInput) (model.Product, repository.Snapshot, error) {
	if m.upsertProductFunc != nil {
		return m.upsertProductFunc(ctx, in)
	}
	return model.Product{}, repository.Snapshot{}, nil
}
func (m *mockCatalogService) UpsertOption(ctx context.Context, in service.UpsertOptionInput) (model.OptionDefinition, repository.Snapshot, error) {
	if m.upsertOptionFunc != nil {
		return m.upsertOptionFunc(ctx, in)
	}
	return model.OptionDefinition{}, repository.Snapshot{}, nil
}

type mockQuoteService struct {
	selectionFunc func(ctx context.Context, productKey string) (*service.SelectionView, error)
	quoteFunc     func(ctx context.Context, productKey string, sel model.Selection) (*pricing.Quote, error)
}

func (m *mockQuoteService) Selection(ctx context.Context, productKey string) (*service.SelectionView, error) {
	if m.selectionFunc != nil {
		return m.selectionFunc(ctx, productKey)
	}
	return &service.SelectionView{Product: productKey}, nil
}
func (m *mockQuoteService) Quote(ctx context.Context, productKey string, sel model.Selection) (*pricing.Quote, error) {
	if m.quoteFunc != nil {
		return m.quoteFunc(ctx, productKey, sel)
	}
	return &pricing.Quote{Product: productKey}, nil
}

type mockComparisonService struct {
	compareFunc func(ctx context.Context, categories []string) (*service.Comparison, error)
}

func (m *mockComparisonService) Compare(ctx context.Context, categories []string) (*service.Comparison, error) {
	if m.compareFunc != nil {
		return m.compareFunc(ctx, categories)
	}
	return &service.Comparison{}, nil
}

type mockRecommendationService struct {
	enabled    bool
	startFunc  func(ctx context.Context) (*service.QuizSession, error)
	getFunc    func(ctx context.Context, id string) (*service.QuizSession, error)
	answerFunc func(ctx context.Context, id, answer string) (*service.QuizSession, error)
	endFunc    func(ctx context.Context, id string) error
}

func (m *mockRecommendationService) Enabled() bool { return m.enabled }
func (m *mockRecommendationService) Start(ctx context.Context) (*service.QuizSession, error) {
	if m.startFunc != nil {
		return m.startFunc(ctx)
	}
	return &service.QuizSession{ID: "01J00000000000000000000000"}, nil
}
func (m *mockRecommendationService) Get(ctx context.Context, id string) (*service.QuizSession, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return &service.QuizSession{ID: id}, nil
}
func (m *mockRecommendationService) Answer(ctx context.Context, id, answer string) (*service.QuizSession, error) {
	if m.answerFunc != nil {
		return m.answerFunc(ctx, id, answer)
	}
	return &service.QuizSession{ID: id}, nil
}
func (m *mockRecommendationService) End(ctx context.Context, id string) error {
	if m.endFunc != nil {
		return m.endFunc(ctx, id)
	}
	return nil
}
