package service

import (
	"context"
	"sync"
	"testing"
	"time"

	ierr "github.com/siteforge/backend/internal/errors"
	"github.com/siteforge/backend/internal/model"
	"github.com/siteforge/backend/internal/repository"
	"github.com/siteforge/backend/pkg/llm"
)

// serviceCatalog is the catalog most service tests run against.
const serviceCatalog = `{
  "options": {
    "design": {
      "order": 1,
      "options": {
        "custom_design": {"name": "Custom design", "type": "boolean", "order": 1},
        "extra_pages": {"name": "Extra pages", "type": "integer", "order": 2, "min": 0, "max": 10}
      }
    },
    "features": {
      "order": 2,
      "options": {
        "blog": {"name": "Blog", "type": "boolean", "order": 1}
      }
    }
  },
  "products": {
    "starter": {
      "name": "Starter",
      "description": "Simple site",
      "theme_cost": 100000, "planning_cost": 50000, "hosting_cost": 20000, "discount": 0,
      "options": {
        "custom_design": {"enabled": false, "default": false, "price": 0},
        "extra_pages": {"enabled": true, "default": 1, "price_per_unit": 8000},
        "blog": {"enabled": true, "default": true, "price": 0}
      }
    },
    "business": {
      "name": "Business",
      "description": "Full featured site",
      "theme_cost": 500000, "planning_cost": 300000, "hosting_cost": 100000, "discount": 50000,
      "options": {
        "custom_design": {"enabled": true, "default": false, "price": 20000},
        "extra_pages": {"enabled": true, "default": 2, "price_per_unit": 5000},
        "blog": {"enabled": true, "default": false, "price": 20000}
      }
    }
  }
}`

func mustCatalog(t *testing.T, doc string) *model.Catalog {
	t.Helper()
	c, err := model.DecodeCatalog([]byte(doc))
	if err != nil {
		t.Fatalf("decode catalog: %v", err)
	}
	return c
}

// ---------------------------------------------------------------------------
// Mock CatalogStore
// ---------------------------------------------------------------------------

// mockCatalogStore keeps the encoded document in memory. loadFunc and
// saveFunc override the in-memory behaviour.
type mockCatalogStore struct {
	mu        sync.Mutex
	data      []byte
	saves     int
	loadFunc  func(ctx context.Context) (*model.Catalog, repository.Snapshot, error)
	saveFunc  func(ctx context.Context, c *model.Catalog, expectedRevision string) (repository.Snapshot, error)
	pingFunc  func(ctx context.Context) error
	savedTime time.Time
}

func newMockCatalogStore(doc string) *mockCatalogStore {
	s := &mockCatalogStore{savedTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	if doc != "" {
		s.data = []byte(doc)
	}
	return s
}

func (m *mockCatalogStore) Load(ctx context.Context) (*model.Catalog, repository.Snapshot, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, repository.Snapshot{}, ierr.NewError("no document").Mark(ierr.ErrMissingStore)
	}
	c, err := model.DecodeCatalog(m.data)
	if err != nil {
		return nil, repository.Snapshot{}, err
	}
	return c, repository.Snapshot{Revision: model.Revision(m.data), ModifiedAt: m.savedTime}, nil
}

func (m *mockCatalogStore) Save(ctx context.Context, c *model.Catalog, expectedRevision string) (repository.Snapshot, error) {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, c, expectedRevision)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if expectedRevision != "" && (m.data == nil || model.Revision(m.data) != expectedRevision) {
		return repository.Snapshot{}, ierr.NewError("stale").Mark(ierr.ErrRevisionConflict)
	}
	data, err := model.EncodeCatalog(c)
	if err != nil {
		return repository.Snapshot{}, err
	}
	m.data = data
	m.saves++
	return repository.Snapshot{Revision: model.Revision(data), ModifiedAt: m.savedTime}, nil
}

func (m *mockCatalogStore) Ping(ctx context.Context) error {
	if m.pingFunc != nil {
		return m.pingFunc(ctx)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Mock CatalogService
// ---------------------------------------------------------------------------

type mockCatalogService struct {
	loadFunc          func(ctx context.Context) (*LoadResult, error)
	upsertProductFunc func(ctx context.Context, in UpsertProductInput) (model.Product, repository.Snapshot, error)
	upsertOptionFunc  func(ctx context.Context, in UpsertOptionInput) (model.OptionDefinition, repository.Snapshot, error)
}

// catalogServiceFor serves doc from a mock CatalogService.
func catalogServiceFor(t *testing.T, doc string) *mockCatalogService {
	t.Helper()
	c := mustCatalog(t, doc)
	return &mockCatalogService{
		loadFunc: func(_ context.Context) (*LoadResult, error) {
			return &LoadResult{Catalog: c.Clone(), Snapshot: repository.Snapshot{Revision: model.Revision([]byte(doc))}}, nil
		},
	}
}

func (m *mockCatalogService) Load(ctx context.Context) (*LoadResult, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx)
	}
	return &LoadResult{Catalog: model.NewCatalog()}, nil
}
func (m *mockCatalogService) UpsertProduct(ctx context.Context, in UpsertProductInput) (model.Product, repository.Snapshot, error) {
	if m.upsertProductFunc != nil {
		return m.upsertProductFunc(ctx, in)
	}
	return model.Product{}, repository.Snapshot{}, nil
}
func (m *mockCatalogService) UpsertOption(ctx context.Context, in UpsertOptionInput) (model.OptionDefinition, repository.Snapshot, error) {
	if m.upsertOptionFunc != nil {
		return m.upsertOptionFunc(ctx, in)
	}
	return model.OptionDefinition{}, repository.Snapshot{}, nil
}

// ---------------------------------------------------------------------------
// Mock Advisor
// ---------------------------------------------------------------------------

type mockAdvisor struct {
	mu           sync.Mutex
	scoreCalls   int
	scoreFunc    func(ctx context.Context, history []QA, candidates []Candidate, previous []ProductScore) (map[string]float64, error)
	questionFunc func(ctx context.Context, history []QA, candidates []Candidate) (Question, error)
	explainFunc  func(ctx context.Context, product Candidate, history []QA) (string, error)
}

func (m *mockAdvisor) Score(ctx context.Context, history []QA, candidates []Candidate, previous []ProductScore) (map[string]float64, error) {
	m.mu.Lock()
	m.scoreCalls++
	m.mu.Unlock()
	if m.scoreFunc != nil {
		return m.scoreFunc(ctx, history, candidates, previous)
	}
	return map[string]float64{}, nil
}
func (m *mockAdvisor) NextQuestion(ctx context.Context, history []QA, candidates []Candidate) (Question, error) {
	if m.questionFunc != nil {
		return m.questionFunc(ctx, history, candidates)
	}
	return Question{Question: "What is your budget?", Answers: []string{"Low", "High"}}, nil
}
func (m *mockAdvisor) Explain(ctx context.Context, product Candidate, history []QA) (string, error) {
	if m.explainFunc != nil {
		return m.explainFunc(ctx, product, history)
	}
	return "Fits your answers", nil
}

// ---------------------------------------------------------------------------
// Mock llm.Client
// ---------------------------------------------------------------------------

type mockLLMClient struct {
	requests     []llm.ChatRequest
	completeFunc func(ctx context.Context, req llm.ChatRequest) (string, error)
}

func (m *mockLLMClient) Complete(ctx context.Context, req llm.ChatRequest) (string, error) {
	m.requests = append(m.requests, req)
	if m.completeFunc != nil {
		return m.completeFunc(ctx, req)
	}
	return "{}", nil
}
