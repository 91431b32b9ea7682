package service

import (
	"context"
	"log/slog"

	ierr "github.com/siteforge/backend/internal/errors"
	"github.com/siteforge/backend/internal/model"
	"github.com/siteforge/backend/internal/repository"
)

// LoadResult is a catalog read for one interaction.
// Warnings holds non-fatal problems (missing store, integrity issues) that
// must be shown to the operator.
type LoadResult struct {
	Catalog  *model.Catalog
	Snapshot repository.Snapshot
	Warnings []error
}

// UpsertProductInput is an admin request to create or replace a product.
// Options == nil keeps the current bindings of an existing product and
// synthesizes disabled bindings for a new one.
type UpsertProductInput struct {
	Key              string
	Fields           model.ProductFields
	Options          *model.Ordered[model.ProductOptionBinding]
	Overwrite        bool
	ExpectedRevision string
}

// UpsertOptionInput is an admin request to create or replace an option
// definition.
type UpsertOptionInput struct {
	Category         string
	Key              string
	Definition       model.OptionDefinition
	Overwrite        bool
	ExpectedRevision string
}

// CatalogService はカタログの読み込みと編集を扱うインターフェース
type CatalogService interface {
	Load(ctx context.Context) (*LoadResult, error)
	UpsertProduct(ctx context.Context, in UpsertProductInput) (model.Product, repository.Snapshot, error)
	UpsertOption(ctx context.Context, in UpsertOptionInput) (model.OptionDefinition, repository.Snapshot, error)
}

// CatalogServiceImpl は CatalogService の実装
type CatalogServiceImpl struct {
	store repository.CatalogStore
}

// NewCatalogService は CatalogServiceImpl を生成する
func NewCatalogService(store repository.CatalogStore) CatalogService {
	return &CatalogServiceImpl{store: store}
}

// Load はカタログを読み込む。ドキュメントが存在しない場合は空のカタログと警告を返す
func (s *CatalogServiceImpl) Load(ctx context.Context) (*LoadResult, error) {
	c, snap, err := s.store.Load(ctx)
	if ierr.IsMissingStore(err) {
		slog.WarnContext(ctx, "catalog store missing, starting from an empty catalog", "error", err)
		return &LoadResult{Catalog: model.NewCatalog(), Warnings: []error{err}}, nil
	}
	if err != nil {
		return nil, err
	}

	res := &LoadResult{Catalog: c, Snapshot: snap}
	if issues := c.Check(); len(issues) > 0 {
		for _, is := range issues {
			slog.WarnContext(ctx, "catalog integrity issue", "product", is.Product, "option", is.Option, "problem", is.Problem)
		}
		res.Warnings = append(res.Warnings, model.IntegrityError(issues))
	}
	return res, nil
}

// UpsertProduct は商品を作成または置換し、カタログ全体を保存する
func (s *CatalogServiceImpl) UpsertProduct(ctx context.Context, in UpsertProductInput) (model.Product, repository.Snapshot, error) {
	var product model.Product
	snap, err := s.mutate(ctx, in.ExpectedRevision, func(c *model.Catalog) error {
		p, err := c.UpsertProduct(in.Key, in.Fields, in.Options, in.Overwrite)
		product = p
		return err
	})
	if err != nil {
		return model.Product{}, repository.Snapshot{}, err
	}
	slog.InfoContext(ctx, "product saved", "product", in.Key, "overwrite", in.Overwrite, "revision", snap.Revision)
	return product, snap, nil
}

// UpsertOption はオプション定義を作成または置換し、カタログ全体を保存する
func (s *CatalogServiceImpl) UpsertOption(ctx context.Context, in UpsertOptionInput) (model.OptionDefinition, repository.Snapshot, error) {
	var def model.OptionDefinition
	snap, err := s.mutate(ctx, in.ExpectedRevision, func(c *model.Catalog) error {
		d, err := c.UpsertOptionDefinition(in.Category, in.Key, in.Definition, in.Overwrite)
		def = d
		return err
	})
	if err != nil {
		return model.OptionDefinition{}, repository.Snapshot{}, err
	}
	slog.InfoContext(ctx, "option saved", "category", in.Category, "option", in.Key, "overwrite", in.Overwrite, "revision", snap.Revision)
	return def, snap, nil
}

// mutate loads the catalog, applies fn and writes the result back. fn must
// leave the catalog untouched when it fails; nothing is written in that case.
func (s *CatalogServiceImpl) mutate(ctx context.Context, expectedRevision string, fn func(*model.Catalog) error) (repository.Snapshot, error) {
	c, snap, err := s.store.Load(ctx)
	switch {
	case ierr.IsMissingStore(err):
		c = model.NewCatalog()
	case err != nil:
		return repository.Snapshot{}, err
	}

	if expectedRevision != "" && expectedRevision != snap.Revision {
		return repository.Snapshot{}, ierr.NewErrorf("expected revision %q, loaded %q", expectedRevision, snap.Revision).
			WithHint("The catalog was changed by someone else; reload and retry").
			Mark(ierr.ErrRevisionConflict)
	}

	if err := fn(c); err != nil {
		return repository.Snapshot{}, err
	}
	return s.store.Save(ctx, c, expectedRevision)
}
