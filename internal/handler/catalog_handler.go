package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/lo"
	ierr "github.com/siteforge/backend/internal/errors"
	"github.com/siteforge/backend/internal/model"
	"github.com/siteforge/backend/internal/repository"
	"github.com/siteforge/backend/internal/service"
	"github.com/siteforge/backend/pkg/auth"
)

// CatalogHandler はカタログ閲覧と管理者編集の HTTP ハンドラ
type CatalogHandler struct {
	svc service.CatalogService
}

// NewCatalogHandler は CatalogHandler を生成する
func NewCatalogHandler(svc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

type catalogResponse struct {
	Catalog    *model.Catalog `json:"catalog"`
	Revision   string         `json:"revision"`
	ModifiedAt string         `json:"modified_at,omitempty"`
	Warnings   []warning      `json:"warnings"`
}

type warning struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func toWarnings(errs []error) []warning {
	return lo.Map(errs, func(err error, _ int) warning {
		w := warning{Code: ierr.Code(err), Message: ierr.DisplayMessage(err)}
		if d := ierr.Details(err); len(d) > 0 {
			w.Details = d
		}
		return w
	})
}

// Get handles GET /api/catalog.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Load(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := catalogResponse{
		Catalog:  res.Catalog,
		Revision: res.Snapshot.Revision,
		Warnings: toWarnings(res.Warnings),
	}
	if !res.Snapshot.ModifiedAt.IsZero() {
		resp.ModifiedAt = res.Snapshot.ModifiedAt.UTC().Format(time.RFC3339Nano)
	}
	setETag(w, res.Snapshot.Revision)
	writeJSON(w, http.StatusOK, resp)
}

// Options handles GET /api/catalog/options. Categories and options come back
// sorted by their order fields.
func (h *CatalogHandler) Options(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Load(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	setETag(w, res.Snapshot.Revision)
	writeJSON(w, http.StatusOK, map[string]any{"categories": res.Catalog.SortedCategories()})
}

type productRequest struct {
	model.ProductFields
	Options *model.Ordered[model.ProductOptionBinding] `json:"options,omitempty"`
}

type createProductRequest struct {
	Key string `json:"key" validate:"required"`
	productRequest
}

type productResponse struct {
	Key      string              `json:"key"`
	Product  model.Product       `json:"product"`
	Snapshot repository.Snapshot `json:"snapshot"`
}

// CreateProduct handles POST /api/admin/products. An existing key is a conflict.
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.upsertProduct(w, r, req.Key, req.productRequest, false, http.StatusCreated)
}

// ReplaceProduct handles PUT /api/admin/products/{key}.
func (h *CatalogHandler) ReplaceProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.upsertProduct(w, r, r.PathValue("key"), req, true, http.StatusOK)
}

func (h *CatalogHandler) upsertProduct(w http.ResponseWriter, r *http.Request, key string, req productRequest, overwrite bool, status int) {
	p, snap, err := h.svc.UpsertProduct(r.Context(), service.UpsertProductInput{
		Key:              key,
		Fields:           req.ProductFields,
		Options:          req.Options,
		Overwrite:        overwrite,
		ExpectedRevision: ifMatch(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	op, _ := auth.OperatorFromContext(r.Context())
	slog.InfoContext(r.Context(), "admin product upsert", "operator", op, "product", key, "overwrite", overwrite)

	setETag(w, snap.Revision)
	writeJSON(w, status, productResponse{Key: key, Product: p, Snapshot: snap})
}

type optionRequest struct {
	Name  string           `json:"name" validate:"required"`
	Type  model.OptionKind `json:"type" validate:"required,oneof=boolean integer"`
	Order int64            `json:"order"`
	Min   *int64           `json:"min,omitempty"`
	Max   *int64           `json:"max,omitempty"`
}

func (o optionRequest) definition() model.OptionDefinition {
	return model.OptionDefinition{Name: o.Name, Type: o.Type, Order: o.Order, Min: o.Min, Max: o.Max}
}

type createOptionRequest struct {
	Category string `json:"category" validate:"required"`
	Key      string `json:"key" validate:"required"`
	optionRequest
}

type optionResponse struct {
	Category   string                 `json:"category"`
	Key        string                 `json:"key"`
	Definition model.OptionDefinition `json:"definition"`
	Snapshot   repository.Snapshot    `json:"snapshot"`
}

// CreateOption handles POST /api/admin/options. An existing key is a conflict.
func (h *CatalogHandler) CreateOption(w http.ResponseWriter, r *http.Request) {
	var req createOptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.upsertOption(w, r, req.Category, req.Key, req.optionRequest, false, http.StatusCreated)
}

// ReplaceOption handles PUT /api/admin/options/{category}/{key}.
func (h *CatalogHandler) ReplaceOption(w http.ResponseWriter, r *http.Request) {
	var req optionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h.upsertOption(w, r, r.PathValue("category"), r.PathValue("key"), req, true, http.StatusOK)
}

func (h *CatalogHandler) upsertOption(w http.ResponseWriter, r *http.Request, category, key string, req optionRequest, overwrite bool, status int) {
	def, snap, err := h.svc.UpsertOption(r.Context(), service.UpsertOptionInput{
		Category:         category,
		Key:              key,
		Definition:       req.definition(),
		Overwrite:        overwrite,
		ExpectedRevision: ifMatch(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	op, _ := auth.OperatorFromContext(r.Context())
	slog.InfoContext(r.Context(), "admin option upsert", "operator", op, "category", category, "option", key, "overwrite", overwrite)

	setETag(w, snap.Revision)
	writeJSON(w, status, optionResponse{Category: category, Key: key, Definition: def, Snapshot: snap})
}
