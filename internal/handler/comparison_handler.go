package handler

import (
	"net/http"
	"strings"

	"github.com/samber/lo"
	"github.com/siteforge/backend/internal/service"
)

// ComparisonHandler は商品比較表の HTTP ハンドラ
type ComparisonHandler struct {
	svc service.ComparisonService
}

// NewComparisonHandler は ComparisonHandler を生成する
func NewComparisonHandler(svc service.ComparisonService) *ComparisonHandler {
	return &ComparisonHandler{svc: svc}
}

// Compare handles GET /api/comparison?categories=a,b. Without categories
// every category is compared.
func (h *ComparisonHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var categories []string
	for _, v := range r.URL.Query()["categories"] {
		categories = append(categories, strings.Split(v, ",")...)
	}
	categories = lo.Uniq(lo.Compact(lo.Map(categories, func(s string, _ int) string { return strings.TrimSpace(s) })))

	table, err := h.svc.Compare(r.Context(), categories)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}
