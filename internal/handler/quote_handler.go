package handler

import (
	"net/http"

	"github.com/siteforge/backend/internal/model"
	"github.com/siteforge/backend/internal/service"
)

// QuoteHandler は価格計算の HTTP ハンドラ
type QuoteHandler struct {
	svc service.QuoteService
}

// NewQuoteHandler は QuoteHandler を生成する
func NewQuoteHandler(svc service.QuoteService) *QuoteHandler {
	return &QuoteHandler{svc: svc}
}

// Selection handles GET /api/products/{key}/selection.
func (h *QuoteHandler) Selection(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Selection(r.Context(), r.PathValue("key"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type quoteRequest struct {
	Product   string          `json:"product" validate:"required"`
	Selection model.Selection `json:"selection"`
}

// Quote handles POST /api/quote. Options missing from the selection take the
// product's defaults.
func (h *QuoteHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	q, err := h.svc.Quote(r.Context(), req.Product, req.Selection)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}
