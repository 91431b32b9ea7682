package handler

import (
	"net/http"

	"github.com/siteforge/backend/internal/service"
)

// RecommendationHandler は商品推薦クイズの HTTP ハンドラ
type RecommendationHandler struct {
	svc service.RecommendationService
}

// NewRecommendationHandler は RecommendationHandler を生成する
func NewRecommendationHandler(svc service.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{svc: svc}
}

// Start handles POST /api/recommendations.
func (h *RecommendationHandler) Start(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Start(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/recommendations/"+sess.ID)
	writeJSON(w, http.StatusCreated, sess)
}

// Get handles GET /api/recommendations/{id}. The pending question or the
// final recommendation is generated on demand.
func (h *RecommendationHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type answerRequest struct {
	Answer string `json:"answer" validate:"required"`
}

// Answer handles POST /api/recommendations/{id}/answers.
func (h *RecommendationHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := h.svc.Answer(r.Context(), r.PathValue("id"), req.Answer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// End handles DELETE /api/recommendations/{id}.
func (h *RecommendationHandler) End(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.End(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
