package handler

import (
	"log/slog"
	"net/http"
)

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health はカタログストアへの疎通を確認する。
// 失敗の詳細はログにのみ出力し、レスポンスには含めない。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status, resp := http.StatusOK, healthResponse{Status: "ok", Message: "Siteforge catalog API"}
	if err := h.store.Ping(r.Context()); err != nil {
		slog.WarnContext(r.Context(), "health check failed", "error", err)
		status, resp = http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Message: "catalog store unavailable"}
	}
	writeJSON(w, status, resp)
}
