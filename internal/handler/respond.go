package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	ierr "github.com/siteforge/backend/internal/errors"
	"github.com/siteforge/backend/internal/validator"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// writeError maps err to its status code and writes the error body. Server
// side failures are logged with the request path.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := ierr.HTTPStatusFromErr(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	resp := errorResponse{
		Error:   ierr.Code(err),
		Message: ierr.DisplayMessage(err),
	}
	if details := ierr.Details(err); len(details) > 0 {
		resp.Details = details
	}
	writeJSON(w, status, resp)
}

// decodeJSON decodes the request body into dst and validates its struct
// tags. Unknown fields are rejected.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return ierr.WithError(err).
			WithHint("Request body is not valid JSON").
			Mark(ierr.ErrValidation)
	}
	return validator.ValidateRequest(dst)
}

// ifMatch returns the revision named by the If-Match header, without quotes
// or weak prefix. An absent header or "*" means no check.
func ifMatch(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("If-Match"))
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, `"`)
	if v == "*" {
		return ""
	}
	return v
}

func setETag(w http.ResponseWriter, revision string) {
	if revision != "" {
		w.Header().Set("ETag", `"`+revision+`"`)
	}
}
