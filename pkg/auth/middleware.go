package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const operatorKey contextKey = "operator"

// Operator names who performed an admin request.
const (
	AdminOperator = "admin"
	DevOperator   = "dev-operator"
)

// OperatorFromContext は context から操作者を取得する
func OperatorFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(operatorKey).(string)
	return v, ok
}

// WithOperator は context に操作者をセットする
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorKey, operator)
}

// BearerToken は Authorization ヘッダーから Bearer トークンを取り出す
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

// RequireAdmin は管理者トークン必須ミドルウェア。トークンが一致すれば操作者を context にセットする
func RequireAdmin(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := BearerToken(r)
			if !ok {
				writeUnauthorized(w, "unauthorized")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				writeUnauthorized(w, "invalid_token")
				return
			}

			ctx := WithOperator(r.Context(), AdminOperator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DevAuth は開発用ミドルウェア。ADMIN_TOKEN 未設定時にダミーの操作者を context にセットする
func DevAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithOperator(r.Context(), DevOperator)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeUnauthorized(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="admin"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
