package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/katharina-voss/lashoffice/libs/auth"
)

type ctxKey string

const ctxKeyClaims ctxKey = "claims"

func claimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ctxKeyClaims).(*auth.Claims)
	return claims, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// RequireAuth rejects requests without a valid office session token.
func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		claims, err := auth.ParseAndVerifyHS256(token, h.jwtSecret)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKeyClaims, claims)))
	}
}

// RequireSyncAuth lets either an authenticated user or the cron job (shared
// X-Sync-Secret header) trigger a sync.
func (h *Handler) RequireSyncAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		secret := r.Header.Get("X-Sync-Secret")
		if h.syncSecret != "" && secret != "" {
			if subtle.ConstantTimeCompare([]byte(secret), []byte(h.syncSecret)) == 1 {
				next(w, r)
				return
			}
			http.Error(w, "invalid sync secret", http.StatusForbidden)
			return
		}
		h.RequireAuth(next)(w, r)
	}
}
