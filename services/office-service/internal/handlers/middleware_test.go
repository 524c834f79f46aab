package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/katharina-voss/lashoffice/libs/auth"
)

func testToken(t *testing.T, secret string, expires time.Time) string {
	t.Helper()
	token, err := auth.SignHS256(auth.Claims{
		Sub:   "user-1",
		Email: "owner@studio.test",
		Role:  "owner",
		Iat:   time.Now().Unix(),
		Exp:   expires.Unix(),
	}, secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestRequireAuth(t *testing.T) {
	h := &Handler{jwtSecret: "test-secret"}

	var gotSub string
	protected := h.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFrom(r.Context())
		if !ok {
			t.Fatal("claims missing from context")
		}
		gotSub = claims.Sub
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid token passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer "+testToken(t, "test-secret", time.Now().Add(time.Hour)))
		rec := httptest.NewRecorder()
		protected(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("got %d, want 200", rec.Code)
		}
		if gotSub != "user-1" {
			t.Fatalf("got sub %q", gotSub)
		}
	})

	t.Run("missing token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		rec := httptest.NewRecorder()
		protected(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("got %d, want 401", rec.Code)
		}
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer "+testToken(t, "other-secret", time.Now().Add(time.Hour)))
		rec := httptest.NewRecorder()
		protected(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("got %d, want 401", rec.Code)
		}
	})

	t.Run("expired token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer "+testToken(t, "test-secret", time.Now().Add(-time.Hour)))
		rec := httptest.NewRecorder()
		protected(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("got %d, want 401", rec.Code)
		}
	})
}

func TestRequireSyncAuth(t *testing.T) {
	h := &Handler{jwtSecret: "test-secret", syncSecret: "cron-secret"}
	protected := h.RequireSyncAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("sync secret passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/run", nil)
		req.Header.Set("X-Sync-Secret", "cron-secret")
		rec := httptest.NewRecorder()
		protected(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("got %d, want 200", rec.Code)
		}
	})

	t.Run("wrong sync secret rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/run", nil)
		req.Header.Set("X-Sync-Secret", "guess")
		rec := httptest.NewRecorder()
		protected(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("got %d, want 403", rec.Code)
		}
	})

	t.Run("bearer token also passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/run", nil)
		req.Header.Set("Authorization", "Bearer "+testToken(t, "test-secret", time.Now().Add(time.Hour)))
		rec := httptest.NewRecorder()
		protected(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("got %d, want 200", rec.Code)
		}
	})

	t.Run("nothing rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/run", nil)
		rec := httptest.NewRecorder()
		protected(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("got %d, want 401", rec.Code)
		}
	})
}
