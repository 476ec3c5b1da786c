package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/recipebox/internal/model"
)

// TestMiddlewareChain_SessionThenCSRF は Session -> CSRF のチェーンで
// 認証済みPOSTリクエストが通ることを検証する。
func TestMiddlewareChain_SessionThenCSRF(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "chain-session" {
				return &model.Session{
					ID:        "chain-session",
					UserID:    "user-chain",
					ExpiresAt: time.Now().Add(1 * time.Hour),
				}, nil
			}
			return nil, nil
		},
	}

	sessionMW := NewSessionMiddleware(repo, testCookieConfig())
	csrfMW := NewCSRFMiddleware(CSRFConfig{})

	var capturedUserID string
	handler := csrfMW(sessionMW(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUserID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/recipes/", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: "chain-session"})
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "csrf-abc"})
	req.Header.Set(csrfHeaderName, "csrf-abc")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if capturedUserID != "user-chain" {
		t.Errorf("userID = %q, want %q", capturedUserID, "user-chain")
	}
}

// TestMiddlewareChain_CSRFRejectsBeforeSession はCSRF検証失敗時に
// セッション検証まで到達しないことを検証する。
func TestMiddlewareChain_CSRFRejectsBeforeSession(t *testing.T) {
	repoCalled := false
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			repoCalled = true
			return nil, nil
		},
	}

	sessionMW := NewSessionMiddleware(repo, testCookieConfig())
	csrfMW := NewCSRFMiddleware(CSRFConfig{})

	handler := csrfMW(sessionMW(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/recipes/", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: "any-session"})
	// CSRFトークンなし
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
	if repoCalled {
		t.Error("session lookup should not happen when CSRF validation fails")
	}
}

// TestRouterIntegration_CSRFTokenEndpoint はCSRFトークン取得エンドポイントが
// chi.Routerで正しく動作することを検証する。
func TestRouterIntegration_CSRFTokenEndpoint(t *testing.T) {
	r := chi.NewRouter()

	csrfConfig := CSRFConfig{CookieSecure: false}
	r.Get("/api/csrf/", NewCSRFTokenHandler(csrfConfig).ServeHTTP)

	req := httptest.NewRequest(http.MethodGet, "/api/csrf/", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body struct {
		Token string `json:"csrfToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Token == "" {
		t.Error("expected non-empty token")
	}
}

// TestRouterIntegration_ProtectedRoute は保護されたルートが
// 未認証リクエストを401で拒否することを検証する。
func TestRouterIntegration_ProtectedRoute(t *testing.T) {
	repo := &mockSessionRepository{}

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(NewSessionMiddleware(repo, testCookieConfig()))
		r.Get("/api/recipes/", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/recipes/", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}
