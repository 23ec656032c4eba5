package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stocksim/internal/identity"

	"github.com/shopspring/decimal"
)

func authedEcho(t *testing.T, svc *identity.Service) http.Handler {
	t.Helper()
	return WithAuth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserID(r)
		if !ok {
			t.Fatalf("user id missing from authenticated request context")
		}
		w.Write([]byte(id))
	}))
}

func TestWithAuthAcceptsValidToken(t *testing.T) {
	svc := identity.NewService(nil, "stocksim", []byte("test-secret"), time.Hour, decimal.Zero)
	token, err := svc.TokenFor("user-42")
	if err != nil {
		t.Fatalf("TokenFor err=%v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	authedEcho(t, svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "user-42" {
		t.Fatalf("body = %q, want user-42", rec.Body.String())
	}
}

func TestWithAuthRejectsMissingHeader(t *testing.T) {
	svc := identity.NewService(nil, "stocksim", []byte("test-secret"), time.Hour, decimal.Zero)
	handler := WithAuth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run without a bearer token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestWithAuthRejectsBadToken(t *testing.T) {
	svc := identity.NewService(nil, "stocksim", []byte("test-secret"), time.Hour, decimal.Zero)
	handler := WithAuth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run with an invalid token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestInternalAuth(t *testing.T) {
	handler := InternalAuth("backstage")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/quotes/refresh", nil)
	req.Header.Set("X-Internal-Token", "backstage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/v1/internal/quotes/refresh", nil)
	req.Header.Set("X-Internal-Token", "wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestInternalAuthRejectsWhenUnconfigured(t *testing.T) {
	handler := InternalAuth("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run when no internal token is configured")
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/internal/quotes/refresh", nil)
	req.Header.Set("X-Internal-Token", "")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
