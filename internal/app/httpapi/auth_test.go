package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestWrapWithAuthRejectsMissingSecret(t *testing.T) {
	var called bool
	wrapped := wrapWithAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}), "s3cr3t", nil)

	req := httptest.NewRequest(http.MethodPost, "/actions/run", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if called {
		t.Fatalf("handler should not be invoked when secret is missing")
	}
}

func TestWrapWithAuthRejectsWrongSecret(t *testing.T) {
	wrapped := wrapWithAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), "s3cr3t", nil)

	req := httptest.NewRequest(http.MethodPost, "/actions/run", nil)
	req.Header.Set(sharedSecretHeader, "wrong")
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWrapWithAuthAcceptsMatchingSecret(t *testing.T) {
	var called bool
	wrapped := wrapWithAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), "s3cr3t", nil)

	req := httptest.NewRequest(http.MethodPost, "/actions/run", nil)
	req.Header.Set(sharedSecretHeader, "s3cr3t")
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !called {
		t.Fatalf("expected handler to be invoked")
	}
}

func TestWrapWithAuthAcceptsBearerForRoadmapctl(t *testing.T) {
	validator := NewHS256BearerValidator("jwt-secret")
	token, err := jwt.New(jwt.SigningMethodHS256).SignedString([]byte("jwt-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	var called bool
	wrapped := wrapWithAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), "s3cr3t", validator)

	req := httptest.NewRequest(http.MethodGet, "/actions/run/some-id", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !called {
		t.Fatalf("expected handler to be invoked")
	}
}

func TestWrapWithAuthRejectsInvalidBearer(t *testing.T) {
	validator := NewHS256BearerValidator("jwt-secret")
	wrapped := wrapWithAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), "s3cr3t", validator)

	req := httptest.NewRequest(http.MethodGet, "/actions/run/some-id", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
