package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pliu/parley/internal/auth"
)

func principalCookie(p Principal) *http.Cookie {
	return &http.Cookie{Name: CookieName, Value: auth.SignCookie(CookieValue(p))}
}

func TestRequireAuthMissingCookie(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest("GET", "/api/chat", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthTamperedCookie(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest("GET", "/api/chat", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "user:someone|bogus"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthResolvesPrincipal(t *testing.T) {
	var got Principal
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetPrincipal(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/chat", nil)
	req.AddCookie(principalCookie(Principal{ID: "u-123", Role: RoleUser}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want %d", rr.Code, http.StatusOK)
	}
	if got.ID != "u-123" || got.Role != RoleUser {
		t.Errorf("unexpected principal %+v", got)
	}
}

func TestRequireAdminRejectsUser(t *testing.T) {
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest("GET", "/api/admin/users", nil)
	req.AddCookie(principalCookie(Principal{ID: "u-123", Role: RoleUser}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("got %d want %d", rr.Code, http.StatusForbidden)
	}
}

func TestRequireAdminAdmitsAdmin(t *testing.T) {
	called := false
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		p, _ := GetPrincipal(r.Context())
		if p.Role != RoleAdmin {
			t.Errorf("expected admin role, got %s", p.Role)
		}
	}))

	req := httptest.NewRequest("GET", "/api/admin/users", nil)
	req.AddCookie(principalCookie(Principal{ID: "a-1", Role: RoleAdmin}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if !called {
		t.Error("handler was not reached")
	}
}
