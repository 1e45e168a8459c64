package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pliu/parley/internal/auth"
)

// CookieName holds the signed principal for the session.
const CookieName = "principal"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Principal is the authenticated actor of a request: a regular user or an
// admin, distinguished by the role tag. The two share one id namespace per
// role but live in separate tables.
type Principal struct {
	ID   string
	Role Role
}

type contextKey string

const principalKey contextKey = "principal"

// CookieValue encodes a principal for storage in the signed cookie.
func CookieValue(p Principal) string {
	return string(p.Role) + ":" + p.ID
}

func parsePrincipal(value string) (Principal, bool) {
	role, id, ok := strings.Cut(value, ":")
	if !ok || id == "" {
		return Principal{}, false
	}
	switch Role(role) {
	case RoleUser, RoleAdmin:
		return Principal{ID: id, Role: Role(role)}, true
	}
	return Principal{}, false
}

// FromRequest resolves the principal from the signed cookie without
// enforcing it. Used by the websocket endpoint.
func FromRequest(r *http.Request) (Principal, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Principal{}, false
	}
	value, err := auth.VerifyCookie(cookie.Value)
	if err != nil {
		return Principal{}, false
	}
	return parsePrincipal(value)
}

// GetPrincipal returns the principal stored by RequireAuth / RequireAdmin.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// RequireAuth admits any authenticated principal, user or admin.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromRequest(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), principalKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin admits only admin principals.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromRequest(r)
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if p.Role != RoleAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		ctx := context.WithValue(r.Context(), principalKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
