package middleware

import (
	"net/http"
	"strings"

	"github.com/wolfman30/doconsult-api/internal/http/respond"
	"github.com/wolfman30/doconsult-api/internal/identity"
)

// Identity resolves the bearer token, when present, into an identity.Caller on
// the request context. Requests without a token pass through anonymously so
// public routes keep working; a malformed or invalid token is rejected.
func Identity(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(auth, "Bearer ") {
				unauthorized(w, "malformed authorization header")
				return
			}
			caller, err := identity.ParseToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithCaller(r.Context(), caller)))
		})
	}
}

// RequireRole rejects anonymous callers with 401 and callers outside roles
// with 403.
func RequireRole(roles ...identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := identity.FromContext(r.Context())
			if !ok {
				unauthorized(w, "authentication required")
				return
			}
			if len(roles) > 0 && !caller.Is(roles...) {
				respond.JSON(w, http.StatusForbidden, map[string]string{"error": "insufficient role", "kind": "forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="doconsult"`)
	respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": msg})
}
