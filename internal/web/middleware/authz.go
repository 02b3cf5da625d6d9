package middleware

import (
	"net/http"

	"github.com/conduit-lang/izruna/internal/web/auth"
	webcontext "github.com/conduit-lang/izruna/internal/web/context"
)

// RequirePermission creates a middleware guarding an admin route with
// an RBAC permission (e.g. auth.RulesReload, auth.ExceptionsWrite).
func RequirePermission(permission auth.RBACPermission) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roles := GetUserRoles(r.Context())

			if len(roles) == 0 {
				writeAuthError(w, http.StatusUnauthorized, "admin authorization required", "auth_required")
				return
			}

			if !auth.UserHasPermission(roles, permission) {
				writeAuthError(w, http.StatusForbidden, "the authenticated user lacks this permission", "forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole creates a middleware that only admits users holding roleName.
func RequireRole(roleName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !webcontext.HasRole(r.Context(), roleName) {
				writeAuthError(w, http.StatusForbidden, "this endpoint requires the '"+roleName+"' role", "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyRole creates a middleware that admits a user holding any
// one of roleNames.
func RequireAnyRole(roleNames ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, name := range roleNames {
				if webcontext.HasRole(r.Context(), name) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeAuthError(w, http.StatusForbidden, "this endpoint requires one of the configured roles", "forbidden")
		})
	}
}
