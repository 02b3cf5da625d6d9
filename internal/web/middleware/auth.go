package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/conduit-lang/izruna/internal/web/auth"
	webcontext "github.com/conduit-lang/izruna/internal/web/context"
)

// AuthConfig holds configuration for the admin-API authentication
// middleware.
type AuthConfig struct {
	// AuthService validates the bearer token on /admin/* requests.
	AuthService *auth.AuthService
	// SkipPaths lists paths exempt from authentication.
	SkipPaths []string
}

// authErrorResponse mirrors internal/httpapi's errorResponse shape.
type authErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Auth creates an authentication middleware guarding izruna's admin
// endpoints (rule reload, exception overrides) with the given auth
// service.
func Auth(authService *auth.AuthService) Middleware {
	return AuthWithConfig(AuthConfig{
		AuthService: authService,
		SkipPaths:   []string{},
	})
}

// AuthWithConfig creates an authentication middleware with a custom
// configuration.
func AuthWithConfig(config AuthConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skipPath := range config.SkipPaths {
				if r.URL.Path == skipPath {
					next.ServeHTTP(w, r)
					return
				}
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, http.StatusUnauthorized, "admin authorization required", "auth_required")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				writeAuthError(w, http.StatusUnauthorized, "expected 'Bearer <token>' authorization header", "auth_malformed")
				return
			}

			claims, err := config.AuthService.ValidateToken(parts[1])
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid or expired admin token", "auth_invalid_token")
				return
			}

			userID, ok := claims["user_id"].(string)
			if !ok || userID == "" {
				writeAuthError(w, http.StatusUnauthorized, "token is missing a user_id claim", "auth_invalid_claims")
				return
			}

			var roles []string
			if rolesInterface, ok := claims["roles"].([]interface{}); ok {
				for _, role := range rolesInterface {
					if roleStr, ok := role.(string); ok {
						roles = append(roles, roleStr)
					}
				}
			}

			ctx := webcontext.SetCurrentUser(r.Context(), userID)
			if len(roles) > 0 {
				ctx = webcontext.SetUserRoles(ctx, roles)
			}
			r = r.WithContext(ctx)

			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, message, code string) {
	body, err := json.Marshal(authErrorResponse{Error: "error", Message: message, Code: code})
	if err != nil {
		http.Error(w, message, status)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

// GetUserID extracts the authenticated admin user ID from the
// request context.
func GetUserID(ctx context.Context) string {
	return webcontext.GetCurrentUser(ctx)
}

// GetUserRoles extracts the authenticated admin user's RBAC roles
// from the request context.
func GetUserRoles(ctx context.Context) []string {
	roles := webcontext.GetUserRoles(ctx)
	if roles == nil {
		return []string{}
	}
	return roles
}
