package httpapi

import (
	"net/http"

	"github.com/conduit-lang/izruna/internal/web/middleware"
)

// middlewareChain builds the outermost-to-innermost chain: RequestID
// -> Recovery -> Logging -> CORS -> Compression -> RateLimit. Auth is
// applied separately, only to the /admin/* route group, by
// requireAdmin. Built with middleware.Chain so the whole stack is one
// composed http.Handler wrapper rather than a bare slice chi.Use
// applies one at a time.
func (a *API) middlewareChain() []func(http.Handler) http.Handler {
	c := middleware.NewChain(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logging(),
		middleware.CORSWithOrigins(a.AllowedOrigins),
		middleware.Compression(),
	)
	if a.Limiter != nil {
		c = c.Append(middleware.RateLimit(a.Limiter))
	}
	return []func(http.Handler) http.Handler{
		func(next http.Handler) http.Handler { return c.Apply(next) },
	}
}

// requireAdmin is the route-group-scoped middleware for /admin/*:
// bearer token validation followed by the single admin role check.
func (a *API) requireAdmin() func(http.Handler) http.Handler {
	authMw := middleware.Auth(a.AuthService)
	roleMw := middleware.RequireRole("admin")
	return func(next http.Handler) http.Handler {
		return authMw(roleMw(next))
	}
}

// wrap adapts middleware.Middleware (a named type) to the bare
// func(http.Handler) http.Handler chi.Router.Use expects.
func wrap(m middleware.Middleware) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return m(next) }
}
