package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig controls which browser origins may call the
// transcription API directly (the demo client and any third-party
// integration hitting /transcribe from JavaScript).
type CORSConfig struct {
	// AllowedOrigins lists permitted origins. "*" allows any origin;
	// entries of the form "*.example.com" allow that origin and every
	// subdomain of it.
	AllowedOrigins []string
	// AllowedMethods lists the HTTP methods the transcription and
	// admin endpoints respond to.
	AllowedMethods []string
	// AllowedHeaders lists request headers a caller may set,
	// including Authorization for the admin JWT and X-Request-ID for
	// client-supplied trace correlation.
	AllowedHeaders []string
	// ExposedHeaders lists response headers readable from browser JS;
	// X-Request-ID lets a client correlate a failed call with a
	// server-side log line.
	ExposedHeaders []string
	// AllowCredentials permits cookies/Authorization on cross-origin
	// requests. Left false: the admin API is bearer-token only, and
	// enabling this with a wildcard origin would be rejected by
	// browsers anyway.
	AllowCredentials bool
	// MaxAge is how long, in seconds, a browser may cache a preflight
	// response before re-checking.
	MaxAge int
}

// DefaultCORSConfig permits any origin to call the public
// transcription endpoints, since izruna has no per-origin allowlist
// of its own; deployments that need one set server.allowed_origins.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           86400,
	}
}

// CORS creates a CORS middleware with the default configuration.
func CORS() Middleware {
	return CORSWithConfig(DefaultCORSConfig())
}

// CORSWithOrigins is DefaultCORSConfig narrowed to an explicit origin
// allowlist, the shape internal/httpapi's middleware chain uses to
// apply server.allowed_origins from izruna.yml.
func CORSWithOrigins(origins []string) Middleware {
	config := DefaultCORSConfig()
	if len(origins) > 0 {
		config.AllowedOrigins = origins
	}
	return CORSWithConfig(config)
}

// CORSWithConfig creates a CORS middleware with a custom configuration.
func CORSWithConfig(config CORSConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := origin != "" && isOriginAllowed(origin, config.AllowedOrigins)

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")

				if config.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				if len(config.ExposedHeaders) > 0 {
					w.Header().Set("Access-Control-Expose-Headers", strings.Join(config.ExposedHeaders, ", "))
				}
			}

			if r.Method == http.MethodOptions {
				if allowed {
					if len(config.AllowedMethods) > 0 {
						w.Header().Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
					}
					if len(config.AllowedHeaders) > 0 {
						w.Header().Set("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))
					}
					if config.MaxAge > 0 {
						w.Header().Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isOriginAllowed reports whether origin matches an entry in
// allowedOrigins, supporting an exact match, "*", or a "*.domain"
// subdomain wildcard.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		switch {
		case allowed == "*":
			return true
		case allowed == origin:
			return true
		case strings.HasPrefix(allowed, "*."):
			domain := allowed[2:]
			if strings.HasSuffix(origin, "."+domain) {
				return true
			}
		}
	}
	return false
}
