package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	webcontext "github.com/conduit-lang/izruna/internal/web/context"
)

// RequestIDConfig holds configuration for the request ID middleware
type RequestIDConfig struct {
	// HeaderName is the name of the header to read/write the request ID
	HeaderName string
	// Generator is a custom function to generate request IDs
	Generator func() string
}

// DefaultRequestIDConfig returns the default request ID configuration
func DefaultRequestIDConfig() RequestIDConfig {
	return RequestIDConfig{
		HeaderName: "X-Request-ID",
		Generator:  defaultRequestIDGenerator,
	}
}

// RequestID creates a middleware that adds a unique request ID to each request
func RequestID() Middleware {
	return RequestIDWithConfig(DefaultRequestIDConfig())
}

// RequestIDWithConfig creates a request ID middleware with custom configuration
func RequestIDWithConfig(config RequestIDConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(config.HeaderName)
			if requestID == "" {
				requestID = config.Generator()
			}

			// Stored through internal/web/context so the logging,
			// auth, and authz middleware all read request-scoped
			// state from the one context package instead of each
			// middleware keeping its own private key.
			ctx := webcontext.SetRequestID(r.Context(), requestID)
			r = r.WithContext(ctx)

			w.Header().Set(config.HeaderName, requestID)

			next.ServeHTTP(w, r)
		})
	}
}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	return webcontext.GetRequestID(ctx)
}

// defaultRequestIDGenerator generates a UUID v4 request ID
func defaultRequestIDGenerator() string {
	return uuid.New().String()
}
