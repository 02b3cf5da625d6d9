package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	// Logger is the zap logger every request is recorded against.
	// Defaults to zap.NewNop() when left nil, which silently drops
	// every entry.
	Logger *zap.Logger
	// SkipPaths is a list of paths to skip logging (e.g. /healthz,
	// polled far more often than it's worth a log line)
	SkipPaths []string
	// SlowThreshold promotes a completed request from Info to Warn
	// once its Duration reaches it. Zero disables the promotion.
	SlowThreshold time.Duration
}

// DefaultLoggingConfig returns the default logging configuration: a
// production zap logger (JSON encoding, Info level) and no
// slow-request promotion.
func DefaultLoggingConfig() LoggingConfig {
	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	return LoggingConfig{
		Logger:    logger,
		SkipPaths: []string{},
	}
}

// Logging creates a logging middleware with default configuration
func Logging() Middleware {
	return LoggingWithConfig(DefaultLoggingConfig())
}

// LoggingWithConfig creates a logging middleware with custom configuration
func LoggingWithConfig(config LoggingConfig) Middleware {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skipPath := range config.SkipPaths {
				if r.URL.Path == skipPath {
					next.ServeHTTP(w, r)
					return
				}
			}

			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			requestID := GetRequestID(r.Context())

			next.ServeHTTP(rw, r)

			duration := time.Since(start)

			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.statusCode),
				zap.Duration("duration", duration),
				zap.Int("bytes_written", rw.bytesWritten),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
			}

			switch {
			case rw.statusCode >= http.StatusInternalServerError:
				logger.Error("request completed", fields...)
			case config.SlowThreshold > 0 && duration >= config.SlowThreshold:
				logger.Warn("request completed slowly", fields...)
			default:
				logger.Info("request completed", fields...)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code and bytes written
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	wroteHeader  bool
}

// WriteHeader captures the status code
func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.wroteHeader {
		rw.statusCode = statusCode
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

// Write captures bytes written
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}
