package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"
)

// RecoveryConfig holds configuration for the recovery middleware
type RecoveryConfig struct {
	// EnableStackTrace determines whether to log stack traces
	EnableStackTrace bool
	// Logger is an optional custom logger
	Logger func(error, []byte)
	// ResponseHandler is an optional custom response handler
	ResponseHandler func(http.ResponseWriter, *http.Request, interface{})
}

// recoveryLogger backs the default Logger. A package-level zap
// logger, rather than one threaded through every caller, since a
// panic is always an operational event deserving the same treatment
// regardless of which handler raised it.
var recoveryLogger = newRecoveryLogger()

func newRecoveryLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// DefaultRecoveryConfig returns the default recovery configuration
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		EnableStackTrace: true,
		Logger: func(err error, stack []byte) {
			recoveryLogger.Error("panic recovered", zap.Error(err), zap.ByteString("stack", stack))
		},
		ResponseHandler: defaultRecoveryResponse,
	}
}

// Recovery creates a middleware that recovers from panics
func Recovery() Middleware {
	return RecoveryWithConfig(DefaultRecoveryConfig())
}

// RecoveryWithConfig creates a recovery middleware with custom configuration
func RecoveryWithConfig(config RecoveryConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					var stack []byte
					if config.EnableStackTrace {
						stack = debug.Stack()
					}

					if config.Logger != nil {
						var errValue error
						switch e := err.(type) {
						case error:
							errValue = e
						default:
							errValue = &panicError{value: err}
						}
						config.Logger(errValue, stack)
					}

					if config.ResponseHandler != nil {
						config.ResponseHandler(w, r, err)
					} else {
						defaultRecoveryResponse(w, r, err)
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// recoveryErrorResponse mirrors internal/httpapi's errorResponse shape
// so a panic recovered by this middleware renders the same envelope a
// handler-returned error would.
type recoveryErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// defaultRecoveryResponse sends a default JSON error response
func defaultRecoveryResponse(w http.ResponseWriter, r *http.Request, err interface{}) {
	response := recoveryErrorResponse{
		Error:   "error",
		Message: "an unexpected error occurred while processing the request",
		Code:    "internal_error",
	}

	jsonData, encErr := json.Marshal(response)
	if encErr != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write(jsonData)
}

// panicError wraps a panic value as an error
type panicError struct {
	value interface{}
}

func (e *panicError) Error() string {
	if err, ok := e.value.(error); ok {
		return err.Error()
	}
	return "panic occurred"
}
