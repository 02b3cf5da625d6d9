package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// TimeoutConfig bounds how long a transcription request may run
// before the handler is abandoned and a timeout response is sent in
// its place.
type TimeoutConfig struct {
	// Timeout is the maximum duration for a request.
	Timeout time.Duration
	// Message is the error envelope's message field on timeout.
	Message string
	// StatusCode is the HTTP status returned on timeout.
	StatusCode int
}

// DefaultTimeoutConfig returns the default timeout configuration:
// 504 Gateway Timeout with izruna's standard error envelope.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Timeout:    30 * time.Second,
		Message:    "transcription request exceeded its time budget",
		StatusCode: http.StatusGatewayTimeout,
	}
}

// Timeout creates a timeout middleware bounding every request to
// the given duration, using the default error envelope.
func Timeout(timeout time.Duration) Middleware {
	config := DefaultTimeoutConfig()
	config.Timeout = timeout
	return TimeoutWithConfig(config)
}

// timeoutWriter wraps http.ResponseWriter to prevent the handler
// goroutine from writing after the timeout response has already
// been sent.
type timeoutWriter struct {
	w    http.ResponseWriter
	mu   sync.Mutex
	done bool
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.done {
		return 0, http.ErrHandlerTimeout
	}
	return tw.w.Write(b)
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.done {
		return
	}
	tw.w.WriteHeader(code)
}

func (tw *timeoutWriter) Header() http.Header {
	return tw.w.Header()
}

func (tw *timeoutWriter) timeout() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.done = true
}

// timeoutErrorResponse mirrors internal/httpapi's errorResponse shape
// so a request abandoned by this middleware renders the same JSON
// envelope any other handler error would.
type timeoutErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// TimeoutWithConfig creates a timeout middleware with a custom
// configuration. A rule or metarule pass that runs away (a
// pathological exception chain, an unbounded regex backtrack) is cut
// off here rather than tying up the server indefinitely.
func TimeoutWithConfig(config TimeoutConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), config.Timeout)
			defer cancel()

			done := make(chan struct{})
			panicChan := make(chan interface{}, 1)

			tw := &timeoutWriter{w: w}
			r = r.WithContext(ctx)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicChan <- p
					}
				}()

				next.ServeHTTP(tw, r)
				close(done)
			}()

			select {
			case <-done:
				return
			case p := <-panicChan:
				panic(p)
			case <-ctx.Done():
				tw.timeout()
				if ctx.Err() == context.DeadlineExceeded {
					writeTimeoutResponse(w, config)
				}
				return
			}
		})
	}
}

func writeTimeoutResponse(w http.ResponseWriter, config TimeoutConfig) {
	body, err := json.Marshal(timeoutErrorResponse{
		Error:   "error",
		Message: config.Message,
		Code:    "request_timeout",
	})
	if err != nil {
		http.Error(w, config.Message, config.StatusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(config.StatusCode)
	w.Write(body)
}
