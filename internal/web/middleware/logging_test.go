package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	webcontext "github.com/conduit-lang/izruna/internal/web/context"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func fieldString(entry observer.LoggedEntry, key string) (string, bool) {
	for _, f := range entry.Context {
		if f.Key == key {
			return f.String, true
		}
	}
	return "", false
}

func fieldInt(entry observer.LoggedEntry, key string) (int64, bool) {
	for _, f := range entry.Context {
		if f.Key == key {
			return f.Integer, true
		}
	}
	return 0, false
}

func TestLoggingMiddleware(t *testing.T) {
	logger, logs := observedLogger()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("test response"))
	})

	wrapped := LoggingWithConfig(LoggingConfig{Logger: logger})(handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := webcontext.SetRequestID(req.Context(), "test-request-id")
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if logs.Len() != 1 {
		t.Fatalf("expected 1 log entry, got %d", logs.Len())
	}
	entry := logs.All()[0]

	if v, _ := fieldString(entry, "request_id"); v != "test-request-id" {
		t.Errorf("expected request_id 'test-request-id', got %q", v)
	}
	if v, _ := fieldString(entry, "method"); v != http.MethodGet {
		t.Errorf("expected method GET, got %q", v)
	}
	if v, _ := fieldString(entry, "path"); v != "/test" {
		t.Errorf("expected path /test, got %q", v)
	}
	if v, _ := fieldInt(entry, "status"); v != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, v)
	}
	if v, _ := fieldInt(entry, "bytes_written"); v != 13 {
		t.Errorf("expected 13 bytes written, got %d", v)
	}
}

func TestLoggingServerErrorLogsAtError(t *testing.T) {
	logger, logs := observedLogger()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	wrapped := LoggingWithConfig(LoggingConfig{Logger: logger})(handler)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if logs.Len() != 1 {
		t.Fatalf("expected 1 log entry, got %d", logs.Len())
	}
	if logs.All()[0].Level != zapcore.ErrorLevel {
		t.Errorf("expected Error level for a 5xx response, got %v", logs.All()[0].Level)
	}
}

func TestLoggingSlowThresholdPromotesToWarn(t *testing.T) {
	logger, logs := observedLogger()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	wrapped := LoggingWithConfig(LoggingConfig{Logger: logger, SlowThreshold: 1 * time.Millisecond})(handler)

	req := httptest.NewRequest(http.MethodGet, "/slow", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if logs.Len() != 1 {
		t.Fatalf("expected 1 log entry, got %d", logs.Len())
	}
	if logs.All()[0].Level != zapcore.WarnLevel {
		t.Errorf("expected Warn level for a request over SlowThreshold, got %v", logs.All()[0].Level)
	}
}

func TestLoggingSkipPaths(t *testing.T) {
	logger, logs := observedLogger()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	wrapped := LoggingWithConfig(LoggingConfig{
		Logger:    logger,
		SkipPaths: []string{"/health", "/metrics"},
	})(handler)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if logs.Len() != 0 {
		t.Error("logger should not be called for a skipped path")
	}

	req = httptest.NewRequest(http.MethodGet, "/api", nil)
	rec = httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if logs.Len() != 1 {
		t.Error("logger should be called for a non-skipped path")
	}
}

func TestLoggingDefaultLogger(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Use default logger (should not panic)
	wrapped := Logging()(handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := webcontext.SetRequestID(req.Context(), "test-id")
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestLoggingNilLoggerDoesNotPanic(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	wrapped := LoggingWithConfig(LoggingConfig{})(handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestLoggingDuration(t *testing.T) {
	logger, logs := observedLogger()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	wrapped := LoggingWithConfig(LoggingConfig{Logger: logger})(handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	entry := logs.All()[0]
	var duration time.Duration
	for _, f := range entry.Context {
		if f.Key == "duration" {
			duration = time.Duration(f.Integer)
		}
	}
	if duration < 10*time.Millisecond {
		t.Errorf("expected duration >= 10ms, got %v", duration)
	}
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{
		ResponseWriter: rec,
		statusCode:     http.StatusOK,
	}

	rw.WriteHeader(http.StatusCreated)
	if rw.statusCode != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, rw.statusCode)
	}

	// Multiple WriteHeader calls should only write once
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusCreated {
		t.Error("WriteHeader should only write once")
	}
}

func TestResponseWriterWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{
		ResponseWriter: rec,
		statusCode:     http.StatusOK,
	}

	data := []byte("test data")
	n, err := rw.Write(data)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != len(data) {
		t.Errorf("expected to write %d bytes, wrote %d", len(data), n)
	}
	if rw.bytesWritten != len(data) {
		t.Errorf("expected %d bytes written, got %d", len(data), rw.bytesWritten)
	}
	if !rw.wroteHeader {
		t.Error("expected wroteHeader to be true after Write")
	}
}

func TestResponseWriterMultipleWrites(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{
		ResponseWriter: rec,
		statusCode:     http.StatusOK,
	}

	rw.Write([]byte("hello "))
	rw.Write([]byte("world"))

	if rw.bytesWritten != 11 {
		t.Errorf("expected 11 bytes written, got %d", rw.bytesWritten)
	}
}

func TestLoggingUserAgent(t *testing.T) {
	logger, logs := observedLogger()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	wrapped := LoggingWithConfig(LoggingConfig{Logger: logger})(handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "TestAgent/1.0")
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if v, _ := fieldString(logs.All()[0], "user_agent"); v != "TestAgent/1.0" {
		t.Errorf("expected User-Agent 'TestAgent/1.0', got %q", v)
	}
}

func TestLoggingRemoteAddr(t *testing.T) {
	logger, logs := observedLogger()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	wrapped := LoggingWithConfig(LoggingConfig{Logger: logger})(handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if v, _ := fieldString(logs.All()[0], "remote_addr"); v != "192.168.1.1:12345" {
		t.Errorf("expected RemoteAddr '192.168.1.1:12345', got %q", v)
	}
}
