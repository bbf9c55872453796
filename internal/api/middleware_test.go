package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecovery_PanicValues(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"error", errors.New("decode failed")},
		{"string", "something went wrong"},
		{"int", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Recovery(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(tt.value)
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", "/collections", nil))

			if w.Code != http.StatusInternalServerError {
				t.Errorf("Expected status 500, got %d", w.Code)
			}

			var resp map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to parse response: %v", err)
			}
			if resp["code"] != ErrCodeServerError {
				t.Errorf("Expected code %q, got %v", ErrCodeServerError, resp["code"])
			}
		})
	}
}

func TestRecovery_ReraisesAbortHandler(t *testing.T) {
	handler := Recovery(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("Expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
}

func TestRecovery_NoPanic(t *testing.T) {
	handler := Recovery(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got %s", w.Body.String())
	}
}

func TestRecovery_LogsError(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	handler := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil collection")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/collections/sst", nil))

	logOutput := logBuf.String()
	for _, want := range []string{"panic recovered", "nil collection", "/collections/sst"} {
		if !strings.Contains(logOutput, want) {
			t.Errorf("Expected log to contain %q, got: %s", want, logOutput)
		}
	}
}

func TestRecovery_IncludesRequestIDInResponse(t *testing.T) {
	handler := middleware.RequestID(Recovery(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-Id", "test-req-123")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	var resp STACError
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.RequestID != "test-req-123" {
		t.Errorf("Expected request_id 'test-req-123' in error response, got %s", resp.RequestID)
	}
}

func TestContentTypeJSON(t *testing.T) {
	tests := []struct {
		name     string
		override string
		want     string
	}{
		{"default", "", "application/json"},
		{"overridden", "application/geo+json", "application/geo+json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.override != "" {
					w.Header().Set("Content-Type", tt.override)
				}
				w.WriteHeader(http.StatusOK)
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

			if got := w.Header().Get("Content-Type"); got != tt.want {
				t.Errorf("Expected Content-Type %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	handler := middleware.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("test response"))
	})))

	req := httptest.NewRequest("GET", "/collections/sst/items?limit=5", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	logOutput := logBuf.String()
	for _, field := range []string{
		"http request",
		"level=INFO",
		"method=GET",
		"path=/collections/sst/items",
		`query="limit=5"`,
		"status=200",
		"bytes=13",
		"duration=",
		"request_id=",
	} {
		if !strings.Contains(logOutput, field) {
			t.Errorf("Expected log to contain %q, got: %s", field, logOutput)
		}
	}
}

func TestRequestLogger_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusNotFound, "level=WARN"},
		{http.StatusInternalServerError, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var logBuf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logBuf, nil))

			handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", nil))

			if !strings.Contains(logBuf.String(), tt.level) {
				t.Errorf("Expected %s, got: %s", tt.level, logBuf.String())
			}
		})
	}
}

func TestRequestIDResponse(t *testing.T) {
	handler := middleware.RequestID(RequestIDResponse(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("Expected X-Request-ID header to be set in response")
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-Id", "custom-request-id-123")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "custom-request-id-123" {
		t.Errorf("Expected X-Request-ID to be 'custom-request-id-123', got %s", got)
	}
}

func TestGetRequestID_EmptyContext(t *testing.T) {
	if reqID := GetRequestID(context.Background()); reqID != "" {
		t.Errorf("Expected empty request ID for empty context, got %s", reqID)
	}
}
