package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	apierrors "sheetlens/internal/errors"
	"sheetlens/internal/infrastructure"
	"sheetlens/internal/shared/testutil"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func TestRequestID(t *testing.T) {
	var seen, chiSeen, traceSeen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		chiSeen = chimw.GetReqID(r.Context())
		traceSeen = infrastructure.GetTraceID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, seen, chiSeen)
	assert.Equal(t, seen, traceSeen)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestGetRequestIDFallsBackToTraceID(t *testing.T) {
	ctx := infrastructure.WithTraceID(context.Background(), "trace-9")
	assert.Equal(t, "trace-9", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestStructuredLogger(t *testing.T) {
	logger, capture := testutil.NewTestLogger(t)

	handler := RequestID(StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})))
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	rec, ok := capture.Find(slog.LevelWarn, "request completed")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusBadRequest), rec.Attrs["status"])
	assert.Equal(t, "/api/analyze", rec.Attrs["path"])
	assert.Equal(t, "req-42", rec.Attrs["request_id"])
}

func TestRateLimiter(t *testing.T) {
	logger, capture := testutil.NewTestLogger(t)
	limiter := NewRateLimiter(0.001, 2, apierrors.NewErrorHandler(logger, false), logger)
	handler := limiter.Handler(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
	assert.Equal(t, "application/problem+json", last.Header().Get("Content-Type"))
	assert.True(t, capture.HasMessage("rate limit exceeded"))
}

func TestTimeout(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	eh := apierrors.NewErrorHandler(logger, false)

	t.Run("slow handler gets 504", func(t *testing.T) {
		handler := Timeout(10*time.Millisecond, eh)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/analyze", nil))

		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, apierrors.TypeTimeout, body["type"])
	})

	t.Run("fast handler untouched", func(t *testing.T) {
		handler := Timeout(time.Second, eh)(http.HandlerFunc(okHandler))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", rec.Body.String())
	})
}

func TestOTelMiddlewareUsesRoutePattern(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	mw := NewOTelMiddleware(noop.NewTracerProvider().Tracer("test"), nil, logger)

	r := chi.NewRouter()
	r.Use(mw.Handler)
	r.Get("/api/charts/{kind}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/charts/line", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
