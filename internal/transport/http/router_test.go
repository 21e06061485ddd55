package httptransport

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediguard/internal/platform/health"
	"mediguard/pkg/platform/middleware/request"
	"mediguard/pkg/requestcontext"
)

type registrarFunc func(r chi.Router)

func (f registrarFunc) Register(r chi.Router) { f(r) }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	echo := registrarFunc(func(r chi.Router) {
		r.Get("/api/echo", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, requestcontext.RequestID(r.Context()))
		})
		r.Post("/api/echo", func(w http.ResponseWriter, r *http.Request) {
			if _, err := io.ReadAll(r.Body); err != nil {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
			w.WriteHeader(http.StatusCreated)
		})
	})
	return NewRouter(Config{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		MaxBodyBytes: 16,
		Metrics:      request.NewMetrics(reg),
		Gatherer:     reg,
		Health:       health.New("test"),
		Handlers:     []Registrar{echo, nil},
	})
}

func TestRouter(t *testing.T) {
	router := newTestRouter(t)

	t.Run("propagates request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/echo", nil)
		req.Header.Set("X-Request-ID", "req-abc")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "req-abc", w.Body.String())
		assert.Equal(t, "req-abc", w.Header().Get("X-Request-ID"))
	})

	t.Run("rejects non-json bodies", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/echo", strings.NewReader("x"))
		req.Header.Set("Content-Type", "text/plain")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("limits body size", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/echo", strings.NewReader(strings.Repeat("a", 64)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("serves liveness", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("exposes latency metrics", func(t *testing.T) {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/echo", nil))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `mediguard_http_request_duration_seconds_count{method="GET",route="/api/echo",status="200"}`)
	})
}
