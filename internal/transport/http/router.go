// Package httptransport assembles the backend's chi router: the shared
// middleware chain, the domain handlers, health probes and the metrics scrape.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mediguard/pkg/platform/middleware/metadata"
	"mediguard/pkg/platform/middleware/request"
)

// Registrar is implemented by every handler that mounts its own routes.
type Registrar interface {
	Register(r chi.Router)
}

type Config struct {
	Logger         *slog.Logger
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	Metadata       *metadata.Middleware
	Metrics        *request.Metrics
	// Gatherer backs /metrics; nil leaves the route unmounted.
	Gatherer prometheus.Gatherer
	// Health routes sit outside the API timeout and body limits.
	Health   Registrar
	Handlers []Registrar
}

func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	meta := cfg.Metadata
	if meta == nil {
		meta = metadata.NewMiddleware(nil)
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.RequestTime)
	r.Use(meta.Handler)
	r.Use(request.Logger(logger))
	if cfg.Metrics != nil {
		r.Use(request.LatencyMiddleware(cfg.Metrics))
	}

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(api chi.Router) {
		api.Use(request.Timeout(timeout))
		api.Use(request.BodyLimit(maxBody))
		api.Use(request.ContentTypeJSON)
		for _, h := range cfg.Handlers {
			if h != nil {
				h.Register(api)
			}
		}
	})

	return r
}
