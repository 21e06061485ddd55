package e2e

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"

	"github.com/prometheus/client_golang/prometheus"

	issuerHandler "mediguard/internal/issuer/handler"
	issuerService "mediguard/internal/issuer/service"
	issuerStore "mediguard/internal/issuer/store"
	"mediguard/internal/platform/config"
	"mediguard/internal/platform/health"
	"mediguard/internal/proof"
	"mediguard/internal/seeder"
	httptransport "mediguard/internal/transport/http"
	verificationHandler "mediguard/internal/verification/handler"
	"mediguard/internal/verification/metrics"
	verificationService "mediguard/internal/verification/service"
	auditStore "mediguard/internal/verification/store/audit"
	sessionStore "mediguard/internal/verification/store/session"
	"mediguard/pkg/platform/middleware/request"
)

// backend is the full HTTP stack on in-memory stores, configured from the
// environment the way the server binary is.
type backend struct {
	server *httptest.Server
}

func startBackend(ctx context.Context, log *slog.Logger) (*backend, error) {
	cfg := config.FromEnv()
	reg := prometheus.NewRegistry()

	issuers, err := issuerService.New(issuerStore.NewInMemory(), []byte(cfg.IssuerMasterKey),
		issuerService.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("build issuer service: %w", err)
	}

	verification, err := verificationService.New(
		sessionStore.NewInMemory(),
		auditStore.NewInMemory(),
		proof.New(issuers, proof.WithLogger(log)),
		verificationService.WithLogger(log),
		verificationService.WithMetrics(metrics.New(reg)),
		verificationService.WithMaxAuditLimit(cfg.MaxAuditLimit),
		verificationService.WithRequestIDInAuditFeed(cfg.AuditExposeRequestID),
	)
	if err != nil {
		return nil, fmt.Errorf("build verification service: %w", err)
	}

	if err := seeder.New(issuers, verification, log).SeedIssuer(ctx); err != nil {
		return nil, fmt.Errorf("seed demo issuer: %w", err)
	}

	router := httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		RequestTimeout: cfg.RequestTimeout,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		Metrics:        request.NewMetrics(reg),
		Gatherer:       reg,
		Health:         health.New(cfg.Environment),
		Handlers: []httptransport.Registrar{
			verificationHandler.New(verification, log),
			issuerHandler.New(issuers, log),
		},
	})
	return &backend{server: httptest.NewServer(router)}, nil
}

func (b *backend) URL() string { return b.server.URL }

func (b *backend) Close() { b.server.Close() }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
