package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	issuerHandler "mediguard/internal/issuer/handler"
	"mediguard/internal/platform/config"
	"mediguard/internal/platform/health"
	"mediguard/internal/platform/logger"
	"mediguard/internal/seeder"
	httptransport "mediguard/internal/transport/http"
	verificationHandler "mediguard/internal/verification/handler"
	"mediguard/internal/verification/workers/cleanup"
	"mediguard/pkg/platform/middleware/metadata"
	"mediguard/pkg/platform/middleware/request"
)

const (
	shutdownTimeout   = 10 * time.Second
	poolStatsInterval = 15 * time.Second
)

// main wires high-level dependencies and keeps the lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	log.Info("initializing mediguard backend",
		"addr", cfg.Addr,
		"env", cfg.Environment,
		"session_store", cfg.SessionStore,
		"audit_store", cfg.AuditStore,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	infra, err := buildInfra(ctx, cfg, reg, log)
	if err != nil {
		return err
	}
	defer infra.Close(log)

	app, err := buildApp(cfg, infra, reg, log)
	if err != nil {
		return err
	}

	sd := seeder.New(app.issuers, app.verification, log)
	if cfg.SeedDemoData {
		err = sd.SeedAll(ctx)
	} else {
		err = sd.SeedIssuer(ctx)
	}
	if err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}

	proxies, err := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parse TRUSTED_PROXIES: %w", err)
	}

	healthHandler := health.New(cfg.Environment)
	infra.RegisterChecks(healthHandler)

	router := httptransport.NewRouter(httptransport.Config{
		Logger:         log,
		RequestTimeout: cfg.RequestTimeout,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		Metadata:       metadata.NewMiddleware(&metadata.Config{TrustedProxies: proxies}),
		Metrics:        request.NewMetrics(reg),
		Gatherer:       reg,
		Health:         healthHandler,
		Handlers: []httptransport.Registrar{
			verificationHandler.New(app.verification, log),
			issuerHandler.New(app.issuers, log),
		},
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.SessionRetention > 0 {
		worker, err := cleanup.New(app.verification, cfg.SessionRetention,
			cleanup.WithCleanupInterval(cfg.CleanupInterval),
			cleanup.WithCleanupLogger(log),
		)
		if err != nil {
			return fmt.Errorf("build cleanup worker: %w", err)
		}
		g.Go(func() error {
			return ignoreCanceled(worker.Start(gctx))
		})
	}

	if infra.redis != nil {
		g.Go(func() error {
			return ignoreCanceled(infra.redis.RunPoolStats(gctx, poolStatsInterval))
		})
	}

	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
