package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	issuerService "mediguard/internal/issuer/service"
	issuerStore "mediguard/internal/issuer/store"
	"mediguard/internal/platform/config"
	"mediguard/internal/platform/database"
	"mediguard/internal/platform/health"
	"mediguard/internal/platform/kafka"
	"mediguard/internal/platform/kafka/producer"
	"mediguard/internal/platform/redis"
	"mediguard/internal/platform/tracer"
	"mediguard/internal/proof"
	"mediguard/internal/verification/metrics"
	"mediguard/internal/verification/publisher"
	verificationService "mediguard/internal/verification/service"
	auditStore "mediguard/internal/verification/store/audit"
	sessionStore "mediguard/internal/verification/store/session"
)

// infra holds the optional backing services. Nil fields are not configured.
type infra struct {
	db       *database.Pool
	redis    *redis.Client
	producer *producer.Producer
}

func buildInfra(ctx context.Context, cfg config.Server, reg prometheus.Registerer, log *slog.Logger) (*infra, error) {
	in := &infra{}
	usesPostgres := cfg.SessionStore == config.StorePostgres || cfg.AuditStore == config.StorePostgres

	if usesPostgres {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
		pool, err := database.Open(ctx, database.DefaultConfig(cfg.DatabaseURL), reg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		in.db = pool
		if err := pool.Migrate(ctx); err != nil {
			in.Close(log)
			return nil, err
		}
		log.Info("database connected, migrations applied")
	}

	if cfg.SessionStore == config.StoreRedis {
		if cfg.Redis.URL == "" {
			in.Close(log)
			return nil, fmt.Errorf("REDIS_URL is required for the redis session store")
		}
		client, err := redis.New(cfg.Redis, reg)
		if err != nil {
			in.Close(log)
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		in.redis = client
		log.Info("redis connected")
	}

	if cfg.KafkaBrokers != "" {
		p, err := producer.New(producer.DefaultConfig(cfg.KafkaBrokers), log)
		if err != nil {
			// Fan-out is optional; the trail itself lives in the audit store.
			log.Warn("kafka producer unavailable, audit fan-out disabled", "error", err)
		} else {
			in.producer = p
		}
	}

	return in, nil
}

func (in *infra) RegisterChecks(h *health.Handler) {
	if in.db != nil {
		h.RegisterCheck("postgres", in.db.Health)
	}
	if in.redis != nil {
		h.RegisterCheck("redis", in.redis.Health)
	}
	if in.producer != nil {
		checker := kafka.NewHealthChecker(in.producer)
		h.RegisterCheck(checker.Name(), checker.Check)
	}
}

func (in *infra) Close(log *slog.Logger) {
	if in.producer != nil {
		if err := in.producer.Close(); err != nil {
			log.Warn("closing kafka producer", "error", err)
		}
	}
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			log.Warn("closing redis", "error", err)
		}
	}
	if in.db != nil {
		if err := in.db.Close(); err != nil {
			log.Warn("closing database", "error", err)
		}
	}
}

type app struct {
	issuers      *issuerService.Service
	verification *verificationService.Service
}

func buildApp(cfg config.Server, in *infra, reg prometheus.Registerer, log *slog.Logger) (*app, error) {
	if cfg.IssuerMasterKey == "" {
		return nil, fmt.Errorf("ISSUER_MASTER_KEY is required outside dev")
	}

	var issuers issuerService.Store = issuerStore.NewInMemory()
	if in.db != nil {
		issuers = issuerStore.NewPostgres(in.db.DB())
	}
	issuerSvc, err := issuerService.New(issuers, []byte(cfg.IssuerMasterKey),
		issuerService.WithLogger(log),
		issuerService.WithTracer(tracer.NewOTel()),
	)
	if err != nil {
		return nil, fmt.Errorf("build issuer service: %w", err)
	}

	sessions, err := selectSessionStore(cfg, in)
	if err != nil {
		return nil, err
	}
	audit, err := selectAuditStore(cfg, in)
	if err != nil {
		return nil, err
	}

	opts := []verificationService.Option{
		verificationService.WithLogger(log),
		verificationService.WithMetrics(metrics.New(reg)),
		verificationService.WithTracer(tracer.NewOTel()),
		verificationService.WithMaxAuditLimit(cfg.MaxAuditLimit),
		verificationService.WithRequestIDInAuditFeed(cfg.AuditExposeRequestID),
	}
	if in.producer != nil {
		opts = append(opts, verificationService.WithPublisher(publisher.NewKafka(in.producer, cfg.KafkaAuditTopic)))
	}

	verifier := proof.New(issuerSvc, proof.WithLogger(log))
	verificationSvc, err := verificationService.New(sessions, audit, verifier, opts...)
	if err != nil {
		return nil, fmt.Errorf("build verification service: %w", err)
	}

	return &app{issuers: issuerSvc, verification: verificationSvc}, nil
}

func selectSessionStore(cfg config.Server, in *infra) (verificationService.SessionStore, error) {
	switch cfg.SessionStore {
	case config.StoreMemory:
		return sessionStore.NewInMemory(), nil
	case config.StorePostgres:
		return sessionStore.NewPostgres(in.db.DB()), nil
	case config.StoreRedis:
		return sessionStore.NewRedis(in.redis.Client, cfg.SessionRetention), nil
	default:
		return nil, fmt.Errorf("unknown SESSION_STORE %q", cfg.SessionStore)
	}
}

func selectAuditStore(cfg config.Server, in *infra) (verificationService.AuditStore, error) {
	switch cfg.AuditStore {
	case config.StoreMemory:
		return auditStore.NewInMemory(), nil
	case config.StorePostgres:
		return auditStore.NewPostgres(in.db.DB()), nil
	default:
		return nil, fmt.Errorf("unknown AUDIT_STORE %q", cfg.AuditStore)
	}
}
