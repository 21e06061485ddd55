// Package database opens the Postgres pool shared by the session, audit and
// issuer stores.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"mediguard/migrations"
)

// ErrNotConfigured is returned by Health on a pool that was never opened.
var ErrNotConfigured = errors.New("database not configured")

// Config holds pool sizing. URL is a pgx connection string.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	PingTimeout     time.Duration
}

// DefaultConfig sizes the pool for a single server process. Verification
// traffic is short transactions, so a small idle set is enough.
func DefaultConfig(url string) Config {
	return Config{
		URL:             url,
		MaxOpenConns:    20,
		MaxIdleConns:    4,
		ConnMaxLifetime: 5 * time.Minute,
		PingTimeout:     5 * time.Second,
	}
}

// Pool is a *sql.DB that has been pinged and registered for metrics.
type Pool struct {
	db *sql.DB
}

// Open connects, pings, and exports sql.DBStats under db_name="mediguard"
// when reg is non-nil.
func Open(ctx context.Context, cfg Config, reg prometheus.Registerer) (*Pool, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url is empty")
	}
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if reg != nil {
		if err := reg.Register(collectors.NewDBStatsCollector(db, "mediguard")); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("register db stats: %w", err)
		}
	}
	return &Pool{db: db}, nil
}

// FromDB wraps an already-open handle, as the test containers hand out.
func FromDB(db *sql.DB) *Pool {
	return &Pool{db: db}
}

// DB returns the handle the stores query through.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Migrate applies the embedded schema.
func (p *Pool) Migrate(ctx context.Context) error {
	if err := migrations.Apply(ctx, p.db); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Health pings the database; it backs the /health/ready postgres check.
func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.db == nil {
		return ErrNotConfigured
	}
	return p.db.PingContext(ctx)
}

func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
