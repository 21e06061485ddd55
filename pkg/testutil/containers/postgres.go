//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"mediguard/internal/platform/database"
)

// mediguardTables lists every table the migrations create, children first.
var mediguardTables = []string{"verification_audit", "verification_sessions", "issuers"}

// PostgresContainer is a migrated Postgres reachable through DB.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts Postgres and applies the embedded schema with
// the same pool code the server uses.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("mediguard_test"),
		postgres.WithUsername("mediguard"),
		postgres.WithPassword("mediguard"),
		testcontainers.WithWaitStrategy(
			// Postgres logs readiness once for the init server and once for the real one.
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("postgres dsn: %v", err)
	}

	pool, err := database.Open(ctx, database.DefaultConfig(dsn), nil)
	if err == nil {
		err = pool.Migrate(ctx)
	}
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("prepare postgres: %v", err)
	}

	return &PostgresContainer{Container: container, DSN: dsn, DB: pool.DB()}
}

// TruncateAll empties every table so each test starts from a blank schema.
func (p *PostgresContainer) TruncateAll(ctx context.Context) error {
	for _, table := range mediguardTables {
		if _, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}
