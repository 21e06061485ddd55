package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"MEDIGUARD_ADDR", "MEDIGUARD_ENV", "SESSION_STORE", "AUDIT_STORE",
		"AUDIT_EXPOSE_REQUEST_ID", "ISSUER_MASTER_KEY", "SESSION_RETENTION", "MAX_AUDIT_LIMIT", "SEED_DEMO_DATA"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, StoreMemory, cfg.SessionStore)
	assert.Equal(t, StoreMemory, cfg.AuditStore)
	assert.True(t, cfg.AuditExposeRequestID)
	assert.Equal(t, "mediguard.verification.audit", cfg.KafkaAuditTopic)
	assert.Equal(t, time.Duration(0), cfg.SessionRetention)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 100, cfg.MaxAuditLimit)
	assert.True(t, cfg.SeedDemoData)
	assert.NotEmpty(t, cfg.IssuerMasterKey, "dev gets a fallback issuer key")
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("MEDIGUARD_ENV", "prod")
	t.Setenv("ISSUER_MASTER_KEY", "")
	t.Setenv("SESSION_STORE", "Redis")
	t.Setenv("AUDIT_EXPOSE_REQUEST_ID", "false")
	t.Setenv("SESSION_RETENTION", "24h")
	t.Setenv("CLEANUP_INTERVAL", "not-a-duration")
	t.Setenv("MAX_AUDIT_LIMIT", "-4")
	t.Setenv("REDIS_POOL_SIZE", "32")

	cfg := FromEnv()
	assert.False(t, cfg.IsDev())
	assert.Empty(t, cfg.IssuerMasterKey, "no fallback key outside dev")
	assert.False(t, cfg.SeedDemoData)
	assert.Equal(t, StoreRedis, cfg.SessionStore)
	assert.False(t, cfg.AuditExposeRequestID)
	assert.Equal(t, 24*time.Hour, cfg.SessionRetention)
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval)
	assert.Equal(t, 100, cfg.MaxAuditLimit)
	assert.Equal(t, 32, cfg.Redis.PoolSize)
}

func TestClientFromEnv(t *testing.T) {
	t.Setenv("MEDIGUARD_BACKEND_URL", "")
	t.Setenv("POLL_INTERVAL", "")
	t.Setenv("POLL_TIMEOUT", "2m")
	t.Setenv("WALLET_PATH", "/tmp/w.json")

	cfg := ClientFromEnv()
	assert.Equal(t, "http://localhost:8080", cfg.BackendURL)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.CorrelationWindow)
	assert.Equal(t, 2*time.Minute, cfg.PollTimeout)
	assert.Equal(t, 1500*time.Millisecond, cfg.ScanCooldown)
	assert.Equal(t, "/tmp/w.json", cfg.WalletPath)
}
