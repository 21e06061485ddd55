package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable through SESSION_STORE / AUDIT_STORE.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Server captures backend configuration.
type Server struct {
	Addr                 string
	Environment          string
	LogLevel             string
	DatabaseURL          string
	Redis                RedisConfig
	SessionStore         string
	AuditStore           string
	AuditExposeRequestID bool
	KafkaBrokers         string
	KafkaAuditTopic      string
	IssuerMasterKey      string
	SessionRetention     time.Duration
	CleanupInterval      time.Duration
	RequestTimeout       time.Duration
	MaxAuditLimit        int
	SeedDemoData         bool
	TrustedProxies       string
	MaxBodyBytes         int64
}

// RedisConfig holds connection settings for the redis session store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Client captures configuration shared by the verifier and wallet CLIs.
type Client struct {
	BackendURL        string
	LogLevel          string
	PollInterval      time.Duration
	CorrelationWindow time.Duration
	PollTimeout       time.Duration
	ScanCooldown      time.Duration
	WalletPath        string
	BackendTimeout    time.Duration
}

// devMasterKey is only used when MEDIGUARD_ENV is dev and no key is set.
const devMasterKey = "mediguard-dev-issuer-master-key-change-me"

// FromEnv builds a Server config from environment variables so main stays lean.
// Invalid durations and numbers fall back to defaults.
func FromEnv() Server {
	env := envString("MEDIGUARD_ENV", "dev")
	cfg := Server{
		Addr:                 envString("MEDIGUARD_ADDR", ":8080"),
		Environment:          env,
		LogLevel:             envString("LOG_LEVEL", "info"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		Redis:                redisFromEnv(),
		SessionStore:         strings.ToLower(envString("SESSION_STORE", StoreMemory)),
		AuditStore:           strings.ToLower(envString("AUDIT_STORE", StoreMemory)),
		AuditExposeRequestID: envBool("AUDIT_EXPOSE_REQUEST_ID", true),
		KafkaBrokers:         os.Getenv("KAFKA_BROKERS"),
		KafkaAuditTopic:      envString("KAFKA_AUDIT_TOPIC", "mediguard.verification.audit"),
		IssuerMasterKey:      os.Getenv("ISSUER_MASTER_KEY"),
		SessionRetention:     envDuration("SESSION_RETENTION", 0),
		CleanupInterval:      envDuration("CLEANUP_INTERVAL", 5*time.Minute),
		RequestTimeout:       envDuration("REQUEST_TIMEOUT", 30*time.Second),
		MaxAuditLimit:        envInt("MAX_AUDIT_LIMIT", 100),
		SeedDemoData:         envBool("SEED_DEMO_DATA", env == "dev"),
		TrustedProxies:       os.Getenv("TRUSTED_PROXIES"),
		MaxBodyBytes:         int64(envInt("MAX_BODY_BYTES", 1<<20)),
	}
	if cfg.IssuerMasterKey == "" && cfg.IsDev() {
		cfg.IssuerMasterKey = devMasterKey
	}
	return cfg
}

// IsDev reports whether the server runs in the dev environment.
func (s Server) IsDev() bool {
	return s.Environment == "dev"
}

func redisFromEnv() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("REDIS_URL"),
		PoolSize:     envInt("REDIS_POOL_SIZE", 10),
		MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
	}
}

// ClientFromEnv builds the CLI configuration.
func ClientFromEnv() Client {
	return Client{
		BackendURL:        envString("MEDIGUARD_BACKEND_URL", "http://localhost:8080"),
		LogLevel:          envString("LOG_LEVEL", "warn"),
		PollInterval:      envDuration("POLL_INTERVAL", 2*time.Second),
		CorrelationWindow: envDuration("CORRELATION_WINDOW", 5*time.Second),
		PollTimeout:       envDuration("POLL_TIMEOUT", 0),
		ScanCooldown:      envDuration("SCAN_COOLDOWN", 1500*time.Millisecond),
		WalletPath:        envString("WALLET_PATH", defaultWalletPath()),
		BackendTimeout:    envDuration("BACKEND_TIMEOUT", 10*time.Second),
	}
}

func defaultWalletPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".mediguard", "credentials.json")
	}
	return filepath.Join(home, ".mediguard", "credentials.json")
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
