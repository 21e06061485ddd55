//go:build integration

// Package containers starts the Postgres, Redis and Kafka fixtures used by
// the integration suites. Each fixture starts once per test binary and is
// shared by every suite in it; Ryuk reaps the containers when the process
// exits.
package containers

import (
	"sync"
	"testing"
)

// Manager hands out the shared fixtures.
type Manager struct {
	mu       sync.Mutex
	postgres *PostgresContainer
	kafka    *KafkaContainer
	redis    *RedisContainer
}

var manager = &Manager{}

// GetManager returns the process-wide fixture manager.
func GetManager() *Manager {
	return manager
}

// startOnce returns *slot, calling start to fill it on first use.
func startOnce[T any](t *testing.T, mu *sync.Mutex, slot **T, start func(*testing.T) *T) *T {
	t.Helper()
	mu.Lock()
	defer mu.Unlock()
	if *slot == nil {
		*slot = start(t)
	}
	return *slot
}

// GetPostgres returns a migrated Postgres; suites truncate between tests.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	return startOnce(t, &m.mu, &m.postgres, NewPostgresContainer)
}

// GetKafka returns a Kafka-compatible broker for the audit fan-out tests.
func (m *Manager) GetKafka(t *testing.T) *KafkaContainer {
	t.Helper()
	return startOnce(t, &m.mu, &m.kafka, NewKafkaContainer)
}

// GetRedis returns a Redis for the session store tests.
func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	return startOnce(t, &m.mu, &m.redis, NewRedisContainer)
}
