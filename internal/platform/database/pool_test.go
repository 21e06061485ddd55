package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRequiresURL(t *testing.T) {
	_, err := Open(context.Background(), DefaultConfig(""), nil)
	require.Error(t, err)
}

func TestNilPool(t *testing.T) {
	var p *Pool
	assert.ErrorIs(t, p.Health(context.Background()), ErrNotConfigured)
	assert.NoError(t, p.Close())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("postgres://localhost/mediguard")
	assert.Equal(t, "postgres://localhost/mediguard", cfg.URL)
	assert.Greater(t, cfg.MaxOpenConns, cfg.MaxIdleConns)
	assert.Positive(t, cfg.PingTimeout)
}
