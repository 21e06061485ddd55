package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubPinger bool

func (s stubPinger) Healthy(context.Context) bool { return bool(s) }

func TestHealthChecker(t *testing.T) {
	assert.NoError(t, NewHealthChecker(stubPinger(true)).Check(context.Background()))
	assert.Error(t, NewHealthChecker(stubPinger(false)).Check(context.Background()))
	assert.Error(t, NewHealthChecker(nil).Check(context.Background()))
	assert.Equal(t, "kafka", NewHealthChecker(nil).Name())
}
