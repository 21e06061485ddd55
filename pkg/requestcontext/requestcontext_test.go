package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEmptyContext(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, ClientIP(ctx))
	assert.Empty(t, UserAgent(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestValuesRoundTrip(t *testing.T) {
	pinned := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithTime(ctx, pinned)
	ctx = WithClientMetadata(ctx, "203.0.113.0", "curl/8.0")

	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, pinned, Now(ctx))
	assert.Equal(t, "203.0.113.0", ClientIP(ctx))
	assert.Equal(t, "curl/8.0", UserAgent(ctx))
}
