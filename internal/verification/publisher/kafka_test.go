package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediguard/internal/platform/kafka/producer"
	"mediguard/pkg/requestcontext"
	"mediguard/pkg/testutil"
)

type captureProducer struct {
	msgs []producer.Message
	err  error
}

func (c *captureProducer) Produce(_ context.Context, msg producer.Message) error {
	c.msgs = append(c.msgs, msg)
	return c.err
}

func TestPublishKeysByProviderAndEncodesRecord(t *testing.T) {
	prod := &captureProducer{}
	pub := NewKafka(prod, "")
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	record := testutil.NewAuditRecordBuilder().ForRequest(testutil.TestIDs.RequestID1).At(at).Build()

	ctx := requestcontext.WithRequestID(context.Background(), "req-abc")
	require.NoError(t, pub.Publish(ctx, record))

	require.Len(t, prod.msgs, 1)
	msg := prod.msgs[0]
	assert.Equal(t, DefaultAuditTopic, msg.Topic)
	assert.Equal(t, "apollo-pharmacy", string(msg.Key))
	assert.Equal(t, EventRecorded, msg.Headers[EventTypeHeader])
	assert.Equal(t, "req-abc", msg.Headers[RequestIDHeader])

	var event Event
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, record.VerificationID.String(), event.VerificationID)
	assert.Equal(t, testutil.TestIDs.RequestID1.String(), event.RequestID)
	assert.True(t, event.Verified)
	assert.True(t, event.Timestamp.Equal(at))
}

func TestPublishOmitsAbsentRequestID(t *testing.T) {
	prod := &captureProducer{}
	require.NoError(t, NewKafka(prod, "audit").Publish(context.Background(), testutil.NewAuditRecordBuilder().Build()))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(prod.msgs[0].Value, &raw))
	_, present := raw["request_id"]
	assert.False(t, present)
	_, present = prod.msgs[0].Headers[RequestIDHeader]
	assert.False(t, present)
}

func TestPublishPropagatesProducerError(t *testing.T) {
	prod := &captureProducer{err: errors.New("broker down")}
	err := NewKafka(prod, "audit").Publish(context.Background(), testutil.NewAuditRecordBuilder().Build())
	assert.Error(t, err)
}
