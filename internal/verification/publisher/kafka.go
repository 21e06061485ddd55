// Package publisher fans appended audit records out to a Kafka topic so
// downstream consumers (analytics, provider webhooks) see them without
// polling the audit API.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mediguard/internal/platform/kafka/producer"
	"mediguard/internal/verification/models"
	"mediguard/pkg/requestcontext"
)

const (
	EventTypeHeader   = "event_type"
	EventRecorded     = "verification.recorded"
	RequestIDHeader   = "x-request-id"
	DefaultAuditTopic = "mediguard.verification.audit"
)

// Producer is the subset of the Kafka producer used here.
type Producer interface {
	Produce(ctx context.Context, msg producer.Message) error
}

// Event is the JSON value written for each record.
type Event struct {
	VerificationID         string    `json:"verification_id"`
	ProviderID             string    `json:"provider_id"`
	RequestID              string    `json:"request_id,omitempty"`
	Verified               bool      `json:"verified"`
	PredicateHumanReadable string    `json:"predicate_human_readable"`
	Device                 string    `json:"device,omitempty"`
	Timestamp              time.Time `json:"timestamp"`
}

// KafkaPublisher keys records by provider so each provider's stream stays
// ordered within a partition.
type KafkaPublisher struct {
	producer Producer
	topic    string
}

func NewKafka(p Producer, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultAuditTopic
	}
	return &KafkaPublisher{producer: p, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, record models.AuditRecord) error {
	event := Event{
		VerificationID:         record.VerificationID.String(),
		ProviderID:             record.ProviderID.String(),
		Verified:               record.Verified,
		PredicateHumanReadable: record.PredicateHumanReadable,
		Device:                 record.Device,
		Timestamp:              record.Timestamp.UTC(),
	}
	if record.HasRequestID() {
		event.RequestID = record.RequestID.String()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	headers := map[string]string{EventTypeHeader: EventRecorded}
	if rid := requestcontext.RequestID(ctx); rid != "" {
		headers[RequestIDHeader] = rid
	}

	return p.producer.Produce(ctx, producer.Message{
		Topic:   p.topic,
		Key:     []byte(record.ProviderID),
		Value:   value,
		Headers: headers,
	})
}
