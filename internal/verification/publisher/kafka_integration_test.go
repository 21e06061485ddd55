//go:build integration

package publisher_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"mediguard/internal/platform/kafka/producer"
	"mediguard/internal/verification/publisher"
	"mediguard/pkg/testutil"
	"mediguard/pkg/testutil/containers"
)

type KafkaPublisherSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())
	prod, err := producer.New(producer.DefaultConfig(s.kafka.Brokers), nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *KafkaPublisherSuite) TearDownSuite() {
	if s.producer != nil {
		_ = s.producer.Close()
	}
}

func (s *KafkaPublisherSuite) TestRecordReachesConsumers() {
	ctx := context.Background()
	topic := "mediguard.verification.audit.it"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))

	record := testutil.NewAuditRecordBuilder().ForRequest(testutil.TestIDs.RequestID2).Build()
	s.Require().NoError(publisher.NewKafka(s.producer, topic).Publish(ctx, record))

	consumer, err := s.kafka.NewConsumer(ctx, "publisher-it", topic)
	s.Require().NoError(err)
	defer consumer.Close()

	got := s.kafka.WaitForMessage(ctx, consumer, 10*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == record.ProviderID.String()
	})
	s.Require().NotNil(got)

	var event publisher.Event
	s.Require().NoError(json.Unmarshal(got.Value, &event))
	s.Equal(record.VerificationID.String(), event.VerificationID)
	s.Equal(testutil.TestIDs.RequestID2.String(), event.RequestID)
}
