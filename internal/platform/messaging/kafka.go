package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	contractsv1 "meridian/contracts/gen/events/v1"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes workflow envelopes to a single Kafka topic, keyed by
// the envelope's partition key so per-campaign ordering holds.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaPublisher{
		writer: writer,
		logger: logger,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, _ string, event contractsv1.Envelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventID, err)
	}

	message := kafka.Message{
		Key:   []byte(event.PartitionKey),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("write event %s: %w", event.EventID, err)
	}

	if p.logger != nil {
		p.logger.Info("event published",
			"event", "kafka_publish",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", p.writer.Topic,
			"event_id", event.EventID,
			"event_type", event.EventType,
		)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
