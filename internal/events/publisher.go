package events

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Sink publishes event envelopes. The concrete implementation writes to
// Kafka; tests substitute a capture.
type Sink interface {
	Publish(ctx context.Context, topic string, key string, env Envelope) error
}

// Publisher writes envelopes to Kafka.
type Publisher struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

// NewPublisher creates a Kafka-backed publisher.
func NewPublisher(brokers []string, logger *zap.Logger) *Publisher {
	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: writer, logger: logger}
}

// Publish writes one envelope to the topic. The key should identify the
// subscription so events for one subscription stay ordered per partition.
func (p *Publisher) Publish(ctx context.Context, topic string, key string, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		p.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("type", env.Type),
			zap.Error(err),
		)
		return err
	}

	p.logger.Debug("event published",
		zap.String("topic", topic),
		zap.String("type", env.Type),
		zap.String("key", key),
	)
	return nil
}

// Close closes the underlying Kafka writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
