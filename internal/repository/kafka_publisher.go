package repository

import (
	"context"

	"BiasGuard/internal/domain/models"
	"BiasGuard/internal/domain/repository"
	pkgkafka "BiasGuard/pkg/kafka"
)

// KafkaPublisher implements Publisher for Kafka. Decisions are keyed
// by symbol so per-symbol ordering survives partitioning.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates a Kafka decision publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishDecision(ctx context.Context, rec *models.DecisionRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(rec.Symbol), rec)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishDecision(context.Context, *models.DecisionRecord) error { return nil }
func (NopPublisher) Close() error                                                  { return nil }
