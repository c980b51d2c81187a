package repository

import (
	"context"
	"fmt"

	"SigFlow/internal/domain/models"
	"SigFlow/pkg/kafka"
)

// KafkaPublisher streams emitted signals to the analytics topic, keyed
// by instrument for per-symbol ordering.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *kafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, sig *models.Signal) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(sig.Instrument), sig); err != nil {
		return fmt.Errorf("publish signal for %s: %w", sig.Instrument, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher drops signals when the analytics bus is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *models.Signal) error { return nil }
