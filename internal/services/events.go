package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/cenkalti/backoff/v4"
	"github.com/honeynil/PaymentLedgerService/internal/infrastructure/kafka"
	"github.com/honeynil/PaymentLedgerService/internal/models"
)

type eventPublisher struct {
	producer kafka.KafkaProducer
	topic    string
	backOff  func() backoff.BackOff
}

func newEventPublisher(producer kafka.KafkaProducer, topic string) *eventPublisher {
	return &eventPublisher{
		producer: producer,
		topic:    topic,
		backOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)
		},
	}
}

// publish is best effort: the write it reports has already been committed,
// so a broker outage is logged and never fails the caller.
func (p *eventPublisher) publish(ctx context.Context, key string, event models.PaymentEvent) {
	if p.producer == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal Kafka event", "event_type", event.EventType, "error", err)
		return
	}

	err = backoff.Retry(func() error {
		return p.producer.Send(ctx, p.topic, key, payload)
	}, backoff.WithContext(p.backOff(), ctx))
	if err != nil {
		slog.Error("failed to send Kafka event after retries", "event_type", event.EventType, "key", key, "error", err)
		return
	}
	slog.Info("event sent", "event_type", event.EventType, "key", key)
}
