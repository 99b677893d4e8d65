package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/honeynil/PaymentLedgerService/internal/models"
	pkgerrors "github.com/honeynil/PaymentLedgerService/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// WalletResyncer rebuilds a user's wallet from their transactions.
type WalletResyncer interface {
	RecomputeUserWallet(ctx context.Context, userID string) ([]models.Transaction, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// ResyncRequest is the payload of a wallet resync message.
type ResyncRequest struct {
	UserID string `json:"user_id"`
}

type Consumer struct {
	reader   messageReader
	topic    string
	resyncer WalletResyncer
	backOff  func() backoff.BackOff
}

// defaultResyncBackOff outlasts the 5s wallet lock held by an admin operation.
func defaultResyncBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

func NewConsumer(brokers []string, topic, groupID string, resyncer WalletResyncer) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		topic:    topic,
		resyncer: resyncer,
		backOff:  defaultResyncBackOff,
	}
}

// Consume reads resync requests until ctx is cancelled. A request that hits a
// locked wallet is retried; malformed messages and permanent failures are
// logged and skipped.
func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				slog.Info("Kafka consumer stopped", "topic", c.topic)
				return
			}
			slog.Error("failed to read Kafka message", "topic", c.topic, "error", err)
			continue
		}

		slog.Info("Kafka message received", "topic", msg.Topic, "key", string(msg.Key), "offset", msg.Offset)
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	var req ResyncRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		slog.Error("failed to unmarshal resync request", "offset", msg.Offset, "error", err)
		return
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		slog.Error("invalid user_id in resync request", "user_id", req.UserID, "offset", msg.Offset)
		return
	}

	newBackOff := c.backOff
	if newBackOff == nil {
		newBackOff = defaultResyncBackOff
	}

	attempt := 0
	items, err := backoff.RetryWithData(func() ([]models.Transaction, error) {
		attempt++
		items, err := c.resyncer.RecomputeUserWallet(ctx, req.UserID)
		if err == nil {
			return items, nil
		}
		if errors.Is(err, pkgerrors.ErrBalanceLocked) {
			slog.Warn("wallet locked, retrying resync", "user_id", req.UserID, "attempt", attempt)
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}, backoff.WithContext(newBackOff(), ctx))
	if err != nil {
		slog.Error("failed to resync wallet", "user_id", req.UserID, "attempts", attempt, "offset", msg.Offset, "error", err)
		return
	}
	slog.Info("wallet resynced", "user_id", req.UserID, "transactions", len(items), "attempts", attempt)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
