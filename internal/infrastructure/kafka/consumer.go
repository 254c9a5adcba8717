package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// PaymentCrediter applies a confirmed gateway payment to an account balance.
// Applying the same charge id twice must be a no-op.
type PaymentCrediter interface {
	Confirm(ctx context.Context, chargeID string, accountID, amount int64) (bool, error)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer drains the payments topic, the asynchronous confirmation channel
// between the gateway webhook and the account ledger.
type Consumer struct {
	reader   messageReader
	topic    string
	crediter PaymentCrediter
}

func NewConsumer(brokers []string, topic, groupID string, crediter PaymentCrediter) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		topic:    topic,
		crediter: crediter,
	}
}

// Consume drains the topic until ctx is cancelled. Offsets commit only after
// Confirm succeeds, so a confirmation that fails transiently is redelivered;
// malformed messages commit immediately so they cannot wedge the partition.
func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("failed to fetch Kafka message", "topic", c.topic, "error", err)
			continue
		}

		var event struct {
			ChargeID  string `json:"charge_id"`
			AccountID int64  `json:"account_id"`
			Amount    int64  `json:"amount"`
		}
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			slog.Error("failed to unmarshal payment event", "error", err)
			c.commit(ctx, msg)
			continue
		}
		if event.ChargeID == "" || event.AccountID == 0 || event.Amount <= 0 {
			slog.Error("invalid payment event", "charge_id", event.ChargeID, "account_id", event.AccountID, "amount", event.Amount)
			c.commit(ctx, msg)
			continue
		}

		applied, err := c.crediter.Confirm(ctx, event.ChargeID, event.AccountID, event.Amount)
		if err != nil {
			slog.Error("failed to credit confirmed payment, leaving offset uncommitted", "charge_id", event.ChargeID, "account_id", event.AccountID, "error", err)
			continue
		}

		slog.Info("payment confirmation processed", "charge_id", event.ChargeID, "account_id", event.AccountID, "amount", event.Amount, "applied", applied)
		c.commit(ctx, msg)
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		slog.Error("failed to commit Kafka offset", "topic", c.topic, "offset", msg.Offset, "error", err)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
