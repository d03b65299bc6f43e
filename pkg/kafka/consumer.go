// Package kafka wraps segmentio/kafka-go with the small surface the
// services need: a JSON producer and a committing consumer loop driven by
// a MessageHandler.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bibliograph/bibliograph/pkg/config"
)

// MessageHandler processes one message. Returning an error leaves the
// offset uncommitted, so the message is redelivered.
type MessageHandler func(ctx context.Context, key, value []byte) error

// Consumer runs a fetch-handle-commit loop over one topic as part of the
// configured consumer group.
type Consumer struct {
	reader  *kafka.Reader
	handler MessageHandler
	log     *slog.Logger
}

// NewConsumer builds a consumer for topic. A group with no committed
// offsets starts from the earliest message, so documents queued before the
// first deployment are not lost.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			GroupID:     cfg.ConsumerGroup,
			Topic:       topic,
			StartOffset: kafka.FirstOffset,
			MinBytes:    1e3,
			MaxBytes:    10e6,
		}),
		handler: handler,
		log:     slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Start consumes until ctx ends. Fetch errors back off for a second
// instead of spinning against an unreachable broker.
func (c *Consumer) Start(ctx context.Context) error {
	c.log.Info("consumer started", "group", c.reader.Config().GroupID)
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("consumer stopping", "reason", ctx.Err())
				return c.reader.Close()
			}
			c.log.Error("fetch failed", "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return c.reader.Close()
			}
			continue
		}
		c.dispatch(ctx, msg)
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg kafka.Message) {
	if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
		c.log.Error("handler failed, message left uncommitted",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		return
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.log.Error("commit failed",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
	}
}

// Close shuts down the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var out T
	if err := json.Unmarshal(value, &out); err != nil {
		return out, fmt.Errorf("decoding message: %w", err)
	}
	return out, nil
}
