// Package kafka provides the Kafka producer and consumer clients backed by
// segmentio/kafka-go. The producer serialises events as JSON; the consumer
// feeds messages through a MessageHandler with bounded retry before the
// offset is committed.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"colindex/pkg/config"
)

// MessageHandler is a callback invoked for each Kafka message. Returning an
// error marks the message as transiently failed; the consumer retries it
// before giving up and moving on.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

const (
	// handlerAttempts bounds retries of one message. Indexing failures are
	// usually the store being briefly unreachable, so a few spaced attempts
	// cover the common case without stalling the partition.
	handlerAttempts = 3
	retryBackoff    = 500 * time.Millisecond
)

// Consumer reads messages from a Kafka topic and dispatches them to a
// MessageHandler. Offsets are committed only after the handler accepts the
// message or retries are exhausted, so a crash mid-batch replays rather than
// skips.
type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	handler MessageHandler
}

// NewConsumer creates a Consumer for the given topic and handler. The reader
// starts at the earliest uncommitted offset: an indexer that skipped history
// would silently hold an incomplete index.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:       cfg.Brokers,
		Topic:         topic,
		GroupID:       cfg.ConsumerGroup,
		MinBytes:      1,
		MaxBytes:      10e6,
		MaxWait:       250 * time.Millisecond,
		QueueCapacity: 256,
		StartOffset:   kafka.FirstOffset,
	})

	return &Consumer{
		reader:  r,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
		handler: handler,
	}
}

// Start enters the consume loop, fetching and processing messages until ctx
// is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopping", "reason", ctx.Err())
			return c.reader.Close()
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}

		c.process(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit offset",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// process runs the handler with bounded retry. A message that still fails
// after the last attempt is logged and dropped; committing past it keeps the
// partition moving.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	var err error
	for attempt := 1; attempt <= handlerAttempts; attempt++ {
		err = c.handler(ctx, msg.Key, msg.Value)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if attempt < handlerAttempts {
			c.logger.Warn("handler failed, retrying",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"attempt", attempt,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryBackoff):
			}
		}
	}
	c.logger.Error("handler exhausted retries, dropping message",
		"partition", msg.Partition,
		"offset", msg.Offset,
		"key", string(msg.Key),
		"error", err,
	)
}

// Lag reports how far the consumer trails the head of its partitions; the
// readiness endpoint surfaces it.
func (c *Consumer) Lag() int64 {
	return c.reader.Lag()
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
