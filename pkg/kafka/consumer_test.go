package kafka

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConsumer(handler MessageHandler) *Consumer {
	return &Consumer{
		logger:  slog.Default().With("component", "kafka-consumer", "topic", "test"),
		handler: handler,
	}
}

func TestProcessRetriesTransientFailure(t *testing.T) {
	calls := 0
	c := newTestConsumer(func(ctx context.Context, key, value []byte) error {
		calls++
		if calls < 2 {
			return errors.New("store briefly down")
		}
		return nil
	})

	c.process(context.Background(), kafka.Message{Value: []byte("{}")})
	assert.Equal(t, 2, calls)
}

func TestProcessDropsAfterExhaustedRetries(t *testing.T) {
	calls := 0
	c := newTestConsumer(func(ctx context.Context, key, value []byte) error {
		calls++
		return errors.New("permanent failure")
	})

	// process returns rather than blocking the partition forever.
	c.process(context.Background(), kafka.Message{Value: []byte("{}")})
	assert.Equal(t, handlerAttempts, calls)
}

func TestProcessStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	c := newTestConsumer(func(ctx context.Context, key, value []byte) error {
		calls++
		cancel()
		return errors.New("failing during shutdown")
	})

	c.process(ctx, kafka.Message{})
	assert.Equal(t, 1, calls)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	got, err := DecodeJSON[payload]([]byte(`{"name":"idx"}`))
	require.NoError(t, err)
	assert.Equal(t, "idx", got.Name)

	_, err = DecodeJSON[payload]([]byte("not json"))
	assert.Error(t, err)
}
