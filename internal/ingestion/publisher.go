package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"colindex/pkg/kafka"
)

// Sink is where published events go; *kafka.Producer satisfies it.
type Sink interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Publisher builds and publishes ingest events for clients feeding the
// indexer. Every event is validated and stamped with a fresh event id before
// it leaves the process.
type Publisher struct {
	sink   Sink
	logger *slog.Logger
}

// NewPublisher creates a Publisher writing to sink.
func NewPublisher(sink Sink) *Publisher {
	return &Publisher{
		sink:   sink,
		logger: slog.Default().With("component", "ingest-publisher"),
	}
}

// PublishIndex publishes an index operation for one document and returns the
// event id. Events for the same document id share a partition key, so
// per-document ordering survives the broker.
func (p *Publisher) PublishIndex(ctx context.Context, indexName, documentID string, fields []EventField) (string, error) {
	ev := IngestEvent{
		EventID:    uuid.NewString(),
		Op:         OpIndex,
		Index:      indexName,
		DocumentID: documentID,
		Fields:     fields,
		IngestedAt: time.Now().UTC(),
	}
	if err := Validate(&ev); err != nil {
		return "", err
	}

	key := documentID
	if key == "" {
		key = ev.EventID
	}
	if err := p.sink.Publish(ctx, kafka.Event{Key: indexName + "/" + key, Value: ev}); err != nil {
		return "", fmt.Errorf("publishing index event for %q: %w", indexName, err)
	}
	p.logger.Debug("index event published",
		"event_id", ev.EventID,
		"index", indexName,
		"doc_id", documentID,
	)
	return ev.EventID, nil
}

// PublishDelete publishes a delete operation matching (field, term) and
// returns the event id.
func (p *Publisher) PublishDelete(ctx context.Context, indexName, field, term string) (string, error) {
	ev := IngestEvent{
		EventID:    uuid.NewString(),
		Op:         OpDelete,
		Index:      indexName,
		MatchField: field,
		MatchTerm:  term,
		IngestedAt: time.Now().UTC(),
	}
	if err := Validate(&ev); err != nil {
		return "", err
	}

	if err := p.sink.Publish(ctx, kafka.Event{Key: indexName + "/" + field + ":" + term, Value: ev}); err != nil {
		return "", fmt.Errorf("publishing delete event for %q: %w", indexName, err)
	}
	p.logger.Debug("delete event published",
		"event_id", ev.EventID,
		"index", indexName,
		"match_field", field,
		"match_term", term,
	)
	return ev.EventID, nil
}
