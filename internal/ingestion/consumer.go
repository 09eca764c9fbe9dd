package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"colindex/internal/index"
	apperrors "colindex/pkg/errors"
	"colindex/pkg/kafka"
)

// HandlerConfig carries the handler's indexing knobs and optional outputs.
type HandlerConfig struct {
	// StoreOffsets records token start/end offsets on tokenized fields.
	StoreOffsets bool
	// Completions, when set, receives a CompletionEvent after every
	// successfully indexed document.
	Completions Sink
}

// Handler turns ingest events into index writes. Document numbers come from
// per-index allocators created lazily through the factory.
type Handler struct {
	writer     *index.Writer
	allocators map[string]*index.Allocator
	newAlloc   func(indexName string) *index.Allocator
	cfg        HandlerConfig
	mu         sync.Mutex
	logger     *slog.Logger
}

// NewHandler creates a Handler. newAlloc builds the per-index document
// number allocator on first use.
func NewHandler(writer *index.Writer, newAlloc func(indexName string) *index.Allocator, cfg HandlerConfig) *Handler {
	return &Handler{
		writer:     writer,
		allocators: make(map[string]*index.Allocator),
		newAlloc:   newAlloc,
		cfg:        cfg,
		logger:     slog.Default().With("component", "ingest-handler"),
	}
}

func (h *Handler) allocator(indexName string) *index.Allocator {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.allocators[indexName]
	if !ok {
		a = h.newAlloc(indexName)
		h.allocators[indexName] = a
	}
	return a
}

// HandleMessage is the kafka.MessageHandler for the ingest topic. Malformed
// events are logged and dropped (returning an error would stall the
// partition on a poison message); transient failures propagate so the
// message is retried.
func (h *Handler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	ev, err := kafka.DecodeJSON[IngestEvent](value)
	if err != nil {
		h.logger.Error("dropping undecodable ingest event", "key", string(key), "error", err)
		return nil
	}
	if err := Validate(&ev); err != nil {
		h.logger.Error("dropping invalid ingest event",
			"event_id", ev.EventID,
			"op", ev.Op,
			"error", err,
		)
		return nil
	}

	switch ev.Op {
	case OpIndex:
		return h.handleIndex(ctx, &ev)
	case OpDelete:
		return h.handleDelete(ctx, &ev)
	default:
		return nil
	}
}

func (h *Handler) handleIndex(ctx context.Context, ev *IngestEvent) error {
	doc := BuildDocument(ev.Fields, h.cfg.StoreOffsets)

	docNumber, err := h.allocator(ev.Index).Next(ctx)
	if err != nil {
		return fmt.Errorf("allocating doc number for %q: %w", ev.Index, err)
	}

	err = h.writer.AddDocument(ctx, ev.Index, doc, docNumber, index.AddOptions{DocID: ev.DocumentID})
	if err != nil {
		// Encoding and serialization failures are fatal to this
		// document and will not succeed on redelivery.
		if errors.Is(err, apperrors.ErrEncoding) || errors.Is(err, apperrors.ErrSerialization) {
			h.logger.Error("dropping unmappable document",
				"event_id", ev.EventID,
				"index", ev.Index,
				"doc_id", ev.DocumentID,
				"error", err,
			)
			return nil
		}
		return fmt.Errorf("indexing document %s in %q: %w", ev.DocumentID, ev.Index, err)
	}

	h.logger.Info("document indexed",
		"index", ev.Index,
		"doc_id", ev.DocumentID,
		"doc_number", docNumber,
	)
	h.publishCompletion(ctx, ev, docNumber)
	return nil
}

// publishCompletion emits a CompletionEvent for a document that was mapped
// and enqueued. Failures are logged, not returned: the write already
// happened, and failing the message would re-index the document.
func (h *Handler) publishCompletion(ctx context.Context, ev *IngestEvent, docNumber int) {
	if h.cfg.Completions == nil {
		return
	}
	completion := CompletionEvent{
		EventID:     ev.EventID,
		Index:       ev.Index,
		DocumentID:  ev.DocumentID,
		DocNumber:   docNumber,
		CompletedAt: time.Now().UTC(),
	}
	key := ev.Index + "/" + ev.DocumentID
	if err := h.cfg.Completions.Publish(ctx, kafka.Event{Key: key, Value: completion}); err != nil {
		h.logger.Warn("failed to publish completion event",
			"event_id", ev.EventID,
			"index", ev.Index,
			"doc_number", docNumber,
			"error", err,
		)
	}
}

func (h *Handler) handleDelete(ctx context.Context, ev *IngestEvent) error {
	removed, err := h.writer.DeleteByTerm(ctx, ev.Index, ev.MatchField, ev.MatchTerm)
	if err != nil {
		return fmt.Errorf("deleting %s:%s in %q: %w", ev.MatchField, ev.MatchTerm, ev.Index, err)
	}
	h.logger.Info("documents deleted",
		"index", ev.Index,
		"match_field", ev.MatchField,
		"match_term", ev.MatchTerm,
		"removed", removed,
	)
	return nil
}

// Indexes lists the index names the handler has touched, for the commit
// ticker.
func (h *Handler) Indexes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.allocators))
	for name := range h.allocators {
		names = append(names, name)
	}
	return names
}

// BuildDocument converts wire fields into the index document model. Unknown
// kinds were rejected by Validate; the zero kind is tokenized text.
// storeOffsets turns on offset recording for tokenized fields.
func BuildDocument(fields []EventField, storeOffsets bool) index.Document {
	doc := index.Document{Fields: make([]index.Field, 0, len(fields))}
	for _, f := range fields {
		stored := true
		if f.Stored != nil {
			stored = *f.Stored
		}
		field := index.Field{Name: f.Name, Stored: stored}
		switch f.Kind {
		case "", "text":
			field.Kind = index.KindTokenizedText
			field.Text = f.Text
			field.StoreOffsets = storeOffsets
		case "keyword":
			field.Kind = index.KindUntokenizedText
			field.Text = f.Text
		case "numeric":
			field.Kind = index.KindNumeric
			field.Numeric = f.Numeric
		case "binary":
			field.Kind = index.KindBinary
			field.Binary = f.Binary
		case "stored":
			field.Kind = index.KindStoredOnly
			field.Text = f.Text
		}
		doc.Fields = append(doc.Fields, field)
	}
	return doc
}
