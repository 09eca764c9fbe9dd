package index

import (
	"context"
	"fmt"
	"log/slog"

	"colindex/internal/index/analysis"
	"colindex/internal/index/codec"
	"colindex/internal/store"
	apperrors "colindex/pkg/errors"
	"colindex/pkg/metrics"
)

// Config holds the writer's tunables.
type Config struct {
	// MaxDocsPerShard is the shard-slot modulus. Two document numbers
	// that agree modulo this value occupy the same storage slot; the
	// later write supersedes the earlier one.
	MaxDocsPerShard int
	// Consistency is passed through to the store on every read/write.
	Consistency store.Consistency
	// AutoCommit triggers a non-blocking commit after every add/delete.
	AutoCommit bool
}

// Writer converts documents into row mutations and moves them through the
// per-index commit pipeline. It is safe for concurrent use; per-index queue
// state is the only shared mutable resource.
type Writer struct {
	store    store.Store
	registry *Registry
	analyzer analysis.Analyzer
	codec    codec.Codec
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewWriter builds a Writer with its own queue registry. m may be nil.
func NewWriter(st store.Store, analyzer analysis.Analyzer, cdc codec.Codec, cfg Config, m *metrics.Metrics) (*Writer, error) {
	if cfg.MaxDocsPerShard <= 0 {
		return nil, fmt.Errorf("%w: MaxDocsPerShard must be positive", apperrors.ErrInvalidInput)
	}
	if cdc == nil {
		cdc = codec.Default
	}
	if cfg.Consistency == "" {
		cfg.Consistency = store.ConsistencyQuorum
	}
	return &Writer{
		store:    st,
		registry: NewRegistry(st, cfg.Consistency, m),
		analyzer: analyzer,
		codec:    cdc,
		cfg:      cfg,
		logger:   slog.Default().With("component", "index-writer"),
		metrics:  m,
	}, nil
}

// AddOptions carries per-add extras.
type AddOptions struct {
	// DocID, when set, is recorded in the index's id-lookup row so
	// delete-by-query can clean the mapping up.
	DocID string
}

// AddDocument maps the document and enqueues its mutations. Mapping errors
// (encoding, serialization) propagate synchronously and enqueue nothing;
// store errors never reach this call path, they are retried by later
// commits.
func (w *Writer) AddDocument(ctx context.Context, indexName string, doc Document, docNumber int, opts AddOptions) error {
	acc := newAccumulator()
	slot, err := mapDocument(indexName, doc, w.analyzer, docNumber, w.mapperConfig(), opts.DocID, acc)
	if err != nil {
		return fmt.Errorf("mapping document %d in %q: %w", docNumber, indexName, err)
	}

	w.registry.Enqueue(indexName, acc.mutations())
	if w.metrics != nil {
		w.metrics.DocsIndexedTotal.Inc()
	}
	w.logger.Debug("document mapped",
		"index", indexName,
		"doc_number", docNumber,
		"slot", slot,
		"rows", acc.len(),
	)

	if w.cfg.AutoCommit {
		w.registry.Commit(ctx, indexName, false)
	}
	return nil
}

// DeleteDocument tombstones every row recorded for the document occupying
// docNumber's shard slot. If the metadata row is absent the delete is an
// idempotent no-op and returns false.
func (w *Writer) DeleteDocument(ctx context.Context, indexName string, docNumber int) (bool, error) {
	return w.deleteDocument(ctx, indexName, docNumber, w.cfg.AutoCommit)
}

func (w *Writer) deleteDocument(ctx context.Context, indexName string, docNumber int, commit bool) (bool, error) {
	acc := newAccumulator()
	found, err := w.collectDocumentTombstones(ctx, indexName, docNumber, acc)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	w.registry.Enqueue(indexName, acc.mutations())
	if w.metrics != nil {
		w.metrics.DocsDeletedTotal.Inc()
	}
	if commit {
		w.registry.Commit(ctx, indexName, false)
	}
	return true, nil
}

// collectDocumentTombstones reads the document's metadata row and schedules
// the exact cleanup set: one field-cache tombstone per field (not per term),
// one posting tombstone per recorded term, then the stored-field row itself.
func (w *Writer) collectDocumentTombstones(ctx context.Context, indexName string, docNumber int, acc *accumulator) (bool, error) {
	slot := docNumber % w.cfg.MaxDocsPerShard
	slotCol := slotColumn(slot)
	docK := docKey(indexName, slot)

	cols, err := w.store.Read(ctx, docK, store.ColumnFilter{Names: []string{metaColumn}}, w.cfg.Consistency)
	if err != nil {
		return false, fmt.Errorf("reading metadata for doc %d in %q: %w", docNumber, indexName, err)
	}
	if len(cols) == 0 {
		return false, nil
	}

	var metadata DocumentMetadata
	if err := w.codec.Decode(cols[0].Value, &metadata); err != nil {
		return false, fmt.Errorf("%w: metadata for doc %d in %q: %v", apperrors.ErrSerialization, docNumber, indexName, err)
	}

	fieldsDone := make(map[string]struct{})
	for _, term := range metadata.Terms {
		if _, ok := fieldsDone[term.Field]; !ok {
			acc.tombstone(fieldCacheKey(indexName, term.Field), slotCol)
			fieldsDone[term.Field] = struct{}{}
		}
		acc.tombstone(termKey(indexName, term.Field, term.Text), slotCol)
	}

	acc.tombstoneRow(docK)

	w.logger.Debug("document tombstoned",
		"index", indexName,
		"slot", slot,
		"terms", len(metadata.Terms),
		"fields", len(fieldsDone),
	)
	return true, nil
}

// DeleteByTerm deletes every document whose posting row for (field, term)
// has an entry, visiting slots in ascending store order. It returns the
// number of documents removed.
func (w *Writer) DeleteByTerm(ctx context.Context, indexName, field, term string) (int, error) {
	return w.deleteByTerm(ctx, indexName, field, term, w.cfg.AutoCommit)
}

func (w *Writer) deleteByTerm(ctx context.Context, indexName, field, term string, commit bool) (int, error) {
	if err := checkText("term", term); err != nil {
		return 0, err
	}
	cols, err := w.store.Read(ctx, termKey(indexName, field, term), store.ColumnFilter{}, w.cfg.Consistency)
	if err != nil {
		return 0, fmt.Errorf("reading postings for %s:%s in %q: %w", field, term, indexName, err)
	}

	removed := 0
	for _, col := range cols {
		slot, err := parseSlotColumn(col.Name)
		if err != nil {
			return removed, err
		}
		ok, err := w.deleteDocument(ctx, indexName, slot, false)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	if commit && removed > 0 {
		w.registry.Commit(ctx, indexName, false)
	}
	return removed, nil
}

// DeleteByQuery deletes every document produced by the hits stream, which
// must deliver shard slots in strictly ascending order; an out-of-order
// source fails the operation. Each matched document's id-lookup entry is
// removed alongside its rows. Returns the number of documents removed.
func (w *Writer) DeleteByQuery(ctx context.Context, indexName string, hits Hits) (int, error) {
	ordered := newOrderedHits(hits)
	idAcc := newAccumulator()
	removed := 0

	for {
		slot, ok, err := ordered.Next()
		if err != nil {
			return removed, fmt.Errorf("consuming query hits for %q: %w", indexName, err)
		}
		if !ok {
			break
		}
		deleted, err := w.deleteDocument(ctx, indexName, slot, false)
		if err != nil {
			return removed, err
		}
		if deleted {
			removed++
		}
		idAcc.tombstone(idListKey(indexName), slotColumn(slot))
	}

	w.registry.Enqueue(indexName, idAcc.mutations())
	if w.cfg.AutoCommit {
		w.registry.Commit(ctx, indexName, false)
	}
	return removed, nil
}

// UpdateDocument deletes the documents matching (field, term), then adds
// doc. The two steps are not atomic: a concurrent reader may observe the
// index between them, seeing the deletion without the addition. The delete
// phase never commits on its own, even under AutoCommit; the add phase's
// commit carries both halves.
func (w *Writer) UpdateDocument(ctx context.Context, indexName, field, term string, doc Document, docNumber int, opts AddOptions) error {
	if _, err := w.deleteByTerm(ctx, indexName, field, term, false); err != nil {
		return fmt.Errorf("update: delete phase: %w", err)
	}
	if err := w.AddDocument(ctx, indexName, doc, docNumber, opts); err != nil {
		return fmt.Errorf("update: add phase: %w", err)
	}
	return nil
}

// Commit drains the index's pending mutations. See Registry.Commit for the
// blocking and failure semantics.
func (w *Writer) Commit(ctx context.Context, indexName string, blocking bool) CommitResult {
	return w.registry.Commit(ctx, indexName, blocking)
}

// Pending reports the index's queued mutation count.
func (w *Writer) Pending(indexName string) int {
	return w.registry.Depth(indexName)
}

// Close drains all queues with blocking commits.
func (w *Writer) Close(ctx context.Context) error {
	return w.registry.Close(ctx)
}

func (w *Writer) mapperConfig() mapperConfig {
	return mapperConfig{
		maxDocsPerShard: w.cfg.MaxDocsPerShard,
		codec:           w.codec,
	}
}
