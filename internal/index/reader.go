package index

import (
	"context"
	"fmt"

	"colindex/internal/index/codec"
	"colindex/internal/store"
	apperrors "colindex/pkg/errors"
)

// Reader is the read-side companion of Writer: it derives row keys with the
// same addressing functions and decodes what the writer persisted. Query
// execution and scoring live elsewhere; this is row-level access only.
type Reader struct {
	store       store.Store
	codec       codec.Codec
	consistency store.Consistency
	shardMod    int
}

// NewReader creates a Reader. cdc must match the codec documents were
// written with.
func NewReader(st store.Store, cdc codec.Codec, consistency store.Consistency, maxDocsPerShard int) (*Reader, error) {
	if maxDocsPerShard <= 0 {
		return nil, fmt.Errorf("%w: maxDocsPerShard must be positive", apperrors.ErrInvalidInput)
	}
	if cdc == nil {
		cdc = codec.Default
	}
	if consistency == "" {
		consistency = store.ConsistencyQuorum
	}
	return &Reader{store: st, codec: cdc, consistency: consistency, shardMod: maxDocsPerShard}, nil
}

// Metadata returns the document's recorded term list, or ErrDocumentNotFound
// if the metadata row is absent.
func (r *Reader) Metadata(ctx context.Context, indexName string, docNumber int) (*DocumentMetadata, error) {
	slot := docNumber % r.shardMod
	cols, err := r.store.Read(ctx, docKey(indexName, slot), store.ColumnFilter{Names: []string{metaColumn}}, r.consistency)
	if err != nil {
		return nil, fmt.Errorf("reading metadata for doc %d in %q: %w", docNumber, indexName, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: doc %d in %q", apperrors.ErrDocumentNotFound, docNumber, indexName)
	}
	var metadata DocumentMetadata
	if err := r.codec.Decode(cols[0].Value, &metadata); err != nil {
		return nil, fmt.Errorf("%w: metadata for doc %d: %v", apperrors.ErrSerialization, docNumber, err)
	}
	return &metadata, nil
}

// StoredFields returns the document's stored fields by name, or
// ErrDocumentNotFound if the document row is absent.
func (r *Reader) StoredFields(ctx context.Context, indexName string, docNumber int) (map[string]StoredField, error) {
	slot := docNumber % r.shardMod
	cols, err := r.store.Read(ctx, docKey(indexName, slot), store.ColumnFilter{}, r.consistency)
	if err != nil {
		return nil, fmt.Errorf("reading stored fields for doc %d in %q: %w", docNumber, indexName, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: doc %d in %q", apperrors.ErrDocumentNotFound, docNumber, indexName)
	}
	fields := make(map[string]StoredField)
	for _, col := range cols {
		if col.Name == metaColumn {
			continue
		}
		var sf StoredField
		if err := r.codec.Decode(col.Value, &sf); err != nil {
			return nil, fmt.Errorf("%w: stored field %q of doc %d: %v", apperrors.ErrSerialization, col.Name, docNumber, err)
		}
		fields[col.Name] = sf
	}
	return fields, nil
}

// FieldCache returns the first-term value cached for (field, docNumber), or
// ErrDocumentNotFound when no entry exists.
func (r *Reader) FieldCache(ctx context.Context, indexName, field string, docNumber int) (string, error) {
	slot := docNumber % r.shardMod
	cols, err := r.store.Read(ctx, fieldCacheKey(indexName, field), store.ColumnFilter{Names: []string{slotColumn(slot)}}, r.consistency)
	if err != nil {
		return "", fmt.Errorf("reading field cache %q for doc %d: %w", field, docNumber, err)
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("%w: field cache %q doc %d", apperrors.ErrDocumentNotFound, field, docNumber)
	}
	return string(cols[0].Value), nil
}

// TermDocs returns the slots and decoded occurrence records of every
// document holding (field, term), in ascending slot order. It backs
// term-query style matching for delete-by-query.
func (r *Reader) TermDocs(ctx context.Context, indexName, field, term string) ([]int, []TermInfo, error) {
	cols, err := r.store.Read(ctx, termKey(indexName, field, term), store.ColumnFilter{}, r.consistency)
	if err != nil {
		return nil, nil, fmt.Errorf("reading postings for %s:%s in %q: %w", field, term, indexName, err)
	}
	var (
		slots []int
		infos []TermInfo
	)
	for _, col := range cols {
		slot, err := parseSlotColumn(col.Name)
		if err != nil {
			return nil, nil, err
		}
		info, err := decodePosting(col.Value)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding posting %s:%s slot %d: %w", field, term, slot, err)
		}
		slots = append(slots, slot)
		infos = append(infos, info)
	}
	return slots, infos, nil
}

// TermHits returns a Hits stream over the documents holding (field, term),
// suitable for Writer.DeleteByQuery.
func (r *Reader) TermHits(ctx context.Context, indexName, field, term string) (Hits, error) {
	slots, _, err := r.TermDocs(ctx, indexName, field, term)
	if err != nil {
		return nil, err
	}
	return &SliceHits{Slots: slots}, nil
}
