// Package index maps tokenized documents onto batches of wide-column row
// mutations and commits them through per-index mutation queues. It is the
// write half of an inverted index whose persistence is delegated entirely to
// a column store.
package index

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"

	"colindex/internal/store"
	apperrors "colindex/pkg/errors"
)

// keyDelimiter separates key parts. The unit separator cannot appear in
// valid field names or analyzed terms, so distinct part tuples cannot
// collide after joining.
const keyDelimiter = "\x1f"

// Row-category prefixes. The original column-store layout separated these
// per column family; with one flat keyspace the category is folded into the
// key so a field named "terms" cannot collide with the term-list row.
const (
	catPostings   = "tp"
	catDoc        = "doc"
	catFieldCache = "fc"
	catTermList   = "terms"
	catIDList     = "ids"
	catCounter    = "seq"
)

// metaColumn is the stored-field column holding the document's term
// metadata, the authoritative record for deletion.
const metaColumn = "\x00meta"

// rowKey builds the row key for an index-scoped tuple: a 64-bit locality
// hash in fixed-width hex, then the readable delimiter-joined parts. Both
// writers and readers derive keys with this function; it must stay
// referentially transparent.
func rowKey(indexName string, parts ...string) store.RowKey {
	var sb strings.Builder
	sb.WriteString(indexName)
	for _, part := range parts {
		sb.WriteString(keyDelimiter)
		sb.WriteString(part)
	}
	raw := sb.String()
	return store.RowKey(fmt.Sprintf("%016x%s%s", xxhash.Sum64String(raw), keyDelimiter, raw))
}

// termKey addresses the posting row of one (field, term) pair. Each term
// gets its own row so no single row accumulates the whole index.
func termKey(indexName, field, term string) store.RowKey {
	return rowKey(indexName, catPostings, field, term)
}

// docKey addresses a document's stored-field row by shard slot.
func docKey(indexName string, slot int) store.RowKey {
	return rowKey(indexName, catDoc, fmt.Sprintf("%x", slot))
}

// fieldCacheKey addresses the first-term cache row of one field.
func fieldCacheKey(indexName, field string) store.RowKey {
	return rowKey(indexName, catFieldCache, field)
}

// termListKey addresses the row recording every (field, term) seen in the
// index.
func termListKey(indexName string) store.RowKey {
	return rowKey(indexName, catTermList)
}

// idListKey addresses the row mapping shard slots to external document ids.
func idListKey(indexName string) store.RowKey {
	return rowKey(indexName, catIDList)
}

// counterKey addresses the document-number allocator row.
func counterKey(indexName string) store.RowKey {
	return rowKey(indexName, catCounter)
}

// slotColumn renders a shard slot as a fixed-width decimal column name so
// lexicographic column order equals numeric slot order.
func slotColumn(slot int) string {
	return fmt.Sprintf("%010d", slot)
}

// parseSlotColumn is the inverse of slotColumn.
func parseSlotColumn(name string) (int, error) {
	var slot int
	if _, err := fmt.Sscanf(name, "%d", &slot); err != nil {
		return 0, fmt.Errorf("parsing slot column %q: %w", name, err)
	}
	return slot, nil
}

// termColumn renders a (field, term) pair as a term-list column name.
func termColumn(field, term string) string {
	return field + keyDelimiter + term
}

// checkText guards the encoding contract for text that enters row keys or
// column names: valid UTF-8, free of the key delimiter.
func checkText(what, s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: %s", apperrors.ErrEncoding, what)
	}
	if strings.Contains(s, keyDelimiter) {
		return fmt.Errorf("%w: %s contains reserved delimiter", apperrors.ErrEncoding, what)
	}
	return nil
}

// checkStoredText guards stored-field values. They are codec-encoded and
// never enter keys, so only UTF-8 validity applies; the delimiter is allowed.
func checkStoredText(what, s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: %s", apperrors.ErrEncoding, what)
	}
	return nil
}
