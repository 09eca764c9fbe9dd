// Package errors defines the sentinel errors shared across the indexing
// pipeline. Callers classify failures with errors.Is and add context with
// fmt.Errorf("...: %w").
package errors

import "errors"

var (
	// ErrEncoding reports field text that cannot be represented as valid
	// UTF-8. Fatal to the single document operation, never retried.
	ErrEncoding = errors.New("text not representable in utf-8")

	// ErrSerialization reports a metadata or stored-field codec failure.
	// Fatal to the single operation.
	ErrSerialization = errors.New("serialization failed")

	// ErrStoreUnavailable reports a transient store failure. The commit
	// pipeline re-queues the affected snapshot and retries on a later
	// commit; only direct store callers observe it.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrCommitInterrupted reports that a blocking commit's wait was
	// cancelled before the drain snapshot was taken.
	ErrCommitInterrupted = errors.New("commit wait interrupted")

	// ErrOutOfOrderHits reports a query-match source that delivered
	// document slots out of ascending order during delete-by-query.
	ErrOutOfOrderHits = errors.New("match hits delivered out of order")

	ErrInvalidInput     = errors.New("invalid input")
	ErrDocumentNotFound = errors.New("document not found")
	ErrUnknownBackend   = errors.New("unknown store backend")
)
