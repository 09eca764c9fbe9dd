package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"colindex/internal/store"
	apperrors "colindex/pkg/errors"
	"colindex/pkg/metrics"
)

// CommitOutcome classifies what a commit attempt did. It replaces the
// ambiguity of a commit that silently swallows failure: callers can tell
// "nothing pending" from "failed and re-queued".
type CommitOutcome int

const (
	// CommitNothing means the queue held no mutations.
	CommitNothing CommitOutcome = iota
	// CommitApplied means the drained snapshot was written to the store.
	CommitApplied
	// CommitDeferred means the attempt failed and its snapshot was pushed
	// back for a later retry. No mutation is lost.
	CommitDeferred
)

func (o CommitOutcome) String() string {
	switch o {
	case CommitNothing:
		return "nothing"
	case CommitApplied:
		return "applied"
	case CommitDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// CommitResult is the typed result of a commit attempt.
type CommitResult struct {
	Outcome CommitOutcome
	// Count is the number of mutations written (CommitApplied) or
	// re-queued (CommitDeferred).
	Count int
}

// queue is the per-index pending-mutation state. active counts in-flight
// drains; a blocking commit waits on cond until it reaches zero.
type queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []store.Mutation
	active  int
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Registry owns one mutation queue per logical index. It is an explicit
// instance with a lifecycle, not process-global state: the writer creates it
// at construction and drains it at Close.
type Registry struct {
	store       store.Store
	consistency store.Consistency

	mu     sync.Mutex
	queues map[string]*queue

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRegistry creates an empty registry writing batches to st at the given
// consistency level. m may be nil in tests.
func NewRegistry(st store.Store, consistency store.Consistency, m *metrics.Metrics) *Registry {
	return &Registry{
		store:       st,
		consistency: consistency,
		queues:      make(map[string]*queue),
		logger:      slog.Default().With("component", "mutation-registry"),
		metrics:     m,
	}
}

// queueFor returns the index's queue, creating it lazily. Queues live for
// the registry's lifetime and are shared by all callers of that index.
func (r *Registry) queueFor(indexName string) *queue {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[indexName]
	if !ok {
		q = newQueue()
		r.queues[indexName] = q
	}
	return q
}

// indexNames snapshots the known index names.
func (r *Registry) indexNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.queues))
	for name := range r.queues {
		names = append(names, name)
	}
	return names
}

// Enqueue appends mutations to the index's queue. It never blocks and the
// queue is unbounded; the depth gauge is the operator's backpressure signal.
func (r *Registry) Enqueue(indexName string, mutations []store.Mutation) {
	if len(mutations) == 0 {
		return
	}
	q := r.queueFor(indexName)
	q.mu.Lock()
	q.pending = append(q.pending, mutations...)
	depth := len(q.pending)
	q.mu.Unlock()

	if r.metrics != nil {
		r.metrics.MutationsEnqueuedTotal.WithLabelValues(indexName).Add(float64(len(mutations)))
		r.metrics.QueueDepth.WithLabelValues(indexName).Set(float64(depth))
	}
}

// Depth reports the number of pending mutations for an index.
func (r *Registry) Depth(indexName string) int {
	q := r.queueFor(indexName)
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Commit drains the index's currently-pending mutations and writes them to
// the store as one batch. Mutations enqueued while the drain is in flight
// are not included and stay queued for the next commit.
//
// If blocking, Commit first waits until no other drain of this index is in
// flight; cancellation of ctx during the wait returns CommitDeferred with a
// zero count (nothing was snapshotted, nothing is lost). After the snapshot
// is taken the drain runs to completion: on store failure the whole snapshot
// is pushed back to the front of the queue and the failure is absorbed here,
// surfaced only through the returned outcome and the log.
func (r *Registry) Commit(ctx context.Context, indexName string, blocking bool) CommitResult {
	q := r.queueFor(indexName)

	q.mu.Lock()
	if blocking {
		if !q.waitIdle(ctx) {
			q.mu.Unlock()
			r.logger.Warn("blocking commit interrupted while waiting",
				"index", indexName,
				"error", ctx.Err(),
			)
			return CommitResult{Outcome: CommitDeferred}
		}
	}
	q.active++
	snapshot := q.pending
	q.pending = nil
	q.mu.Unlock()

	finish := func() {
		q.mu.Lock()
		q.active--
		depth := len(q.pending)
		q.mu.Unlock()
		q.cond.Broadcast()
		if r.metrics != nil {
			r.metrics.QueueDepth.WithLabelValues(indexName).Set(float64(depth))
		}
	}

	if len(snapshot) == 0 {
		finish()
		r.logger.Debug("nothing to commit", "index", indexName)
		if r.metrics != nil {
			r.metrics.CommitsTotal.WithLabelValues(CommitNothing.String()).Inc()
		}
		return CommitResult{Outcome: CommitNothing}
	}

	start := time.Now()
	err := r.store.Insert(ctx, snapshot, r.consistency)
	if err != nil {
		// Push the whole snapshot back ahead of anything enqueued
		// meanwhile so retry preserves the original order.
		q.mu.Lock()
		q.pending = append(snapshot, q.pending...)
		q.mu.Unlock()
		finish()
		r.logger.Warn("commit failed, snapshot re-queued",
			"index", indexName,
			"mutations", len(snapshot),
			"error", err,
		)
		if r.metrics != nil {
			r.metrics.CommitsTotal.WithLabelValues(CommitDeferred.String()).Inc()
			r.metrics.StoreInsertsTotal.WithLabelValues("error").Inc()
		}
		return CommitResult{Outcome: CommitDeferred, Count: len(snapshot)}
	}

	finish()
	r.logger.Debug("commit applied",
		"index", indexName,
		"mutations", len(snapshot),
		"elapsed", time.Since(start),
	)
	if r.metrics != nil {
		r.metrics.CommitsTotal.WithLabelValues(CommitApplied.String()).Inc()
		r.metrics.CommitBatchSize.Observe(float64(len(snapshot)))
		r.metrics.CommitDuration.Observe(time.Since(start).Seconds())
		r.metrics.StoreInsertsTotal.WithLabelValues("ok").Inc()
	}
	return CommitResult{Outcome: CommitApplied, Count: len(snapshot)}
}

// waitIdle blocks until no drain is active or ctx is done. Caller holds
// q.mu. Returns false on cancellation.
func (q *queue) waitIdle(ctx context.Context) bool {
	if q.active == 0 {
		return true
	}
	// Wake the cond waiter when ctx is cancelled. stop prevents the
	// watcher from outliving the wait.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			q.cond.Broadcast()
		case <-stop:
		}
	}()
	for q.active > 0 {
		if ctx.Err() != nil {
			return false
		}
		q.cond.Wait()
	}
	return true
}

// Close performs a final blocking commit of every index queue. Mutations
// still pending after a failed final commit are reported but not lost until
// the process exits.
func (r *Registry) Close(ctx context.Context) error {
	var lastErr error
	for _, name := range r.indexNames() {
		result := r.Commit(ctx, name, true)
		if result.Outcome == CommitDeferred {
			r.logger.Error("final commit deferred at close; pending mutations will be dropped at exit",
				"index", name,
				"pending", r.Depth(name),
			)
			if ctx.Err() != nil {
				lastErr = fmt.Errorf("%w: %v", apperrors.ErrCommitInterrupted, ctx.Err())
			} else {
				lastErr = apperrors.ErrStoreUnavailable
			}
		}
	}
	return lastErr
}
