package index

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colindex/internal/store"
	apperrors "colindex/pkg/errors"
)

func mutationFor(key string, column string) store.Mutation {
	m := store.Mutation{Key: store.RowKey(key)}
	m.Set(column, []byte("v"))
	return m
}

func TestRegistryEnqueueAndDepth(t *testing.T) {
	r := NewRegistry(store.NewMemory(), store.ConsistencyQuorum, nil)

	assert.Equal(t, 0, r.Depth("idx"))
	r.Enqueue("idx", []store.Mutation{mutationFor("a", "c1"), mutationFor("b", "c1")})
	assert.Equal(t, 2, r.Depth("idx"))

	// Queues are per index.
	assert.Equal(t, 0, r.Depth("other"))
}

func TestRegistryCommitNothing(t *testing.T) {
	r := NewRegistry(store.NewMemory(), store.ConsistencyQuorum, nil)

	result := r.Commit(context.Background(), "idx", false)
	assert.Equal(t, CommitNothing, result.Outcome)
	assert.Equal(t, 0, result.Count)
}

func TestRegistryCommitApplied(t *testing.T) {
	mem := store.NewMemory()
	r := NewRegistry(mem, store.ConsistencyQuorum, nil)

	r.Enqueue("idx", []store.Mutation{mutationFor("a", "c1"), mutationFor("b", "c1")})
	result := r.Commit(context.Background(), "idx", false)

	assert.Equal(t, CommitApplied, result.Outcome)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 0, r.Depth("idx"))
	assert.Equal(t, 2, mem.RowCount())
}

func TestRegistryCommitFailureRequeuesSnapshot(t *testing.T) {
	mem := store.NewMemory()
	r := NewRegistry(mem, store.ConsistencyQuorum, nil)

	r.Enqueue("idx", []store.Mutation{mutationFor("a", "c1"), mutationFor("b", "c1")})
	mem.FailNextInserts(1)

	result := r.Commit(context.Background(), "idx", false)
	assert.Equal(t, CommitDeferred, result.Outcome)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 2, r.Depth("idx"))
	assert.Equal(t, 0, mem.RowCount())

	// Retry succeeds and drains the queue.
	result = r.Commit(context.Background(), "idx", false)
	assert.Equal(t, CommitApplied, result.Outcome)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 0, r.Depth("idx"))
	assert.Equal(t, 2, mem.RowCount())
}

// recordingStore captures each Insert batch so tests can assert ordering
// across retries.
type recordingStore struct {
	*store.Memory
	mu      sync.Mutex
	batches [][]store.RowKey
}

func (r *recordingStore) Insert(ctx context.Context, mutations []store.Mutation, level store.Consistency) error {
	keys := make([]store.RowKey, len(mutations))
	for i, m := range mutations {
		keys[i] = m.Key
	}
	r.mu.Lock()
	r.batches = append(r.batches, keys)
	r.mu.Unlock()
	return r.Memory.Insert(ctx, mutations, level)
}

func TestRegistryRequeuePreservesOrder(t *testing.T) {
	mem := store.NewMemory()
	rec := &recordingStore{Memory: mem}
	r := NewRegistry(rec, store.ConsistencyQuorum, nil)

	r.Enqueue("idx", []store.Mutation{mutationFor("a", "c1"), mutationFor("b", "c1")})
	mem.FailNextInserts(1)
	r.Commit(context.Background(), "idx", false)

	// Mutations enqueued after the failed drain retry AFTER the re-queued
	// snapshot.
	r.Enqueue("idx", []store.Mutation{mutationFor("c", "c1")})
	result := r.Commit(context.Background(), "idx", false)
	require.Equal(t, CommitApplied, result.Outcome)
	assert.Equal(t, 3, result.Count)

	require.Len(t, rec.batches, 2)
	assert.Equal(t, []store.RowKey{"a", "b"}, rec.batches[0])
	assert.Equal(t, []store.RowKey{"a", "b", "c"}, rec.batches[1])
}

// gatedStore blocks Insert until released, so a drain can be held in flight.
type gatedStore struct {
	*store.Memory
	entered chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		Memory:  store.NewMemory(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (g *gatedStore) Insert(ctx context.Context, mutations []store.Mutation, level store.Consistency) error {
	g.entered <- struct{}{}
	<-g.release
	return g.Memory.Insert(ctx, mutations, level)
}

func TestRegistryEnqueueDuringDrainStaysQueued(t *testing.T) {
	gated := newGatedStore()
	r := NewRegistry(gated, store.ConsistencyQuorum, nil)

	r.Enqueue("idx", []store.Mutation{mutationFor("a", "c1")})

	done := make(chan CommitResult, 1)
	go func() {
		done <- r.Commit(context.Background(), "idx", false)
	}()
	<-gated.entered

	// The drain holds its snapshot; a concurrent enqueue lands in the
	// queue for the next commit, not the in-flight batch.
	r.Enqueue("idx", []store.Mutation{mutationFor("b", "c1")})
	assert.Equal(t, 1, r.Depth("idx"))

	close(gated.release)
	result := <-done
	assert.Equal(t, CommitApplied, result.Outcome)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, 1, r.Depth("idx"))
}

func TestRegistryBlockingCommitWaitsForActiveDrain(t *testing.T) {
	gated := newGatedStore()
	r := NewRegistry(gated, store.ConsistencyQuorum, nil)

	r.Enqueue("idx", []store.Mutation{mutationFor("a", "c1")})

	first := make(chan CommitResult, 1)
	go func() {
		first <- r.Commit(context.Background(), "idx", false)
	}()
	<-gated.entered

	r.Enqueue("idx", []store.Mutation{mutationFor("b", "c1")})

	second := make(chan CommitResult, 1)
	go func() {
		second <- r.Commit(context.Background(), "idx", true)
	}()

	// The blocking commit must not snapshot while the first drain is
	// active.
	select {
	case <-second:
		t.Fatal("blocking commit finished while another drain was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(gated.release)
	assert.Equal(t, CommitApplied, (<-first).Outcome)

	result := <-second
	assert.Equal(t, CommitApplied, result.Outcome)
	assert.Equal(t, 1, result.Count)
	assert.Equal(t, 0, r.Depth("idx"))
}

func TestRegistryBlockingCommitCancelledWhileWaiting(t *testing.T) {
	gated := newGatedStore()
	r := NewRegistry(gated, store.ConsistencyQuorum, nil)

	r.Enqueue("idx", []store.Mutation{mutationFor("a", "c1")})
	go r.Commit(context.Background(), "idx", false)
	<-gated.entered

	r.Enqueue("idx", []store.Mutation{mutationFor("b", "c1")})

	ctx, cancel := context.WithCancel(context.Background())
	second := make(chan CommitResult, 1)
	go func() {
		second <- r.Commit(ctx, "idx", true)
	}()

	cancel()
	result := <-second
	// Nothing was snapshotted: the pending mutation is still queued.
	assert.Equal(t, CommitDeferred, result.Outcome)
	assert.Equal(t, 0, result.Count)
	assert.Equal(t, 1, r.Depth("idx"))

	close(gated.release)
}

func TestRegistryConcurrentEnqueueIsLossless(t *testing.T) {
	mem := store.NewMemory()
	r := NewRegistry(mem, store.ConsistencyQuorum, nil)

	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				key := string(rune('a'+w)) + "-" + slotColumn(i)
				r.Enqueue("idx", []store.Mutation{mutationFor(key, "c1")})
			}
		}(w)
	}
	wg.Wait()

	result := r.Commit(context.Background(), "idx", true)
	assert.Equal(t, CommitApplied, result.Outcome)
	assert.Equal(t, writers*perWriter, result.Count)
	assert.Equal(t, writers*perWriter, mem.RowCount())
}

func TestRegistryClose(t *testing.T) {
	mem := store.NewMemory()
	r := NewRegistry(mem, store.ConsistencyQuorum, nil)

	r.Enqueue("alpha", []store.Mutation{mutationFor("a", "c1")})
	r.Enqueue("beta", []store.Mutation{mutationFor("b", "c1")})

	require.NoError(t, r.Close(context.Background()))
	assert.Equal(t, 0, r.Depth("alpha"))
	assert.Equal(t, 0, r.Depth("beta"))
	assert.Equal(t, 2, mem.RowCount())
}

func TestRegistryCloseReportsDeferred(t *testing.T) {
	mem := store.NewMemory()
	r := NewRegistry(mem, store.ConsistencyQuorum, nil)

	r.Enqueue("idx", []store.Mutation{mutationFor("a", "c1")})
	mem.FailNextInserts(1)

	err := r.Close(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, r.Depth("idx"))
}

func TestRegistryCloseCancelledContext(t *testing.T) {
	mem := store.NewMemory()
	r := NewRegistry(mem, store.ConsistencyQuorum, nil)
	r.Enqueue("idx", []store.Mutation{mutationFor("a", "c1")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Close(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrCommitInterrupted)
}

func TestCommitOutcomeString(t *testing.T) {
	assert.Equal(t, "nothing", CommitNothing.String())
	assert.Equal(t, "applied", CommitApplied.String())
	assert.Equal(t, "deferred", CommitDeferred.String())
}
