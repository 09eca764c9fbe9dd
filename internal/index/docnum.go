package index

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"colindex/internal/store"
)

// Allocator hands out monotonically increasing document numbers for one
// index, persisting the high-water mark in a counter row so numbering
// survives restarts. It assumes a single allocating process per index (the
// Kafka consumer group serializes the partition's writer); it is NOT a
// distributed sequence.
type Allocator struct {
	store       store.Store
	consistency store.Consistency
	indexName   string

	mu     sync.Mutex
	next   int
	loaded bool
}

const counterColumn = "next"

// NewAllocator creates an allocator for indexName.
func NewAllocator(st store.Store, consistency store.Consistency, indexName string) *Allocator {
	if consistency == "" {
		consistency = store.ConsistencyQuorum
	}
	return &Allocator{store: st, consistency: consistency, indexName: indexName}
}

// Next returns the next document number and persists the advanced counter
// before returning, so a crash re-issues no number it already handed out.
func (a *Allocator) Next(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.loaded {
		if err := a.load(ctx); err != nil {
			return 0, err
		}
	}

	n := a.next
	a.next++
	mut := store.Mutation{Key: counterKey(a.indexName)}
	mut.Set(counterColumn, []byte(strconv.Itoa(a.next)))
	if err := a.store.Insert(ctx, []store.Mutation{mut}, a.consistency); err != nil {
		a.next = n
		return 0, fmt.Errorf("persisting doc counter for %q: %w", a.indexName, err)
	}
	return n, nil
}

func (a *Allocator) load(ctx context.Context) error {
	cols, err := a.store.Read(ctx, counterKey(a.indexName), store.ColumnFilter{Names: []string{counterColumn}}, a.consistency)
	if err != nil {
		return fmt.Errorf("loading doc counter for %q: %w", a.indexName, err)
	}
	if len(cols) > 0 {
		n, err := strconv.Atoi(string(cols[0].Value))
		if err != nil {
			return fmt.Errorf("corrupt doc counter for %q: %w", a.indexName, err)
		}
		a.next = n
	}
	a.loaded = true
	return nil
}
