package index

import "colindex/internal/store"

// accumulator folds the many logical column writes of one document operation
// into at most one mutation per affected row, in first-touch row order, so a
// document add or delete dispatches a deterministic, minimal batch.
type accumulator struct {
	byKey map[store.RowKey]*store.Mutation
	order []store.RowKey
}

func newAccumulator() *accumulator {
	return &accumulator{byKey: make(map[store.RowKey]*store.Mutation)}
}

func (a *accumulator) mutation(key store.RowKey) *store.Mutation {
	if m, ok := a.byKey[key]; ok {
		return m
	}
	m := &store.Mutation{Key: key}
	a.byKey[key] = m
	a.order = append(a.order, key)
	return m
}

// set records a column write.
func (a *accumulator) set(key store.RowKey, column string, value []byte) {
	a.mutation(key).Set(column, value)
}

// tombstone records a column deletion. Deletions and additions share one
// mutation representation: a tombstone is a write of no value.
func (a *accumulator) tombstone(key store.RowKey, column string) {
	a.mutation(key).Delete(column)
}

// tombstoneRow records deletion of an entire row.
func (a *accumulator) tombstoneRow(key store.RowKey) {
	a.mutation(key).RowTombstone = true
}

// mutations returns the folded batch in first-touch row order.
func (a *accumulator) mutations() []store.Mutation {
	out := make([]store.Mutation, 0, len(a.order))
	for _, key := range a.order {
		out = append(out, *a.byKey[key])
	}
	return out
}

func (a *accumulator) len() int {
	return len(a.order)
}
