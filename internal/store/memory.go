package store

import (
	"context"
	"sort"
	"sync"

	apperrors "colindex/pkg/errors"
)

// Memory is an in-process Store used by tests and local development. It
// supports fault injection so the commit pipeline's retry path can be
// exercised deterministically.
type Memory struct {
	mu       sync.Mutex
	rows     map[RowKey]map[string][]byte
	failNext int
	inserts  int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{rows: make(map[RowKey]map[string][]byte)}
}

// FailNextInserts makes the next n Insert calls fail with
// ErrStoreUnavailable without applying anything.
func (m *Memory) FailNextInserts(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
}

// InsertCount returns how many Insert calls have been attempted.
func (m *Memory) InsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts
}

func (m *Memory) Insert(ctx context.Context, mutations []Mutation, _ Consistency) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.failNext > 0 {
		m.failNext--
		return apperrors.ErrStoreUnavailable
	}
	for _, mut := range mutations {
		if mut.RowTombstone {
			delete(m.rows, mut.Key)
			continue
		}
		row := m.rows[mut.Key]
		if row == nil {
			row = make(map[string][]byte)
			m.rows[mut.Key] = row
		}
		for _, op := range mut.Ops {
			if op.Tombstone {
				delete(row, op.Name)
				continue
			}
			value := make([]byte, len(op.Value))
			copy(value, op.Value)
			row[op.Name] = value
		}
		if len(row) == 0 {
			delete(m.rows, mut.Key)
		}
	}
	return nil
}

func (m *Memory) Read(ctx context.Context, key RowKey, filter ColumnFilter, _ Consistency) ([]Column, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[key]
	if !ok {
		return nil, nil
	}
	var cols []Column
	if len(filter.Names) > 0 {
		for _, name := range filter.Names {
			if value, ok := row[name]; ok {
				cols = append(cols, Column{Name: name, Value: append([]byte(nil), value...)})
			}
		}
	} else {
		for name, value := range row {
			cols = append(cols, Column{Name: name, Value: append([]byte(nil), value...)})
		}
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
	return cols, nil
}

// RowCount reports the number of live rows; used by tests.
func (m *Memory) RowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
