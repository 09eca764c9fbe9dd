package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "colindex/pkg/errors"
)

func TestMemoryInsertAndRead(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	mut := Mutation{Key: "row1"}
	mut.Set("b", []byte("2"))
	mut.Set("a", []byte("1"))
	require.NoError(t, m.Insert(ctx, []Mutation{mut}, ConsistencyQuorum))

	cols, err := m.Read(ctx, "row1", ColumnFilter{}, ConsistencyQuorum)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	// Columns come back in ascending name order regardless of write order.
	assert.Equal(t, "a", cols[0].Name)
	assert.Equal(t, "b", cols[1].Name)
}

func TestMemoryReadMissingRow(t *testing.T) {
	m := NewMemory()
	cols, err := m.Read(context.Background(), "absent", ColumnFilter{}, ConsistencyQuorum)
	require.NoError(t, err)
	assert.Empty(t, cols)
}

func TestMemoryColumnFilter(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	mut := Mutation{Key: "row1"}
	mut.Set("a", []byte("1"))
	mut.Set("b", []byte("2"))
	mut.Set("c", []byte("3"))
	require.NoError(t, m.Insert(ctx, []Mutation{mut}, ConsistencyQuorum))

	cols, err := m.Read(ctx, "row1", ColumnFilter{Names: []string{"c", "a", "missing"}}, ConsistencyQuorum)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "a", cols[0].Name)
	assert.Equal(t, "c", cols[1].Name)
}

func TestMemoryColumnTombstone(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	mut := Mutation{Key: "row1"}
	mut.Set("a", []byte("1"))
	mut.Set("b", []byte("2"))
	require.NoError(t, m.Insert(ctx, []Mutation{mut}, ConsistencyQuorum))

	del := Mutation{Key: "row1"}
	del.Delete("a")
	require.NoError(t, m.Insert(ctx, []Mutation{del}, ConsistencyQuorum))

	cols, err := m.Read(ctx, "row1", ColumnFilter{}, ConsistencyQuorum)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "b", cols[0].Name)
}

func TestMemoryRowTombstone(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	mut := Mutation{Key: "row1"}
	mut.Set("a", []byte("1"))
	require.NoError(t, m.Insert(ctx, []Mutation{mut}, ConsistencyQuorum))
	require.Equal(t, 1, m.RowCount())

	require.NoError(t, m.Insert(ctx, []Mutation{{Key: "row1", RowTombstone: true}}, ConsistencyQuorum))
	assert.Equal(t, 0, m.RowCount())
}

func TestMemoryEmptyRowIsRemoved(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	mut := Mutation{Key: "row1"}
	mut.Set("a", []byte("1"))
	require.NoError(t, m.Insert(ctx, []Mutation{mut}, ConsistencyQuorum))

	del := Mutation{Key: "row1"}
	del.Delete("a")
	require.NoError(t, m.Insert(ctx, []Mutation{del}, ConsistencyQuorum))
	assert.Equal(t, 0, m.RowCount())
}

func TestMemoryFaultInjection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.FailNextInserts(2)

	mut := Mutation{Key: "row1"}
	mut.Set("a", []byte("1"))

	err := m.Insert(ctx, []Mutation{mut}, ConsistencyQuorum)
	require.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	err = m.Insert(ctx, []Mutation{mut}, ConsistencyQuorum)
	require.ErrorIs(t, err, apperrors.ErrStoreUnavailable)

	require.NoError(t, m.Insert(ctx, []Mutation{mut}, ConsistencyQuorum))
	assert.Equal(t, 3, m.InsertCount())
	assert.Equal(t, 1, m.RowCount())
}

func TestMemoryValueIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	value := []byte("original")
	mut := Mutation{Key: "row1"}
	mut.Set("a", value)
	require.NoError(t, m.Insert(ctx, []Mutation{mut}, ConsistencyQuorum))

	// Mutating the caller's slice must not change what the store holds.
	value[0] = 'X'
	cols, err := m.Read(ctx, "row1", ColumnFilter{}, ConsistencyQuorum)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), cols[0].Value)
}

func TestMemoryRespectsContextCancellation(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Insert(ctx, nil, ConsistencyQuorum)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = m.Read(ctx, "row1", ColumnFilter{}, ConsistencyQuorum)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseConsistency(t *testing.T) {
	assert.Equal(t, ConsistencyOne, ParseConsistency("one"))
	assert.Equal(t, ConsistencyAll, ParseConsistency("all"))
	assert.Equal(t, ConsistencyQuorum, ParseConsistency("quorum"))
	assert.Equal(t, ConsistencyQuorum, ParseConsistency("bogus"))
	assert.Equal(t, ConsistencyQuorum, ParseConsistency(""))
}
