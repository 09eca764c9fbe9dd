package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"colindex/internal/store"
	apperrors "colindex/pkg/errors"
)

func TestAllocatorSequence(t *testing.T) {
	ctx := context.Background()
	a := NewAllocator(store.NewMemory(), store.ConsistencyQuorum, "idx")

	for want := 0; want < 5; want++ {
		got, err := a.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestAllocatorSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	a := NewAllocator(mem, store.ConsistencyQuorum, "idx")
	for i := 0; i < 3; i++ {
		_, err := a.Next(ctx)
		require.NoError(t, err)
	}

	// A fresh allocator over the same store continues, never re-issuing.
	b := NewAllocator(mem, store.ConsistencyQuorum, "idx")
	got, err := b.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, got)
}

func TestAllocatorIndexesAreIndependent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	a := NewAllocator(mem, store.ConsistencyQuorum, "alpha")
	b := NewAllocator(mem, store.ConsistencyQuorum, "beta")

	n, err := a.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = b.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAllocatorFailedPersistDoesNotAdvance(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	a := NewAllocator(mem, store.ConsistencyQuorum, "idx")

	n, err := a.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	mem.FailNextInserts(1)
	_, err = a.Next(ctx)
	require.ErrorIs(t, err, apperrors.ErrStoreUnavailable)

	// The failed attempt's number is reused, not burned.
	n, err = a.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
