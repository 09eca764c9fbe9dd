package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "colindex/pkg/errors"
)

func drain(t *testing.T, h Hits) []int {
	t.Helper()
	var slots []int
	for {
		slot, ok, err := h.Next()
		require.NoError(t, err)
		if !ok {
			return slots
		}
		slots = append(slots, slot)
	}
}

func TestSliceHits(t *testing.T) {
	assert.Equal(t, []int{1, 5, 9}, drain(t, &SliceHits{Slots: []int{1, 5, 9}}))
	assert.Empty(t, drain(t, &SliceHits{}))
}

func TestOrderedHitsPassesAscending(t *testing.T) {
	h := newOrderedHits(&SliceHits{Slots: []int{0, 3, 7}})
	assert.Equal(t, []int{0, 3, 7}, drain(t, h))
}

func TestOrderedHitsRejectsDescent(t *testing.T) {
	h := newOrderedHits(&SliceHits{Slots: []int{5, 3}})
	slot, ok, err := h.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, slot)

	_, _, err = h.Next()
	assert.ErrorIs(t, err, apperrors.ErrOutOfOrderHits)
}

func TestOrderedHitsRejectsDuplicate(t *testing.T) {
	h := newOrderedHits(&SliceHits{Slots: []int{4, 4}})
	_, _, err := h.Next()
	require.NoError(t, err)
	_, _, err = h.Next()
	assert.ErrorIs(t, err, apperrors.ErrOutOfOrderHits)
}
