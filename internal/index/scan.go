package index

import (
	"fmt"

	apperrors "colindex/pkg/errors"
)

// Hits streams the shard slots of documents matched by a query, in strictly
// ascending slot order. Delete-by-query mutates per-index state the same
// pass reads, so out-of-order delivery is rejected rather than tolerated.
type Hits interface {
	// Next returns the next matching slot. ok is false when the stream is
	// exhausted.
	Next() (slot int, ok bool, err error)
}

// SliceHits adapts a pre-collected slot slice to Hits. The slice must
// already be sorted ascending; orderedHits enforces it downstream.
type SliceHits struct {
	Slots []int
	pos   int
}

func (s *SliceHits) Next() (int, bool, error) {
	if s.pos >= len(s.Slots) {
		return 0, false, nil
	}
	slot := s.Slots[s.pos]
	s.pos++
	return slot, true, nil
}

// orderedHits wraps a Hits source and fails on the first slot that is not
// strictly greater than its predecessor.
type orderedHits struct {
	src  Hits
	last int
	seen bool
}

func newOrderedHits(src Hits) *orderedHits {
	return &orderedHits{src: src}
}

func (o *orderedHits) Next() (int, bool, error) {
	slot, ok, err := o.src.Next()
	if err != nil || !ok {
		return 0, false, err
	}
	if o.seen && slot <= o.last {
		return 0, false, fmt.Errorf("%w: slot %d after %d", apperrors.ErrOutOfOrderHits, slot, o.last)
	}
	o.seen = true
	o.last = slot
	return slot, true, nil
}
