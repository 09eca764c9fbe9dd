package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "colindex/pkg/errors"
	"colindex/pkg/kafka"
)

type recordingSink struct {
	events []kafka.Event
	err    error
}

func (r *recordingSink) Publish(_ context.Context, event kafka.Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func TestPublishIndex(t *testing.T) {
	sink := &recordingSink{}
	p := NewPublisher(sink)

	id, err := p.PublishIndex(context.Background(), "books", "doc-1", []EventField{
		{Name: "title", Text: "alpha"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "books/doc-1", sink.events[0].Key)

	ev, ok := sink.events[0].Value.(IngestEvent)
	require.True(t, ok)
	assert.Equal(t, id, ev.EventID)
	assert.Equal(t, OpIndex, ev.Op)
	assert.False(t, ev.IngestedAt.IsZero())
}

func TestPublishIndexEventIDsAreUnique(t *testing.T) {
	sink := &recordingSink{}
	p := NewPublisher(sink)

	fields := []EventField{{Name: "title", Text: "alpha"}}
	a, err := p.PublishIndex(context.Background(), "books", "", fields)
	require.NoError(t, err)
	b, err := p.PublishIndex(context.Background(), "books", "", fields)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPublishIndexValidatesBeforeSending(t *testing.T) {
	sink := &recordingSink{}
	p := NewPublisher(sink)

	_, err := p.PublishIndex(context.Background(), "books", "doc-1", nil)
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Empty(t, sink.events)
}

func TestPublishDelete(t *testing.T) {
	sink := &recordingSink{}
	p := NewPublisher(sink)

	id, err := p.PublishDelete(context.Background(), "books", "id", "42")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "books/id:42", sink.events[0].Key)
	ev := sink.events[0].Value.(IngestEvent)
	assert.Equal(t, OpDelete, ev.Op)
	assert.Equal(t, "id", ev.MatchField)
	assert.Equal(t, "42", ev.MatchTerm)
}

func TestPublishSinkFailurePropagates(t *testing.T) {
	sinkErr := errors.New("broker down")
	p := NewPublisher(&recordingSink{err: sinkErr})

	_, err := p.PublishIndex(context.Background(), "books", "doc-1", []EventField{
		{Name: "title", Text: "alpha"},
	})
	assert.ErrorIs(t, err, sinkErr)
}
