package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteStoresValue(t *testing.T) {
	s := New()

	seq := s.Begin(KindSummary)
	assert.True(t, s.Get(KindSummary).Loading)

	assert.True(t, s.Complete(KindSummary, seq, "payload", nil))

	state := s.Get(KindSummary)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
	assert.Equal(t, "payload", state.Value)
}

func TestCompleteRecordsError(t *testing.T) {
	s := New()

	seq := s.Begin(KindEvents)
	assert.True(t, s.Complete(KindEvents, seq, nil, errors.New("db down")))

	state := s.Get(KindEvents)
	assert.False(t, state.Loading)
	assert.Equal(t, "db down", state.Error)
	assert.Nil(t, state.Value)

	// A later success clears the error.
	seq = s.Begin(KindEvents)
	assert.True(t, s.Complete(KindEvents, seq, "data", nil))
	state = s.Get(KindEvents)
	assert.Empty(t, state.Error)
	assert.Equal(t, "data", state.Value)
}

func TestStaleCompleteIsDiscarded(t *testing.T) {
	s := New()

	first := s.Begin(KindTimeSeries)
	second := s.Begin(KindTimeSeries)

	// The newer request wins regardless of completion order.
	assert.True(t, s.Complete(KindTimeSeries, second, "fresh", nil))
	assert.False(t, s.Complete(KindTimeSeries, first, "stale", nil))

	assert.Equal(t, "fresh", s.Get(KindTimeSeries).Value)
}

func TestKindsAreIndependent(t *testing.T) {
	s := New()

	seq := s.Begin(KindSummary)
	require.True(t, s.Complete(KindSummary, seq, nil, errors.New("summary broke")))

	seq = s.Begin(KindEngagement)
	require.True(t, s.Complete(KindEngagement, seq, 42, nil))

	assert.Equal(t, "summary broke", s.Get(KindSummary).Error)
	assert.Empty(t, s.Get(KindEngagement).Error)
	assert.Equal(t, 42, s.Get(KindEngagement).Value)
}

func TestShouldLoad(t *testing.T) {
	s := New()

	assert.True(t, s.ShouldLoad(KindSummary), "empty slice wants a load")

	seq := s.Begin(KindSummary)
	assert.False(t, s.ShouldLoad(KindSummary), "in-flight request blocks a second load")

	s.Complete(KindSummary, seq, "data", nil)
	assert.False(t, s.ShouldLoad(KindSummary), "loaded data blocks re-loading")

	// A failed fetch leaves the slice empty, so loading is wanted again.
	seq = s.Begin(KindEngagement)
	s.Complete(KindEngagement, seq, nil, errors.New("nope"))
	assert.True(t, s.ShouldLoad(KindEngagement))
}

func TestSubscribeReceivesChanges(t *testing.T) {
	s := New()
	ch, cancel := s.Subscribe()
	defer cancel()

	seq := s.Begin(KindSummary)

	change := <-ch
	assert.Equal(t, KindSummary, change.Kind)
	assert.True(t, change.State.Loading)

	s.Complete(KindSummary, seq, "data", nil)
	change = <-ch
	assert.False(t, change.State.Loading)
	assert.Equal(t, "data", change.State.Value)
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	s := New()
	ch, cancel := s.Subscribe()

	cancel()
	cancel() // second cancel is a no-op

	_, open := <-ch
	assert.False(t, open)

	// Notifying with no subscribers must not panic.
	seq := s.Begin(KindSummary)
	s.Complete(KindSummary, seq, "data", nil)
}
