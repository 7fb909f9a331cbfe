// Package store holds the last-fetched dashboard data together with
// per-kind loading and error flags, and fans change notices out to
// subscribers. Each data kind is an independent slice, so a failing fetch
// of one kind never disturbs another.
package store

import "sync"

// Kind names one independently tracked data slice.
type Kind string

const (
	KindSummary    Kind = "summary"
	KindTimeSeries Kind = "timeseries"
	KindEvents     Kind = "events"
	KindEngagement Kind = "engagement"
)

// State is a snapshot of one slice.
type State struct {
	Value   interface{} `json:"value,omitempty"`
	Loading bool        `json:"loading"`
	Error   string      `json:"error,omitempty"`
}

// Change is delivered to subscribers whenever a slice transitions.
type Change struct {
	Kind  Kind  `json:"kind"`
	State State `json:"state"`
}

type slice struct {
	state     State
	latestSeq uint64
}

// Store tracks the four dashboard data kinds. Fetches are fenced: every
// Begin hands out a sequence number, and a Complete carrying a sequence
// older than the latest issued for that kind is discarded, so overlapping
// in-flight requests cannot overwrite newer data with staler responses.
type Store struct {
	mu      sync.Mutex
	slices  map[Kind]*slice
	nextSeq uint64

	subs    map[int]chan Change
	nextSub int
}

func New() *Store {
	return &Store{
		slices: map[Kind]*slice{},
		subs:   map[int]chan Change{},
	}
}

func (s *Store) slot(kind Kind) *slice {
	sl := s.slices[kind]
	if sl == nil {
		sl = &slice{}
		s.slices[kind] = sl
	}
	return sl
}

// Begin marks the slice loading and returns the fencing sequence for the
// request being issued.
func (s *Store) Begin(kind Kind) uint64 {
	s.mu.Lock()
	sl := s.slot(kind)
	s.nextSeq++
	seq := s.nextSeq
	sl.latestSeq = seq
	sl.state.Loading = true
	change := Change{Kind: kind, State: sl.state}
	s.mu.Unlock()

	s.notify(change)
	return seq
}

// Complete records a finished fetch. It reports false (and changes nothing)
// when a newer request has been issued since seq was handed out.
func (s *Store) Complete(kind Kind, seq uint64, value interface{}, err error) bool {
	s.mu.Lock()
	sl := s.slot(kind)
	if seq < sl.latestSeq {
		s.mu.Unlock()
		return false
	}
	sl.state.Loading = false
	if err != nil {
		sl.state.Error = err.Error()
	} else {
		sl.state.Error = ""
		sl.state.Value = value
	}
	change := Change{Kind: kind, State: sl.state}
	s.mu.Unlock()

	s.notify(change)
	return true
}

// ShouldLoad implements the load-once guard: true only when the slice has
// neither data nor an in-flight request. Kinds that re-fetch on every
// dependency change skip this check.
func (s *Store) ShouldLoad(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := s.slot(kind)
	return sl.state.Value == nil && !sl.state.Loading
}

// Get returns a snapshot of one slice.
func (s *Store) Get(kind Kind) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slot(kind).state
}

// Subscribe registers a change listener. The channel is buffered; a slow
// subscriber drops notices rather than blocking the store. The returned
// cancel function must be called to release the subscription.
func (s *Store) Subscribe() (<-chan Change, func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Change, 16)
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Store) notify(change Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		select {
		case sub <- change:
		default:
		}
	}
}
