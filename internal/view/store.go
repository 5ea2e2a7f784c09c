package view

import (
	"slices"
	"sync"
)

// Subscriber receives every new state snapshot, in subscription order.
type Subscriber func(State)

// Store owns the canonical view state. Updates go through Set as partial
// merges; subscribers are notified synchronously and strictly in the order
// updates were applied. Re-entrant Set calls made from inside a subscriber
// are queued and dispatched after the current notification pass, so no
// notification is skipped or duplicated and a self-triggering subscriber
// cannot recurse.
type Store struct {
	mu        sync.Mutex
	state     State
	initial   State
	subs      []Subscriber
	notifying bool
	queue     []Partial
}

// NewStore creates a container starting at the given initial state. Reset
// transitions return to exactly this state.
func NewStore(initial State) *Store {
	return &Store{state: initial.clone(), initial: initial.clone()}
}

// Get returns the current snapshot.
func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn for every future update.
func (s *Store) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Set merges the partial over the current state and notifies subscribers
// with the resulting snapshot. Transitions that change nothing are dropped,
// which breaks subscriber loops that re-issue their own trigger.
func (s *Store) Set(p Partial) {
	s.mu.Lock()
	s.queue = append(s.queue, p)
	if s.notifying {
		// Re-entrant call from a subscriber: the outer pass drains it.
		s.mu.Unlock()
		return
	}
	s.notifying = true

	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]

		merged := s.apply(next)
		if merged.equal(s.state) {
			continue
		}
		merged.Version = s.state.Version + 1
		s.state = merged

		subs := slices.Clone(s.subs)
		snapshot := s.state.clone()
		s.mu.Unlock()
		for _, fn := range subs {
			fn(snapshot)
		}
		s.mu.Lock()
	}

	s.notifying = false
	s.mu.Unlock()
}

// ConsumeCamera clears the pending camera command without a notification.
// Called by the render step after executing the command, so the next
// snapshot no longer carries it.
func (s *Store) ConsumeCamera() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Camera = Camera{}
}

// apply computes the merged state for one partial. Caller holds the lock.
func (s *Store) apply(p Partial) State {
	if p.Reset {
		// Reset short-circuits: other keys in the same partial are ignored.
		return s.initial.clone()
	}

	next := s.state.clone()
	if p.Opacity != nil {
		next.Opacity = *p.Opacity
	}
	if p.FilterLevel != nil {
		next.FilterLevel = *p.FilterLevel
	}
	if p.SelectedGroup != nil {
		next.SelectedGroup = *p.SelectedGroup
	}
	if len(p.Overlays) > 0 && next.Overlays == nil {
		next.Overlays = make(map[string]bool, len(p.Overlays))
	}
	for name, visible := range p.Overlays {
		next.Overlays[name] = visible
	}
	if p.Camera != nil {
		next.Camera = *p.Camera
	}
	return next
}

// Ptr is a small helper for building partials from literal values.
func Ptr[T any](v T) *T { return &v }
