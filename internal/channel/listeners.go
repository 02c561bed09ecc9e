package channel

import (
	"sort"
	"sync"
)

// ListenerSet is the listener registry shared by Host implementations. Embed
// it to get AddListener and Listeners. The zero value is ready to use.
type ListenerSet struct {
	lmu       sync.Mutex
	listeners map[uint64]Listener
	nextID    uint64
}

// AddListener attaches l and returns a function that detaches it. The
// returned function is safe to call more than once.
func (s *ListenerSet) AddListener(l Listener) func() {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	if s.listeners == nil {
		s.listeners = make(map[uint64]Listener)
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		delete(s.listeners, id)
	}
}

// Listeners reports how many listeners are attached.
func (s *ListenerSet) Listeners() int {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	return len(s.listeners)
}

// Snapshot returns the attached listeners in attach order.
func (s *ListenerSet) Snapshot() []Listener {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}

// Deliver hands in to every attached listener, in attach order, on the
// calling goroutine. Listeners attached or removed during delivery take
// effect on the next message.
func (s *ListenerSet) Deliver(in Inbound) {
	for _, l := range s.Snapshot() {
		l(in)
	}
}
