package mapview

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the channel capacity of a subscription created with a
// non-positive buffer.
const DefaultBuffer = 16

// Event describes a change to the map surface.
type Event struct {
	Kind string // "tiles", "layer", "bounds", "control", "notice", "loaded"
	ID   string // layer or control ID, empty otherwise
}

// EventBus fans surface changes out to subscribers. A subscriber whose
// buffer is full misses the event; Publish never blocks the surface.
type EventBus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[*Subscription]struct{})}
}

// Subscription is one listener on an EventBus.
type Subscription struct {
	// C receives events until Close is called.
	C <-chan Event

	ch      chan Event
	bus     *EventBus
	once    sync.Once
	dropped atomic.Int64
}

// Subscribe registers a listener with the given buffer capacity.
func (b *EventBus) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan Event, buffer)
	s := &Subscription{C: ch, ch: ch, bus: b}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Publish delivers e to every subscriber with room in its buffer.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		select {
		case s.ch <- e:
		default:
			s.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close removes the subscription and closes C. Later calls do nothing.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
		close(s.ch)
	})
}

// Dropped returns how many events were missed because C was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}
