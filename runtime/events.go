package runtime

import (
	"sync"
	"time"

	"github.com/nodeflowgo/nodeflow/node"
)

// EventKind classifies an Event published on the bus.
type EventKind int

const (
	NodeStarted EventKind = iota
	NodeCompleted
	Feedback
	Streamed
)

// Event is a single broadcast message. Subscribers may observe but never
// mutate engine state from a handler.
type Event struct {
	Kind      EventKind
	NodeID    string
	Timestamp time.Time

	// Feedback fields (Kind == Feedback).
	FeedbackKind node.FeedbackKind
	Message      string
	Tag          string

	// Streamed fields (Kind == Streamed).
	Socket string
	Value  any

	// Err is set for NodeCompleted when the node body returned an error.
	Err error
}

// Handler receives events published on an EventBus.
type Handler func(Event)

// Subscription is returned by Subscribe; calling Unsubscribe (or letting it
// drop, then calling it) removes the handler.
type Subscription struct {
	bus *EventBus
	id  uint64
}

// Unsubscribe removes the associated handler. Safe to call more than once.
func (s Subscription) Unsubscribe() {
	if s.bus == nil {
		return
	}
	s.bus.mu.Lock()
	delete(s.bus.handlers, s.id)
	s.bus.mu.Unlock()
}

// EventBus is a lock-free-to-publishers (mutex held only to snapshot the
// handler list), broadcast channel: every handler registered at publish
// time receives every event, synchronously. Handlers must not block the
// publisher for long; the engine itself never waits on a handler's side
// effects.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[uint64]Handler
	nextID   uint64
}

// NewEventBus creates an empty event bus.
func NewEventBus() *EventBus {
	return &EventBus{handlers: make(map[uint64]Handler)}
}

// Subscribe registers h and returns a handle that removes it.
func (b *EventBus) Subscribe(h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	return Subscription{bus: b, id: id}
}

// Publish broadcasts ev to every currently-subscribed handler. A panicking
// handler is recovered and does not affect the publisher or other
// handlers.
func (b *EventBus) Publish(ev Event) {
	b.mu.RLock()
	snapshot := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		snapshot = append(snapshot, h)
	}
	b.mu.RUnlock()

	for _, h := range snapshot {
		func(h Handler) {
			defer func() { _ = recover() }()
			h(ev)
		}(h)
	}
}
