package service

import "sync"

// Event represents a state change that connected pages should render.
type Event struct {
	Session string // page session ID; empty means every session
	Kind    string // e.g. "view", "map", "error"
	ID      string // park ID, if the event concerns one park
}

// Matches reports whether the event is addressed to session.
func (e Event) Matches(session string) bool {
	return e.Session == "" || e.Session == session
}

// EventBus is a simple fan-out pub/sub for session change events.
// Subscriptions are keyed by session so one page's stream never queues
// another page's events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]string
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]string)}
}

// Publish sends an event to the subscribers it is addressed to
// (non-blocking). A full subscriber loses its oldest queued event, never the
// newest.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch, session := range b.subs {
		if session != "" && !e.Matches(session) {
			continue
		}
		select {
		case ch <- e:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- e:
		default:
			// a concurrent Publish refilled the slot; that wake-up still
			// renders the latest state
		}
	}
}

// Subscribe returns a buffered channel that receives the events addressed
// to session. An empty session receives every event.
func (b *EventBus) Subscribe(session string) chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = session
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}

// Subscribers returns the number of live subscriptions.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
