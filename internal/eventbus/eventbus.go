// Package eventbus is the in-process publish/subscribe hub that fans typed
// state-change events out to connected sessions (websocket clients, tests).
package eventbus

import "sync"

// Kind names a state-change event. The values match the event names the
// socket transport emits to clients.
type Kind string

const (
	FileUploaded   Kind = "file_uploaded"
	FileDeleted    Kind = "file_deleted"
	FileDownloaded Kind = "file_downloaded"
	NewMessage     Kind = "new_message"
	UserTyping     Kind = "user_typing"
	UserStopTyping Kind = "user_stop_typing"
)

// Event is one published state change. Origin identifies the acting user for
// events where receivers must suppress self-notification (typing indicators);
// it is empty for events every subscriber should see.
type Event struct {
	Kind    Kind
	Origin  string
	Payload any
}

// Subscription is a live handle onto the bus. Events arrive on C in publish
// order until Unsubscribe closes it.
type Subscription struct {
	C  chan Event
	id uint64
}

// Bus delivers every published event to every currently-registered
// subscription. Delivery is at-most-once per live subscriber: a subscriber
// whose buffer is full loses the event rather than blocking the publisher.
type Bus struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]*Subscription
}

const subscriberBuffer = 64

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[uint64]*Subscription)}
}

// Subscribe registers a new consumer. It receives all events published after
// this call; there is no historical replay.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	s := &Subscription{C: make(chan Event, subscriberBuffer), id: b.next}
	b.subs[s.id] = s
	return s
}

// Unsubscribe removes the handle and closes its channel. Idempotent.
func (b *Bus) Unsubscribe(s *Subscription) {
	if s == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s.id]; !ok {
		return
	}
	delete(b.subs, s.id)
	close(s.C)
}

// Publish delivers e to every live subscription. Publishes are serialized
// under the bus lock, which gives all subscribers a single global order.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		select {
		case s.C <- e:
		default:
			// Slow subscriber: drop rather than block the publisher.
		}
	}
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
