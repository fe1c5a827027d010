// Package eventbus provides a small instance-scoped publish/subscribe
// primitive that pkg/core uses to broadcast lifecycle events (started,
// STOP, RESET) to whatever handlers subscribe. No package in this module
// subscribes: core stops and resets the scheduler, the callback
// registry, the expectation store and the request log by calling them
// directly.
// Each server instance owns its own Bus; there is no process-wide
// singleton.
package eventbus

import "sync"

// EventType identifies a broadcast lifecycle event.
type EventType string

const (
	// EventStarted is published once all listener pipelines are bound
	// and serving.
	EventStarted EventType = "started"
	// EventStop is published once, before any subsystem begins shutting
	// down, so subscribers can stop admitting new work.
	EventStop EventType = "stop"
	// EventReset is published when the server's expectations, log, and
	// callback registrations are being cleared without unbinding ports.
	EventReset EventType = "reset"
)

// Event is the value delivered to every subscriber.
type Event struct {
	Type EventType
}

// Handler receives a published Event. Handlers run synchronously, in
// subscription order, on the Publish call's own goroutine; a handler
// that needs to do slow work should hand it off itself.
type Handler func(Event)

// Bus is an instance-scoped, non-global publish/subscribe channel.
type Bus struct {
	mu          sync.Mutex
	subscribers []subscription
	nextID      int64
}

type subscription struct {
	id      int64
	handler Handler
}

// New returns a fresh, empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers handler to receive every future Publish call. The
// returned function removes the subscription; calling it more than
// once is a no-op.
func (b *Bus) Subscribe(handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers = append(b.subscribers, subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, sub := range b.subscribers {
				if sub.id == id {
					b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers event to every currently-registered subscriber.
// Subscribers are copied out from under the lock before any handler
// runs, so a handler that subscribes or unsubscribes during delivery
// cannot deadlock against Publish and never sees a torn subscriber
// list.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	subs := make([]subscription, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.handler(event)
	}
}

// SubscriberCount reports the number of currently registered
// subscribers. Test/diagnostic use only.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
