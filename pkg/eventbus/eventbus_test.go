package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishDeliversToAllSubscribers(t *testing.T) {
	b := New()
	var got1, got2 []EventType
	b.Subscribe(func(e Event) { got1 = append(got1, e.Type) })
	b.Subscribe(func(e Event) { got2 = append(got2, e.Type) })

	b.Publish(Event{Type: EventStop})
	b.Publish(Event{Type: EventReset})

	assert.Equal(t, []EventType{EventStop, EventReset}, got1)
	assert.Equal(t, []EventType{EventStop, EventReset}, got2)
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	var count int
	unsubscribe := b.Subscribe(func(e Event) { count++ })

	b.Publish(Event{Type: EventStop})
	unsubscribe()
	b.Publish(Event{Type: EventStop})

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	b := New()
	unsubscribe := b.Subscribe(func(e Event) {})
	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestBus_HandlerMayUnsubscribeDuringPublishWithoutDeadlock(t *testing.T) {
	b := New()
	var unsubscribe func()
	var fired int
	unsubscribe = b.Subscribe(func(e Event) {
		fired++
		unsubscribe()
	})

	b.Publish(Event{Type: EventStop})
	b.Publish(Event{Type: EventStop})

	assert.Equal(t, 1, fired)
}
