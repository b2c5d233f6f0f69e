package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	bus := New()
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Publish(Event{Kind: FileUploaded, Payload: "x"})

	for _, sub := range []*Subscription{a, b} {
		select {
		case e := <-sub.C:
			assert.Equal(t, FileUploaded, e.Kind)
			assert.Equal(t, "x", e.Payload)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestSubscribeSeesOnlySubsequentEvents(t *testing.T) {
	bus := New()
	bus.Publish(Event{Kind: FileUploaded})

	sub := bus.Subscribe()
	bus.Publish(Event{Kind: FileDeleted})

	e := <-sub.C
	assert.Equal(t, FileDeleted, e.Kind)
	assert.Empty(t, sub.C)
}

func TestPublishOrderPreserved(t *testing.T) {
	bus := New()
	sub := bus.Subscribe()

	kinds := []Kind{FileUploaded, FileDownloaded, FileDeleted, NewMessage}
	for _, k := range kinds {
		bus.Publish(Event{Kind: k})
	}

	for _, want := range kinds {
		e := <-sub.C
		assert.Equal(t, want, e.Kind)
	}
}

func TestUnsubscribeIdempotent(t *testing.T) {
	bus := New()
	sub := bus.Subscribe()
	require.Equal(t, 1, bus.Len())

	bus.Unsubscribe(sub)
	bus.Unsubscribe(sub)
	bus.Unsubscribe(nil)
	assert.Equal(t, 0, bus.Len())

	// Channel is closed exactly once.
	_, open := <-sub.C
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	bus.Publish(Event{Kind: FileUploaded})
}

func TestSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	bus := New()
	slow := bus.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			bus.Publish(Event{Kind: NewMessage, Payload: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on slow subscriber")
	}
	bus.Unsubscribe(slow)
}

func TestConcurrentPublishAndSubscribe(t *testing.T) {
	bus := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := bus.Subscribe()
			for j := 0; j < 50; j++ {
				bus.Publish(Event{Kind: FileDownloaded})
			}
			bus.Unsubscribe(sub)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, bus.Len())
}
