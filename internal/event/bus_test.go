package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToEverySubscriber(t *testing.T) {
	bus := NewBus()
	first, unsubFirst := bus.Subscribe()
	defer unsubFirst()
	second, unsubSecond := bus.Subscribe()
	defer unsubSecond()

	bus.Publish(Event{Type: TypeLoggedIn, Principal: "employee", PrincipalID: 7})

	for _, ch := range []<-chan Event{first, second} {
		select {
		case e := <-ch:
			assert.Equal(t, TypeLoggedIn, e.Type)
			assert.Equal(t, int64(7), e.PrincipalID)
			assert.NotEmpty(t, e.ID)
			assert.NotEmpty(t, e.Timestamp)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe()
	unsubscribe()

	_, ok := <-ch
	require.False(t, ok)

	// Publishing with no subscribers is a no-op.
	bus.Publish(Event{Type: TypeLoggedOut})
	unsubscribe()
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for i := 0; i < 150; i++ {
		bus.Publish(Event{Type: TypeRegistered})
	}
	assert.Equal(t, 100, len(ch))
}
