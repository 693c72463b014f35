package service

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_FanOut(t *testing.T) {
	bus := NewEventBus()
	a := bus.Subscribe("s1")
	b := bus.Subscribe("")
	c := bus.Subscribe("s2")
	defer bus.Unsubscribe(a)
	defer bus.Unsubscribe(b)
	defer bus.Unsubscribe(c)

	bus.Publish(Event{Session: "s1", Kind: "view"})

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Len(t, c, 0)
	assert.Equal(t, "view", (<-a).Kind)
	assert.Equal(t, "s1", (<-b).Session)

	bus.Publish(Event{Kind: "view"})
	assert.Len(t, a, 1)
	assert.Len(t, c, 1)
}

func TestEventBus_OtherSessionsDoNotCrowdOut(t *testing.T) {
	bus := NewEventBus()
	a := bus.Subscribe("a")
	defer bus.Unsubscribe(a)

	for i := 0; i < 16; i++ {
		bus.Publish(Event{Session: "other", Kind: "view"})
	}
	bus.Publish(Event{Session: "a", Kind: "view"})

	require.Len(t, a, 1)
	assert.Equal(t, "a", (<-a).Session)
}

func TestEventBus_SlowSubscriberKeepsLatest(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe("s1")
	defer bus.Unsubscribe(ch)

	n := cap(ch) + 5
	for i := 0; i < n; i++ {
		bus.Publish(Event{Session: "s1", Kind: "view", ID: strconv.Itoa(i)})
	}

	require.Len(t, ch, cap(ch))
	var last Event
	for len(ch) > 0 {
		last = <-ch
	}
	assert.Equal(t, strconv.Itoa(n-1), last.ID)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus()
	ch := bus.Subscribe("")
	require.Equal(t, 1, bus.Subscribers())

	bus.Unsubscribe(ch)
	bus.Publish(Event{Kind: "view"})

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, bus.Subscribers())
}

func TestEvent_Matches(t *testing.T) {
	assert.True(t, Event{}.Matches("abc"))
	assert.True(t, Event{Session: "abc"}.Matches("abc"))
	assert.False(t, Event{Session: "xyz"}.Matches("abc"))
}

func TestLatLng_Point(t *testing.T) {
	p := LatLng{Lat: 44, Lng: -122}.Point()
	assert.Equal(t, -122.0, p.Lon())
	assert.Equal(t, 44.0, p.Lat())
}
