package ecs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_EmitDrainDeliversOnce(t *testing.T) {
	bus := NewEventBus(0, nil, nil)

	var received []string
	bus.Subscribe("A", func(e Event) error {
		received = append(received, e.Type)
		return nil
	})

	bus.Emit(Event{Type: "A"})
	bus.Drain()
	bus.Drain()

	require.Equal(t, []string{"A"}, received, "emit(x); drain(); drain() must deliver x exactly once")
}

func TestEventBus_SubscriptionOrder(t *testing.T) {
	bus := NewEventBus(0, nil, nil)

	var order []string
	bus.Subscribe("A", func(e Event) error {
		order = append(order, "first")
		return nil
	})
	bus.Subscribe("A", func(e Event) error {
		order = append(order, "second")
		return nil
	})

	bus.Emit(Event{Type: "A"})
	bus.Drain()

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestEventBus_Cascade(t *testing.T) {
	bus := NewEventBus(0, nil, nil)

	var fired []string
	bus.Subscribe("A", func(e Event) error {
		fired = append(fired, "A")
		bus.Emit(Event{Type: "C"})
		return nil
	})
	bus.Subscribe("C", func(e Event) error {
		fired = append(fired, "C")
		return nil
	})

	bus.Emit(Event{Type: "A"})
	bus.Drain()

	require.Equal(t, []string{"A", "C"}, fired, "a cascaded emit must drain within the same Drain call")
	assert.Equal(t, 0, bus.QueueLen(), "queue must be empty once Drain returns")
}

func TestEventBus_ListenerErrorIsolatedAndDrainContinues(t *testing.T) {
	bus := NewEventBus(0, nil, nil)

	var secondRan bool
	bus.Subscribe("A", func(e Event) error {
		return errors.New("boom")
	})
	bus.Subscribe("A", func(e Event) error {
		secondRan = true
		return nil
	})

	bus.Emit(Event{Type: "A"})
	assert.NotPanics(t, func() { bus.Drain() })
	assert.True(t, secondRan, "a listener error must not stop later listeners from running")
}

func TestEventBus_ListenerPanicIsolatedAndDrainContinues(t *testing.T) {
	bus := NewEventBus(0, nil, nil)

	var secondRan bool
	bus.Subscribe("A", func(e Event) error {
		panic("boom")
	})
	bus.Subscribe("A", func(e Event) error {
		secondRan = true
		return nil
	})

	bus.Emit(Event{Type: "A"})
	assert.NotPanics(t, func() { bus.Drain() })
	assert.True(t, secondRan)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	bus := NewEventBus(0, nil, nil)

	var calls int
	unsubscribe := bus.Subscribe("A", func(e Event) error {
		calls++
		return nil
	})

	bus.Emit(Event{Type: "A"})
	bus.Drain()
	require.Equal(t, 1, calls)

	unsubscribe()

	bus.Emit(Event{Type: "A"})
	bus.Drain()
	require.Equal(t, 1, calls, "an unsubscribed listener must not fire")
}

func TestEventBus_MaxCascadeDepthDropsExcessEvents(t *testing.T) {
	bus := NewEventBus(2, nil, nil)

	var fired int
	bus.Subscribe("loop", func(e Event) error {
		fired++
		bus.Emit(Event{Type: "loop"})
		return nil
	})

	bus.Emit(Event{Type: "loop"})
	bus.Drain()

	assert.LessOrEqual(t, fired, 3, "a depth cap must eventually stop a cyclic cascade")
}
