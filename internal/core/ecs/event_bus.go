package ecs

import (
	"fmt"
	"sync"

	"ecscore/internal/core/ecs/eclog"
	"ecscore/internal/core/ecs/ecsmetrics"
)

// Listener processes a single Event. A returned error is a ListenerFailure:
// it is caught and logged at the bus boundary and never aborts the drain.
type Listener func(Event) error

// subscription records a registered Listener; the unsubscribe function
// returned by Subscribe removes it by id.
type subscription struct {
	id       uint64
	eventTyp string
	listener Listener
}

// EventBus is a queue-then-drain pub/sub substrate. emit enqueues; drain
// runs every queued event to completion, one at a time, invoking matching
// listeners synchronously in subscription order. Events emitted inside a
// handler are appended to the same queue and processed before drain
// returns (FIFO), so a cyclic subscriber graph loops indefinitely unless
// bounded by WorldConfig.MaxEventCascadeDepth.
type EventBus struct {
	mutex     sync.Mutex
	subs      map[string][]*subscription
	queue     []Event
	nextSubID uint64
	maxDepth  int
	log       *eclog.Logger
	metrics   *ecsmetrics.Metrics
}

// NewEventBus creates an empty bus. maxDepth bounds the number of events a
// single Drain call delivers, counting every event it dequeues (cascaded or
// not); events dequeued past the cap are dropped. 0 disables the cap. log
// and metrics may be nil.
func NewEventBus(maxDepth int, log *eclog.Logger, metrics *ecsmetrics.Metrics) *EventBus {
	return &EventBus{
		subs:     make(map[string][]*subscription),
		maxDepth: maxDepth,
		log:      log,
		metrics:  metrics,
	}
}

// Emit enqueues event for the next Drain. If event.Timestamp is zero it is
// stamped with the current monotonic millisecond clock.
func (b *EventBus) Emit(event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = nowMillis()
	}

	b.mutex.Lock()
	b.queue = append(b.queue, event)
	b.mutex.Unlock()

	if b.metrics != nil {
		b.metrics.EventsEmitted.WithLabelValues(event.Type).Inc()
	}
}

// Subscribe registers listener for eventType, returning an unsubscribe
// function. Listeners for the same event type fire in subscription order.
func (b *EventBus) Subscribe(eventType string, listener Listener) func() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.nextSubID++
	sub := &subscription{id: b.nextSubID, eventTyp: eventType, listener: listener}
	b.subs[eventType] = append(b.subs[eventType], sub)

	return func() {
		b.mutex.Lock()
		defer b.mutex.Unlock()
		list := b.subs[eventType]
		for i, s := range list {
			if s.id == sub.id {
				b.subs[eventType] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
}

// Drain runs every queued event to completion. Listener errors are caught
// and logged; the drain continues with the next listener and the next event.
func (b *EventBus) Drain() {
	depth := 0
	for {
		b.mutex.Lock()
		if len(b.queue) == 0 {
			b.mutex.Unlock()
			return
		}
		event := b.queue[0]
		b.queue = b.queue[1:]
		listeners := append([]*subscription(nil), b.subs[event.Type]...)
		b.mutex.Unlock()

		depth++
		if b.maxDepth > 0 && depth > b.maxDepth {
			if b.metrics != nil {
				b.metrics.EventsDropped.Inc()
			}
			if b.log != nil {
				b.log.WithComponent("eventbus").WithField("event_type", event.Type).
					Warn("dropping event: MaxEventCascadeDepth exceeded")
			}
			continue
		}

		for _, sub := range listeners {
			b.invoke(sub, event)
		}
	}
}

func (b *EventBus) invoke(sub *subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.reportListenerFailure(event.Type, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := sub.listener(event); err != nil {
		b.reportListenerFailure(event.Type, err)
	}
}

func (b *EventBus) reportListenerFailure(eventType string, err error) {
	if b.log != nil {
		b.log.ListenerFailure(eventType, err)
	}
	_ = NewListenerFailureError(eventType, err)
}

// QueueLen returns the number of events currently queued (mostly for tests
// and debug surfaces; not part of the spec contract itself).
func (b *EventBus) QueueLen() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.queue)
}
