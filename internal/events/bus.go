package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
// Handlers run asynchronously.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(SessionEstablishedEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case DriverStartedEvent:
		event.Publish(b.dispatcher, e)
	case DriverStoppedEvent:
		event.Publish(b.dispatcher, e)
	case ConnectAttemptFailedEvent:
		event.Publish(b.dispatcher, e)
	case SessionEstablishedEvent:
		event.Publish(b.dispatcher, e)
	case SessionClosedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type it accepts and returns an
// unsubscribe function. Unknown handler types get a no-op unsubscribe.
// Usage: unsub := bus.Subscribe(func(e ConnectAttemptFailedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(DriverStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DriverStoppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ConnectAttemptFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SessionEstablishedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SessionClosedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
