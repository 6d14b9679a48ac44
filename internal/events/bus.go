package events

import (
	"github.com/kelindar/event"
)

// Bus wraps the kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(DeviceOpenedEvent{...})
func (b *Bus) Publish(ev Event) {
	// The generic Publish needs the concrete type, hence the switch.
	switch e := ev.(type) {
	case DeviceOpenedEvent:
		event.Publish(b.dispatcher, e)
	case DeviceClosedEvent:
		event.Publish(b.dispatcher, e)
	case DeviceRemovedEvent:
		event.Publish(b.dispatcher, e)
	case ControlRollbackEvent:
		event.Publish(b.dispatcher, e)
	case CaptureErrorEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function. The handler's
// parameter type determines which events it receives. Returns an
// unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e DeviceOpenedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(DeviceOpenedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceClosedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceRemovedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ControlRollbackEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(CaptureErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Unrecognized handler types subscribe to nothing.
		return func() {}
	}
}

// SubscribeToChannel subscribes to events of type T and forwards them to a
// channel. Sends are non-blocking; events are dropped when the channel is
// full. Returns an unsubscribe function.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return bus.Subscribe(func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
