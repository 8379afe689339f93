package core

import "sync"

// Pipeline event codes. Applications should use codes beyond 255.
type EventCode int

const (
	// A single asset finished materializing.
	EVENT_CODE_ASSET_LOADED EventCode = 0x01

	// A single asset failed to load.
	EVENT_CODE_ASSET_FAILED EventCode = 0x02

	// An asset was unloaded from its loader.
	EVENT_CODE_ASSET_UNLOADED EventCode = 0x03

	// A watched asset source changed on disk and was reloaded.
	EVENT_CODE_ASSET_RELOADED EventCode = 0x04

	// An asynchronous directory load fully completed.
	EVENT_CODE_DIRECTORY_COMPLETE EventCode = 0x05

	MAX_EVENT_CODE EventCode = 0xFF
)

// EventContext carries the payload of a pipeline event.
type EventContext struct {
	// Category is the JSON key of the loader involved, if any.
	Category string
	// Key is the asset key involved, if any.
	Key string
	// Path is the backing file, if the event concerns one.
	Path string
	// Success reports whether the operation behind the event succeeded.
	Success bool
}

// Should return true if handled; handled events stop propagating.
type FnOnEvent func(code EventCode, sender interface{}, listener interface{}, data EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventBus dispatches pipeline events to registered listeners. Unlike the
// loader tables, events may be fired from worker goroutines, so the bus
// carries its own lock.
type EventBus struct {
	mu         sync.RWMutex
	registered map[EventCode][]*registeredEvent
}

func NewEventBus() *EventBus {
	return &EventBus{
		registered: make(map[EventCode][]*registeredEvent),
	}
}

// Register listens for events sent with the provided code. Duplicate
// listener registrations for a code are rejected and return false.
func (b *EventBus) Register(code EventCode, listener interface{}, onEvent FnOnEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.registered[code] {
		if e.listener == listener {
			return false
		}
	}
	b.registered[code] = append(b.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

// Unregister removes a listener for the provided code. Returns false if no
// matching registration is found.
func (b *EventBus) Unregister(code EventCode, listener interface{}) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.registered[code]
	for i, e := range events {
		if e.listener == listener {
			b.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// Fire sends an event to listeners of the given code. If a handler returns
// true, the event is considered handled and is not passed on.
func (b *EventBus) Fire(code EventCode, sender interface{}, data EventContext) bool {
	b.mu.RLock()
	events := make([]*registeredEvent, len(b.registered[code]))
	copy(events, b.registered[code])
	b.mu.RUnlock()

	for _, e := range events {
		if e.callback(code, sender, e.listener, data) {
			return true
		}
	}
	return false
}
