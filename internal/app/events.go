// Package app runs the background service: it answers messages from page
// and editor contexts, owns capture and persistence, and opens windows.
package app

import "sync"

// EventType identifies different application events.
type EventType int

const (
	EventScreenshotSaved EventType = iota
	EventScreenshotAnnotated
	EventScreenshotDeleted
	EventTextSelected
	EventAnnotationOpened
	EventSettingsChanged
	EventStorageChanged
)

func (e EventType) String() string {
	switch e {
	case EventScreenshotSaved:
		return "screenshot-saved"
	case EventScreenshotAnnotated:
		return "screenshot-annotated"
	case EventScreenshotDeleted:
		return "screenshot-deleted"
	case EventTextSelected:
		return "text-selected"
	case EventAnnotationOpened:
		return "annotation-opened"
	case EventSettingsChanged:
		return "settings-changed"
	case EventStorageChanged:
		return "storage-changed"
	default:
		return "unknown"
	}
}

// EventListener is called when an event occurs.
type EventListener func(data any)

// Events is a synchronous listener registry. Listeners run on the emitting
// goroutine.
type Events struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventListener
}

// NewEvents creates an empty registry.
func NewEvents() *Events {
	return &Events{listeners: make(map[EventType][]EventListener)}
}

// On registers an event listener for the specified event type.
func (e *Events) On(event EventType, listener EventListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[event] = append(e.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (e *Events) Emit(event EventType, data any) {
	e.mu.RLock()
	listeners := e.listeners[event]
	e.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}
