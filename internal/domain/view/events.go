package view

import (
	"sync"

	"github.com/panekit/panekit/internal/shared/id"
	"github.com/panekit/panekit/internal/shared/types"
)

// EventKind labels registry-level notifications.
type EventKind string

const (
	EventCreated    EventKind = "created"
	EventContent    EventKind = "content"
	EventTitle      EventKind = "title"
	EventVisibility EventKind = "visibility"
	EventDisposed   EventKind = "disposed"
)

// Event is a registry-level notification carrying the view snapshot taken
// right after the change applied.
type Event struct {
	Kind EventKind
	View types.View
}

// EventFunc consumes registry events.
type EventFunc func(ev Event)

type eventHub struct {
	mu        sync.RWMutex
	listeners map[string]EventFunc
}

func newEventHub() *eventHub {
	return &eventHub{listeners: make(map[string]EventFunc)}
}

// Events registers a listener for all registry events. The websocket layer
// attaches here to fan view changes out to embedder and renderer streams.
func (m *Manager) Events(fn EventFunc) *Subscription {
	subID := id.NewSubscriptionID().String()

	m.events.mu.Lock()
	m.events.listeners[subID] = fn
	m.events.mu.Unlock()

	return &Subscription{
		id: subID,
		cancel: func() {
			m.events.mu.Lock()
			delete(m.events.listeners, subID)
			m.events.mu.Unlock()
		},
	}
}

// emit delivers an event to all listeners. Callers must not hold any
// registry or instance lock.
func (m *Manager) emit(kind EventKind, snapshot types.View) {
	m.events.mu.RLock()
	fns := make([]EventFunc, 0, len(m.events.listeners))
	for _, fn := range m.events.listeners {
		fns = append(fns, fn)
	}
	m.events.mu.RUnlock()

	ev := Event{Kind: kind, View: snapshot}
	for _, fn := range fns {
		fn(ev)
	}
}
