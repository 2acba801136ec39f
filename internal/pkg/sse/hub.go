package sse

import (
	"sync"
)

// Event is one message pushed to an employee's live notification stream.
type Event struct {
	EmployeeID string
	Name       string
	Data       any
}

// Hub fans events out to the open streams of connected employees. One
// employee may hold several streams (multiple browser tabs); each stream
// gets its own buffered channel.
type Hub struct {
	mu      sync.RWMutex
	streams map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		streams: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe opens a stream for the employee and returns its channel along
// with the function that tears the stream down again.
func (h *Hub) Subscribe(employeeID string) (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 16)
	if h.streams[employeeID] == nil {
		h.streams[employeeID] = make(map[chan Event]struct{})
	}
	h.streams[employeeID][ch] = struct{}{}

	cleanup := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.streams[employeeID], ch)
		close(ch)
		if len(h.streams[employeeID]) == 0 {
			delete(h.streams, employeeID)
		}
	}

	return ch, cleanup
}

// Publish delivers an event to every open stream of one employee. A stream
// whose buffer is full is skipped; a slow client must never block the
// notification workers.
func (h *Hub) Publish(employeeID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.streams[employeeID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// PublishToMany delivers an event to each listed employee.
func (h *Hub) PublishToMany(employeeIDs []string, event Event) {
	for _, id := range employeeIDs {
		ev := event
		ev.EmployeeID = id
		h.Publish(id, ev)
	}
}
