package testutil

import (
	"context"
	"slices"
	"sync"

	"github.com/mcoot/tictactoe-go/internal/model"
)

// EventRecorder collects every event delivered to it, in arrival order
type EventRecorder struct {
	mu     sync.Mutex
	events []model.Event
}

// NewEventRecorder creates an empty recorder
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// Handle appends the event; it has the shape of an event bus handler
func (r *EventRecorder) Handle(_ context.Context, event model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Publish appends the event, letting the recorder stand in for the bus
func (r *EventRecorder) Publish(event model.Event) {
	_ = r.Handle(context.Background(), event)
}

// Events returns a copy of everything recorded so far
func (r *EventRecorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Types returns the types of everything recorded so far
func (r *EventRecorder) Types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]model.EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

// OfType returns recorded events of the given type
func (r *EventRecorder) OfType(t model.EventType) []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Reset discards everything recorded so far
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
