package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// EventRecorder is an in-memory shared.EventPublisher that keeps every
// published event
type EventRecorder struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

// NewEventRecorder creates an EventRecorder
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

// Publish records the events
func (r *EventRecorder) Publish(_ context.Context, events ...shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return r.err
}

// FailWith makes Publish return err after recording
func (r *EventRecorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Events returns a copy of the recorded events
func (r *EventRecorder) Events() []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.DomainEvent, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events with the given type
func (r *EventRecorder) OfType(eventType string) []shared.DomainEvent {
	out := make([]shared.DomainEvent, 0)
	for _, e := range r.Events() {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// MockEventHandler records the events it handles
type MockEventHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewMockEventHandler creates a handler subscribed to the given types
func NewMockEventHandler(eventTypes ...string) *MockEventHandler {
	return &MockEventHandler{eventTypes: eventTypes}
}

// EventTypes returns the subscribed event types
func (h *MockEventHandler) EventTypes() []string {
	return h.eventTypes
}

// Handle records the event
func (h *MockEventHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

// SetError makes Handle return err
func (h *MockEventHandler) SetError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// HandledCount returns how many events were handled
func (h *MockEventHandler) HandledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

// Handled returns a copy of the handled events
func (h *MockEventHandler) Handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]shared.DomainEvent, len(h.handled))
	copy(out, h.handled)
	return out
}

// TestEvent is a minimal domain event
type TestEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

// NewTestEvent creates a TestEvent with a fresh ID
func NewTestEvent(eventType string) *TestEvent {
	return NewTestEventWithID(uuid.New(), eventType)
}

// NewTestEventWithID creates a TestEvent with the given ID
func NewTestEventWithID(id uuid.UUID, eventType string) *TestEvent {
	return &TestEvent{
		BaseDomainEvent: shared.BaseDomainEvent{
			ID:        id,
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			AggID:     uuid.New(),
			AggType:   "TestAggregate",
		},
		Data: "test-data",
	}
}
