// Package event provides the in-process domain event bus and the
// idempotency wrapper used by redelivery-sensitive handlers.
package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dealerops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Observer receives bus activity, typically for metrics
type Observer interface {
	EventPublished(ctx context.Context, eventType string)
	HandlerFailed(ctx context.Context, eventType string)
}

// InMemoryEventBus dispatches events synchronously to the registered
// handlers. Services publish after their transaction has committed, so a
// failing handler never rolls back the write that produced the event; its
// error is logged and the remaining handlers still run.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	observer Observer
	running  atomic.Bool
}

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithObserver attaches an Observer
func WithObserver(o Observer) BusOption {
	return func(b *InMemoryEventBus) {
		b.observer = o
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	b := &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger.Named("event_bus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.running.Store(true)
	return b
}

// Publish hands every event to its handlers in registration order.
// Events published after Stop are dropped.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if !b.running.Load() {
		b.logger.Warn("event bus stopped, dropping events", zap.Int("count", len(events)))
		return nil
	}
	for _, event := range events {
		if b.observer != nil {
			b.observer.EventPublished(ctx, event.EventType())
		}
		for _, handler := range b.registry.GetHandlers(event.EventType()) {
			if err := b.dispatch(ctx, handler, event); err != nil {
				if b.observer != nil {
					b.observer.HandlerFailed(ctx, event.EventType())
				}
				b.logger.Error("Event handler failed",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID().String()),
					zap.String("aggregate_id", event.AggregateID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers a handler; without explicit types the handler's own
// EventTypes are used
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start (re)opens the bus for publishing
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.running.Store(true)
	return nil
}

// Stop closes the bus. Dispatch is synchronous, so nothing is in flight
// once concurrent Publish calls return.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.running.Store(false)
	b.logger.Info("Event bus stopped")
	return nil
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
