package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/dealerops/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingObserver struct {
	mu        sync.Mutex
	published map[string]int
	failed    map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{published: map[string]int{}, failed: map[string]int{}}
}

func (o *countingObserver) EventPublished(_ context.Context, eventType string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.published[eventType]++
}

func (o *countingObserver) HandlerFailed(_ context.Context, eventType string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed[eventType]++
}

type panickingHandler struct{}

func (panickingHandler) EventTypes() []string { return []string{"CommitmentMissed"} }
func (panickingHandler) Handle(context.Context, shared.DomainEvent) error {
	panic("boom")
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to handlers of the event type only", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		missed := testutil.NewMockEventHandler("CommitmentMissed")
		consumed := testutil.NewMockEventHandler("CommitmentConsumed")
		bus.Subscribe(missed)
		bus.Subscribe(consumed)

		require.NoError(t, bus.Publish(ctx,
			testutil.NewTestEvent("CommitmentMissed"),
			testutil.NewTestEvent("CommitmentMissed"),
		))

		assert.Equal(t, 2, missed.HandledCount())
		assert.Zero(t, consumed.HandledCount())
	})

	t.Run("explicit types override the handler's own", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := testutil.NewMockEventHandler("CommitmentMissed")
		bus.Subscribe(h, "OrderCreated")

		require.NoError(t, bus.Publish(ctx, testutil.NewTestEvent("CommitmentMissed"), testutil.NewTestEvent("OrderCreated")))
		require.Len(t, h.Handled(), 1)
		assert.Equal(t, "OrderCreated", h.Handled()[0].EventType())
	})

	t.Run("wildcard handler sees every event", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		all := testutil.NewMockEventHandler()
		bus.Subscribe(all)

		require.NoError(t, bus.Publish(ctx, testutil.NewTestEvent("A"), testutil.NewTestEvent("B")))
		assert.Equal(t, 2, all.HandledCount())
	})

	t.Run("a failing handler does not stop the others", func(t *testing.T) {
		observer := newCountingObserver()
		bus := NewInMemoryEventBus(zap.NewNop(), WithObserver(observer))
		failing := testutil.NewMockEventHandler("DealerHealthDropped")
		failing.SetError(errors.New("db down"))
		healthy := testutil.NewMockEventHandler("DealerHealthDropped")
		bus.Subscribe(failing)
		bus.Subscribe(healthy)

		err := bus.Publish(ctx, testutil.NewTestEvent("DealerHealthDropped"))
		assert.NoError(t, err)
		assert.Equal(t, 1, healthy.HandledCount())
		assert.Equal(t, 1, observer.published["DealerHealthDropped"])
		assert.Equal(t, 1, observer.failed["DealerHealthDropped"])
	})

	t.Run("a panicking handler is recovered", func(t *testing.T) {
		observer := newCountingObserver()
		bus := NewInMemoryEventBus(zap.NewNop(), WithObserver(observer))
		after := testutil.NewMockEventHandler("CommitmentMissed")
		bus.Subscribe(panickingHandler{})
		bus.Subscribe(after)

		assert.NotPanics(t, func() {
			_ = bus.Publish(ctx, testutil.NewTestEvent("CommitmentMissed"))
		})
		assert.Equal(t, 1, after.HandledCount())
		assert.Equal(t, 1, observer.failed["CommitmentMissed"])
	})

	t.Run("events are dropped after Stop and flow again after Start", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := testutil.NewMockEventHandler("A")
		bus.Subscribe(h)

		require.NoError(t, bus.Stop(ctx))
		require.NoError(t, bus.Publish(ctx, testutil.NewTestEvent("A")))
		assert.Zero(t, h.HandledCount())

		require.NoError(t, bus.Start(ctx))
		require.NoError(t, bus.Publish(ctx, testutil.NewTestEvent("A")))
		assert.Equal(t, 1, h.HandledCount())
	})

	t.Run("unsubscribed handler receives nothing", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := testutil.NewMockEventHandler("A")
		bus.Subscribe(h)
		bus.Unsubscribe(h)

		require.NoError(t, bus.Publish(ctx, testutil.NewTestEvent("A")))
		assert.Zero(t, h.HandledCount())
	})
}

func TestHandlerRegistry(t *testing.T) {
	t.Run("duplicate registration is ignored", func(t *testing.T) {
		r := NewHandlerRegistry()
		h := testutil.NewMockEventHandler()
		r.Register(h, "A")
		r.Register(h, "A", "B")

		assert.Len(t, r.GetHandlers("A"), 1)
		assert.Len(t, r.GetHandlers("B"), 1)
		assert.Equal(t, 1, r.Len())
	})

	t.Run("typed handlers come before wildcard handlers", func(t *testing.T) {
		r := NewHandlerRegistry()
		wildcard := testutil.NewMockEventHandler()
		typed := testutil.NewMockEventHandler()
		r.Register(wildcard)
		r.Register(typed, "A")

		handlers := r.GetHandlers("A")
		require.Len(t, handlers, 2)
		assert.Same(t, typed, handlers[0])
		assert.Same(t, wildcard, handlers[1])
		assert.Len(t, r.GetHandlers("other"), 1)
	})

	t.Run("unregister removes empty type entries", func(t *testing.T) {
		r := NewHandlerRegistry()
		h := testutil.NewMockEventHandler()
		r.Register(h, "A", "B")
		r.Unregister(h)

		assert.Empty(t, r.GetHandlers("A"))
		assert.Zero(t, r.Len())
	})
}
