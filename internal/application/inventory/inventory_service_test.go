package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dealerops/backend/internal/application/transaction"
	"github.com/dealerops/backend/internal/domain/inventory"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/dealerops/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, *testutil.MemStore, *testutil.EventRecorder) {
	t.Helper()
	store := testutil.NewMemStore()
	retry := transaction.RetryPolicy{MaxAttempts: 500, InitialInterval: time.Millisecond, MaxInterval: 4 * time.Millisecond}
	svc := NewService(store.InventoryRepo(), store, retry, zap.NewNop())
	events := testutil.NewEventRecorder()
	svc.SetEventPublisher(events)
	return svc, store, events
}

func stockItem(t *testing.T, store *testutil.MemStore, onHand, reserved, incoming int) *inventory.InventoryItem {
	t.Helper()
	item, err := inventory.NewInventoryItem(uuid.New(), "")
	require.NoError(t, err)
	item.OnHand, item.Reserved, item.Incoming = onHand, reserved, incoming
	store.PutItem(item)
	return item
}

func TestService_CheckATP(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)
	item := stockItem(t, store, 100, 30, 40)

	t.Run("can fulfill", func(t *testing.T) {
		atp, err := svc.CheckATP(ctx, item.ProductID, "main", 50)
		require.NoError(t, err)
		assert.Equal(t, 70, atp.Available)
		assert.True(t, atp.CanFulfill)
		assert.Equal(t, 0, atp.Shortfall)
		assert.Equal(t, inventory.DefaultLocation, atp.Location)
	})

	t.Run("shortfall is informational", func(t *testing.T) {
		atp, err := svc.CheckATP(ctx, item.ProductID, "", 90)
		require.NoError(t, err)
		assert.False(t, atp.CanFulfill)
		assert.Equal(t, 20, atp.Shortfall)
		assert.True(t, atp.CanFulfillWithIncoming)
	})

	t.Run("unknown product reads as zero stock", func(t *testing.T) {
		atp, err := svc.CheckATP(ctx, uuid.New(), "", 5)
		require.NoError(t, err)
		assert.Equal(t, 0, atp.OnHand)
		assert.False(t, atp.CanFulfill)
		assert.Equal(t, 5, atp.Shortfall)
	})
}

func TestService_ReserveReleaseDeliver(t *testing.T) {
	ctx := context.Background()
	svc, store, events := newTestService(t)
	item := stockItem(t, store, 50, 0, 0)
	orderID := uuid.New()

	res, err := svc.Reserve(ctx, ReserveInput{ProductID: item.ProductID, OrderID: orderID, Quantity: 20})
	require.NoError(t, err)
	assert.Equal(t, ReservationActive, res.Status)
	got, _ := store.Item(item.ID)
	assert.Equal(t, 20, got.Reserved)
	assert.Equal(t, 50, got.OnHand)

	t.Run("insufficient stock", func(t *testing.T) {
		_, err := svc.Reserve(ctx, ReserveInput{ProductID: item.ProductID, OrderID: uuid.New(), Quantity: 31})
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	})

	t.Run("no stock record", func(t *testing.T) {
		_, err := svc.Reserve(ctx, ReserveInput{ProductID: uuid.New(), OrderID: uuid.New(), Quantity: 1})
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	})

	delivered, err := svc.Deliver(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, ReservationDelivered, delivered.Status)
	got, _ = store.Item(item.ID)
	assert.Equal(t, 30, got.OnHand)
	assert.Equal(t, 0, got.Reserved)

	t.Run("closed reservation cannot be released", func(t *testing.T) {
		_, err := svc.Release(ctx, res.ID)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	second, err := svc.Reserve(ctx, ReserveInput{ProductID: item.ProductID, OrderID: uuid.New(), Quantity: 10})
	require.NoError(t, err)
	released, err := svc.Release(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, ReservationReleased, released.Status)
	got, _ = store.Item(item.ID)
	assert.Equal(t, 30, got.OnHand)
	assert.Equal(t, 0, got.Reserved)

	assert.Len(t, events.OfType(inventory.EventTypeStockReserved), 2)
	assert.Len(t, events.OfType(inventory.EventTypeStockDelivered), 1)
	assert.Len(t, events.OfType(inventory.EventTypeStockReleased), 1)
}

func TestService_ReceiveAndExpectIncoming(t *testing.T) {
	ctx := context.Background()
	svc, _, events := newTestService(t)
	productID := uuid.New()

	pos, err := svc.ExpectIncoming(ctx, StockInput{ProductID: productID, Location: "north", Quantity: 40})
	require.NoError(t, err)
	assert.Equal(t, "NORTH", pos.Location)
	assert.Equal(t, 40, pos.Incoming)

	pos, err = svc.Receive(ctx, StockInput{ProductID: productID, Location: "NORTH", Quantity: 25})
	require.NoError(t, err)
	assert.Equal(t, 25, pos.OnHand)
	assert.Equal(t, 15, pos.Incoming)
	assert.Equal(t, 25, pos.Available)
	assert.Len(t, events.OfType(inventory.EventTypeStockReceived), 1)

	_, err = svc.Receive(ctx, StockInput{ProductID: productID, Quantity: 0})
	assert.Error(t, err)
}

// Concurrent reservations never push reserved stock above on-hand.
func TestService_Reserve_Concurrent(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)
	item := stockItem(t, store, 100, 0, 0)

	const workers = 25
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		shortage int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(ctx, ReserveInput{ProductID: item.ProductID, OrderID: uuid.New(), Quantity: 7})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, shared.ErrInsufficientStock):
				shortage++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 14, ok)
	assert.Equal(t, workers-14, shortage)
	got, _ := store.Item(item.ID)
	assert.Equal(t, 98, got.Reserved)
	assert.LessOrEqual(t, got.Reserved, got.OnHand)
}
