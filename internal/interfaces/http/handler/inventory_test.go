package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	inventoryapp "github.com/dealerops/backend/internal/application/inventory"
	"github.com/dealerops/backend/internal/domain/inventory"
	"github.com/dealerops/backend/internal/interfaces/http/dto"
	"github.com/dealerops/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryHandler_CheckATP(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name       string
		quantity   int
		canFulfill bool
		shortfall  int
	}{
		{"within stock", 60, true, 0},
		{"exactly available", 100, true, 0},
		{"short", 130, false, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := fmt.Sprintf("/api/v1/inventory/atp?product_id=%s&quantity=%d", f.cement.ID, tt.quantity)
			w := testutil.PerformJSON(t, f.engine, http.MethodGet, path, nil)

			var res inventoryapp.ATPResult
			testutil.AssertOK(t, w, &res)
			assert.Equal(t, inventory.DefaultLocation, res.Location)
			assert.Equal(t, 100, res.Available)
			assert.Equal(t, tt.canFulfill, res.CanFulfill)
			assert.Equal(t, tt.shortfall, res.Shortfall)
		})
	}

	t.Run("unknown product reads as zero stock", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/inventory/atp?product_id=%s&quantity=5", uuid.New())
		w := testutil.PerformJSON(t, f.engine, http.MethodGet, path, nil)

		var res inventoryapp.ATPResult
		testutil.AssertOK(t, w, &res)
		assert.Equal(t, 0, res.Available)
		assert.False(t, res.CanFulfill)
		assert.Equal(t, 5, res.Shortfall)
	})

	t.Run("missing product fails validation", func(t *testing.T) {
		w := testutil.PerformJSON(t, f.engine, http.MethodGet, "/api/v1/inventory/atp?quantity=5", nil)
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	})

	t.Run("negative quantity fails validation", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/inventory/atp?product_id=%s&quantity=-1", f.cement.ID)
		w := testutil.PerformJSON(t, f.engine, http.MethodGet, path, nil)
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	})
}

func TestInventoryHandler_Reservations(t *testing.T) {
	reserve := func(t *testing.T, f *apiFixture, qty int) *httptest.ResponseRecorder {
		t.Helper()
		return testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/inventory/reservations", map[string]any{
			"product_id": f.cement.ID,
			"order_id":   uuid.New(),
			"quantity":   qty,
		})
	}

	t.Run("reserve then release", func(t *testing.T) {
		f := newAPIFixture(t)

		var res inventoryapp.ReservationResponse
		testutil.AssertSuccess(t, reserve(t, f, 40), http.StatusCreated, &res)
		assert.Equal(t, inventoryapp.ReservationActive, res.Status)
		assert.Equal(t, f.cement.ID, res.ProductID)

		item, ok := f.store.Item(f.stock.ID)
		require.True(t, ok)
		assert.Equal(t, 40, item.Reserved)
		assert.Equal(t, 60, item.Available())

		w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/inventory/reservations/"+res.ID.String()+"/release", nil)
		var released inventoryapp.ReservationResponse
		testutil.AssertOK(t, w, &released)
		assert.Equal(t, inventoryapp.ReservationReleased, released.Status)

		item, _ = f.store.Item(f.stock.ID)
		assert.Equal(t, 0, item.Reserved)
		assert.Equal(t, 100, item.OnHand)

		t.Run("second release is an invalid state", func(t *testing.T) {
			w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/inventory/reservations/"+res.ID.String()+"/release", nil)
			testutil.AssertError(t, w, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState)
		})
	})

	t.Run("deliver reduces on-hand", func(t *testing.T) {
		f := newAPIFixture(t)

		var res inventoryapp.ReservationResponse
		testutil.AssertSuccess(t, reserve(t, f, 25), http.StatusCreated, &res)

		w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/inventory/reservations/"+res.ID.String()+"/deliver", nil)
		var delivered inventoryapp.ReservationResponse
		testutil.AssertOK(t, w, &delivered)
		assert.Equal(t, inventoryapp.ReservationDelivered, delivered.Status)

		item, _ := f.store.Item(f.stock.ID)
		assert.Equal(t, 75, item.OnHand)
		assert.Equal(t, 0, item.Reserved)
	})

	t.Run("over-reserving is rejected", func(t *testing.T) {
		f := newAPIFixture(t)
		testutil.AssertError(t, reserve(t, f, 101), http.StatusUnprocessableEntity, dto.ErrCodeInsufficientStock)

		item, _ := f.store.Item(f.stock.ID)
		assert.Equal(t, 0, item.Reserved)
	})

	t.Run("unknown reservation", func(t *testing.T) {
		f := newAPIFixture(t)
		w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/inventory/reservations/"+uuid.NewString()+"/release", nil)
		testutil.AssertError(t, w, http.StatusNotFound, dto.ErrCodeNotFound)
	})
}

func TestInventoryHandler_StockMovements(t *testing.T) {
	f := newAPIFixture(t)

	w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/inventory/incoming", map[string]any{
		"product_id": f.cement.ID,
		"quantity":   50,
	})
	var pos inventoryapp.StockPositionResponse
	testutil.AssertOK(t, w, &pos)
	assert.Equal(t, 50, pos.Incoming)
	assert.Equal(t, 100, pos.OnHand)

	w = testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/inventory/receipts", map[string]any{
		"product_id": f.cement.ID,
		"quantity":   30,
	})
	testutil.AssertOK(t, w, &pos)
	assert.Equal(t, 130, pos.OnHand)
	assert.Equal(t, 20, pos.Incoming)
	assert.Equal(t, 130, pos.Available)

	t.Run("zero quantity fails validation", func(t *testing.T) {
		w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/inventory/receipts", map[string]any{
			"product_id": f.cement.ID,
			"quantity":   0,
		})
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	})
}
