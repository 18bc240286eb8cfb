package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	alertapp "github.com/dealerops/backend/internal/application/alert"
	"github.com/dealerops/backend/internal/domain/alert"
	"github.com/dealerops/backend/internal/interfaces/http/dto"
	"github.com/dealerops/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *apiFixture) requestDiscount(t *testing.T, percent float64) alertapp.DiscountDecision {
	t.Helper()
	w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/discounts", map[string]any{
		"dealer_id": f.dealer.ID,
		"percent":   percent,
		"reason":    "festival volume",
	})
	var decision alertapp.DiscountDecision
	testutil.AssertOK(t, w, &decision)
	return decision
}

func TestAlertHandler_RequestDiscount(t *testing.T) {
	t.Run("within threshold needs no approval", func(t *testing.T) {
		f := newAPIFixture(t)
		decision := f.requestDiscount(t, 2.5)
		assert.False(t, decision.RequiresApproval)
		assert.InDelta(t, alertapp.DefaultDiscountThresholdPct, decision.ThresholdPct, 1e-9)
		assert.Nil(t, decision.Alert)
		assert.Equal(t, 0, f.store.AlertCount())
	})

	t.Run("above threshold raises an approval alert", func(t *testing.T) {
		f := newAPIFixture(t)
		decision := f.requestDiscount(t, 8)
		assert.True(t, decision.RequiresApproval)
		require.NotNil(t, decision.Alert)
		assert.Equal(t, alert.KindDiscountApproval, decision.Alert.Kind)
		assert.Equal(t, alert.StatusPending, decision.Alert.Status)
		assert.Equal(t, f.dealer.ID, decision.Alert.Target.ID)
		assert.Equal(t, 1, f.store.AlertCount())
	})

	t.Run("percent out of range fails validation", func(t *testing.T) {
		f := newAPIFixture(t)
		w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/discounts", map[string]any{
			"dealer_id": f.dealer.ID,
			"percent":   120,
		})
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	})
}

func TestAlertHandler_ListAndClose(t *testing.T) {
	f := newAPIFixture(t)
	first := f.requestDiscount(t, 10).Alert
	require.NotNil(t, first)

	t.Run("list carries pagination meta", func(t *testing.T) {
		w := testutil.PerformJSON(t, f.engine, http.MethodGet, "/api/v1/alerts?status=pending", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp struct {
			Success bool                     `json:"success"`
			Data    []alertapp.AlertResponse `json:"data"`
			Meta    dto.Meta                 `json:"meta"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, first.ID, resp.Data[0].ID)
		assert.Equal(t, int64(1), resp.Meta.Total)
		assert.Equal(t, 1, resp.Meta.Page)
		assert.Equal(t, dto.DefaultPageSize, resp.Meta.PageSize)
	})

	t.Run("entity filter", func(t *testing.T) {
		var alerts []alertapp.AlertResponse
		w := testutil.PerformJSON(t, f.engine, http.MethodGet,
			"/api/v1/alerts?entity_kind=dealer&entity_id="+uuid.NewString(), nil)
		testutil.AssertOK(t, w, &alerts)
		assert.Empty(t, alerts)

		w = testutil.PerformJSON(t, f.engine, http.MethodGet,
			"/api/v1/alerts?entity_kind=dealer&entity_id="+f.dealer.ID.String(), nil)
		testutil.AssertOK(t, w, &alerts)
		assert.Len(t, alerts, 1)
	})

	t.Run("unknown status fails validation", func(t *testing.T) {
		w := testutil.PerformJSON(t, f.engine, http.MethodGet, "/api/v1/alerts?status=open", nil)
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	})

	t.Run("malformed entity id", func(t *testing.T) {
		w := testutil.PerformJSON(t, f.engine, http.MethodGet, "/api/v1/alerts?entity_id=abc", nil)
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeInvalidInput)
	})

	t.Run("resolve then resolve again", func(t *testing.T) {
		path := "/api/v1/alerts/" + first.ID.String() + "/resolve"
		var resolved alertapp.AlertResponse
		testutil.AssertOK(t, testutil.PerformJSON(t, f.engine, http.MethodPost, path, nil), &resolved)
		assert.Equal(t, alert.StatusResolved, resolved.Status)
		assert.NotNil(t, resolved.ClosedAt)

		testutil.AssertError(t, testutil.PerformJSON(t, f.engine, http.MethodPost, path, nil),
			http.StatusUnprocessableEntity, dto.ErrCodeInvalidState)
	})

	t.Run("dismiss unknown alert", func(t *testing.T) {
		w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/alerts/"+uuid.NewString()+"/dismiss", nil)
		testutil.AssertError(t, w, http.StatusNotFound, dto.ErrCodeNotFound)
	})
}
