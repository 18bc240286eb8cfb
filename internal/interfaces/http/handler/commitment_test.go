package handler

import (
	"net/http"
	"testing"

	commitmentapp "github.com/dealerops/backend/internal/application/commitment"
	"github.com/dealerops/backend/internal/domain/commitment"
	"github.com/dealerops/backend/internal/domain/resolver"
	"github.com/dealerops/backend/internal/interfaces/http/dto"
	"github.com/dealerops/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverHandler_Resolve(t *testing.T) {
	t.Run("exact dealer name resolves confidently", func(t *testing.T) {
		f := newAPIFixture(t)
		w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/resolve", map[string]any{
			"text": "Sharma Traders",
			"kind": "dealer",
		})

		var res resolver.Resolution
		testutil.AssertOK(t, w, &res)
		require.NotNil(t, res.TopID)
		assert.Equal(t, f.dealer.ID, *res.TopID)
		assert.False(t, res.LowConfidence)
	})

	t.Run("unknown kind fails validation", func(t *testing.T) {
		f := newAPIFixture(t)
		w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/resolve", map[string]any{
			"text": "Sharma",
			"kind": "warehouse",
		})
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	})
}

func TestCommitmentHandler_Create(t *testing.T) {
	t.Run("creates a pending commitment", func(t *testing.T) {
		f := newAPIFixture(t)
		w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/commitments", map[string]any{
			"dealer_id":     f.dealer.ID,
			"product_id":    f.cement.ID,
			"quantity":      40,
			"expected_date": f.day(5),
		})

		var resp commitmentapp.CommitmentResponse
		testutil.AssertSuccess(t, w, http.StatusCreated, &resp)
		assert.Equal(t, commitment.StatusPending, resp.Status)
		assert.Equal(t, 40, resp.QuantityPromised)
		assert.Equal(t, f.day(5), resp.ExpectedDate)
		assert.InDelta(t, 1.0, resp.Confidence, 1e-9)

		stored, ok := f.store.Commitment(resp.ID)
		require.True(t, ok)
		assert.Equal(t, 40, stored.QuantityPromised)
	})

	t.Run("sales person header is recorded", func(t *testing.T) {
		f := newAPIFixture(t)
		salesPerson := uuid.New()
		req := map[string]any{
			"dealer_id":     f.dealer.ID,
			"quantity":      10,
			"expected_date": f.day(2),
		}
		w := f.performAs(t, http.MethodPost, "/api/v1/commitments", req, salesPerson)

		var resp commitmentapp.CommitmentResponse
		testutil.AssertSuccess(t, w, http.StatusCreated, &resp)
		require.NotNil(t, resp.SalesPersonID)
		assert.Equal(t, salesPerson, *resp.SalesPersonID)
	})

	t.Run("zero quantity is an invalid commitment", func(t *testing.T) {
		f := newAPIFixture(t)
		w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/commitments", map[string]any{
			"dealer_id":     f.dealer.ID,
			"quantity":      0,
			"expected_date": f.day(1),
		})
		testutil.AssertError(t, w, http.StatusUnprocessableEntity, dto.ErrCodeInvalidCommitment)
	})

	t.Run("unknown dealer is an invalid commitment", func(t *testing.T) {
		f := newAPIFixture(t)
		w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/commitments", map[string]any{
			"dealer_id":     uuid.New(),
			"quantity":      5,
			"expected_date": f.day(1),
		})
		testutil.AssertError(t, w, http.StatusUnprocessableEntity, dto.ErrCodeInvalidCommitment)
	})

	t.Run("malformed date fails validation", func(t *testing.T) {
		f := newAPIFixture(t)
		w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/commitments", map[string]any{
			"dealer_id":     f.dealer.ID,
			"quantity":      5,
			"expected_date": "16/03/2026",
		})
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		f := newAPIFixture(t)
		w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/commitments", `{"dealer_id":`)
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeInvalidJSON)
	})
}

func TestCommitmentHandler_Get(t *testing.T) {
	f := newAPIFixture(t)
	c := f.seedCommitment(t, 25, 3)

	t.Run("found", func(t *testing.T) {
		w := testutil.PerformJSON(t, f.engine, http.MethodGet, "/api/v1/commitments/"+c.ID.String(), nil)
		var resp commitmentapp.CommitmentResponse
		testutil.AssertOK(t, w, &resp)
		assert.Equal(t, c.ID, resp.ID)
		assert.Equal(t, 25, resp.QuantityPromised)
	})

	t.Run("not found", func(t *testing.T) {
		w := testutil.PerformJSON(t, f.engine, http.MethodGet, "/api/v1/commitments/"+uuid.NewString(), nil)
		testutil.AssertError(t, w, http.StatusNotFound, dto.ErrCodeNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		w := testutil.PerformJSON(t, f.engine, http.MethodGet, "/api/v1/commitments/not-a-uuid", nil)
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeInvalidInput)
	})
}

func TestCommitmentHandler_ListPending(t *testing.T) {
	f := newAPIFixture(t)
	late := f.seedCommitment(t, 10, -2)
	soon := f.seedCommitment(t, 20, 4)

	w := testutil.PerformJSON(t, f.engine, http.MethodGet,
		"/api/v1/dealers/"+f.dealer.ID.String()+"/commitments/pending?product_id="+f.cement.ID.String(), nil)

	var views []commitmentapp.PendingCommitmentView
	testutil.AssertOK(t, w, &views)
	require.Len(t, views, 2)
	assert.Equal(t, late.ID, views[0].ID)
	assert.Equal(t, soon.ID, views[1].ID)
	assert.Equal(t, 10, views[0].Remaining)

	t.Run("malformed product filter", func(t *testing.T) {
		w := testutil.PerformJSON(t, f.engine, http.MethodGet,
			"/api/v1/dealers/"+f.dealer.ID.String()+"/commitments/pending?product_id=xyz", nil)
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeInvalidInput)
	})
}

func TestCommitmentHandler_Consume(t *testing.T) {
	t.Run("order quantity runs against open commitments", func(t *testing.T) {
		f := newAPIFixture(t)
		late := f.seedCommitment(t, 10, -2)
		f.seedCommitment(t, 20, 4)

		w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/commitments/consume", map[string]any{
			"dealer_id":      f.dealer.ID,
			"product_id":     f.cement.ID,
			"order_quantity": 35,
		})

		var res commitmentapp.ConsumptionResult
		testutil.AssertOK(t, w, &res)
		assert.Equal(t, 35, res.OrderQuantity)
		assert.Equal(t, 30, res.ConsumedFromCommitments)
		assert.Equal(t, 5, res.UnmatchedQuantity)
		assert.False(t, res.FullyMatched)
		require.Len(t, res.Allocations, 2)
		assert.Equal(t, late.ID, res.Allocations[0].CommitmentID)
		assert.Equal(t, commitment.WindowBackward, res.Allocations[0].Window)
		assert.Equal(t, commitment.WindowForward, res.Allocations[1].Window)

		stored, ok := f.store.Commitment(late.ID)
		require.True(t, ok)
		assert.Equal(t, commitment.StatusFulfilled, stored.Status)
	})

	t.Run("non-positive order quantity fails validation", func(t *testing.T) {
		f := newAPIFixture(t)
		w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/commitments/consume", map[string]any{
			"dealer_id":      f.dealer.ID,
			"order_quantity": 0,
		})
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	})
}

func TestCommitmentHandler_Sweep(t *testing.T) {
	t.Run("without a body sweeps as of today", func(t *testing.T) {
		f := newAPIFixture(t)
		overdue := f.seedCommitment(t, 10, -3)
		f.seedCommitment(t, 10, 2)

		w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/commitments/sweep", nil)

		var res commitmentapp.SweepResult
		testutil.AssertOK(t, w, &res)
		assert.Equal(t, 1, res.TotalCandidates)
		assert.Equal(t, 1, res.Missed)

		stored, ok := f.store.Commitment(overdue.ID)
		require.True(t, ok)
		assert.Equal(t, commitment.StatusMissed, stored.Status)
	})

	t.Run("as_of moves the cutoff", func(t *testing.T) {
		f := newAPIFixture(t)
		f.seedCommitment(t, 10, 2)

		w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/commitments/sweep", map[string]any{
			"as_of": f.day(5),
		})

		var res commitmentapp.SweepResult
		testutil.AssertOK(t, w, &res)
		assert.Equal(t, 1, res.Missed)
	})
}

func TestCommitmentHandler_Forecast(t *testing.T) {
	f := newAPIFixture(t)
	f.seedCommitment(t, 10, 1)
	f.seedCommitment(t, 15, 8)

	t.Run("buckets by week", func(t *testing.T) {
		w := testutil.PerformJSON(t, f.engine, http.MethodGet,
			"/api/v1/commitments/forecast?from="+f.day(0)+"&weeks=2&dealer_id="+f.dealer.ID.String(), nil)

		var res commitmentapp.Forecast
		testutil.AssertOK(t, w, &res)
		require.Len(t, res.Weeks, 2)
		assert.Equal(t, f.day(0), res.Weeks[0].WeekStart)
		assert.Equal(t, 10, res.Weeks[0].CommittedQuantity)
		assert.Equal(t, 15, res.Weeks[1].CommittedQuantity)
		assert.Equal(t, 25, res.Summary.TotalCommitted)
	})

	t.Run("too many weeks", func(t *testing.T) {
		w := testutil.PerformJSON(t, f.engine, http.MethodGet, "/api/v1/commitments/forecast?weeks=500", nil)
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeInvalidInput)
	})

	t.Run("malformed from", func(t *testing.T) {
		w := testutil.PerformJSON(t, f.engine, http.MethodGet, "/api/v1/commitments/forecast?from=yesterday", nil)
		testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeInvalidInput)
	})
}

func TestCommitmentHandler_CreateFromDraft(t *testing.T) {
	t.Run("confident mentions create a commitment", func(t *testing.T) {
		f := newAPIFixture(t)
		w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/commitments/draft", map[string]any{
			"dealer_text":   "Sharma Traders",
			"product_text":  "OPC Cement",
			"quantity":      50,
			"expected_date": f.day(3),
			"source_text":   "Sharma will take 50 bags OPC on Thursday",
		})

		var res commitmentapp.DraftResult
		testutil.AssertSuccess(t, w, http.StatusCreated, &res)
		assert.True(t, res.Created)
		require.NotNil(t, res.Commitment)
		assert.Equal(t, f.dealer.ID, res.Commitment.DealerID)
		require.NotNil(t, res.Commitment.ProductID)
		assert.Equal(t, f.cement.ID, *res.Commitment.ProductID)
	})

	t.Run("weak dealer mention stores nothing", func(t *testing.T) {
		f := newAPIFixture(t)
		w := testutil.PerformJSON(t, f.engine, http.MethodPost, "/api/v1/commitments/draft", map[string]any{
			"dealer_text":   "zzqx",
			"quantity":      50,
			"expected_date": f.day(3),
		})

		var res commitmentapp.DraftResult
		testutil.AssertOK(t, w, &res)
		assert.False(t, res.Created)
		assert.Nil(t, res.Commitment)
		assert.True(t, res.Dealer.LowConfidence)
	})
}
