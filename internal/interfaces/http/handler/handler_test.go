package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	alertapp "github.com/dealerops/backend/internal/application/alert"
	commitmentapp "github.com/dealerops/backend/internal/application/commitment"
	inventoryapp "github.com/dealerops/backend/internal/application/inventory"
	partnerapp "github.com/dealerops/backend/internal/application/partner"
	resolverapp "github.com/dealerops/backend/internal/application/resolver"
	scoringapp "github.com/dealerops/backend/internal/application/scoring"
	tradeapp "github.com/dealerops/backend/internal/application/trade"
	"github.com/dealerops/backend/internal/application/transaction"
	"github.com/dealerops/backend/internal/domain/catalog"
	"github.com/dealerops/backend/internal/domain/commitment"
	"github.com/dealerops/backend/internal/domain/inventory"
	"github.com/dealerops/backend/internal/domain/partner"
	"github.com/dealerops/backend/internal/domain/scoring"
	"github.com/dealerops/backend/internal/interfaces/http/middleware"
	"github.com/dealerops/backend/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// apiFixture is a gin engine over real services and an in-memory store
type apiFixture struct {
	engine *gin.Engine
	store  *testutil.MemStore
	events *testutil.EventRecorder
	today  time.Time
	dealer *partner.Dealer
	cement *catalog.Product
	stock  *inventory.InventoryItem
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := testutil.NewMemStore()
	today := testutil.Date(2026, time.March, 16)
	clock := testutil.FixedClock(today.Add(10 * time.Hour))
	log := zap.NewNop()

	dealer, err := partner.NewDealer("D001", "Sharma Traders", partner.DealerTierA)
	require.NoError(t, err)
	cement, err := catalog.NewProduct("CEM-OPC", "OPC Cement", "bag", decimal.NewFromInt(380))
	require.NoError(t, err)
	store.PutDealer(dealer)
	store.PutProduct(cement)

	stock, err := inventory.NewInventoryItem(cement.ID, "")
	require.NoError(t, err)
	stock.OnHand = 100
	store.PutItem(stock)

	retry := transaction.RetryPolicy{MaxAttempts: 50, InitialInterval: time.Millisecond, MaxInterval: 4 * time.Millisecond}
	events := testutil.NewEventRecorder()

	resolverSvc := resolverapp.NewService(store.DealerRepo(), store.ProductRepo(), nil, log)
	commitmentSvc := commitmentapp.NewService(store.CommitmentRepo(), store.DealerRepo(), store.ProductRepo(), store, resolverSvc,
		commitmentapp.Config{ForwardWindowDays: commitment.DefaultForwardWindowDays, Retry: retry}, log)
	commitmentSvc.SetEventPublisher(events)
	commitmentSvc.SetClock(clock)

	inventorySvc := inventoryapp.NewService(store.InventoryRepo(), store, retry, log)
	inventorySvc.SetEventPublisher(events)

	orderSvc := tradeapp.NewOrderService(store.OrderRepo(), store, commitment.DefaultPolicy(), retry, log)
	orderSvc.SetEventPublisher(events)
	orderSvc.SetClock(clock)

	visitSvc := partnerapp.NewVisitService(store.DealerRepo(), store.VisitRepo(), log)
	visitSvc.SetClock(clock)

	scoringSvc := scoringapp.NewService(store.DealerRepo(), store.OrderRepo(), store.InvoiceRepo(), store.CommitmentRepo(),
		store.SnapshotRepo(), scoring.DefaultHealthPolicy(), log)
	scoringSvc.SetEventPublisher(events)
	scoringSvc.SetClock(clock)

	dispatcher := alertapp.NewDispatcher(store.AlertRepo(), store.DealerRepo(), log)
	alertSvc := alertapp.NewService(store.AlertRepo(), dispatcher, alertapp.Config{}, log)
	alertSvc.SetEventPublisher(events)

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.SalesPerson())

	resolverH := NewResolverHandler(resolverSvc)
	commitmentH := NewCommitmentHandler(commitmentSvc)
	inventoryH := NewInventoryHandler(inventorySvc)
	orderH := NewOrderHandler(orderSvc)
	visitH := NewVisitHandler(visitSvc)
	scoringH := NewScoringHandler(scoringSvc)
	alertH := NewAlertHandler(alertSvc)

	api := engine.Group("/api/v1")
	api.POST("/resolve", resolverH.Resolve)
	api.POST("/commitments", commitmentH.Create)
	api.POST("/commitments/draft", commitmentH.CreateFromDraft)
	api.POST("/commitments/consume", commitmentH.Consume)
	api.POST("/commitments/sweep", commitmentH.Sweep)
	api.GET("/commitments/forecast", commitmentH.Forecast)
	api.GET("/commitments/:id", commitmentH.Get)
	api.GET("/dealers/:id/commitments/pending", commitmentH.ListPending)
	api.GET("/inventory/atp", inventoryH.CheckATP)
	api.POST("/inventory/reservations", inventoryH.Reserve)
	api.POST("/inventory/reservations/:id/release", inventoryH.Release)
	api.POST("/inventory/reservations/:id/deliver", inventoryH.Deliver)
	api.POST("/inventory/receipts", inventoryH.Receive)
	api.POST("/inventory/incoming", inventoryH.ExpectIncoming)
	api.POST("/orders", orderH.Create)
	api.GET("/orders/:id", orderH.Get)
	api.POST("/orders/:id/confirm", orderH.Confirm)
	api.POST("/orders/:id/cancel", orderH.Cancel)
	api.POST("/orders/:id/deliver", orderH.Deliver)
	api.POST("/visits", visitH.Record)
	api.GET("/dealers/:id/visits", visitH.List)
	api.GET("/dealers/:id/health", scoringH.Latest)
	api.POST("/dealers/:id/health/score", scoringH.Score)
	api.GET("/dealers/:id/health/history", scoringH.History)
	api.POST("/health/score-all", scoringH.ScoreAll)
	api.GET("/visit-plan", scoringH.VisitPlan)
	api.GET("/alerts", alertH.List)
	api.POST("/alerts/:id/resolve", alertH.Resolve)
	api.POST("/alerts/:id/dismiss", alertH.Dismiss)
	api.POST("/discounts", alertH.RequestDiscount)

	return &apiFixture{
		engine: engine,
		store:  store,
		events: events,
		today:  today,
		dealer: dealer,
		cement: cement,
		stock:  stock,
	}
}

// day formats today plus offset days as YYYY-MM-DD
func (f *apiFixture) day(offset int) string {
	return f.today.AddDate(0, 0, offset).Format(dateLayout)
}

// seedCommitment stores a pending cement commitment due offset days from today
func (f *apiFixture) seedCommitment(t *testing.T, qty, offset int) *commitment.Commitment {
	t.Helper()
	pid := f.cement.ID
	c, err := commitment.NewCommitment(f.dealer.ID, &pid, qty, f.today.AddDate(0, 0, offset), 1)
	require.NoError(t, err)
	f.store.PutCommitment(c)
	return c
}

// performAs sends a JSON request carrying the sales person header
func (f *apiFixture) performAs(t *testing.T, method, path string, body any, salesPerson uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderSalesPersonID, salesPerson.String())
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}
