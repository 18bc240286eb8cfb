package router

import (
	"fmt"
	"time"

	"github.com/dealerops/backend/internal/infrastructure/logger"
	"github.com/dealerops/backend/internal/interfaces/http/handler"
	"github.com/dealerops/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers is the set of HTTP handlers served by the API
type Handlers struct {
	Resolver   *handler.ResolverHandler
	Commitment *handler.CommitmentHandler
	Inventory  *handler.InventoryHandler
	Order      *handler.OrderHandler
	Visit      *handler.VisitHandler
	Scoring    *handler.ScoringHandler
	Alert      *handler.AlertHandler
	System     *handler.SystemHandler
}

// EngineConfig holds the gin engine settings
type EngineConfig struct {
	TrustedProxies []string
	CORS           middleware.CORSConfig
	MaxBodySize    int64
	RequestTimeout time.Duration
	Tracing        middleware.TracingConfig
}

// NewEngine builds a gin engine with the standard middleware chain. The
// meter may be nil when metrics are disabled.
func NewEngine(cfg EngineConfig, log *zap.Logger, meter metric.Meter) (*gin.Engine, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.SalesPerson(),
		middleware.Tracing(cfg.Tracing),
		middleware.SpanEnricher(),
		logger.GinMiddleware(log),
		httpMetrics,
		middleware.Secure(),
		middleware.CORS(cfg.CORS),
		middleware.BodyLimit(cfg.MaxBodySize),
		middleware.Timeout(cfg.RequestTimeout),
	)
	middleware.SetupValidator()
	return engine, nil
}

// Mount registers the health check and every API route on the engine
func Mount(engine *gin.Engine, h Handlers) *Router {
	engine.GET("/health", h.System.Health)

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Register(domainGroups(h)...)
	r.Setup()
	return r
}

func domainGroups(h Handlers) []RouteRegistrar {
	system := NewDomainGroup("system", "/system").
		GET("/info", h.System.GetSystemInfo)

	resolve := NewDomainGroup("resolver", "/resolve").
		POST("", h.Resolver.Resolve)

	commitments := NewDomainGroup("commitment", "/commitments").
		POST("", h.Commitment.Create).
		POST("/draft", h.Commitment.CreateFromDraft).
		POST("/consume", h.Commitment.Consume).
		POST("/sweep", h.Commitment.Sweep).
		GET("/forecast", h.Commitment.Forecast).
		GET("/:id", h.Commitment.Get)

	inventory := NewDomainGroup("inventory", "/inventory").
		GET("/atp", h.Inventory.CheckATP).
		POST("/receipts", h.Inventory.Receive).
		POST("/incoming", h.Inventory.ExpectIncoming)
	inventory.Group("reservation", "/reservations").
		POST("", h.Inventory.Reserve).
		POST("/:id/release", h.Inventory.Release).
		POST("/:id/deliver", h.Inventory.Deliver)

	orders := NewDomainGroup("trade", "/orders").
		POST("", h.Order.Create).
		GET("/:id", h.Order.Get).
		POST("/:id/confirm", h.Order.Confirm).
		POST("/:id/cancel", h.Order.Cancel).
		POST("/:id/deliver", h.Order.Deliver)

	dealers := NewDomainGroup("partner", "/dealers").
		GET("/:id/commitments/pending", h.Commitment.ListPending).
		GET("/:id/visits", h.Visit.List).
		GET("/:id/health", h.Scoring.Latest).
		POST("/:id/health/score", h.Scoring.Score).
		GET("/:id/health/history", h.Scoring.History)

	visits := NewDomainGroup("visit", "/visits").
		POST("", h.Visit.Record)

	scoring := NewDomainGroup("scoring", "").
		POST("/health/score-all", h.Scoring.ScoreAll).
		GET("/visit-plan", h.Scoring.VisitPlan)

	alerts := NewDomainGroup("alert", "/alerts").
		GET("", h.Alert.List).
		POST("/:id/resolve", h.Alert.Resolve).
		POST("/:id/dismiss", h.Alert.Dismiss)

	discounts := NewDomainGroup("discount", "/discounts").
		POST("", h.Alert.RequestDiscount)

	return []RouteRegistrar{system, resolve, commitments, inventory, orders, dealers, visits, scoring, alerts, discounts}
}
