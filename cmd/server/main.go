package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	alertapp "github.com/dealerops/backend/internal/application/alert"
	commitmentapp "github.com/dealerops/backend/internal/application/commitment"
	inventoryapp "github.com/dealerops/backend/internal/application/inventory"
	partnerapp "github.com/dealerops/backend/internal/application/partner"
	resolverapp "github.com/dealerops/backend/internal/application/resolver"
	scoringapp "github.com/dealerops/backend/internal/application/scoring"
	tradeapp "github.com/dealerops/backend/internal/application/trade"
	"github.com/dealerops/backend/internal/application/transaction"
	"github.com/dealerops/backend/internal/domain/scoring"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/dealerops/backend/internal/infrastructure/cache"
	"github.com/dealerops/backend/internal/infrastructure/config"
	"github.com/dealerops/backend/internal/infrastructure/event"
	"github.com/dealerops/backend/internal/infrastructure/logger"
	"github.com/dealerops/backend/internal/infrastructure/persistence"
	"github.com/dealerops/backend/internal/infrastructure/scheduler"
	"github.com/dealerops/backend/internal/infrastructure/telemetry"
	"github.com/dealerops/backend/internal/interfaces/http/handler"
	"github.com/dealerops/backend/internal/interfaces/http/middleware"
	"github.com/dealerops/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = baseLog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry first so the bridged logger and instrumented DB see the providers
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	logProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log := logProvider.Bridge(baseLog, zapcore.InfoLevel)
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)

	log.Info("Starting dealer service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabase(&cfg.Database,
		logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Database.SlowThreshold))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.InstrumentGorm(db.DB, telemetry.DBTracingConfig{
			DBName:           cfg.Database.DBName,
			IncludeVariables: !cfg.IsProduction(),
			SlowThreshold:    cfg.Database.SlowThreshold,
		}, log); err != nil {
			log.Fatal("Failed to instrument database", zap.Error(err))
		}
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		reg, err := telemetry.RegisterPoolMetrics(meter, sqlDB.Stats)
		if err != nil {
			log.Warn("Pool metrics unavailable", zap.Error(err))
		} else {
			defer func() { _ = reg.Unregister() }()
		}
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// Repositories
	repos := persistence.NewRepositorySet(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)
	visitRepo := persistence.NewGormVisitRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	snapshotRepo := persistence.NewGormHealthSnapshotRepository(db.DB)

	retry := retryPolicy(cfg.Consumption)

	// Application services
	resolverService := resolverapp.NewService(repos.DealerRepo, repos.ProductRepo, nil, log)
	commitmentService := commitmentapp.NewService(repos.CommitmentRepo, repos.DealerRepo, repos.ProductRepo, scope, resolverService,
		commitmentapp.Config{ForwardWindowDays: cfg.Consumption.ForwardWindowDays, Retry: retry}, log)
	inventoryService := inventoryapp.NewService(repos.InventoryRepo, scope, retry, log)
	orderService := tradeapp.NewOrderService(repos.OrderRepo, scope, commitmentService.Policy(), retry, log)
	visitService := partnerapp.NewVisitService(repos.DealerRepo, visitRepo, log)
	scoringService := scoringapp.NewService(repos.DealerRepo, repos.OrderRepo, invoiceRepo, repos.CommitmentRepo,
		snapshotRepo, healthPolicy(cfg.Scoring), log)
	dispatcher := alertapp.NewDispatcher(repos.AlertRepo, repos.DealerRepo, log)
	reconciler := alertapp.NewReconciler(dispatcher, repos.AlertRepo, repos.CommitmentRepo, repos.DealerRepo,
		snapshotRepo, alertapp.ReconcileConfig{
			LookbackDays: cfg.Alert.ReconcileLookbackDays,
			Health:       healthPolicy(cfg.Scoring),
		}, log)
	alertService := alertapp.NewService(repos.AlertRepo, dispatcher,
		alertapp.Config{DiscountThresholdPct: cfg.Alert.DiscountThresholdPct}, log)

	// Event bus: metrics observe every event, alerts are raised once per event ID
	businessMetrics, err := telemetry.NewBusinessMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}
	eventBus := event.NewInMemoryEventBus(log, event.WithObserver(businessMetrics))
	idempotencyStore, err := cache.NewIdempotencyStore(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() { _ = idempotencyStore.Close() }()

	eventBus.Subscribe(businessMetrics)
	eventBus.Subscribe(event.NewIdempotentHandler("alert_dispatcher", dispatcher, idempotencyStore,
		shared.IdempotencyConfig{TTL: cfg.Alert.IdempotencyTTL, Enabled: true}, log))

	commitmentService.SetEventPublisher(eventBus)
	inventoryService.SetEventPublisher(eventBus)
	orderService.SetEventPublisher(eventBus)
	scoringService.SetEventPublisher(eventBus)
	dispatcher.SetEventPublisher(eventBus)
	alertService.SetEventPublisher(eventBus)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Daily sweep and scoring
	var trigger *scheduler.DailyTrigger
	var jobScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		jobScheduler, err = scheduler.New(scheduler.ConfigFrom(cfg.Scheduler), log)
		if err != nil {
			log.Fatal("Failed to create scheduler", zap.Error(err))
		}
		jobScheduler.SetObserver(businessMetrics)
		if err := jobScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}

		trigger = scheduler.NewDailyTrigger(jobScheduler, time.Minute, log)
		sweep := func(ctx context.Context, asOf time.Time) error {
			if _, err := commitmentService.SweepMissed(ctx, asOf); err != nil {
				return err
			}
			_, err := reconciler.ReconcileMissed(ctx, asOf)
			return err
		}
		score := func(ctx context.Context, asOf time.Time) error {
			if _, err := scoringService.ScoreAll(ctx, asOf); err != nil {
				return err
			}
			_, err := reconciler.ReconcileHealth(ctx, asOf)
			return err
		}
		for _, job := range scheduler.DailyJobs(cfg.Scheduler, sweep, score) {
			if err := trigger.Register(job); err != nil {
				log.Fatal("Failed to register daily job", zap.String("job", job.Name), zap.Error(err))
			}
		}
		trigger.Start(ctx)
	}

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := router.NewEngine(router.EngineConfig{
		TrustedProxies: cfg.HTTP.TrustedProxies,
		CORS:           corsConfig(cfg.HTTP),
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
	}, log, meter)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}
	router.Mount(engine, router.Handlers{
		Resolver:   handler.NewResolverHandler(resolverService),
		Commitment: handler.NewCommitmentHandler(commitmentService),
		Inventory:  handler.NewInventoryHandler(inventoryService),
		Order:      handler.NewOrderHandler(orderService),
		Visit:      handler.NewVisitHandler(visitService),
		Scoring:    handler.NewScoringHandler(scoringService),
		Alert:      handler.NewAlertHandler(alertService),
		System:     handler.NewSystemHandler(cfg.App.Name, version, db),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if trigger != nil {
		trigger.Stop()
	}
	if jobScheduler != nil {
		if err := jobScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Scheduler did not drain", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus stop failed", zap.Error(err))
	}
	for name, shutdown := range map[string]func(context.Context) error{
		"tracer": tracerProvider.Shutdown,
		"meter":  meterProvider.Shutdown,
		"logs":   logProvider.Shutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.String("provider", name), zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}

func retryPolicy(cfg config.ConsumptionConfig) transaction.RetryPolicy {
	p := transaction.DefaultRetryPolicy()
	if cfg.MaxRetries > 0 {
		p.MaxAttempts = cfg.MaxRetries
	}
	if cfg.InitialBackoff > 0 {
		p.InitialInterval = cfg.InitialBackoff
	}
	if cfg.MaxBackoff > 0 {
		p.MaxInterval = cfg.MaxBackoff
	}
	return p
}

func healthPolicy(cfg config.ScoringConfig) scoring.HealthPolicy {
	p := scoring.DefaultHealthPolicy()
	if cfg.WindowDays > 0 {
		p.WindowDays = cfg.WindowDays
	}
	if cfg.ExpectedOrders > 0 {
		p.ExpectedOrders = cfg.ExpectedOrders
	}
	if cfg.HealthyThreshold > 0 {
		p.HealthyThreshold = cfg.HealthyThreshold
	}
	if cfg.AtRiskThreshold > 0 {
		p.AtRiskThreshold = cfg.AtRiskThreshold
	}
	return p
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	c.AllowOrigins = cfg.CORSAllowOrigins
	if len(cfg.CORSAllowMethods) > 0 {
		c.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		c.AllowHeaders = cfg.CORSAllowHeaders
	}
	return c
}
