package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls GORM span instrumentation
type DBTracingConfig struct {
	DBName string
	// IncludeVariables puts bound values into db.statement; development only
	IncludeVariables bool
	SlowThreshold    time.Duration
}

const slowQueryKey = "telemetry:started_at"

// InstrumentGorm registers otelgorm so every statement becomes a child span
// of the request or job span, and flags slow statements on that span
func InstrumentGorm(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBName)}
	if !cfg.IncludeVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if cfg.SlowThreshold <= 0 {
		return nil
	}

	before := func(tx *gorm.DB) { tx.InstanceSet(slowQueryKey, time.Now()) }
	after := func(tx *gorm.DB) { markSlow(tx, cfg.SlowThreshold) }
	cb := db.Callback()
	errs := []error{
		cb.Create().Before("gorm:create").Register("telemetry:before_create", before),
		cb.Create().After("gorm:create").Register("telemetry:after_create", after),
		cb.Query().Before("gorm:query").Register("telemetry:before_query", before),
		cb.Query().After("gorm:query").Register("telemetry:after_query", after),
		cb.Update().Before("gorm:update").Register("telemetry:before_update", before),
		cb.Update().After("gorm:update").Register("telemetry:after_update", after),
		cb.Raw().Before("gorm:raw").Register("telemetry:before_raw", before),
		cb.Raw().After("gorm:raw").Register("telemetry:after_raw", after),
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Debug("GORM tracing registered", zap.Duration("slow_threshold", cfg.SlowThreshold))
	return nil
}

func markSlow(tx *gorm.DB, threshold time.Duration) {
	v, ok := tx.InstanceGet(slowQueryKey)
	if !ok || tx.Statement.Context == nil {
		return
	}
	started, ok := v.(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(started)
	if elapsed < threshold {
		return
	}
	trace.SpanFromContext(tx.Statement.Context).AddEvent("slow_query", trace.WithAttributes(
		attribute.String("db.sql.table", tx.Statement.Table),
		attribute.Int64("duration_ms", elapsed.Milliseconds()),
		attribute.Int64("threshold_ms", threshold.Milliseconds()),
	))
}
