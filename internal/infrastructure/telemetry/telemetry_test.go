package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/dealerops/backend/internal/domain/alert"
	"github.com/dealerops/backend/internal/domain/commitment"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/dealerops/backend/internal/infrastructure/config"
	"github.com/dealerops/backend/internal/infrastructure/scheduler"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader, mp
}

// sumOf totals an int64 sum metric, optionally restricted to points carrying attr
func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string, attr ...attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				match := true
				for _, kv := range attr {
					if v, ok := dp.Attributes.Value(kv.Key); !ok || v != kv.Value {
						match = false
					}
				}
				if match {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func mustCommitment(t *testing.T, qty int) *commitment.Commitment {
	t.Helper()
	c, err := commitment.NewCommitment(uuid.New(), nil, qty, time.Now().AddDate(0, 0, 7), 0.8)
	require.NoError(t, err)
	return c
}

func TestBusinessMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("nil meter", func(t *testing.T) {
		_, err := NewBusinessMetrics(nil)
		assert.ErrorIs(t, err, ErrMeterNil)
	})

	t.Run("counts consumed quantity by window", func(t *testing.T) {
		reader, mp := newTestMeter(t)
		bm, err := NewBusinessMetrics(mp.Meter("test"))
		require.NoError(t, err)

		c := mustCommitment(t, 10)
		require.NoError(t, bm.Handle(ctx, commitment.NewCommitmentConsumedEvent(c, 4, commitment.WindowBackward)))
		require.NoError(t, bm.Handle(ctx, commitment.NewCommitmentConsumedEvent(c, 3, commitment.WindowForward)))

		assert.Equal(t, int64(7), sumOf(t, reader, "dealerops_commitment_quantity_consumed_total"))
		assert.Equal(t, int64(3), sumOf(t, reader, "dealerops_commitment_quantity_consumed_total",
			AttrWindow.String(string(commitment.WindowForward))))
	})

	t.Run("counts alerts and missed commitments", func(t *testing.T) {
		reader, mp := newTestMeter(t)
		bm, err := NewBusinessMetrics(mp.Meter("test"))
		require.NoError(t, err)

		c := mustCommitment(t, 5)
		require.NoError(t, bm.Handle(ctx, commitment.NewCommitmentMissedEvent(c, time.Now())))

		a, err := alert.NewAlert(alert.KindDealerAtRisk, alert.Target{Kind: alert.EntityKindDealer, ID: uuid.New()},
			alert.SeverityHigh, "trigger", "Dealer at risk", "score fell")
		require.NoError(t, err)
		require.NoError(t, bm.Handle(ctx, alert.NewAlertRaisedEvent(a)))

		assert.Equal(t, int64(1), sumOf(t, reader, "dealerops_commitments_missed_total"))
		assert.Equal(t, int64(1), sumOf(t, reader, "dealerops_alerts_raised_total",
			AttrSeverity.String(string(alert.SeverityHigh))))
	})

	t.Run("observes bus and scheduler", func(t *testing.T) {
		reader, mp := newTestMeter(t)
		bm, err := NewBusinessMetrics(mp.Meter("test"))
		require.NoError(t, err)

		bm.EventPublished(ctx, commitment.EventTypeCommitmentMissed)
		bm.EventPublished(ctx, commitment.EventTypeCommitmentMissed)
		bm.HandlerFailed(ctx, commitment.EventTypeCommitmentMissed)

		job := scheduler.NewJob(scheduler.JobMissedSweep, time.Now(), nil)
		job.Status = scheduler.JobStatusSuccess
		bm.JobFinished(ctx, job, 2*time.Second)

		assert.Equal(t, int64(2), sumOf(t, reader, "dealerops_events_published_total"))
		assert.Equal(t, int64(1), sumOf(t, reader, "dealerops_event_handler_failures_total"))
		assert.Equal(t, int64(1), sumOf(t, reader, "dealerops_job_runs_total",
			AttrJob.String(scheduler.JobMissedSweep), AttrJobStatus.String("SUCCESS")))
	})

	t.Run("ignores unrelated events", func(t *testing.T) {
		_, mp := newTestMeter(t)
		bm, err := NewBusinessMetrics(mp.Meter("test"))
		require.NoError(t, err)

		other := shared.NewBaseDomainEvent("Something", "Other", uuid.New())
		assert.NoError(t, bm.Handle(ctx, &other))
		assert.Len(t, bm.EventTypes(), 5)
	})
}

func TestRegisterPoolMetrics(t *testing.T) {
	reader, mp := newTestMeter(t)
	reg, err := RegisterPoolMetrics(mp.Meter("test"), func() sql.DBStats {
		return sql.DBStats{MaxOpenConnections: 25, InUse: 3, Idle: 2, WaitCount: 7}
	})
	require.NoError(t, err)
	defer reg.Unregister()

	assert.Equal(t, int64(7), sumOf(t, reader, "db_pool_wait_total"))
}

func TestStartSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := StartSpan(context.Background(), "commitment", "consume",
		attribute.Int(SpanAttrQuantity, 12))
	AddEvent(ctx, "window_exhausted")
	EndSpan(span, errors.New("conflict"))

	_, sweep := StartSpan(context.Background(), "commitment", "sweep")
	EndSpan(sweep, nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "commitment.consume", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.Int(SpanAttrQuantity, 12))
	require.Len(t, spans[0].Events(), 2)
	assert.Equal(t, "window_exhausted", spans[0].Events()[0].Name)
	assert.Equal(t, codes.Unset, spans[1].Status().Code)
}

func TestDisabledProviders(t *testing.T) {
	ctx := context.Background()
	cfg := config.TelemetryConfig{Enabled: false, ServiceName: "dealerops-test"}
	logger := zap.NewNop()

	tp, err := NewTracerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("x"))
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := NewMeterProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("x"))
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := NewLoggerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.Same(t, logger, lp.Bridge(logger, zapcore.InfoLevel))
	assert.NoError(t, lp.Shutdown(ctx))
}

func TestLevelFilterCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}
	log := zap.New(core).With(zap.String("component", "sweep"))

	log.Info("dropped")
	log.Warn("kept")
	log.Error("kept too")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "kept", logs.All()[0].Message)
	assert.Equal(t, "sweep", logs.All()[0].ContextMap()["component"])
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	assert.Equal(t, "AlwaysOffSampler", sampler(0).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}
