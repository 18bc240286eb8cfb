package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func bufferLogger() (*zap.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.DebugLevel)
	return zap.New(core), &buf
}

func TestFromContext(t *testing.T) {
	t.Run("missing logger is a no-op logger", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})

	t.Run("returns the attached logger", func(t *testing.T) {
		base, _ := bufferLogger()
		ctx := WithContext(context.Background(), base)
		assert.Same(t, base, FromContext(ctx))
	})
}

func TestContextFields(t *testing.T) {
	base, buf := bufferLogger()
	ctx := context.Background()
	ctx, _ = WithRequestID(ctx, base, "req-123")
	ctx, l := WithSalesPersonID(ctx, FromContext(ctx), "sp-9")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Equal(t, "sp-9", GetSalesPersonID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))

	l.Info("Visit recorded")
	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-123"`)
	assert.Contains(t, out, `"sales_person_id":"sp-9"`)
}

func TestTraceCorrelation(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})

	t.Run("valid span adds ids", func(t *testing.T) {
		base, buf := bufferLogger()
		ctx := trace.ContextWithSpanContext(WithContext(context.Background(), base), spanCtx)

		assert.Equal(t, traceID.String(), GetTraceID(ctx))
		assert.Equal(t, spanID.String(), GetSpanID(ctx))

		L(ctx).Info("Sweep finished")
		assert.Contains(t, buf.String(), `"trace_id":"4bf92f3577b34da6a3ce929d0e0e4736"`)
		assert.Contains(t, buf.String(), `"span_id":"00f067aa0ba902b7"`)
	})

	t.Run("no span leaves logger unchanged", func(t *testing.T) {
		base, buf := bufferLogger()
		assert.Empty(t, GetTraceID(context.Background()))
		assert.Same(t, base, WithTraceContext(context.Background(), base))
		base.Info("plain")
		assert.NotContains(t, buf.String(), "trace_id")
	})
}
