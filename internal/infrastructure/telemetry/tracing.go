package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer for application spans
const TracerName = "github.com/dealerops/backend"

// StartSpan starts an internal span named "{component}.{operation}" from the
// global provider. The caller ends it.
//
//	ctx, span := telemetry.StartSpan(ctx, "commitment", "consume",
//	    attribute.String(telemetry.SpanAttrDealerID, id.String()))
//	defer span.End()
func StartSpan(ctx context.Context, component, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx,
		fmt.Sprintf("%s.%s", component, operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan records err, if any, and ends the span
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// AddEvent annotates the span in ctx
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// Span attribute keys
const (
	SpanAttrDealerID     = "dealer.id"
	SpanAttrProductID    = "product.id"
	SpanAttrCommitmentID = "commitment.id"
	SpanAttrOrderID      = "order.id"
	SpanAttrQuantity     = "quantity"
	SpanAttrLocation     = "inventory.location"
	SpanAttrCandidates   = "candidates"
)
