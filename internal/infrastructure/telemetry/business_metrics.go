package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/dealerops/backend/internal/domain/alert"
	"github.com/dealerops/backend/internal/domain/commitment"
	"github.com/dealerops/backend/internal/domain/scoring"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/dealerops/backend/internal/domain/trade"
	"github.com/dealerops/backend/internal/infrastructure/scheduler"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter is nil")

// BusinessMetrics counts commitment lifecycle activity. It subscribes to
// every domain event, observes the event bus for handler failures and the
// scheduler for job runs.
type BusinessMetrics struct {
	eventsPublished  *Counter
	handlerFailures  *Counter
	quantityConsumed *Counter
	commitmentsMiss  *Counter
	ordersCreated    *Counter
	alertsRaised     *Counter
	healthDrops      *Counter
	jobRuns          *Counter
	jobDuration      *Histogram
}

// NewBusinessMetrics creates the instruments on meter
func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	bm := &BusinessMetrics{}
	counters := []struct {
		dst              **Counter
		name, desc, unit string
	}{
		{&bm.eventsPublished, "dealerops_events_published_total", "Domain events published", "{event}"},
		{&bm.handlerFailures, "dealerops_event_handler_failures_total", "Event handler failures", "{failure}"},
		{&bm.quantityConsumed, "dealerops_commitment_quantity_consumed_total", "Units credited to commitments", "{unit}"},
		{&bm.commitmentsMiss, "dealerops_commitments_missed_total", "Commitments marked missed", "{commitment}"},
		{&bm.ordersCreated, "dealerops_orders_created_total", "Sales orders created", "{order}"},
		{&bm.alertsRaised, "dealerops_alerts_raised_total", "Alerts raised", "{alert}"},
		{&bm.healthDrops, "dealerops_dealer_health_drops_total", "Dealers falling to critical health", "{dealer}"},
		{&bm.jobRuns, "dealerops_job_runs_total", "Scheduled job runs by outcome", "{run}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	var err error
	bm.jobDuration, err = NewHistogram(meter, "dealerops_job_duration_seconds",
		"Scheduled job duration", "s", JobDurationBuckets...)
	if err != nil {
		return nil, err
	}
	return bm, nil
}

// EventPublished implements event.Observer
func (bm *BusinessMetrics) EventPublished(ctx context.Context, eventType string) {
	bm.eventsPublished.Inc(ctx, AttrEventType.String(eventType))
}

// HandlerFailed implements event.Observer
func (bm *BusinessMetrics) HandlerFailed(ctx context.Context, eventType string) {
	bm.handlerFailures.Inc(ctx, AttrEventType.String(eventType))
}

// JobFinished implements scheduler.JobObserver
func (bm *BusinessMetrics) JobFinished(ctx context.Context, job *scheduler.Job, elapsed time.Duration) {
	bm.jobRuns.Inc(ctx, AttrJob.String(job.Name), AttrJobStatus.String(string(job.Status)))
	bm.jobDuration.RecordDuration(ctx, elapsed, AttrJob.String(job.Name))
}

// Handle implements shared.EventHandler for the events carrying quantities
func (bm *BusinessMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *commitment.CommitmentConsumedEvent:
		bm.quantityConsumed.Add(ctx, int64(e.QuantityTaken), AttrWindow.String(string(e.Window)))
	case *commitment.CommitmentMissedEvent:
		bm.commitmentsMiss.Inc(ctx)
	case *trade.OrderCreatedEvent:
		bm.ordersCreated.Inc(ctx)
	case *alert.AlertRaisedEvent:
		bm.alertsRaised.Inc(ctx, AttrAlertKind.String(string(e.Kind)), AttrSeverity.String(string(e.Severity)))
	case *scoring.DealerHealthDroppedEvent:
		bm.healthDrops.Inc(ctx)
	}
	return nil
}

// EventTypes implements shared.EventHandler
func (bm *BusinessMetrics) EventTypes() []string {
	return []string{
		commitment.EventTypeCommitmentConsumed,
		commitment.EventTypeCommitmentMissed,
		trade.EventTypeOrderCreated,
		alert.EventTypeAlertRaised,
		scoring.EventTypeDealerHealthDropped,
	}
}

var _ shared.EventHandler = (*BusinessMetrics)(nil)
