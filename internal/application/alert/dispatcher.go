// Package alert turns domain events into deduplicated manager alerts and
// exposes the alert inbox.
package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dealerops/backend/internal/domain/alert"
	"github.com/dealerops/backend/internal/domain/commitment"
	"github.com/dealerops/backend/internal/domain/partner"
	"github.com/dealerops/backend/internal/domain/scoring"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Health totals under this raise a critical rather than a high alert
const criticalHealthTotal = 30.0

const triggerDateLayout = "2006-01-02"

func missedCommitmentCondition(commitmentID uuid.UUID, expected time.Time) (alert.Target, string) {
	return alert.Target{Kind: alert.EntityKindCommitment, ID: commitmentID}, expected.Format(triggerDateLayout)
}

func healthDropCondition(dealerID uuid.UUID, scoreDate time.Time) (alert.Target, string) {
	return alert.Target{Kind: alert.EntityKindDealer, ID: dealerID}, scoreDate.Format(triggerDateLayout)
}

// Dispatcher handles CommitmentMissed, DealerHealthDropped and
// DiscountApprovalRequested events by raising one alert per condition
type Dispatcher struct {
	repo           alert.Repository
	dealerRepo     partner.DealerRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewDispatcher creates a new alert Dispatcher
func NewDispatcher(repo alert.Repository, dealerRepo partner.DealerRepository, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		repo:       repo,
		dealerRepo: dealerRepo,
		logger:     logger,
	}
}

// SetEventPublisher sets the publisher for AlertRaised events
func (d *Dispatcher) SetEventPublisher(publisher shared.EventPublisher) {
	d.eventPublisher = publisher
}

// EventTypes returns the event types this handler is interested in
func (d *Dispatcher) EventTypes() []string {
	return []string{
		commitment.EventTypeCommitmentMissed,
		scoring.EventTypeDealerHealthDropped,
		alert.EventTypeDiscountApprovalRequested,
	}
}

// Handle maps an event to an alert. Redelivery of the same condition is a no-op.
func (d *Dispatcher) Handle(ctx context.Context, event shared.DomainEvent) error {
	var err error
	switch e := event.(type) {
	case *commitment.CommitmentMissedEvent:
		_, err = d.missedCommitment(ctx, e)
	case *scoring.DealerHealthDroppedEvent:
		_, err = d.healthDropped(ctx, e)
	case *alert.DiscountApprovalRequestedEvent:
		_, err = d.discountApproval(ctx, e)
	default:
		d.logger.Error("unexpected event type",
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	return err
}

func (d *Dispatcher) missedCommitment(ctx context.Context, e *commitment.CommitmentMissedEvent) (*alert.Alert, error) {
	target, due := missedCommitmentCondition(e.CommitmentID, e.ExpectedDate)
	return d.raise(ctx, alert.KindMissedCommitment, target, alert.SeverityHigh, due,
		"Missed commitment",
		fmt.Sprintf("%s missed a commitment due %s with %d units outstanding",
			d.dealerLabel(ctx, e.DealerID), due, e.RemainingQuantity),
	)
}

func (d *Dispatcher) healthDropped(ctx context.Context, e *scoring.DealerHealthDroppedEvent) (*alert.Alert, error) {
	severity := alert.SeverityHigh
	if e.Total < criticalHealthTotal {
		severity = alert.SeverityCritical
	}
	target, scoreDate := healthDropCondition(e.DealerID, e.ScoreDate)
	msg := fmt.Sprintf("%s health score fell to %.1f", d.dealerLabel(ctx, e.DealerID), e.Total)
	if len(e.Reasons) > 0 {
		msg += ": " + strings.Join(e.Reasons, ", ")
	}
	return d.raise(ctx, alert.KindDealerAtRisk, target, severity, scoreDate, "Dealer at risk", msg)
}

func (d *Dispatcher) discountApproval(ctx context.Context, e *alert.DiscountApprovalRequestedEvent) (*alert.Alert, error) {
	msg := fmt.Sprintf("%s requests a %.1f%% discount", d.dealerLabel(ctx, e.DealerID), e.Percent)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return d.raise(ctx, alert.KindDiscountApproval, e.Target(), alert.SeverityMedium, e.RequestID.String(),
		"Discount approval required", msg)
}

// raise stores a pending alert unless one already exists for the dedupe key.
// It returns the existing alert in that case.
func (d *Dispatcher) raise(ctx context.Context, kind alert.Kind, target alert.Target, severity alert.Severity, trigger, title, message string) (*alert.Alert, error) {
	key := alert.DedupeKey(kind, target, trigger)
	existing, err := d.repo.FindPendingByDedupeKey(ctx, key)
	if err == nil {
		d.logger.Debug("alert already pending, skipping", zap.String("dedupe_key", key))
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to check pending alert: %w", err)
	}

	a, err := alert.NewAlert(kind, target, severity, trigger, title, message)
	if err != nil {
		return nil, err
	}
	if err := d.repo.Create(ctx, a); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			d.logger.Debug("alert raised concurrently, skipping", zap.String("dedupe_key", key))
			return d.repo.FindPendingByDedupeKey(ctx, key)
		}
		return nil, fmt.Errorf("failed to save alert: %w", err)
	}

	d.logger.Info("Alert raised",
		zap.String("alert_id", a.ID.String()),
		zap.String("kind", string(kind)),
		zap.String("target", target.String()),
		zap.String("severity", string(severity)),
	)
	if d.eventPublisher != nil {
		if err := d.eventPublisher.Publish(ctx, a.GetDomainEvents()...); err != nil {
			d.logger.Warn("Failed to publish alert event", zap.Error(err))
		}
	}
	a.ClearDomainEvents()
	return a, nil
}

func (d *Dispatcher) dealerLabel(ctx context.Context, dealerID uuid.UUID) string {
	if d.dealerRepo == nil {
		return "Dealer " + dealerID.String()
	}
	dealer, err := d.dealerRepo.FindByID(ctx, dealerID)
	if err != nil {
		return "Dealer " + dealerID.String()
	}
	return fmt.Sprintf("%s (%s)", dealer.Name, dealer.Code)
}
