package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/dealerops/backend/internal/domain/alert"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config tunes the alert service
type Config struct {
	DiscountThresholdPct float64
}

// Service exposes the alert inbox and discount approval requests
type Service struct {
	repo           alert.Repository
	dispatcher     *Dispatcher
	threshold      float64
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewService creates an alert Service
func NewService(repo alert.Repository, dispatcher *Dispatcher, cfg Config, logger *zap.Logger) *Service {
	threshold := cfg.DiscountThresholdPct
	if threshold <= 0 {
		threshold = DefaultDiscountThresholdPct
	}
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		threshold:  threshold,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// List returns alerts newest first
func (s *Service) List(ctx context.Context, q ListQuery) ([]AlertResponse, int64, error) {
	filter := alert.ListFilter{Filter: shared.DefaultFilter()}
	if q.Page > 0 {
		filter.Page = q.Page
	}
	if q.PageSize > 0 {
		filter.PageSize = q.PageSize
	}
	if q.Status != "" {
		status := alert.Status(q.Status)
		filter.Status = &status
	}
	if q.Kind != "" {
		kind := alert.Kind(q.Kind)
		filter.Kind = &kind
	}
	if q.EntityKind != "" && q.EntityID != nil {
		filter.Target = &alert.Target{Kind: alert.EntityKind(q.EntityKind), ID: *q.EntityID}
	}

	alerts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	out := make([]AlertResponse, 0, len(alerts))
	for i := range alerts {
		out = append(out, ToAlertResponse(&alerts[i]))
	}
	return out, total, nil
}

// Resolve closes an alert as handled
func (s *Service) Resolve(ctx context.Context, id uuid.UUID) (*AlertResponse, error) {
	return s.close(ctx, id, (*alert.Alert).Resolve, "Alert resolved")
}

// Dismiss closes an alert as not actionable
func (s *Service) Dismiss(ctx context.Context, id uuid.UUID) (*AlertResponse, error) {
	return s.close(ctx, id, (*alert.Alert).Dismiss, "Alert dismissed")
}

func (s *Service) close(ctx context.Context, id uuid.UUID, apply func(*alert.Alert) error, msg string) (*AlertResponse, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(a); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, a); err != nil {
		if errors.Is(err, shared.ErrOptimisticLock) {
			return nil, shared.NewDomainError(shared.CodeConcurrencyConflict, "Alert was closed by another request")
		}
		return nil, fmt.Errorf("failed to save alert: %w", err)
	}
	s.logger.Info(msg,
		zap.String("alert_id", a.ID.String()),
		zap.String("kind", string(a.Kind)),
	)
	resp := ToAlertResponse(a)
	return &resp, nil
}

// RequestDiscount checks a discount against the approval threshold. Above it,
// a DiscountApprovalRequested event is raised and the resulting alert returned.
func (s *Service) RequestDiscount(ctx context.Context, req DiscountRequest) (*DiscountDecision, error) {
	if req.DealerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Dealer ID is required")
	}
	if req.Percent <= 0 || req.Percent > 100 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Discount percent must be in (0, 100]")
	}
	decision := &DiscountDecision{ThresholdPct: s.threshold}
	if req.Percent <= s.threshold {
		return decision, nil
	}

	evt := alert.NewDiscountApprovalRequestedEvent(req.DealerID, req.OrderID, req.Percent, req.Reason)
	a, err := s.dispatcher.discountApproval(ctx, evt)
	if err != nil {
		return nil, err
	}
	// Other subscribers see the request too; the dispatcher's own copy dedupes.
	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("Failed to publish discount request", zap.Error(err))
		}
	}

	decision.RequiresApproval = true
	resp := ToAlertResponse(a)
	decision.Alert = &resp
	s.logger.Info("Discount approval requested",
		zap.String("dealer_id", req.DealerID.String()),
		zap.Float64("percent", req.Percent),
		zap.String("alert_id", a.ID.String()),
	)
	return decision, nil
}
