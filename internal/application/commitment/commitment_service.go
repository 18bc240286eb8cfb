// Package commitment implements the commitment lifecycle use cases: capture,
// listing, consumption by orders, the missed sweep and the weekly forecast.
package commitment

import (
	"context"
	"errors"
	"fmt"
	"time"

	resolverapp "github.com/dealerops/backend/internal/application/resolver"
	"github.com/dealerops/backend/internal/application/transaction"
	"github.com/dealerops/backend/internal/domain/catalog"
	"github.com/dealerops/backend/internal/domain/commitment"
	"github.com/dealerops/backend/internal/domain/partner"
	"github.com/dealerops/backend/internal/domain/resolver"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/dealerops/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// EntityResolver resolves free-text dealer and product mentions
type EntityResolver interface {
	Resolve(ctx context.Context, req resolverapp.ResolveRequest) (resolver.Resolution, error)
}

// Config tunes the commitment service
type Config struct {
	ForwardWindowDays int
	Retry             transaction.RetryPolicy
	// SweepBatchSize is the page size of the missed sweep; zero uses the default
	SweepBatchSize int
}

// DefaultConfig returns the 7-day forward window and the default retry policy
func DefaultConfig() Config {
	return Config{
		ForwardWindowDays: commitment.DefaultForwardWindowDays,
		Retry:             transaction.DefaultRetryPolicy(),
		SweepBatchSize:    SweepBatchSize,
	}
}

// Service handles commitment business operations
type Service struct {
	repo           commitment.Repository
	dealerRepo     partner.DealerRepository
	productRepo    catalog.ProductRepository
	scope          transaction.Scope
	resolver       EntityResolver
	policy         commitment.Policy
	retry          transaction.RetryPolicy
	sweepBatch     int
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewService creates a commitment Service
func NewService(
	repo commitment.Repository,
	dealerRepo partner.DealerRepository,
	productRepo catalog.ProductRepository,
	scope transaction.Scope,
	entityResolver EntityResolver,
	cfg Config,
	logger *zap.Logger,
) *Service {
	sweepBatch := cfg.SweepBatchSize
	if sweepBatch <= 0 {
		sweepBatch = SweepBatchSize
	}
	return &Service{
		repo:        repo,
		dealerRepo:  dealerRepo,
		productRepo: productRepo,
		scope:       scope,
		resolver:    entityResolver,
		policy:      commitment.Policy{ForwardWindowDays: cfg.ForwardWindowDays},
		retry:       cfg.Retry,
		sweepBatch:  sweepBatch,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock replaces the time source
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Policy returns the consumption policy in use
func (s *Service) Policy() commitment.Policy {
	return s.policy
}

// Create records a new pending commitment
func (s *Service) Create(ctx context.Context, in CreateCommitmentInput) (*CommitmentResponse, error) {
	if in.DealerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidCommitment, "Dealer is required")
	}
	if _, err := s.dealerRepo.FindByID(ctx, in.DealerID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeInvalidCommitment, "Dealer does not exist")
		}
		return nil, err
	}
	if in.ProductID != nil && *in.ProductID != uuid.Nil {
		if _, err := s.productRepo.FindByID(ctx, *in.ProductID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError(shared.CodeNotFound, "Product not found")
			}
			return nil, err
		}
	}

	c, err := commitment.NewCommitment(in.DealerID, in.ProductID, in.Quantity, in.ExpectedDate, in.Confidence)
	if err != nil {
		return nil, err
	}
	c.SalesPersonID = in.SalesPersonID
	c.SourceText = in.SourceText

	err = s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		return repos.Commitments().Create(ctx, c)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save commitment: %w", err)
	}
	s.publish(ctx, c.GetDomainEvents())
	c.ClearDomainEvents()

	s.logger.Info("Commitment created",
		zap.String("commitment_id", c.ID.String()),
		zap.String("dealer_id", c.DealerID.String()),
		zap.Int("quantity", c.QuantityPromised),
		zap.String("expected_date", c.ExpectedDate.Format(dateLayout)),
	)
	resp := ToCommitmentResponse(c)
	return &resp, nil
}

// Get returns a commitment by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*CommitmentResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToCommitmentResponse(c)
	return &resp, nil
}

// ListPending returns the open commitments of a dealer in consumption order.
// A nil product lists every open commitment of the dealer.
func (s *Service) ListPending(ctx context.Context, dealerID uuid.UUID, productID *uuid.UUID) ([]PendingCommitmentView, error) {
	if dealerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Dealer ID is required")
	}
	open, err := s.repo.FindPending(ctx, commitment.PendingQuery{DealerID: dealerID, ProductID: productID})
	if err != nil {
		return nil, fmt.Errorf("failed to load pending commitments: %w", err)
	}
	commitment.SortPending(open)

	today := shared.Day(s.now())
	views := make([]PendingCommitmentView, 0, len(open))
	for _, c := range open {
		views = append(views, PendingCommitmentView{
			CommitmentResponse: ToCommitmentResponse(c),
			Remaining:          c.Remaining(),
			Urgency:            c.UrgencyAt(today),
			DaysUntilDue:       shared.DaysBetween(today, c.ExpectedDate),
		})
	}
	return views, nil
}

// Consume runs an order quantity against the dealer's open commitments for
// the product. The read-plan-write unit is serialized per dealer and product
// and replayed on a lost optimistic lock.
func (s *Service) Consume(ctx context.Context, in ConsumeInput) (_ *ConsumptionResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "commitment", "consume",
		attribute.String(telemetry.SpanAttrDealerID, in.DealerID.String()),
		attribute.Int(telemetry.SpanAttrQuantity, in.OrderQuantity),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	if in.DealerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Dealer ID is required")
	}
	if in.OrderQuantity <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order quantity must be positive")
	}
	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = s.now()
	}

	var (
		plan   commitment.Plan
		events []shared.DomainEvent
	)
	err = transaction.ExecuteWithRetry(ctx, s.scope, s.retry, s.logger, func(repos transaction.Repositories) error {
		var err error
		plan, events, err = ConsumeInScope(ctx, repos, s.policy, in.DealerID, in.ProductID, in.OrderQuantity, asOf)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)
	span.SetAttributes(attribute.Int("consumed", plan.ConsumedFromCommitments))

	s.logger.Info("Order consumed against commitments",
		zap.String("dealer_id", in.DealerID.String()),
		zap.Int("order_quantity", in.OrderQuantity),
		zap.Int("consumed", plan.ConsumedFromCommitments),
		zap.Int("unmatched", plan.UnmatchedQuantity),
		zap.Int("allocations", len(plan.Allocations)),
	)
	result := ToConsumptionResult(plan)
	return &result, nil
}

// ConsumeInScope loads the locked pending set for a dealer and product, runs
// the consumption policy and saves every touched commitment. It must run
// inside a transaction scope; the caller publishes the returned events once
// the transaction has committed.
func ConsumeInScope(
	ctx context.Context,
	repos transaction.Repositories,
	policy commitment.Policy,
	dealerID uuid.UUID,
	productID *uuid.UUID,
	quantity int,
	asOf time.Time,
) (commitment.Plan, []shared.DomainEvent, error) {
	open, err := repos.Commitments().FindPendingForUpdate(ctx, commitment.ConsumptionScope(dealerID, productID))
	if err != nil {
		return commitment.Plan{}, nil, fmt.Errorf("failed to lock pending commitments: %w", err)
	}
	plan, err := policy.Consume(open, quantity, asOf)
	if err != nil {
		return commitment.Plan{}, nil, err
	}
	events := make([]shared.DomainEvent, 0, len(plan.Touched))
	for _, c := range plan.Touched {
		if err := repos.Commitments().SaveWithLock(ctx, c); err != nil {
			return commitment.Plan{}, nil, err
		}
		events = append(events, c.GetDomainEvents()...)
		c.ClearDomainEvents()
	}
	return plan, events, nil
}

func (s *Service) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish commitment events",
			zap.Int("event_count", len(events)),
			zap.Error(err),
		)
	}
}
