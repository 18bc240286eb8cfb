// Package trade implements dealer order intake and the order lifecycle.
// Intake consumes open commitments and reports stock availability per line;
// confirmation, cancellation and delivery drive the stock reservations.
package trade

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	commitmentapp "github.com/dealerops/backend/internal/application/commitment"
	inventoryapp "github.com/dealerops/backend/internal/application/inventory"
	"github.com/dealerops/backend/internal/application/transaction"
	"github.com/dealerops/backend/internal/domain/catalog"
	"github.com/dealerops/backend/internal/domain/commitment"
	"github.com/dealerops/backend/internal/domain/inventory"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/dealerops/backend/internal/domain/trade"
	"github.com/dealerops/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OrderService handles sales order business operations
type OrderService struct {
	orderRepo      trade.SalesOrderRepository
	scope          transaction.Scope
	policy         commitment.Policy
	retry          transaction.RetryPolicy
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo trade.SalesOrderRepository,
	scope transaction.Scope,
	policy commitment.Policy,
	retry transaction.RetryPolicy,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		scope:     scope,
		policy:    policy,
		retry:     retry,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock replaces the time source
func (s *OrderService) SetClock(now func() time.Time) {
	s.now = now
}

// Get retrieves an order by ID
func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// CreateOrder places a pending order. Each line is run against the dealer's
// open commitments for that product and checked for availability; neither a
// shortfall nor unmatched quantity rejects the order.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (_ *CreateOrderResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "order", "create",
		attribute.String(telemetry.SpanAttrDealerID, in.DealerID.String()),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	if in.DealerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Dealer ID is required")
	}
	lines, err := mergeLines(in.Lines)
	if err != nil {
		return nil, err
	}
	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = s.now()
	}
	location := inventory.NormalizeLocation(in.Location)

	var (
		order    *trade.SalesOrder
		outcomes []LineOutcome
		events   []shared.DomainEvent
	)
	err = transaction.ExecuteWithRetry(ctx, s.scope, s.retry, s.logger, func(repos transaction.Repositories) error {
		events = nil

		dealer, err := repos.Dealers().FindByID(ctx, in.DealerID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError(shared.CodeNotFound, "Dealer not found")
			}
			return err
		}
		if !dealer.IsActive() {
			return shared.NewDomainError(shared.CodeInvalidInput, "Dealer is inactive")
		}
		products, err := loadProducts(ctx, repos, lines)
		if err != nil {
			return err
		}

		seq, err := repos.Orders().NextSequence(ctx, asOf.Year())
		if err != nil {
			return fmt.Errorf("failed to allocate order number: %w", err)
		}
		order, err = trade.NewSalesOrder(trade.FormatOrderNumber(asOf.Year(), seq), dealer.ID, location, asOf)
		if err != nil {
			return err
		}
		order.Notes = in.Notes

		for _, l := range lines {
			p := products[l.ProductID]
			if _, err := order.AddLine(p.ID, p.Code, l.Quantity, p.UnitPrice); err != nil {
				return err
			}
		}

		// commitment rows are locked in product ID order
		outcomes = make([]LineOutcome, len(lines))
		for _, i := range lockOrder(lines) {
			productID := lines[i].ProductID
			qty := lines[i].Quantity
			plan, consumed, err := commitmentapp.ConsumeInScope(ctx, repos, s.policy, dealer.ID, &productID, qty, asOf)
			if err != nil {
				return err
			}
			events = append(events, consumed...)
			order.RecordConsumption(productID, plan.ConsumedFromCommitments, plan.UnmatchedQuantity)

			atp, err := inventoryapp.CheckATPInScope(ctx, repos, productID, location, qty)
			if err != nil {
				return err
			}
			outcomes[i] = LineOutcome{
				ProductID:   productID,
				Consumption: commitmentapp.ToConsumptionResult(plan),
				ATP:         *atp,
			}
		}

		if dealer.TouchLastOrder(order.OrderDate) {
			if err := repos.Dealers().Save(ctx, dealer); err != nil {
				return fmt.Errorf("failed to update dealer: %w", err)
			}
		}
		if err := order.Finalize(); err != nil {
			return err
		}
		if err := repos.Orders().Create(ctx, order); err != nil {
			return err
		}
		events = append(events, order.GetDomainEvents()...)
		order.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("dealer_id", order.DealerID.String()),
		zap.Int("lines", len(order.Lines)),
		zap.String("total", order.Total.StringFixed(2)),
	)
	return &CreateOrderResult{Order: ToOrderResponse(order), Lines: outcomes}, nil
}

// mergeLines folds repeated products into one line, keeping first-seen order.
// A commitment can only be saved once per transaction.
func mergeLines(in []OrderLineInput) ([]OrderLineInput, error) {
	if len(in) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order must have at least one line")
	}
	merged := make([]OrderLineInput, 0, len(in))
	index := make(map[uuid.UUID]int, len(in))
	for _, l := range in {
		if l.ProductID == uuid.Nil {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product ID is required")
		}
		if l.Quantity <= 0 {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order quantity must be positive")
		}
		if i, ok := index[l.ProductID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	return merged, nil
}

// compareIDs orders UUIDs the way postgres sorts the uuid type
func compareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

// lockOrder returns the indices of lines sorted by product ID. Every
// transaction that locks rows for several products takes them in this order.
func lockOrder(lines []OrderLineInput) []int {
	order := make([]int, len(lines))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		return compareIDs(lines[a].ProductID, lines[b].ProductID)
	})
	return order
}

func loadProducts(ctx context.Context, repos transaction.Repositories, lines []OrderLineInput) (map[uuid.UUID]catalog.Product, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	found, err := repos.Products().FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	products := make(map[uuid.UUID]catalog.Product, len(found))
	for _, p := range found {
		products[p.ID] = p
	}
	for _, id := range ids {
		p, ok := products[id]
		if !ok {
			return nil, shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("Product %s not found", id))
		}
		if !p.IsActive() {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Product %s is discontinued", p.Code))
		}
	}
	return products, nil
}

// ConfirmOrder confirms a pending order and reserves stock for every line.
// One short line fails the whole confirmation.
func (s *OrderService) ConfirmOrder(ctx context.Context, orderID uuid.UUID) (*OrderTransitionResult, error) {
	return s.transition(ctx, orderID, "Order confirmed", func(repos transaction.Repositories, o *trade.SalesOrder) ([]inventoryapp.ReservationResponse, []shared.DomainEvent, error) {
		if err := o.Confirm(); err != nil {
			return nil, nil, err
		}
		var (
			reservations []inventoryapp.ReservationResponse
			events       []shared.DomainEvent
		)
		lines := slices.Clone(o.Lines)
		slices.SortFunc(lines, func(a, b trade.SalesOrderLine) int {
			return compareIDs(a.ProductID, b.ProductID)
		})
		for _, l := range lines {
			res, item, evs, err := inventoryapp.ReserveInScope(ctx, repos, inventoryapp.ReserveInput{
				ProductID: l.ProductID,
				Location:  o.Location,
				OrderID:   o.ID,
				Quantity:  l.Quantity,
			})
			if err != nil {
				return nil, nil, err
			}
			reservations = append(reservations, inventoryapp.ToReservationResponse(res, item))
			events = append(events, evs...)
		}
		return reservations, events, nil
	})
}

// CancelOrder cancels a pending or confirmed order and releases its stock.
// Commitment consumption recorded at intake stands.
func (s *OrderService) CancelOrder(ctx context.Context, orderID uuid.UUID) (*OrderTransitionResult, error) {
	return s.transition(ctx, orderID, "Order cancelled", func(repos transaction.Repositories, o *trade.SalesOrder) ([]inventoryapp.ReservationResponse, []shared.DomainEvent, error) {
		if err := o.Cancel(); err != nil {
			return nil, nil, err
		}
		return closeReservations(ctx, repos, o.ID, (*inventory.InventoryItem).Release)
	})
}

// DeliverOrder ships a confirmed order, drawing its reservations from stock
func (s *OrderService) DeliverOrder(ctx context.Context, orderID uuid.UUID) (*OrderTransitionResult, error) {
	return s.transition(ctx, orderID, "Order delivered", func(repos transaction.Repositories, o *trade.SalesOrder) ([]inventoryapp.ReservationResponse, []shared.DomainEvent, error) {
		if err := o.Deliver(); err != nil {
			return nil, nil, err
		}
		return closeReservations(ctx, repos, o.ID, (*inventory.InventoryItem).Deliver)
	})
}

type transitionFunc func(repos transaction.Repositories, o *trade.SalesOrder) ([]inventoryapp.ReservationResponse, []shared.DomainEvent, error)

func (s *OrderService) transition(ctx context.Context, orderID uuid.UUID, msg string, apply transitionFunc) (*OrderTransitionResult, error) {
	var (
		order        *trade.SalesOrder
		reservations []inventoryapp.ReservationResponse
		events       []shared.DomainEvent
	)
	err := transaction.ExecuteWithRetry(ctx, s.scope, s.retry, s.logger, func(repos transaction.Repositories) error {
		var err error
		order, err = repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		reservations, events, err = apply(repos, order)
		if err != nil {
			return err
		}
		if err := repos.Orders().SaveWithLock(ctx, order); err != nil {
			return err
		}
		events = append(events, order.GetDomainEvents()...)
		order.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)

	s.logger.Info(msg,
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Int("reservations", len(reservations)),
	)
	if reservations == nil {
		reservations = []inventoryapp.ReservationResponse{}
	}
	return &OrderTransitionResult{Order: ToOrderResponse(order), Reservations: reservations}, nil
}

func closeReservations(ctx context.Context, repos transaction.Repositories, orderID uuid.UUID, action inventoryapp.CloseAction) ([]inventoryapp.ReservationResponse, []shared.DomainEvent, error) {
	active, err := repos.Reservations().FindActiveByOrder(ctx, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load reservations: %w", err)
	}
	slices.SortFunc(active, func(a, b inventory.Reservation) int {
		return compareIDs(a.InventoryItemID, b.InventoryItemID)
	})
	var (
		reservations []inventoryapp.ReservationResponse
		events       []shared.DomainEvent
	)
	for _, r := range active {
		res, item, evs, err := inventoryapp.CloseInScope(ctx, repos, r.ID, action)
		if err != nil {
			return nil, nil, err
		}
		reservations = append(reservations, inventoryapp.ToReservationResponse(res, item))
		events = append(events, evs...)
	}
	return reservations, events, nil
}

func (s *OrderService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish order events",
			zap.Int("event_count", len(events)),
			zap.Error(err),
		)
	}
}
