// Package inventory implements the stock ledger use cases: available-to-
// promise checks, reservations for confirmed orders, deliveries and receipts.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/dealerops/backend/internal/application/transaction"
	"github.com/dealerops/backend/internal/domain/inventory"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service handles inventory-related business operations
type Service struct {
	inventoryRepo  inventory.InventoryItemRepository
	scope          transaction.Scope
	retry          transaction.RetryPolicy
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewService creates an inventory Service
func NewService(inventoryRepo inventory.InventoryItemRepository, scope transaction.Scope, retry transaction.RetryPolicy, logger *zap.Logger) *Service {
	return &Service{
		inventoryRepo: inventoryRepo,
		scope:         scope,
		retry:         retry,
		logger:        logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CheckATP reports availability for a requested quantity. A product with no
// stock record reads as zero stock; a shortfall is part of the answer.
func (s *Service) CheckATP(ctx context.Context, productID uuid.UUID, location string, requested int) (*ATPResult, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product ID is required")
	}
	if requested < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Requested quantity cannot be negative")
	}
	location = inventory.NormalizeLocation(location)
	item, err := s.inventoryRepo.FindByProductAndLocation(ctx, productID, location)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to load stock position: %w", err)
	}
	return atpFor(productID, location, item, requested), nil
}

// CheckATPInScope is CheckATP against the repositories of an open transaction
func CheckATPInScope(ctx context.Context, repos transaction.Repositories, productID uuid.UUID, location string, requested int) (*ATPResult, error) {
	location = inventory.NormalizeLocation(location)
	item, err := repos.Inventory().FindByProductAndLocation(ctx, productID, location)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to load stock position: %w", err)
	}
	return atpFor(productID, location, item, requested), nil
}

func atpFor(productID uuid.UUID, location string, item *inventory.InventoryItem, requested int) *ATPResult {
	atp := inventory.NewATP(0, 0, 0, requested)
	if item != nil {
		atp = item.ATP(requested)
	}
	return &ATPResult{ProductID: productID, Location: location, ATP: atp}
}

// Reserve holds stock for an order
func (s *Service) Reserve(ctx context.Context, in ReserveInput) (*ReservationResponse, error) {
	var (
		res    *inventory.Reservation
		item   *inventory.InventoryItem
		events []shared.DomainEvent
	)
	err := transaction.ExecuteWithRetry(ctx, s.scope, s.retry, s.logger, func(repos transaction.Repositories) error {
		var err error
		res, item, events, err = ReserveInScope(ctx, repos, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)
	s.logger.Info("Stock reserved",
		zap.String("reservation_id", res.ID.String()),
		zap.String("product_id", item.ProductID.String()),
		zap.String("order_id", in.OrderID.String()),
		zap.Int("quantity", res.Quantity),
	)
	resp := ToReservationResponse(res, item)
	return &resp, nil
}

// ReserveInScope locks the stock position and reserves quantity for an order
func ReserveInScope(ctx context.Context, repos transaction.Repositories, in ReserveInput) (*inventory.Reservation, *inventory.InventoryItem, []shared.DomainEvent, error) {
	item, err := repos.Inventory().FindByProductAndLocationForUpdate(ctx, in.ProductID, inventory.NormalizeLocation(in.Location))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, nil, shared.NewDomainError(shared.CodeInsufficientStock,
				fmt.Sprintf("Insufficient available stock: requested %d, available 0", in.Quantity))
		}
		return nil, nil, nil, err
	}
	res, err := item.Reserve(in.OrderID, in.Quantity)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := repos.Inventory().SaveWithLock(ctx, item); err != nil {
		return nil, nil, nil, err
	}
	if err := repos.Reservations().Create(ctx, res); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to save reservation: %w", err)
	}
	events := item.GetDomainEvents()
	item.ClearDomainEvents()
	return res, item, events, nil
}

// Release returns a reservation's quantity to available stock
func (s *Service) Release(ctx context.Context, reservationID uuid.UUID) (*ReservationResponse, error) {
	return s.close(ctx, reservationID, (*inventory.InventoryItem).Release, "Stock reservation released")
}

// Deliver ships a reservation, removing its quantity from on-hand stock
func (s *Service) Deliver(ctx context.Context, reservationID uuid.UUID) (*ReservationResponse, error) {
	return s.close(ctx, reservationID, (*inventory.InventoryItem).Deliver, "Stock reservation delivered")
}

// CloseAction is a terminal reservation transition on a stock position
type CloseAction func(item *inventory.InventoryItem, r *inventory.Reservation) error

func (s *Service) close(ctx context.Context, reservationID uuid.UUID, action CloseAction, msg string) (*ReservationResponse, error) {
	var (
		res    *inventory.Reservation
		item   *inventory.InventoryItem
		events []shared.DomainEvent
	)
	err := transaction.ExecuteWithRetry(ctx, s.scope, s.retry, s.logger, func(repos transaction.Repositories) error {
		var err error
		res, item, events, err = CloseInScope(ctx, repos, reservationID, action)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)
	s.logger.Info(msg,
		zap.String("reservation_id", reservationID.String()),
		zap.String("order_id", res.OrderID.String()),
		zap.Int("quantity", res.Quantity),
	)
	resp := ToReservationResponse(res, item)
	return &resp, nil
}

// CloseInScope applies a release or delivery to one reservation
func CloseInScope(ctx context.Context, repos transaction.Repositories, reservationID uuid.UUID, action CloseAction) (*inventory.Reservation, *inventory.InventoryItem, []shared.DomainEvent, error) {
	res, err := repos.Reservations().FindByID(ctx, reservationID)
	if err != nil {
		return nil, nil, nil, err
	}
	item, err := repos.Inventory().FindByIDForUpdate(ctx, res.InventoryItemID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to lock stock position: %w", err)
	}
	if err := action(item, res); err != nil {
		return nil, nil, nil, err
	}
	if err := repos.Inventory().SaveWithLock(ctx, item); err != nil {
		return nil, nil, nil, err
	}
	if err := repos.Reservations().Save(ctx, res); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to save reservation: %w", err)
	}
	events := item.GetDomainEvents()
	item.ClearDomainEvents()
	return res, item, events, nil
}

// Receive books a goods receipt
func (s *Service) Receive(ctx context.Context, in StockInput) (*StockPositionResponse, error) {
	return s.adjust(ctx, in, (*inventory.InventoryItem).Receive, "Stock received")
}

// ExpectIncoming records stock expected to arrive soon
func (s *Service) ExpectIncoming(ctx context.Context, in StockInput) (*StockPositionResponse, error) {
	return s.adjust(ctx, in, (*inventory.InventoryItem).ExpectIncoming, "Incoming stock recorded")
}

func (s *Service) adjust(ctx context.Context, in StockInput, apply func(*inventory.InventoryItem, int) error, msg string) (*StockPositionResponse, error) {
	if in.ProductID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product ID is required")
	}
	var (
		item   *inventory.InventoryItem
		events []shared.DomainEvent
	)
	err := transaction.ExecuteWithRetry(ctx, s.scope, s.retry, s.logger, func(repos transaction.Repositories) error {
		var err error
		item, err = repos.Inventory().GetOrCreate(ctx, in.ProductID, inventory.NormalizeLocation(in.Location))
		if err != nil {
			return fmt.Errorf("failed to load stock position: %w", err)
		}
		if err := apply(item, in.Quantity); err != nil {
			return err
		}
		if err := repos.Inventory().SaveWithLock(ctx, item); err != nil {
			return err
		}
		events = item.GetDomainEvents()
		item.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)
	s.logger.Info(msg,
		zap.String("product_id", in.ProductID.String()),
		zap.String("location", item.Location),
		zap.Int("quantity", in.Quantity),
		zap.Int("on_hand", item.OnHand),
		zap.Int("incoming", item.Incoming),
	)
	resp := ToStockPositionResponse(item)
	return &resp, nil
}

func (s *Service) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish inventory events", zap.Error(err))
	}
}
