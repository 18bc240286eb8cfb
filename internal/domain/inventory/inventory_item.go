package inventory

import (
	"fmt"
	"strings"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DefaultLocation is used when an order does not name a stocking location
const DefaultLocation = "MAIN"

// InventoryItem is the stock position of one product at one location.
// It is the aggregate root for reservation, release, delivery and receipt.
//
// Invariants: OnHand >= 0, 0 <= Reserved <= OnHand, Incoming >= 0.
type InventoryItem struct {
	shared.BaseAggregateRoot
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_product_location,priority:1"`
	Location  string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_inventory_product_location,priority:2"`
	OnHand    int       `gorm:"not null;default:0"`
	Reserved  int       `gorm:"not null;default:0"`
	Incoming  int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// NormalizeLocation upper-cases a location code and applies the default
func NormalizeLocation(location string) string {
	location = strings.ToUpper(strings.TrimSpace(location))
	if location == "" {
		return DefaultLocation
	}
	return location
}

// NewInventoryItem creates an empty stock position
func NewInventoryItem(productID uuid.UUID, location string) (*InventoryItem, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	return &InventoryItem{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		Location:          NormalizeLocation(location),
	}, nil
}

// Available returns on-hand stock not yet promised to a confirmed order
func (i *InventoryItem) Available() int {
	return i.OnHand - i.Reserved
}

// ATP computes the available-to-promise view for a requested quantity.
// A shortfall is reported in the result, never as an error.
func (i *InventoryItem) ATP(requested int) ATP {
	return NewATP(i.OnHand, i.Reserved, i.Incoming, requested)
}

// Reserve moves quantity from available to reserved for an order
func (i *InventoryItem) Reserve(orderID uuid.UUID, quantity int) (*Reservation, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Reserve quantity must be positive")
	}
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SOURCE", "Order ID is required")
	}
	if i.Available() < quantity {
		return nil, shared.NewDomainError(shared.CodeInsufficientStock,
			fmt.Sprintf("Insufficient available stock: requested %d, available %d", quantity, i.Available()))
	}

	i.Reserved += quantity
	i.IncrementVersion()

	r := NewReservation(i.ID, orderID, quantity)
	i.AddDomainEvent(NewStockReservedEvent(i, r))
	return r, nil
}

// Release returns a reservation's quantity to available (order cancelled)
func (i *InventoryItem) Release(r *Reservation) error {
	if err := i.checkReservation(r); err != nil {
		return err
	}
	i.Reserved -= r.Quantity
	i.IncrementVersion()
	r.Release()
	i.AddDomainEvent(NewStockReleasedEvent(i, r))
	return nil
}

// Deliver ships a reservation: on-hand and reserved drop together
func (i *InventoryItem) Deliver(r *Reservation) error {
	if err := i.checkReservation(r); err != nil {
		return err
	}
	i.OnHand -= r.Quantity
	i.Reserved -= r.Quantity
	i.IncrementVersion()
	r.Deliver()
	i.AddDomainEvent(NewStockDeliveredEvent(i, r))
	return nil
}

func (i *InventoryItem) checkReservation(r *Reservation) error {
	if r == nil || r.InventoryItemID != i.ID {
		return shared.NewDomainError("RESERVATION_NOT_FOUND", "Reservation does not belong to this inventory item")
	}
	if !r.IsActive() {
		return shared.NewDomainError(shared.CodeInvalidState, "Reservation already released or delivered")
	}
	if r.Quantity > i.Reserved {
		return shared.NewDomainError(shared.CodeInvalidState, "Reservation exceeds reserved stock")
	}
	return nil
}

// Receive books a goods receipt into on-hand, drawing down incoming
func (i *InventoryItem) Receive(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Receipt quantity must be positive")
	}
	i.OnHand += quantity
	i.Incoming = max(0, i.Incoming-quantity)
	i.IncrementVersion()
	i.AddDomainEvent(NewStockReceivedEvent(i, quantity))
	return nil
}

// ExpectIncoming records announced inbound stock not yet received.
func (i *InventoryItem) ExpectIncoming(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Incoming quantity must be positive")
	}
	i.Incoming += quantity
	i.IncrementVersion()
	return nil
}
