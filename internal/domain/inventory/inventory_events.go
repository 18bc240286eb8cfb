package inventory

import (
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeInventoryItem is the aggregate type for inventory events
const AggregateTypeInventoryItem = "InventoryItem"

// Event type constants
const (
	EventTypeStockReserved  = "StockReserved"
	EventTypeStockReleased  = "StockReleased"
	EventTypeStockDelivered = "StockDelivered"
	EventTypeStockReceived  = "StockReceived"
)

// StockMovementEvent is raised for every reservation, release, delivery or receipt
type StockMovementEvent struct {
	shared.BaseDomainEvent
	InventoryItemID uuid.UUID  `json:"inventory_item_id"`
	ProductID       uuid.UUID  `json:"product_id"`
	Location        string     `json:"location"`
	ReservationID   *uuid.UUID `json:"reservation_id,omitempty"`
	OrderID         *uuid.UUID `json:"order_id,omitempty"`
	Quantity        int        `json:"quantity"`
	OnHandAfter     int        `json:"on_hand_after"`
	ReservedAfter   int        `json:"reserved_after"`
}

func newMovement(eventType string, item *InventoryItem, r *Reservation, qty int) *StockMovementEvent {
	e := &StockMovementEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeInventoryItem, item.ID),
		InventoryItemID: item.ID,
		ProductID:       item.ProductID,
		Location:        item.Location,
		Quantity:        qty,
		OnHandAfter:     item.OnHand,
		ReservedAfter:   item.Reserved,
	}
	if r != nil {
		rid, oid := r.ID, r.OrderID
		e.ReservationID = &rid
		e.OrderID = &oid
	}
	return e
}

// NewStockReservedEvent creates a StockReserved event
func NewStockReservedEvent(item *InventoryItem, r *Reservation) *StockMovementEvent {
	return newMovement(EventTypeStockReserved, item, r, r.Quantity)
}

// NewStockReleasedEvent creates a StockReleased event
func NewStockReleasedEvent(item *InventoryItem, r *Reservation) *StockMovementEvent {
	return newMovement(EventTypeStockReleased, item, r, r.Quantity)
}

// NewStockDeliveredEvent creates a StockDelivered event
func NewStockDeliveredEvent(item *InventoryItem, r *Reservation) *StockMovementEvent {
	return newMovement(EventTypeStockDelivered, item, r, r.Quantity)
}

// NewStockReceivedEvent creates a StockReceived event
func NewStockReceivedEvent(item *InventoryItem, qty int) *StockMovementEvent {
	return newMovement(EventTypeStockReceived, item, nil, qty)
}
