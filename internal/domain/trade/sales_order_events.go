package trade

import (
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeSalesOrder is the aggregate type for order events
const AggregateTypeSalesOrder = "SalesOrder"

// Event type constants
const (
	EventTypeOrderCreated       = "OrderCreated"
	EventTypeOrderStatusChanged = "OrderStatusChanged"
)

// OrderCreatedEvent is published when an order is placed
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	DealerID    uuid.UUID       `json:"dealer_id"`
	Total       decimal.Decimal `json:"total"`
	Quantity    int             `json:"quantity"`
}

// NewOrderCreatedEvent creates an OrderCreatedEvent
func NewOrderCreatedEvent(o *SalesOrder) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeSalesOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		DealerID:        o.DealerID,
		Total:           o.Total,
		Quantity:        o.TotalQuantity(),
	}
}

// OrderStatusChangedEvent is published on every status transition
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID  uuid.UUID   `json:"order_id"`
	DealerID uuid.UUID   `json:"dealer_id"`
	From     OrderStatus `json:"from"`
	To       OrderStatus `json:"to"`
}

// NewOrderStatusChangedEvent creates an OrderStatusChangedEvent
func NewOrderStatusChangedEvent(o *SalesOrder, from OrderStatus) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeSalesOrder, o.ID),
		OrderID:         o.ID,
		DealerID:        o.DealerID,
		From:            from,
		To:              o.Status,
	}
}
