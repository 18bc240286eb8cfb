package inventory

import (
	"time"

	"github.com/dealerops/backend/internal/domain/inventory"
	"github.com/google/uuid"
)

// ATPResult is the available-to-promise answer for a product at a location
type ATPResult struct {
	ProductID uuid.UUID `json:"product_id"`
	Location  string    `json:"location"`
	inventory.ATP
}

// ReserveInput is the input for reserving stock for an order
type ReserveInput struct {
	ProductID uuid.UUID
	Location  string
	OrderID   uuid.UUID
	Quantity  int
}

// StockInput is the input for a receipt or an expected arrival
type StockInput struct {
	ProductID uuid.UUID
	Location  string
	Quantity  int
}

// Reservation states as shown to API clients
const (
	ReservationActive    = "active"
	ReservationReleased  = "released"
	ReservationDelivered = "delivered"
)

// ReservationResponse represents a reservation in API responses
type ReservationResponse struct {
	ID              uuid.UUID  `json:"id"`
	InventoryItemID uuid.UUID  `json:"inventory_item_id"`
	ProductID       uuid.UUID  `json:"product_id"`
	Location        string     `json:"location"`
	OrderID         uuid.UUID  `json:"order_id"`
	Quantity        int        `json:"quantity"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
}

// StockPositionResponse represents an inventory item in API responses
type StockPositionResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Location  string    `json:"location"`
	OnHand    int       `json:"on_hand"`
	Reserved  int       `json:"reserved"`
	Available int       `json:"available"`
	Incoming  int       `json:"incoming"`
	Version   int       `json:"version"`
}

// ToReservationResponse converts a reservation and its stock position
func ToReservationResponse(r *inventory.Reservation, item *inventory.InventoryItem) ReservationResponse {
	status := ReservationActive
	switch {
	case r.Released:
		status = ReservationReleased
	case r.Delivered:
		status = ReservationDelivered
	}
	resp := ReservationResponse{
		ID:              r.ID,
		InventoryItemID: r.InventoryItemID,
		OrderID:         r.OrderID,
		Quantity:        r.Quantity,
		Status:          status,
		CreatedAt:       r.CreatedAt,
		ClosedAt:        r.ClosedAt,
	}
	if item != nil {
		resp.ProductID = item.ProductID
		resp.Location = item.Location
	}
	return resp
}

// ToStockPositionResponse converts an inventory item
func ToStockPositionResponse(item *inventory.InventoryItem) StockPositionResponse {
	return StockPositionResponse{
		ID:        item.ID,
		ProductID: item.ProductID,
		Location:  item.Location,
		OnHand:    item.OnHand,
		Reserved:  item.Reserved,
		Available: item.Available(),
		Incoming:  item.Incoming,
		Version:   item.Version,
	}
}
