package inventory

import (
	"time"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Reservation holds stock for a confirmed order until it is released or delivered
type Reservation struct {
	shared.BaseEntity
	InventoryItemID uuid.UUID  `gorm:"type:uuid;not null;index"`
	OrderID         uuid.UUID  `gorm:"type:uuid;not null;index"`
	Quantity        int        `gorm:"not null"`
	Released        bool       `gorm:"not null;default:false"`
	Delivered       bool       `gorm:"not null;default:false"`
	ClosedAt        *time.Time `gorm:"type:timestamp"`
}

// TableName returns the table name for GORM
func (Reservation) TableName() string {
	return "stock_reservations"
}

// NewReservation creates an active reservation
func NewReservation(inventoryItemID, orderID uuid.UUID, quantity int) *Reservation {
	return &Reservation{
		BaseEntity:      shared.NewBaseEntity(),
		InventoryItemID: inventoryItemID,
		OrderID:         orderID,
		Quantity:        quantity,
	}
}

// IsActive returns true until the reservation is released or delivered
func (r *Reservation) IsActive() bool {
	return !r.Released && !r.Delivered
}

// Release marks the reservation released (cancellation)
func (r *Reservation) Release() {
	now := time.Now().UTC()
	r.Released = true
	r.ClosedAt = &now
	r.UpdatedAt = now
}

// Deliver marks the reservation delivered (shipment)
func (r *Reservation) Deliver() {
	now := time.Now().UTC()
	r.Delivered = true
	r.ClosedAt = &now
	r.UpdatedAt = now
}
