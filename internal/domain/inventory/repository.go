package inventory

import (
	"context"

	"github.com/google/uuid"
)

// InventoryItemRepository defines the interface for inventory item persistence
type InventoryItemRepository interface {
	// FindByProductAndLocation finds the stock position of a product at a location
	FindByProductAndLocation(ctx context.Context, productID uuid.UUID, location string) (*InventoryItem, error)

	// FindByProductAndLocationForUpdate is FindByProductAndLocation holding a
	// row lock until the surrounding transaction ends
	FindByProductAndLocationForUpdate(ctx context.Context, productID uuid.UUID, location string) (*InventoryItem, error)

	// FindByIDForUpdate loads an item by ID holding a row lock
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*InventoryItem, error)

	// GetOrCreate returns the existing position or inserts an empty one
	GetOrCreate(ctx context.Context, productID uuid.UUID, location string) (*InventoryItem, error)

	// SaveWithLock updates an item if its stored version is item.Version-1
	SaveWithLock(ctx context.Context, item *InventoryItem) error
}

// ReservationRepository defines the interface for reservation persistence
type ReservationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	FindActiveByOrder(ctx context.Context, orderID uuid.UUID) ([]Reservation, error)
	Create(ctx context.Context, r *Reservation) error
	Save(ctx context.Context, r *Reservation) error
}
