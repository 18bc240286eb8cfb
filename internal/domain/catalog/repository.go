package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	FindByCode(ctx context.Context, code string) (*Product, error)
	// FindActive returns active products ordered by code
	FindActive(ctx context.Context) ([]Product, error)
	Save(ctx context.Context, product *Product) error
}
