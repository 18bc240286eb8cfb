package trade

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SalesOrderRepository defines the interface for order persistence
type SalesOrderRepository interface {
	// FindByID loads an order with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*SalesOrder, error)

	// CountByDealerBetween counts non-cancelled orders of a dealer placed
	// between the two days, inclusive
	CountByDealerBetween(ctx context.Context, dealerID uuid.UUID, from, to time.Time) (int64, error)

	// NextSequence returns the next order sequence number for a year
	NextSequence(ctx context.Context, year int) (int, error)

	// Create inserts an order and its lines
	Create(ctx context.Context, order *SalesOrder) error

	// SaveWithLock updates an order header if its stored version is order.Version-1
	SaveWithLock(ctx context.Context, order *SalesOrder) error
}
