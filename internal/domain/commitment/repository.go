package commitment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PendingQuery selects open commitments of one dealer.
// With ProductID nil and BasketOnly false every open commitment of the
// dealer matches; BasketOnly restricts to commitments without a product.
type PendingQuery struct {
	DealerID   uuid.UUID
	ProductID  *uuid.UUID
	BasketOnly bool
}

// ConsumptionScope returns the query used when consuming an order line:
// the exact product, or basket commitments when no product is given.
func ConsumptionScope(dealerID uuid.UUID, productID *uuid.UUID) PendingQuery {
	return PendingQuery{DealerID: dealerID, ProductID: productID, BasketOnly: productID == nil}
}

// Repository defines the interface for commitment persistence
type Repository interface {
	// FindByID finds a commitment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Commitment, error)

	// FindPending returns open commitments ordered by expected date, then creation
	FindPending(ctx context.Context, q PendingQuery) ([]*Commitment, error)

	// FindPendingForUpdate is FindPending holding row locks until the
	// surrounding transaction ends
	FindPendingForUpdate(ctx context.Context, q PendingQuery) ([]*Commitment, error)

	// FindOverdue returns open commitments with expected date before asOf
	FindOverdue(ctx context.Context, asOf time.Time, limit int) ([]*Commitment, error)

	// FindMissedSince returns commitments marked missed on or after since
	FindMissedSince(ctx context.Context, since time.Time) ([]Commitment, error)

	// FindByExpectedRange returns commitments of any status with expected
	// date in [from, to]; dealerID nil means all dealers
	FindByExpectedRange(ctx context.Context, dealerID *uuid.UUID, from, to time.Time) ([]Commitment, error)

	// Create inserts a new commitment
	Create(ctx context.Context, c *Commitment) error

	// SaveWithLock updates a commitment if its stored version is c.Version-1
	SaveWithLock(ctx context.Context, c *Commitment) error
}
