package partner

import (
	"context"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DealerRepository defines the interface for dealer persistence
type DealerRepository interface {
	// FindByID finds a dealer by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Dealer, error)

	// FindByCode finds a dealer by its code
	FindByCode(ctx context.Context, code string) (*Dealer, error)

	// FindActive returns active dealers ordered by code, optionally scoped
	// to one sales person. This is the resolver's candidate pool.
	FindActive(ctx context.Context, salesPersonID *uuid.UUID) ([]Dealer, error)

	// FindAll finds all dealers matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Dealer, error)

	// Save creates or updates a dealer
	Save(ctx context.Context, dealer *Dealer) error

	// ExistsByID checks if a dealer exists
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
}

// VisitRepository defines the interface for visit persistence
type VisitRepository interface {
	Save(ctx context.Context, visit *Visit) error
	FindByDealer(ctx context.Context, dealerID uuid.UUID, limit int) ([]Visit, error)
}
