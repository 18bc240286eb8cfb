package alert

import (
	"context"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ListFilter narrows alert listings
type ListFilter struct {
	shared.Filter
	Status *Status
	Kind   *Kind
	Target *Target
}

// Repository defines the interface for alert persistence
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Alert, error)
	// FindPendingByDedupeKey returns the pending alert for a condition or shared.ErrNotFound
	FindPendingByDedupeKey(ctx context.Context, key string) (*Alert, error)
	// ExistsByDedupeKey reports whether any alert, in any status, was raised for a condition
	ExistsByDedupeKey(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]Alert, int64, error)
	// Create inserts an alert; a pending duplicate yields shared.ErrAlreadyExists
	Create(ctx context.Context, a *Alert) error
	SaveWithLock(ctx context.Context, a *Alert) error
}
