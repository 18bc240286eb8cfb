package scoring

import (
	"context"

	"github.com/google/uuid"
)

// HealthSnapshotRepository persists the health score time series.
// Snapshots are append-only.
type HealthSnapshotRepository interface {
	Append(ctx context.Context, snapshot *HealthSnapshot) error
	// FindLatest returns the most recent snapshot or shared.ErrNotFound
	FindLatest(ctx context.Context, dealerID uuid.UUID) (*HealthSnapshot, error)
	FindHistory(ctx context.Context, dealerID uuid.UUID, limit int) ([]HealthSnapshot, error)
}
