package persistence

import (
	"context"

	"github.com/dealerops/backend/internal/domain/scoring"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormHealthSnapshotRepository implements scoring.HealthSnapshotRepository.
// Rows are only ever inserted.
type GormHealthSnapshotRepository struct {
	db *gorm.DB
}

// NewGormHealthSnapshotRepository creates a new GormHealthSnapshotRepository
func NewGormHealthSnapshotRepository(db *gorm.DB) *GormHealthSnapshotRepository {
	return &GormHealthSnapshotRepository{db: db}
}

// Append inserts a snapshot
func (r *GormHealthSnapshotRepository) Append(ctx context.Context, snapshot *scoring.HealthSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// FindLatest returns the most recent snapshot of a dealer
func (r *GormHealthSnapshotRepository) FindLatest(ctx context.Context, dealerID uuid.UUID) (*scoring.HealthSnapshot, error) {
	var snap scoring.HealthSnapshot
	if err := r.latestFirst(r.db.WithContext(ctx), dealerID).First(&snap).Error; err != nil {
		return nil, notFound(err)
	}
	return &snap, nil
}

// FindHistory returns up to limit snapshots, newest first
func (r *GormHealthSnapshotRepository) FindHistory(ctx context.Context, dealerID uuid.UUID, limit int) ([]scoring.HealthSnapshot, error) {
	query := r.latestFirst(r.db.WithContext(ctx), dealerID)
	if limit > 0 {
		query = query.Limit(limit)
	}
	var history []scoring.HealthSnapshot
	if err := query.Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}

func (r *GormHealthSnapshotRepository) latestFirst(query *gorm.DB, dealerID uuid.UUID) *gorm.DB {
	return query.Where("dealer_id = ?", dealerID).
		Order("score_date DESC").
		Order("created_at DESC")
}

var _ scoring.HealthSnapshotRepository = (*GormHealthSnapshotRepository)(nil)
