package persistence

import (
	"context"
	"time"

	"github.com/dealerops/backend/internal/domain/commitment"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var openStatuses = []commitment.Status{commitment.StatusPending, commitment.StatusPartial}

// GormCommitmentRepository implements commitment.Repository using GORM
type GormCommitmentRepository struct {
	db *gorm.DB
}

// NewGormCommitmentRepository creates a new GormCommitmentRepository
func NewGormCommitmentRepository(db *gorm.DB) *GormCommitmentRepository {
	return &GormCommitmentRepository{db: db}
}

// FindByID finds a commitment by ID
func (r *GormCommitmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*commitment.Commitment, error) {
	var c commitment.Commitment
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// FindPending returns open commitments in consumption order
func (r *GormCommitmentRepository) FindPending(ctx context.Context, q commitment.PendingQuery) ([]*commitment.Commitment, error) {
	return r.findPending(r.db.WithContext(ctx), q)
}

// FindPendingForUpdate locks the open commitments of the scope. Concurrent
// consumers of the same dealer and product queue behind the lock.
func (r *GormCommitmentRepository) FindPendingForUpdate(ctx context.Context, q commitment.PendingQuery) ([]*commitment.Commitment, error) {
	return r.findPending(r.db.WithContext(ctx).Clauses(forUpdate), q)
}

func (r *GormCommitmentRepository) findPending(query *gorm.DB, q commitment.PendingQuery) ([]*commitment.Commitment, error) {
	query = query.Where("dealer_id = ? AND status IN ?", q.DealerID, openStatuses)
	switch {
	case q.ProductID != nil:
		query = query.Where("product_id = ?", *q.ProductID)
	case q.BasketOnly:
		query = query.Where("product_id IS NULL")
	}

	var list []*commitment.Commitment
	if err := query.Order("expected_date ASC").Order("created_at ASC").Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	// timestamps may lose precision in storage; keep the in-memory order authoritative
	commitment.SortPending(list)
	return list, nil
}

// FindOverdue returns open commitments with expected date before asOf
func (r *GormCommitmentRepository) FindOverdue(ctx context.Context, asOf time.Time, limit int) ([]*commitment.Commitment, error) {
	query := r.db.WithContext(ctx).
		Where("status IN ? AND expected_date < ? AND quantity_consumed < quantity_promised", openStatuses, shared.Day(asOf)).
		Order("expected_date ASC").Order("created_at ASC").Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var list []*commitment.Commitment
	if err := query.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// FindMissedSince returns commitments marked missed on or after since
func (r *GormCommitmentRepository) FindMissedSince(ctx context.Context, since time.Time) ([]commitment.Commitment, error) {
	var list []commitment.Commitment
	err := r.db.WithContext(ctx).
		Where("status = ? AND missed_at >= ?", commitment.StatusMissed, shared.Day(since)).
		Order("missed_at ASC").Order("id ASC").
		Find(&list).Error
	return list, err
}

// FindByExpectedRange returns commitments with expected date in [from, to]
func (r *GormCommitmentRepository) FindByExpectedRange(ctx context.Context, dealerID *uuid.UUID, from, to time.Time) ([]commitment.Commitment, error) {
	query := r.db.WithContext(ctx).
		Where("expected_date >= ? AND expected_date <= ?", shared.Day(from), shared.Day(to))
	if dealerID != nil {
		query = query.Where("dealer_id = ?", *dealerID)
	}
	var list []commitment.Commitment
	if err := query.Order("expected_date ASC").Order("created_at ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Create inserts a new commitment
func (r *GormCommitmentRepository) Create(ctx context.Context, c *commitment.Commitment) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// SaveWithLock writes the mutable columns if the stored version is c.Version-1
func (r *GormCommitmentRepository) SaveWithLock(ctx context.Context, c *commitment.Commitment) error {
	result := r.db.WithContext(ctx).
		Model(&commitment.Commitment{}).
		Where("id = ? AND version = ?", c.ID, c.Version-1).
		Updates(map[string]any{
			"quantity_consumed": c.QuantityConsumed,
			"status":            c.Status,
			"fulfilled_at":      c.FulfilledAt,
			"missed_at":         c.MissedAt,
			"version":           c.Version,
			"updated_at":        c.UpdatedAt,
		})
	return casResult(result)
}

var _ commitment.Repository = (*GormCommitmentRepository)(nil)
