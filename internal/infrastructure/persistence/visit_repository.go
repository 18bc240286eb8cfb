package persistence

import (
	"context"

	"github.com/dealerops/backend/internal/domain/partner"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormVisitRepository implements partner.VisitRepository using GORM
type GormVisitRepository struct {
	db *gorm.DB
}

// NewGormVisitRepository creates a new GormVisitRepository
func NewGormVisitRepository(db *gorm.DB) *GormVisitRepository {
	return &GormVisitRepository{db: db}
}

// Save records a visit
func (r *GormVisitRepository) Save(ctx context.Context, visit *partner.Visit) error {
	return r.db.WithContext(ctx).Save(visit).Error
}

// FindByDealer returns the latest visits of a dealer
func (r *GormVisitRepository) FindByDealer(ctx context.Context, dealerID uuid.UUID, limit int) ([]partner.Visit, error) {
	query := r.db.WithContext(ctx).Where("dealer_id = ?", dealerID).Order("visited_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var visits []partner.Visit
	if err := query.Find(&visits).Error; err != nil {
		return nil, err
	}
	return visits, nil
}

var _ partner.VisitRepository = (*GormVisitRepository)(nil)
