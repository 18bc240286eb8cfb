package persistence

import (
	"context"
	"strings"

	"github.com/dealerops/backend/internal/domain/partner"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDealerRepository implements partner.DealerRepository using GORM
type GormDealerRepository struct {
	db *gorm.DB
}

// NewGormDealerRepository creates a new GormDealerRepository
func NewGormDealerRepository(db *gorm.DB) *GormDealerRepository {
	return &GormDealerRepository{db: db}
}

// FindByID finds a dealer by its ID
func (r *GormDealerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Dealer, error) {
	var dealer partner.Dealer
	if err := r.db.WithContext(ctx).First(&dealer, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &dealer, nil
}

// FindByCode finds a dealer by code, case-insensitively
func (r *GormDealerRepository) FindByCode(ctx context.Context, code string) (*partner.Dealer, error) {
	var dealer partner.Dealer
	if err := r.db.WithContext(ctx).
		Where("UPPER(code) = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&dealer).Error; err != nil {
		return nil, notFound(err)
	}
	return &dealer, nil
}

// FindActive returns active dealers ordered by code
func (r *GormDealerRepository) FindActive(ctx context.Context, salesPersonID *uuid.UUID) ([]partner.Dealer, error) {
	query := r.db.WithContext(ctx).Where("status = ?", partner.DealerStatusActive)
	if salesPersonID != nil {
		query = query.Where("sales_person_id = ?", *salesPersonID)
	}
	var dealers []partner.Dealer
	if err := query.Order("code ASC").Find(&dealers).Error; err != nil {
		return nil, err
	}
	return dealers, nil
}

// FindAll pages through dealers. Search matches code or name.
func (r *GormDealerRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Dealer, error) {
	query := r.db.WithContext(ctx).Model(&partner.Dealer{})
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	query = applyOrder(query, filter, DealerSortFields, "code", "ASC")
	query = applyPage(query, filter)

	var dealers []partner.Dealer
	if err := query.Find(&dealers).Error; err != nil {
		return nil, err
	}
	return dealers, nil
}

// Save creates or updates a dealer
func (r *GormDealerRepository) Save(ctx context.Context, dealer *partner.Dealer) error {
	return r.db.WithContext(ctx).Save(dealer).Error
}

// ExistsByID checks if a dealer exists
func (r *GormDealerRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&partner.Dealer{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

var _ partner.DealerRepository = (*GormDealerRepository)(nil)
