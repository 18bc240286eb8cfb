package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/dealerops/backend/internal/domain/trade"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSalesOrderRepository implements trade.SalesOrderRepository using GORM
type GormSalesOrderRepository struct {
	db *gorm.DB
}

// NewGormSalesOrderRepository creates a new GormSalesOrderRepository
func NewGormSalesOrderRepository(db *gorm.DB) *GormSalesOrderRepository {
	return &GormSalesOrderRepository{db: db}
}

// FindByID loads an order with its lines
func (r *GormSalesOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.SalesOrder, error) {
	var order trade.SalesOrder
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// CountByDealerBetween counts non-cancelled orders placed from..to inclusive
func (r *GormSalesOrderRepository) CountByDealerBetween(ctx context.Context, dealerID uuid.UUID, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&trade.SalesOrder{}).
		Where("dealer_id = ? AND status <> ?", dealerID, trade.OrderStatusCancelled).
		Where("order_date >= ? AND order_date <= ?", shared.Day(from), shared.Day(to)).
		Count(&count).Error
	return count, err
}

// NextSequence returns max(sequence)+1 for the year's order numbers
// (ORD-YYYY-NNNN, sequence starting at character 10)
func (r *GormSalesOrderRepository) NextSequence(ctx context.Context, year int) (int, error) {
	var next int
	err := r.db.WithContext(ctx).
		Model(&trade.SalesOrder{}).
		Select("COALESCE(MAX(CAST(SUBSTR(order_number, 10) AS INTEGER)), 0) + 1").
		Where("order_number LIKE ?", fmt.Sprintf("ORD-%d-%%", year)).
		Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

// Create inserts an order and its lines. A clash on the order number means
// another writer took the sequence; it surfaces as an optimistic lock
// failure so the caller retries with a fresh number.
func (r *GormSalesOrderRepository) Create(ctx context.Context, order *trade.SalesOrder) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if isDuplicate(err) {
			return shared.ErrOptimisticLock
		}
		return err
	}
	return nil
}

// SaveWithLock updates the order header if the stored version is order.Version-1.
// Lines are immutable after creation.
func (r *GormSalesOrderRepository) SaveWithLock(ctx context.Context, order *trade.SalesOrder) error {
	result := r.db.WithContext(ctx).
		Model(&trade.SalesOrder{}).
		Where("id = ? AND version = ?", order.ID, order.Version-1).
		Updates(map[string]any{
			"status":       order.Status,
			"notes":        order.Notes,
			"cancelled_at": order.CancelledAt,
			"delivered_at": order.DeliveredAt,
			"version":      order.Version,
			"updated_at":   order.UpdatedAt,
		})
	return casResult(result)
}

var _ trade.SalesOrderRepository = (*GormSalesOrderRepository)(nil)
