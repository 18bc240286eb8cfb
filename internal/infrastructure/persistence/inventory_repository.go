package persistence

import (
	"context"
	"errors"

	"github.com/dealerops/backend/internal/domain/inventory"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInventoryItemRepository implements inventory.InventoryItemRepository using GORM
type GormInventoryItemRepository struct {
	db *gorm.DB
}

// NewGormInventoryItemRepository creates a new GormInventoryItemRepository
func NewGormInventoryItemRepository(db *gorm.DB) *GormInventoryItemRepository {
	return &GormInventoryItemRepository{db: db}
}

// FindByProductAndLocation finds the stock position of a product at a location
func (r *GormInventoryItemRepository) FindByProductAndLocation(ctx context.Context, productID uuid.UUID, location string) (*inventory.InventoryItem, error) {
	return r.findByProductAndLocation(r.db.WithContext(ctx), productID, location)
}

// FindByProductAndLocationForUpdate locks the position row
func (r *GormInventoryItemRepository) FindByProductAndLocationForUpdate(ctx context.Context, productID uuid.UUID, location string) (*inventory.InventoryItem, error) {
	return r.findByProductAndLocation(r.db.WithContext(ctx).Clauses(forUpdate), productID, location)
}

func (r *GormInventoryItemRepository) findByProductAndLocation(query *gorm.DB, productID uuid.UUID, location string) (*inventory.InventoryItem, error) {
	var item inventory.InventoryItem
	if err := query.
		Where("product_id = ? AND location = ?", productID, inventory.NormalizeLocation(location)).
		First(&item).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// FindByIDForUpdate loads an item by ID holding a row lock
func (r *GormInventoryItemRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	var item inventory.InventoryItem
	if err := r.db.WithContext(ctx).Clauses(forUpdate).First(&item, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// GetOrCreate returns the locked position, inserting an empty one first if
// none exists. A concurrent insert of the same position is absorbed by the
// unique index and the row is re-read.
func (r *GormInventoryItemRepository) GetOrCreate(ctx context.Context, productID uuid.UUID, location string) (*inventory.InventoryItem, error) {
	item, err := r.FindByProductAndLocationForUpdate(ctx, productID, location)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	item, err = inventory.NewInventoryItem(productID, location)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "location"}},
			DoNothing: true,
		}).
		Create(item).Error; err != nil {
		return nil, err
	}
	return r.FindByProductAndLocationForUpdate(ctx, productID, location)
}

// SaveWithLock saves the quantities if the stored version is item.Version-1
func (r *GormInventoryItemRepository) SaveWithLock(ctx context.Context, item *inventory.InventoryItem) error {
	result := r.db.WithContext(ctx).
		Model(&inventory.InventoryItem{}).
		Where("id = ? AND version = ?", item.ID, item.Version-1).
		Updates(map[string]any{
			"on_hand":    item.OnHand,
			"reserved":   item.Reserved,
			"incoming":   item.Incoming,
			"version":    item.Version,
			"updated_at": item.UpdatedAt,
		})
	return casResult(result)
}

var _ inventory.InventoryItemRepository = (*GormInventoryItemRepository)(nil)

// GormReservationRepository implements inventory.ReservationRepository using GORM
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// FindByID finds a reservation by ID
func (r *GormReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Reservation, error) {
	var res inventory.Reservation
	if err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &res, nil
}

// FindActiveByOrder returns the reservations of an order that are neither
// released nor delivered
func (r *GormReservationRepository) FindActiveByOrder(ctx context.Context, orderID uuid.UUID) ([]inventory.Reservation, error) {
	var list []inventory.Reservation
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND released = ? AND delivered = ?", orderID, false, false).
		Order("created_at ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Create inserts a reservation
func (r *GormReservationRepository) Create(ctx context.Context, res *inventory.Reservation) error {
	return r.db.WithContext(ctx).Create(res).Error
}

// Save closes a reservation. Only an open row is updated, so a second
// release or delivery of the same reservation is rejected.
func (r *GormReservationRepository) Save(ctx context.Context, res *inventory.Reservation) error {
	result := r.db.WithContext(ctx).
		Model(&inventory.Reservation{}).
		Where("id = ? AND released = ? AND delivered = ?", res.ID, false, false).
		Updates(map[string]any{
			"released":   res.Released,
			"delivered":  res.Delivered,
			"closed_at":  res.ClosedAt,
			"updated_at": res.UpdatedAt,
		})
	return casResult(result)
}

var _ inventory.ReservationRepository = (*GormReservationRepository)(nil)
