package persistence

import (
	"context"

	"github.com/dealerops/backend/internal/domain/alert"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAlertRepository implements alert.Repository using GORM
type GormAlertRepository struct {
	db *gorm.DB
}

// NewGormAlertRepository creates a new GormAlertRepository
func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

// FindByID finds an alert by ID
func (r *GormAlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*alert.Alert, error) {
	var a alert.Alert
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// FindPendingByDedupeKey returns the pending alert for a condition
func (r *GormAlertRepository) FindPendingByDedupeKey(ctx context.Context, key string) (*alert.Alert, error) {
	var a alert.Alert
	if err := r.db.WithContext(ctx).
		Where("dedupe_key = ? AND status = ?", key, alert.StatusPending).
		First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

// ExistsByDedupeKey reports whether an alert of any status carries the key
func (r *GormAlertRepository) ExistsByDedupeKey(ctx context.Context, key string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&alert.Alert{}).Where("dedupe_key = ?", key).Count(&count).Error
	return count > 0, err
}

// List pages through alerts, newest first unless the filter says otherwise
func (r *GormAlertRepository) List(ctx context.Context, filter alert.ListFilter) ([]alert.Alert, int64, error) {
	query := r.db.WithContext(ctx).Model(&alert.Alert{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Kind != nil {
		query = query.Where("kind = ?", *filter.Kind)
	}
	if filter.Target != nil {
		query = query.Where("entity_kind = ? AND entity_id = ?", filter.Target.Kind, filter.Target.ID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyOrder(query, filter.Filter, AlertSortFields, "created_at", "DESC")
	query = applyPage(query, filter.Filter)

	var alerts []alert.Alert
	if err := query.Find(&alerts).Error; err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

// Create inserts an alert. The partial unique index on pending dedupe keys
// rejects a second pending alert for the same condition.
func (r *GormAlertRepository) Create(ctx context.Context, a *alert.Alert) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		if isDuplicate(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// SaveWithLock updates the alert state if the stored version is a.Version-1
func (r *GormAlertRepository) SaveWithLock(ctx context.Context, a *alert.Alert) error {
	result := r.db.WithContext(ctx).
		Model(&alert.Alert{}).
		Where("id = ? AND version = ?", a.ID, a.Version-1).
		Updates(map[string]any{
			"status":     a.Status,
			"closed_at":  a.ClosedAt,
			"version":    a.Version,
			"updated_at": a.UpdatedAt,
		})
	return casResult(result)
}

var _ alert.Repository = (*GormAlertRepository)(nil)
