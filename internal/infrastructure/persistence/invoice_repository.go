package persistence

import (
	"context"
	"time"

	"github.com/dealerops/backend/internal/domain/finance"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements finance.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Invoice, error) {
	var inv finance.Invoice
	if err := r.db.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}

// FindByDealerSince returns the dealer's invoices issued since the cutoff
// plus every open invoice
func (r *GormInvoiceRepository) FindByDealerSince(ctx context.Context, dealerID uuid.UUID, since time.Time) ([]finance.Invoice, error) {
	var invoices []finance.Invoice
	if err := r.db.WithContext(ctx).
		Where("dealer_id = ?", dealerID).
		Where(r.db.Where("issued_at >= ?", shared.Day(since)).Or("status = ?", finance.InvoiceStatusOpen)).
		Order("due_date ASC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// Save creates or updates an invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, inv *finance.Invoice) error {
	return r.db.WithContext(ctx).Save(inv).Error
}

var _ finance.InvoiceRepository = (*GormInvoiceRepository)(nil)
