package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// FindByDealerSince returns invoices issued on or after since, plus
	// every still-open invoice regardless of age
	FindByDealerSince(ctx context.Context, dealerID uuid.UUID, since time.Time) ([]Invoice, error)
	Save(ctx context.Context, invoice *Invoice) error
}
