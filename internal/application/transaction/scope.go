// Package transaction defines the unit of work shared by the application
// services. Every repository handed out by a Scope within one Execute call
// shares the same database transaction.
package transaction

import (
	"context"

	"github.com/dealerops/backend/internal/domain/alert"
	"github.com/dealerops/backend/internal/domain/catalog"
	"github.com/dealerops/backend/internal/domain/commitment"
	"github.com/dealerops/backend/internal/domain/inventory"
	"github.com/dealerops/backend/internal/domain/partner"
	"github.com/dealerops/backend/internal/domain/trade"
)

// Scope runs a function within a database transaction.
// If the function returns an error, the transaction is rolled back.
type Scope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories gives access to the repositories bound to the current transaction
type Repositories interface {
	Dealers() partner.DealerRepository
	Products() catalog.ProductRepository
	Commitments() commitment.Repository
	Inventory() inventory.InventoryItemRepository
	Reservations() inventory.ReservationRepository
	Orders() trade.SalesOrderRepository
	Alerts() alert.Repository
}

// RepositorySet is a plain Repositories implementation
type RepositorySet struct {
	DealerRepo      partner.DealerRepository
	ProductRepo     catalog.ProductRepository
	CommitmentRepo  commitment.Repository
	InventoryRepo   inventory.InventoryItemRepository
	ReservationRepo inventory.ReservationRepository
	OrderRepo       trade.SalesOrderRepository
	AlertRepo       alert.Repository
}

func (r *RepositorySet) Dealers() partner.DealerRepository { return r.DealerRepo }
func (r *RepositorySet) Products() catalog.ProductRepository { return r.ProductRepo }
func (r *RepositorySet) Commitments() commitment.Repository { return r.CommitmentRepo }
func (r *RepositorySet) Inventory() inventory.InventoryItemRepository { return r.InventoryRepo }
func (r *RepositorySet) Reservations() inventory.ReservationRepository { return r.ReservationRepo }
func (r *RepositorySet) Orders() trade.SalesOrderRepository { return r.OrderRepo }
func (r *RepositorySet) Alerts() alert.Repository { return r.AlertRepo }

// NoOpScope runs the function against fixed repositories without a real
// transaction. Used by tests and in-memory setups.
type NoOpScope struct {
	repos Repositories
}

// NewNoOpScope creates a NoOpScope
func NewNoOpScope(repos Repositories) *NoOpScope {
	return &NoOpScope{repos: repos}
}

// Execute runs fn with the fixed repositories
func (s *NoOpScope) Execute(_ context.Context, fn func(repos Repositories) error) error {
	return fn(s.repos)
}

var (
	_ Scope        = (*NoOpScope)(nil)
	_ Repositories = (*RepositorySet)(nil)
)
