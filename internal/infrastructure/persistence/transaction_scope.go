package persistence

import (
	"context"

	"github.com/dealerops/backend/internal/application/transaction"
	"gorm.io/gorm"
)

// GormTransactionScope implements transaction.Scope on a GORM transaction.
// Every repository handed to fn shares the transaction; an error from fn
// rolls it back.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn inside a transaction. Deadlock and serialization aborts
// come back as shared.ErrOptimisticLock.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos transaction.Repositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositorySet(tx))
	})
	return translateTxError(err)
}

// NewRepositorySet binds every transactional repository to db
func NewRepositorySet(db *gorm.DB) *transaction.RepositorySet {
	return &transaction.RepositorySet{
		DealerRepo:      NewGormDealerRepository(db),
		ProductRepo:     NewGormProductRepository(db),
		CommitmentRepo:  NewGormCommitmentRepository(db),
		InventoryRepo:   NewGormInventoryItemRepository(db),
		ReservationRepo: NewGormReservationRepository(db),
		OrderRepo:       NewGormSalesOrderRepository(db),
		AlertRepo:       NewGormAlertRepository(db),
	}
}

var _ transaction.Scope = (*GormTransactionScope)(nil)
