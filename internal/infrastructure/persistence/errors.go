package persistence

import (
	"errors"
	"fmt"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate is the row lock clause; the sqlite dialect drops it
var forUpdate = clause.Locking{Strength: "UPDATE"}

// notFound maps gorm.ErrRecordNotFound to shared.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// casResult turns an UPDATE ... WHERE version = ? outcome into the lock error
func casResult(result *gorm.DB) error {
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrOptimisticLock
	}
	return nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// Postgres aborts one side of a lock cycle or a serialization conflict
const (
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
)

// translateTxError maps aborted-transaction errors to shared.ErrOptimisticLock
// so the caller retries the whole unit of work
func translateTxError(err error) error {
	if err == nil || errors.Is(err, shared.ErrOptimisticLock) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgDeadlockDetected || pgErr.Code == pgSerializationFailure {
			return fmt.Errorf("%w: %v", shared.ErrOptimisticLock, err)
		}
		return err
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && (liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %v", shared.ErrOptimisticLock, err)
	}
	return err
}
