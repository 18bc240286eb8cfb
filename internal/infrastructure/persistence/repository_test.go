package persistence

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dealerops/backend/internal/application/transaction"
	"github.com/dealerops/backend/internal/domain/alert"
	"github.com/dealerops/backend/internal/domain/catalog"
	"github.com/dealerops/backend/internal/domain/commitment"
	"github.com/dealerops/backend/internal/domain/finance"
	"github.com/dealerops/backend/internal/domain/partner"
	"github.com/dealerops/backend/internal/domain/scoring"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/dealerops/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func seedDealer(t *testing.T, repo *GormDealerRepository, code string, owner *uuid.UUID) *partner.Dealer {
	t.Helper()
	d, err := partner.NewDealer(code, "Dealer "+code, partner.DealerTierB)
	require.NoError(t, err)
	if owner != nil {
		d.AssignTo(*owner, "north")
	}
	require.NoError(t, repo.Save(context.Background(), d))
	return d
}

func TestDealerRepository(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDatabase(t)
	repo := NewGormDealerRepository(db.DB)
	owner := uuid.New()

	c := seedDealer(t, repo, "D-C", &owner)
	a := seedDealer(t, repo, "D-A", &owner)
	b := seedDealer(t, repo, "D-B", nil)
	b.Deactivate()
	require.NoError(t, repo.Save(ctx, b))

	t.Run("FindActive is ordered by code and scoped to the owner", func(t *testing.T) {
		all, err := repo.FindActive(ctx, nil)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, a.ID, all[0].ID)
		assert.Equal(t, c.ID, all[1].ID)

		other := uuid.New()
		none, err := repo.FindActive(ctx, &other)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("FindByCode ignores case", func(t *testing.T) {
		found, err := repo.FindByCode(ctx, " d-a ")
		require.NoError(t, err)
		assert.Equal(t, a.ID, found.ID)

		_, err = repo.FindByCode(ctx, "missing")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("FindAll searches and pages", func(t *testing.T) {
		filter := shared.Filter{Page: 1, PageSize: 2, Search: "dealer d-"}
		page, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "D-A", page[0].Code)

		filter.Page = 2
		page, err = repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "D-C", page[0].Code)
	})

	t.Run("ExistsByID", func(t *testing.T) {
		ok, err := repo.ExistsByID(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = repo.ExistsByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestProductRepository(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDatabase(t)
	repo := NewGormProductRepository(db.DB)

	cement, err := catalog.NewProduct("CEM-50", "Cement 50kg", "bag", decimal.NewFromInt(350))
	require.NoError(t, err)
	steel, err := catalog.NewProduct("STL-12", "Steel 12mm", "rod", decimal.NewFromFloat(88.5))
	require.NoError(t, err)
	steel.Discontinue()
	require.NoError(t, repo.Save(ctx, cement))
	require.NoError(t, repo.Save(ctx, steel))

	active, err := repo.FindActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.True(t, active[0].UnitPrice.Equal(decimal.NewFromInt(350)))

	byIDs, err := repo.FindByIDs(ctx, []uuid.UUID{cement.ID, steel.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, byIDs, 2)

	empty, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCommitmentRepository(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDatabase(t)
	repo := NewGormCommitmentRepository(db.DB)
	dealerID, productID := uuid.New(), uuid.New()

	create := func(product *uuid.UUID, qty int, expected time.Time) *commitment.Commitment {
		c, err := commitment.NewCommitment(dealerID, product, qty, expected, 0.8)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, c))
		return c
	}

	late := create(&productID, 5, day0.AddDate(0, 0, 3))
	first := create(&productID, 5, day0.AddDate(0, 0, -2))
	second := create(&productID, 5, day0.AddDate(0, 0, -2))
	basket := create(nil, 7, day0)

	t.Run("FindPending orders by expected date then creation", func(t *testing.T) {
		list, err := repo.FindPending(ctx, commitment.ConsumptionScope(dealerID, &productID))
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []uuid.UUID{first.ID, second.ID, late.ID}, []uuid.UUID{list[0].ID, list[1].ID, list[2].ID})
	})

	t.Run("basket scope returns only product-less commitments", func(t *testing.T) {
		list, err := repo.FindPendingForUpdate(ctx, commitment.ConsumptionScope(dealerID, nil))
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, basket.ID, list[0].ID)

		all, err := repo.FindPending(ctx, commitment.PendingQuery{DealerID: dealerID})
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})

	t.Run("SaveWithLock persists consumption and rejects stale copies", func(t *testing.T) {
		mine, err := repo.FindByID(ctx, first.ID)
		require.NoError(t, err)
		theirs, err := repo.FindByID(ctx, first.ID)
		require.NoError(t, err)

		require.NoError(t, mine.Consume(5, commitment.WindowBackward))
		require.NoError(t, repo.SaveWithLock(ctx, mine))

		require.NoError(t, theirs.Consume(2, commitment.WindowBackward))
		assert.ErrorIs(t, repo.SaveWithLock(ctx, theirs), shared.ErrOptimisticLock)

		stored, err := repo.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, commitment.StatusFulfilled, stored.Status)
		assert.Equal(t, 5, stored.QuantityConsumed)
		assert.NotNil(t, stored.FulfilledAt)
	})

	t.Run("FindOverdue skips fulfilled and future commitments", func(t *testing.T) {
		overdue, err := repo.FindOverdue(ctx, day0, 0)
		require.NoError(t, err)
		require.Len(t, overdue, 1)
		assert.Equal(t, second.ID, overdue[0].ID)
	})

	t.Run("FindByExpectedRange is inclusive", func(t *testing.T) {
		list, err := repo.FindByExpectedRange(ctx, &dealerID, day0, day0.AddDate(0, 0, 3))
		require.NoError(t, err)
		assert.Len(t, list, 2)

		list, err = repo.FindByExpectedRange(ctx, nil, day0.AddDate(0, 0, -7), day0.AddDate(0, 0, 7))
		require.NoError(t, err)
		assert.Len(t, list, 4)
	})

	t.Run("FindMissedSince is bounded by the missed date", func(t *testing.T) {
		old := create(&productID, 4, day0.AddDate(0, 0, -30))
		require.True(t, old.MarkMissed(day0.AddDate(0, 0, -20)))
		require.NoError(t, repo.SaveWithLock(ctx, old))

		recent, err := repo.FindByID(ctx, second.ID)
		require.NoError(t, err)
		require.True(t, recent.MarkMissed(day0))
		require.NoError(t, repo.SaveWithLock(ctx, recent))

		list, err := repo.FindMissedSince(ctx, day0.AddDate(0, 0, -7))
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, second.ID, list[0].ID)

		list, err = repo.FindMissedSince(ctx, day0.AddDate(0, 0, -30))
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, []uuid.UUID{old.ID, second.ID}, []uuid.UUID{list[0].ID, list[1].ID})
	})
}

func TestInventoryRepositories(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDatabase(t)
	items := NewGormInventoryItemRepository(db.DB)
	reservations := NewGormReservationRepository(db.DB)
	productID := uuid.New()

	t.Run("GetOrCreate inserts once", func(t *testing.T) {
		first, err := items.GetOrCreate(ctx, productID, "main")
		require.NoError(t, err)
		second, err := items.GetOrCreate(ctx, productID, "MAIN")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 0, second.OnHand)
	})

	t.Run("reserve then release exactly once", func(t *testing.T) {
		item, err := items.FindByProductAndLocationForUpdate(ctx, productID, "main")
		require.NoError(t, err)
		require.NoError(t, item.Receive(10))
		require.NoError(t, items.SaveWithLock(ctx, item))

		item, err = items.FindByIDForUpdate(ctx, item.ID)
		require.NoError(t, err)
		orderID := uuid.New()
		res, err := item.Reserve(orderID, 4)
		require.NoError(t, err)
		require.NoError(t, items.SaveWithLock(ctx, item))
		require.NoError(t, reservations.Create(ctx, res))

		active, err := reservations.FindActiveByOrder(ctx, orderID)
		require.NoError(t, err)
		require.Len(t, active, 1)

		loaded, err := reservations.FindByID(ctx, res.ID)
		require.NoError(t, err)
		stale := *loaded
		loaded.Release()
		require.NoError(t, reservations.Save(ctx, loaded))

		stale.Deliver()
		assert.ErrorIs(t, reservations.Save(ctx, &stale), shared.ErrOptimisticLock)

		active, err = reservations.FindActiveByOrder(ctx, orderID)
		require.NoError(t, err)
		assert.Empty(t, active)

		stored, err := items.FindByProductAndLocation(ctx, productID, "main")
		require.NoError(t, err)
		assert.Equal(t, 10, stored.OnHand)
		assert.Equal(t, 4, stored.Reserved)
	})
}

func TestSalesOrderRepository(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDatabase(t)
	repo := NewGormSalesOrderRepository(db.DB)
	dealerID := uuid.New()

	newOrder := func(seq int, date time.Time) *trade.SalesOrder {
		o, err := trade.NewSalesOrder(trade.FormatOrderNumber(2026, seq), dealerID, "MAIN", date)
		require.NoError(t, err)
		_, err = o.AddLine(uuid.New(), "CEM-50", 3, decimal.NewFromInt(100))
		require.NoError(t, err)
		return o
	}

	next, err := repo.NextSequence(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	o1 := newOrder(1, day0)
	require.NoError(t, repo.Create(ctx, o1))
	o2 := newOrder(12, day0.AddDate(0, -8, 0))
	require.NoError(t, repo.Create(ctx, o2))

	t.Run("NextSequence continues after the highest number", func(t *testing.T) {
		next, err := repo.NextSequence(ctx, 2026)
		require.NoError(t, err)
		assert.Equal(t, 13, next)

		next, err = repo.NextSequence(ctx, 2027)
		require.NoError(t, err)
		assert.Equal(t, 1, next)
	})

	t.Run("duplicate order number is retryable", func(t *testing.T) {
		err := repo.Create(ctx, newOrder(1, day0))
		assert.ErrorIs(t, err, shared.ErrOptimisticLock)
	})

	t.Run("FindByID loads lines", func(t *testing.T) {
		found, err := repo.FindByID(ctx, o1.ID)
		require.NoError(t, err)
		require.Len(t, found.Lines, 1)
		assert.Equal(t, 3, found.Lines[0].Quantity)
		assert.True(t, found.Lines[0].LineTotal.Equal(decimal.NewFromInt(300)))
	})

	t.Run("orders after the window end do not count", func(t *testing.T) {
		later := newOrder(2, day0.AddDate(0, 0, 5))
		require.NoError(t, repo.Create(ctx, later))

		count, err := repo.CountByDealerBetween(ctx, dealerID, day0.AddDate(0, 0, -180), day0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		count, err = repo.CountByDealerBetween(ctx, dealerID, day0.AddDate(0, 0, -180), day0.AddDate(0, 0, 5))
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("cancelled orders do not count", func(t *testing.T) {
		count, err := repo.CountByDealerBetween(ctx, dealerID, day0.AddDate(0, 0, -180), day0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		found, err := repo.FindByID(ctx, o1.ID)
		require.NoError(t, err)
		require.NoError(t, found.Cancel())
		require.NoError(t, repo.SaveWithLock(ctx, found))

		count, err = repo.CountByDealerBetween(ctx, dealerID, day0.AddDate(0, 0, -180), day0)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestAlertRepository(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDatabase(t)
	repo := NewGormAlertRepository(db.DB)
	target := alert.Target{Kind: alert.EntityKindDealer, ID: uuid.New()}

	raise := func(trigger string) *alert.Alert {
		a, err := alert.NewAlert(alert.KindDealerAtRisk, target, alert.SeverityHigh, trigger, "Dealer at risk", "score dropped")
		require.NoError(t, err)
		return a
	}

	first := raise("2026-03-10")
	require.NoError(t, repo.Create(ctx, first))

	t.Run("second pending alert for the same condition is rejected", func(t *testing.T) {
		assert.ErrorIs(t, repo.Create(ctx, raise("2026-03-10")), shared.ErrAlreadyExists)
	})

	t.Run("a closed alert frees the dedupe key", func(t *testing.T) {
		found, err := repo.FindPendingByDedupeKey(ctx, first.DedupeKey)
		require.NoError(t, err)
		require.NoError(t, found.Resolve())
		require.NoError(t, repo.SaveWithLock(ctx, found))

		_, err = repo.FindPendingByDedupeKey(ctx, first.DedupeKey)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, repo.Create(ctx, raise("2026-03-10")))
	})

	t.Run("ExistsByDedupeKey sees alerts in any status", func(t *testing.T) {
		exists, err := repo.ExistsByDedupeKey(ctx, first.DedupeKey)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByDedupeKey(ctx, raise("2026-01-01").DedupeKey)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("List filters by status and target", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, raise("2026-03-11")))

		pending := alert.StatusPending
		list, total, err := repo.List(ctx, alert.ListFilter{
			Filter: shared.Filter{Page: 1, PageSize: 1},
			Status: &pending,
			Target: &target,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, list, 1)

		list, total, err = repo.List(ctx, alert.ListFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, list, 3)
	})
}

func TestReadSideRepositories(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDatabase(t)
	dealerID := uuid.New()

	t.Run("invoices since cutoff include old open ones", func(t *testing.T) {
		repo := NewGormInvoiceRepository(db.DB)
		old, err := finance.NewInvoice(dealerID, "INV-1", decimal.NewFromInt(1000), day0.AddDate(-1, 0, 0), day0.AddDate(-1, 1, 0))
		require.NoError(t, err)
		oldPaid, err := finance.NewInvoice(dealerID, "INV-2", decimal.NewFromInt(500), day0.AddDate(-1, 0, 0), day0.AddDate(-1, 1, 0))
		require.NoError(t, err)
		require.NoError(t, oldPaid.MarkPaid(day0.AddDate(-1, 0, 10)))
		recent, err := finance.NewInvoice(dealerID, "INV-3", decimal.NewFromInt(700), day0.AddDate(0, 0, -10), day0.AddDate(0, 0, 20))
		require.NoError(t, err)
		for _, inv := range []*finance.Invoice{old, oldPaid, recent} {
			require.NoError(t, repo.Save(ctx, inv))
		}

		found, err := repo.FindByDealerSince(ctx, dealerID, day0.AddDate(0, 0, -180))
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("snapshots are returned newest first", func(t *testing.T) {
		repo := NewGormHealthSnapshotRepository(db.DB)
		_, err := repo.FindLatest(ctx, dealerID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		for i, total := range []float64{80, 62, 41} {
			score := scoring.HealthScore{Total: total, Label: scoring.DefaultHealthPolicy().Label(total)}
			require.NoError(t, repo.Append(ctx, scoring.NewHealthSnapshot(dealerID, day0.AddDate(0, 0, i), score)))
		}

		latest, err := repo.FindLatest(ctx, dealerID)
		require.NoError(t, err)
		assert.Equal(t, 41.0, latest.Total)
		assert.Equal(t, scoring.HealthLabelCritical, latest.Label)

		history, err := repo.FindHistory(ctx, dealerID, 2)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, 62.0, history[1].Total)
	})

	t.Run("visits newest first", func(t *testing.T) {
		repo := NewGormVisitRepository(db.DB)
		for i := 0; i < 3; i++ {
			v, err := partner.NewVisit(dealerID, nil, day0.AddDate(0, 0, i), "")
			require.NoError(t, err)
			require.NoError(t, repo.Save(ctx, v))
		}
		visits, err := repo.FindByDealer(ctx, dealerID, 2)
		require.NoError(t, err)
		require.Len(t, visits, 2)
		assert.True(t, visits[0].VisitedAt.After(visits[1].VisitedAt))
	})
}

func TestGormTransactionScope(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDatabase(t)
	scope := NewGormTransactionScope(db.DB)
	boom := errors.New("boom")

	c, err := commitment.NewCommitment(uuid.New(), nil, 3, day0, 1)
	require.NoError(t, err)

	err = scope.Execute(ctx, func(repos transaction.Repositories) error {
		require.NoError(t, repos.Commitments().Create(ctx, c))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = NewGormCommitmentRepository(db.DB).FindByID(ctx, c.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound, "rolled back")

	err = scope.Execute(ctx, func(repos transaction.Repositories) error {
		return repos.Commitments().Create(ctx, c)
	})
	require.NoError(t, err)
	_, err = NewGormCommitmentRepository(db.DB).FindByID(ctx, c.ID)
	assert.NoError(t, err)

	t.Run("deadlock victim is reported as a lock conflict", func(t *testing.T) {
		err := scope.Execute(ctx, func(repos transaction.Repositories) error {
			return fmt.Errorf("failed to lock inventory item: %w", &pgconn.PgError{Code: "40P01", Message: "deadlock detected"})
		})
		assert.ErrorIs(t, err, shared.ErrOptimisticLock)
	})
}
