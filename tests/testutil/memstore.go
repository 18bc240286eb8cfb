package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dealerops/backend/internal/application/transaction"
	"github.com/dealerops/backend/internal/domain/alert"
	"github.com/dealerops/backend/internal/domain/catalog"
	"github.com/dealerops/backend/internal/domain/commitment"
	"github.com/dealerops/backend/internal/domain/finance"
	"github.com/dealerops/backend/internal/domain/inventory"
	"github.com/dealerops/backend/internal/domain/partner"
	"github.com/dealerops/backend/internal/domain/scoring"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/dealerops/backend/internal/domain/trade"
	"github.com/google/uuid"
)

// MemStore is an in-memory database with optimistic transactions. Writes
// made inside Execute are staged and applied atomically on commit; a commit
// whose version checks no longer hold fails with shared.ErrOptimisticLock,
// which is how a row-level conflict surfaces from PostgreSQL.
type MemStore struct {
	mu           sync.Mutex
	dealers      map[uuid.UUID]partner.Dealer
	visits       map[uuid.UUID]partner.Visit
	products     map[uuid.UUID]catalog.Product
	commitments  map[uuid.UUID]commitment.Commitment
	items        map[uuid.UUID]inventory.InventoryItem
	reservations map[uuid.UUID]inventory.Reservation
	orders       map[uuid.UUID]trade.SalesOrder
	alerts       map[uuid.UUID]alert.Alert
	invoices     map[uuid.UUID]finance.Invoice
	snapshots    []scoring.HealthSnapshot
	commits      int
}

// NewMemStore creates an empty store
func NewMemStore() *MemStore {
	return &MemStore{
		dealers:      map[uuid.UUID]partner.Dealer{},
		visits:       map[uuid.UUID]partner.Visit{},
		products:     map[uuid.UUID]catalog.Product{},
		commitments:  map[uuid.UUID]commitment.Commitment{},
		items:        map[uuid.UUID]inventory.InventoryItem{},
		reservations: map[uuid.UUID]inventory.Reservation{},
		orders:       map[uuid.UUID]trade.SalesOrder{},
		alerts:       map[uuid.UUID]alert.Alert{},
		invoices:     map[uuid.UUID]finance.Invoice{},
	}
}

// Commits returns the number of successful transactional commits
func (s *MemStore) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// Execute implements transaction.Scope
func (s *MemStore) Execute(ctx context.Context, fn func(repos transaction.Repositories) error) error {
	tx := &memTx{store: s}
	if err := fn(tx.repos()); err != nil {
		return err
	}
	return tx.commit()
}

// Repos returns auto-committing repositories for use outside a transaction
func (s *MemStore) Repos() *transaction.RepositorySet {
	return (&memTx{store: s, auto: true}).repos()
}

// DealerRepo returns an auto-committing dealer repository
func (s *MemStore) DealerRepo() *MemDealerRepo { return &MemDealerRepo{tx: &memTx{store: s, auto: true}} }

// ProductRepo returns an auto-committing product repository
func (s *MemStore) ProductRepo() *MemProductRepo { return &MemProductRepo{tx: &memTx{store: s, auto: true}} }

// CommitmentRepo returns an auto-committing commitment repository
func (s *MemStore) CommitmentRepo() *MemCommitmentRepo {
	return &MemCommitmentRepo{tx: &memTx{store: s, auto: true}}
}

// InventoryRepo returns an auto-committing inventory repository
func (s *MemStore) InventoryRepo() *MemInventoryRepo { return &MemInventoryRepo{tx: &memTx{store: s, auto: true}} }

// ReservationRepo returns an auto-committing reservation repository
func (s *MemStore) ReservationRepo() *MemReservationRepo {
	return &MemReservationRepo{tx: &memTx{store: s, auto: true}}
}

// OrderRepo returns an auto-committing order repository
func (s *MemStore) OrderRepo() *MemOrderRepo { return &MemOrderRepo{tx: &memTx{store: s, auto: true}} }

// AlertRepo returns an auto-committing alert repository
func (s *MemStore) AlertRepo() *MemAlertRepo { return &MemAlertRepo{tx: &memTx{store: s, auto: true}} }

// InvoiceRepo returns an invoice repository
func (s *MemStore) InvoiceRepo() *MemInvoiceRepo { return &MemInvoiceRepo{store: s} }

// SnapshotRepo returns a health snapshot repository
func (s *MemStore) SnapshotRepo() *MemSnapshotRepo { return &MemSnapshotRepo{store: s} }

// VisitRepo returns a visit repository
func (s *MemStore) VisitRepo() *MemVisitRepo { return &MemVisitRepo{store: s} }

type memTx struct {
	store   *MemStore
	auto    bool
	checks  []func() bool
	applies []func()
	overlay map[uuid.UUID]any
}

func (tx *memTx) repos() *transaction.RepositorySet {
	return &transaction.RepositorySet{
		DealerRepo:      &MemDealerRepo{tx: tx},
		ProductRepo:     &MemProductRepo{tx: tx},
		CommitmentRepo:  &MemCommitmentRepo{tx: tx},
		InventoryRepo:   &MemInventoryRepo{tx: tx},
		ReservationRepo: &MemReservationRepo{tx: tx},
		OrderRepo:       &MemOrderRepo{tx: tx},
		AlertRepo:       &MemAlertRepo{tx: tx},
	}
}

// stage records a write. check runs under the store lock at commit time.
func (tx *memTx) stage(id uuid.UUID, value any, check func() bool, apply func()) error {
	if tx.overlay == nil {
		tx.overlay = map[uuid.UUID]any{}
	}
	tx.overlay[id] = value
	if check != nil {
		tx.checks = append(tx.checks, check)
	}
	tx.applies = append(tx.applies, apply)
	if tx.auto {
		return tx.commit()
	}
	return nil
}

func (tx *memTx) commit() error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		tx.checks, tx.applies, tx.overlay = nil, nil, nil
	}()
	for _, check := range tx.checks {
		if !check() {
			return shared.ErrOptimisticLock
		}
	}
	for _, apply := range tx.applies {
		apply()
	}
	if len(tx.applies) > 0 && !tx.auto {
		s.commits++
	}
	return nil
}

func lookup[T any](tx *memTx, id uuid.UUID, table map[uuid.UUID]T) (T, bool) {
	if v, ok := tx.overlay[id]; ok {
		if t, ok := v.(T); ok {
			return t, true
		}
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	v, ok := table[id]
	return v, ok
}

func scan[T any](tx *memTx, table map[uuid.UUID]T, keep func(*T) bool) []T {
	tx.store.mu.Lock()
	merged := make(map[uuid.UUID]T, len(table))
	for id, v := range table {
		merged[id] = v
	}
	tx.store.mu.Unlock()
	for id, v := range tx.overlay {
		if t, ok := v.(T); ok {
			merged[id] = t
		}
	}
	out := make([]T, 0)
	for _, v := range merged {
		if keep(&v) {
			out = append(out, v)
		}
	}
	return out
}

func versionCheck[T any](table map[uuid.UUID]T, id uuid.UUID, want int, version func(T) int) func() bool {
	return func() bool {
		cur, ok := table[id]
		return ok && version(cur) == want
	}
}

// ----- dealers -----

// MemDealerRepo implements partner.DealerRepository
type MemDealerRepo struct{ tx *memTx }

func (r *MemDealerRepo) FindByID(_ context.Context, id uuid.UUID) (*partner.Dealer, error) {
	d, ok := lookup(r.tx, id, r.tx.store.dealers)
	if !ok {
		return nil, shared.ErrNotFound
	}
	d.ClearDomainEvents()
	return &d, nil
}

func (r *MemDealerRepo) FindByCode(_ context.Context, code string) (*partner.Dealer, error) {
	found := scan(r.tx, r.tx.store.dealers, func(d *partner.Dealer) bool { return strings.EqualFold(d.Code, code) })
	if len(found) == 0 {
		return nil, shared.ErrNotFound
	}
	return &found[0], nil
}

func (r *MemDealerRepo) FindActive(_ context.Context, salesPersonID *uuid.UUID) ([]partner.Dealer, error) {
	found := scan(r.tx, r.tx.store.dealers, func(d *partner.Dealer) bool {
		if !d.IsActive() {
			return false
		}
		return salesPersonID == nil || (d.SalesPersonID != nil && *d.SalesPersonID == *salesPersonID)
	})
	sort.Slice(found, func(i, j int) bool { return found[i].Code < found[j].Code })
	return found, nil
}

func (r *MemDealerRepo) FindAll(ctx context.Context, _ shared.Filter) ([]partner.Dealer, error) {
	found := scan(r.tx, r.tx.store.dealers, func(*partner.Dealer) bool { return true })
	sort.Slice(found, func(i, j int) bool { return found[i].Code < found[j].Code })
	return found, nil
}

func (r *MemDealerRepo) Save(_ context.Context, d *partner.Dealer) error {
	v := *d
	v.ClearDomainEvents()
	s := r.tx.store
	return r.tx.stage(d.ID, v, nil, func() { s.dealers[v.ID] = v })
}

func (r *MemDealerRepo) ExistsByID(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := lookup(r.tx, id, r.tx.store.dealers)
	return ok, nil
}

// ----- products -----

// MemProductRepo implements catalog.ProductRepository
type MemProductRepo struct{ tx *memTx }

func (r *MemProductRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	p, ok := lookup(r.tx, id, r.tx.store.products)
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (r *MemProductRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return scan(r.tx, r.tx.store.products, func(p *catalog.Product) bool { return want[p.ID] }), nil
}

func (r *MemProductRepo) FindByCode(_ context.Context, code string) (*catalog.Product, error) {
	found := scan(r.tx, r.tx.store.products, func(p *catalog.Product) bool { return strings.EqualFold(p.Code, code) })
	if len(found) == 0 {
		return nil, shared.ErrNotFound
	}
	return &found[0], nil
}

func (r *MemProductRepo) FindActive(_ context.Context) ([]catalog.Product, error) {
	found := scan(r.tx, r.tx.store.products, func(p *catalog.Product) bool { return p.IsActive() })
	sort.Slice(found, func(i, j int) bool { return found[i].Code < found[j].Code })
	return found, nil
}

func (r *MemProductRepo) Save(_ context.Context, p *catalog.Product) error {
	v := *p
	s := r.tx.store
	return r.tx.stage(p.ID, v, nil, func() { s.products[v.ID] = v })
}

// ----- commitments -----

// MemCommitmentRepo implements commitment.Repository
type MemCommitmentRepo struct{ tx *memTx }

func (r *MemCommitmentRepo) FindByID(_ context.Context, id uuid.UUID) (*commitment.Commitment, error) {
	c, ok := lookup(r.tx, id, r.tx.store.commitments)
	if !ok {
		return nil, shared.ErrNotFound
	}
	c.ClearDomainEvents()
	return &c, nil
}

func (r *MemCommitmentRepo) FindPending(_ context.Context, q commitment.PendingQuery) ([]*commitment.Commitment, error) {
	found := scan(r.tx, r.tx.store.commitments, func(c *commitment.Commitment) bool {
		if c.DealerID != q.DealerID || !c.IsOpen() {
			return false
		}
		switch {
		case q.ProductID != nil:
			return c.ProductID != nil && *c.ProductID == *q.ProductID
		case q.BasketOnly:
			return c.ProductID == nil
		}
		return true
	})
	out := make([]*commitment.Commitment, len(found))
	for i := range found {
		found[i].ClearDomainEvents()
		out[i] = &found[i]
	}
	commitment.SortPending(out)
	return out, nil
}

func (r *MemCommitmentRepo) FindPendingForUpdate(ctx context.Context, q commitment.PendingQuery) ([]*commitment.Commitment, error) {
	return r.FindPending(ctx, q)
}

func (r *MemCommitmentRepo) FindOverdue(_ context.Context, asOf time.Time, limit int) ([]*commitment.Commitment, error) {
	found := scan(r.tx, r.tx.store.commitments, func(c *commitment.Commitment) bool { return c.IsOverdue(asOf) })
	out := make([]*commitment.Commitment, len(found))
	for i := range found {
		out[i] = &found[i]
	}
	commitment.SortPending(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemCommitmentRepo) FindMissedSince(_ context.Context, since time.Time) ([]commitment.Commitment, error) {
	since = shared.Day(since)
	found := scan(r.tx, r.tx.store.commitments, func(c *commitment.Commitment) bool {
		return c.Status == commitment.StatusMissed && c.MissedAt != nil && !c.MissedAt.Before(since)
	})
	sort.Slice(found, func(i, j int) bool { return found[i].MissedAt.Before(*found[j].MissedAt) })
	return found, nil
}

func (r *MemCommitmentRepo) FindByExpectedRange(_ context.Context, dealerID *uuid.UUID, from, to time.Time) ([]commitment.Commitment, error) {
	from, to = shared.Day(from), shared.Day(to)
	found := scan(r.tx, r.tx.store.commitments, func(c *commitment.Commitment) bool {
		if dealerID != nil && c.DealerID != *dealerID {
			return false
		}
		return !c.ExpectedDate.Before(from) && !c.ExpectedDate.After(to)
	})
	sort.Slice(found, func(i, j int) bool { return found[i].ExpectedDate.Before(found[j].ExpectedDate) })
	return found, nil
}

func (r *MemCommitmentRepo) Create(_ context.Context, c *commitment.Commitment) error {
	v := *c
	v.ClearDomainEvents()
	s := r.tx.store
	absent := func() bool { _, ok := s.commitments[v.ID]; return !ok }
	return r.tx.stage(v.ID, v, absent, func() { s.commitments[v.ID] = v })
}

func (r *MemCommitmentRepo) SaveWithLock(_ context.Context, c *commitment.Commitment) error {
	s := r.tx.store
	check := versionCheck(s.commitments, c.ID, c.Version-1, func(x commitment.Commitment) int { return x.Version })
	if _, staged := r.tx.overlay[c.ID]; !staged {
		s.mu.Lock()
		ok := check()
		s.mu.Unlock()
		if !ok {
			return shared.ErrOptimisticLock
		}
	}
	v := *c
	v.ClearDomainEvents()
	return r.tx.stage(v.ID, v, check, func() { s.commitments[v.ID] = v })
}

// ----- inventory -----

// MemInventoryRepo implements inventory.InventoryItemRepository
type MemInventoryRepo struct{ tx *memTx }

func (r *MemInventoryRepo) FindByProductAndLocation(_ context.Context, productID uuid.UUID, location string) (*inventory.InventoryItem, error) {
	location = inventory.NormalizeLocation(location)
	found := scan(r.tx, r.tx.store.items, func(i *inventory.InventoryItem) bool {
		return i.ProductID == productID && i.Location == location
	})
	if len(found) == 0 {
		return nil, shared.ErrNotFound
	}
	found[0].ClearDomainEvents()
	return &found[0], nil
}

func (r *MemInventoryRepo) FindByProductAndLocationForUpdate(ctx context.Context, productID uuid.UUID, location string) (*inventory.InventoryItem, error) {
	return r.FindByProductAndLocation(ctx, productID, location)
}

func (r *MemInventoryRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	item, ok := lookup(r.tx, id, r.tx.store.items)
	if !ok {
		return nil, shared.ErrNotFound
	}
	item.ClearDomainEvents()
	return &item, nil
}

func (r *MemInventoryRepo) GetOrCreate(ctx context.Context, productID uuid.UUID, location string) (*inventory.InventoryItem, error) {
	item, err := r.FindByProductAndLocation(ctx, productID, location)
	if err == nil {
		return item, nil
	}
	item, err = inventory.NewInventoryItem(productID, location)
	if err != nil {
		return nil, err
	}
	v := *item
	s := r.tx.store
	if err := r.tx.stage(v.ID, v, nil, func() { s.items[v.ID] = v }); err != nil {
		return nil, err
	}
	return item, nil
}

func (r *MemInventoryRepo) SaveWithLock(_ context.Context, item *inventory.InventoryItem) error {
	s := r.tx.store
	check := versionCheck(s.items, item.ID, item.Version-1, func(x inventory.InventoryItem) int { return x.Version })
	staged, isStaged := r.tx.overlay[item.ID]
	if isStaged {
		prev := staged.(inventory.InventoryItem)
		if prev.Version != item.Version-1 {
			return shared.ErrOptimisticLock
		}
		s.mu.Lock()
		_, exists := s.items[item.ID]
		s.mu.Unlock()
		if !exists {
			check = nil
		}
	} else {
		s.mu.Lock()
		ok := check()
		s.mu.Unlock()
		if !ok {
			return shared.ErrOptimisticLock
		}
	}
	v := *item
	v.ClearDomainEvents()
	return r.tx.stage(v.ID, v, check, func() { s.items[v.ID] = v })
}

// Put stores a stock position directly
func (r *MemInventoryRepo) Put(item *inventory.InventoryItem) {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	v := *item
	v.ClearDomainEvents()
	s.items[v.ID] = v
}

// MemReservationRepo implements inventory.ReservationRepository
type MemReservationRepo struct{ tx *memTx }

func (r *MemReservationRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.Reservation, error) {
	res, ok := lookup(r.tx, id, r.tx.store.reservations)
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &res, nil
}

func (r *MemReservationRepo) FindActiveByOrder(_ context.Context, orderID uuid.UUID) ([]inventory.Reservation, error) {
	found := scan(r.tx, r.tx.store.reservations, func(res *inventory.Reservation) bool {
		return res.OrderID == orderID && res.IsActive()
	})
	sort.Slice(found, func(i, j int) bool { return found[i].CreatedAt.Before(found[j].CreatedAt) })
	return found, nil
}

func (r *MemReservationRepo) Create(ctx context.Context, res *inventory.Reservation) error {
	return r.Save(ctx, res)
}

func (r *MemReservationRepo) Save(_ context.Context, res *inventory.Reservation) error {
	v := *res
	s := r.tx.store
	return r.tx.stage(v.ID, v, nil, func() { s.reservations[v.ID] = v })
}

// ----- orders -----

// MemOrderRepo implements trade.SalesOrderRepository
type MemOrderRepo struct{ tx *memTx }

func (r *MemOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*trade.SalesOrder, error) {
	o, ok := lookup(r.tx, id, r.tx.store.orders)
	if !ok {
		return nil, shared.ErrNotFound
	}
	o.Lines = append([]trade.SalesOrderLine(nil), o.Lines...)
	o.ClearDomainEvents()
	return &o, nil
}

func (r *MemOrderRepo) CountByDealerBetween(_ context.Context, dealerID uuid.UUID, from, to time.Time) (int64, error) {
	from, to = shared.Day(from), shared.Day(to)
	found := scan(r.tx, r.tx.store.orders, func(o *trade.SalesOrder) bool {
		return o.DealerID == dealerID && o.Status != trade.OrderStatusCancelled &&
			!o.OrderDate.Before(from) && !o.OrderDate.After(to)
	})
	return int64(len(found)), nil
}

func (r *MemOrderRepo) NextSequence(_ context.Context, year int) (int, error) {
	prefix := trade.FormatOrderNumber(year, 0)
	prefix = prefix[:len(prefix)-4]
	found := scan(r.tx, r.tx.store.orders, func(o *trade.SalesOrder) bool {
		return strings.HasPrefix(o.OrderNumber, prefix)
	})
	return len(found) + 1, nil
}

func (r *MemOrderRepo) Create(_ context.Context, o *trade.SalesOrder) error {
	v := *o
	v.Lines = append([]trade.SalesOrderLine(nil), o.Lines...)
	v.ClearDomainEvents()
	s := r.tx.store
	unique := func() bool {
		for _, existing := range s.orders {
			if existing.OrderNumber == v.OrderNumber {
				return false
			}
		}
		return true
	}
	return r.tx.stage(v.ID, v, unique, func() { s.orders[v.ID] = v })
}

func (r *MemOrderRepo) SaveWithLock(_ context.Context, o *trade.SalesOrder) error {
	s := r.tx.store
	check := versionCheck(s.orders, o.ID, o.Version-1, func(x trade.SalesOrder) int { return x.Version })
	s.mu.Lock()
	ok := check()
	s.mu.Unlock()
	if !ok {
		return shared.ErrOptimisticLock
	}
	v := *o
	v.Lines = append([]trade.SalesOrderLine(nil), o.Lines...)
	v.ClearDomainEvents()
	return r.tx.stage(v.ID, v, check, func() { s.orders[v.ID] = v })
}

// ----- alerts -----

// MemAlertRepo implements alert.Repository
type MemAlertRepo struct{ tx *memTx }

func (r *MemAlertRepo) FindByID(_ context.Context, id uuid.UUID) (*alert.Alert, error) {
	a, ok := lookup(r.tx, id, r.tx.store.alerts)
	if !ok {
		return nil, shared.ErrNotFound
	}
	a.ClearDomainEvents()
	return &a, nil
}

func (r *MemAlertRepo) FindPendingByDedupeKey(_ context.Context, key string) (*alert.Alert, error) {
	found := scan(r.tx, r.tx.store.alerts, func(a *alert.Alert) bool { return a.IsPending() && a.DedupeKey == key })
	if len(found) == 0 {
		return nil, shared.ErrNotFound
	}
	return &found[0], nil
}

func (r *MemAlertRepo) ExistsByDedupeKey(_ context.Context, key string) (bool, error) {
	found := scan(r.tx, r.tx.store.alerts, func(a *alert.Alert) bool { return a.DedupeKey == key })
	return len(found) > 0, nil
}

func (r *MemAlertRepo) List(_ context.Context, f alert.ListFilter) ([]alert.Alert, int64, error) {
	found := scan(r.tx, r.tx.store.alerts, func(a *alert.Alert) bool {
		if f.Status != nil && a.Status != *f.Status {
			return false
		}
		if f.Kind != nil && a.Kind != *f.Kind {
			return false
		}
		return f.Target == nil || a.Target == *f.Target
	})
	sort.Slice(found, func(i, j int) bool { return found[i].CreatedAt.After(found[j].CreatedAt) })
	total := int64(len(found))
	start := min(f.Offset(), len(found))
	end := len(found)
	if f.PageSize > 0 {
		end = min(start+f.PageSize, len(found))
	}
	return found[start:end], total, nil
}

func (r *MemAlertRepo) Create(ctx context.Context, a *alert.Alert) error {
	if _, err := r.FindPendingByDedupeKey(ctx, a.DedupeKey); err == nil {
		return shared.ErrAlreadyExists
	}
	v := *a
	v.ClearDomainEvents()
	s := r.tx.store
	unique := func() bool {
		for _, existing := range s.alerts {
			if existing.IsPending() && existing.DedupeKey == v.DedupeKey {
				return false
			}
		}
		return true
	}
	err := r.tx.stage(v.ID, v, unique, func() { s.alerts[v.ID] = v })
	if err != nil && r.tx.auto {
		return shared.ErrAlreadyExists
	}
	return err
}

func (r *MemAlertRepo) SaveWithLock(_ context.Context, a *alert.Alert) error {
	s := r.tx.store
	check := versionCheck(s.alerts, a.ID, a.Version-1, func(x alert.Alert) int { return x.Version })
	s.mu.Lock()
	ok := check()
	s.mu.Unlock()
	if !ok {
		return shared.ErrOptimisticLock
	}
	v := *a
	v.ClearDomainEvents()
	return r.tx.stage(v.ID, v, check, func() { s.alerts[v.ID] = v })
}

// ----- read-side repositories -----

// MemInvoiceRepo implements finance.InvoiceRepository
type MemInvoiceRepo struct{ store *MemStore }

func (r *MemInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*finance.Invoice, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	inv, ok := r.store.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &inv, nil
}

func (r *MemInvoiceRepo) FindByDealerSince(_ context.Context, dealerID uuid.UUID, since time.Time) ([]finance.Invoice, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]finance.Invoice, 0)
	for _, inv := range r.store.invoices {
		if inv.DealerID != dealerID {
			continue
		}
		if inv.Status == finance.InvoiceStatusOpen || !inv.IssuedAt.Before(shared.Day(since)) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *MemInvoiceRepo) Save(_ context.Context, inv *finance.Invoice) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.invoices[inv.ID] = *inv
	return nil
}

// MemSnapshotRepo implements scoring.HealthSnapshotRepository
type MemSnapshotRepo struct{ store *MemStore }

func (r *MemSnapshotRepo) Append(_ context.Context, snap *scoring.HealthSnapshot) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.snapshots = append(r.store.snapshots, *snap)
	return nil
}

func (r *MemSnapshotRepo) FindLatest(ctx context.Context, dealerID uuid.UUID) (*scoring.HealthSnapshot, error) {
	history, _ := r.FindHistory(ctx, dealerID, 1)
	if len(history) == 0 {
		return nil, shared.ErrNotFound
	}
	return &history[0], nil
}

func (r *MemSnapshotRepo) FindHistory(_ context.Context, dealerID uuid.UUID, limit int) ([]scoring.HealthSnapshot, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]scoring.HealthSnapshot, 0)
	for i := len(r.store.snapshots) - 1; i >= 0; i-- {
		if r.store.snapshots[i].DealerID == dealerID {
			out = append(out, r.store.snapshots[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemVisitRepo implements partner.VisitRepository
type MemVisitRepo struct{ store *MemStore }

func (r *MemVisitRepo) Save(_ context.Context, v *partner.Visit) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.visits[v.ID] = *v
	return nil
}

func (r *MemVisitRepo) FindByDealer(_ context.Context, dealerID uuid.UUID, limit int) ([]partner.Visit, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make([]partner.Visit, 0)
	for _, v := range r.store.visits {
		if v.DealerID == dealerID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VisitedAt.After(out[j].VisitedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var (
	_ transaction.Scope                 = (*MemStore)(nil)
	_ partner.DealerRepository          = (*MemDealerRepo)(nil)
	_ partner.VisitRepository           = (*MemVisitRepo)(nil)
	_ catalog.ProductRepository         = (*MemProductRepo)(nil)
	_ commitment.Repository             = (*MemCommitmentRepo)(nil)
	_ inventory.InventoryItemRepository = (*MemInventoryRepo)(nil)
	_ inventory.ReservationRepository   = (*MemReservationRepo)(nil)
	_ trade.SalesOrderRepository        = (*MemOrderRepo)(nil)
	_ alert.Repository                  = (*MemAlertRepo)(nil)
	_ finance.InvoiceRepository         = (*MemInvoiceRepo)(nil)
	_ scoring.HealthSnapshotRepository  = (*MemSnapshotRepo)(nil)
)
