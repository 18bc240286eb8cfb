package testutil

import (
	"github.com/dealerops/backend/internal/domain/catalog"
	"github.com/dealerops/backend/internal/domain/commitment"
	"github.com/dealerops/backend/internal/domain/finance"
	"github.com/dealerops/backend/internal/domain/inventory"
	"github.com/dealerops/backend/internal/domain/partner"
	"github.com/dealerops/backend/internal/domain/trade"
	"github.com/google/uuid"
)

// PutDealer stores a dealer as committed state
func (s *MemStore) PutDealer(d *partner.Dealer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := *d
	v.ClearDomainEvents()
	s.dealers[v.ID] = v
}

// PutProduct stores a product as committed state
func (s *MemStore) PutProduct(p *catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = *p
}

// PutCommitment stores a commitment as committed state
func (s *MemStore) PutCommitment(c *commitment.Commitment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := *c
	v.ClearDomainEvents()
	s.commitments[v.ID] = v
}

// PutItem stores a stock position as committed state
func (s *MemStore) PutItem(item *inventory.InventoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := *item
	v.ClearDomainEvents()
	s.items[v.ID] = v
}

// PutInvoice stores an invoice
func (s *MemStore) PutInvoice(inv *finance.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[inv.ID] = *inv
}

// Commitment returns the committed state of a commitment
func (s *MemStore) Commitment(id uuid.UUID) (commitment.Commitment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commitments[id]
	return c, ok
}

// Item returns the committed state of a stock position
func (s *MemStore) Item(id uuid.UUID) (inventory.InventoryItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	return item, ok
}

// Dealer returns the committed state of a dealer
func (s *MemStore) Dealer(id uuid.UUID) (partner.Dealer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dealers[id]
	return d, ok
}

// OrderCount returns the number of stored orders
func (s *MemStore) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// OrderByID returns the committed state of an order
func (s *MemStore) OrderByID(id uuid.UUID) (trade.SalesOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	return o, ok
}

// AlertCount returns the number of stored alerts
func (s *MemStore) AlertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.alerts)
}
