package partner

import (
	"strings"
	"time"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DealerStatus represents the status of a dealer
type DealerStatus string

const (
	DealerStatusActive   DealerStatus = "active"
	DealerStatusInactive DealerStatus = "inactive"
)

// DealerTier is the commercial category of a dealer
type DealerTier string

const (
	DealerTierA DealerTier = "A"
	DealerTierB DealerTier = "B"
	DealerTierC DealerTier = "C"
)

// Dealer is the master record for a distributor that places orders and makes
// purchase commitments. Dealers are owned by master data; this service only
// touches the activity dates and never deletes a dealer.
type Dealer struct {
	shared.BaseAggregateRoot
	Code          string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name          string          `gorm:"type:varchar(200);not null"`
	Aliases       string          `gorm:"type:text"` // comma separated alternate names
	SalesPersonID *uuid.UUID      `gorm:"type:uuid;index"`
	Territory     string          `gorm:"type:varchar(100)"`
	CreditLimit   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Tier          DealerTier      `gorm:"type:varchar(10);not null;default:'B'"`
	Status        DealerStatus    `gorm:"type:varchar(20);not null;default:'active'"`
	LastOrderDate *time.Time
	LastVisitDate *time.Time
}

// TableName returns the table name for GORM
func (Dealer) TableName() string {
	return "dealers"
}

// NewDealer creates an active dealer
func NewDealer(code, name string, tier DealerTier) (*Dealer, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" || len(code) > 50 {
		return nil, shared.NewDomainError("INVALID_CODE", "Dealer code must be 1-50 characters")
	}
	if name == "" || len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Dealer name must be 1-200 characters")
	}
	if tier == "" {
		tier = DealerTierB
	}
	if tier != DealerTierA && tier != DealerTierB && tier != DealerTierC {
		return nil, shared.NewDomainError("INVALID_TIER", "Dealer tier must be A, B or C")
	}
	return &Dealer{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Tier:              tier,
		Status:            DealerStatusActive,
		CreditLimit:       decimal.Zero,
	}, nil
}

// AssignTo sets the owning sales person and territory
func (d *Dealer) AssignTo(salesPersonID uuid.UUID, territory string) {
	d.SalesPersonID = &salesPersonID
	d.Territory = territory
	d.IncrementVersion()
}

// SetCreditLimit sets the credit limit
func (d *Dealer) SetCreditLimit(limit decimal.Decimal) error {
	if limit.IsNegative() {
		return shared.NewDomainError("INVALID_CREDIT_LIMIT", "Credit limit cannot be negative")
	}
	d.CreditLimit = limit
	d.IncrementVersion()
	return nil
}

// SetAliases replaces the alias list used by entity resolution
func (d *Dealer) SetAliases(aliases []string) {
	d.Aliases = shared.JoinAliases(aliases)
	d.IncrementVersion()
}

// AliasList returns the alias strings
func (d *Dealer) AliasList() []string {
	return shared.SplitAliases(d.Aliases)
}

// Deactivate marks the dealer inactive. Dealers are never deleted.
func (d *Dealer) Deactivate() {
	if d.Status == DealerStatusInactive {
		return
	}
	d.Status = DealerStatusInactive
	d.IncrementVersion()
}

// Activate re-activates the dealer
func (d *Dealer) Activate() {
	if d.Status == DealerStatusActive {
		return
	}
	d.Status = DealerStatusActive
	d.IncrementVersion()
}

// IsActive reports whether the dealer is active
func (d *Dealer) IsActive() bool {
	return d.Status == DealerStatusActive
}

// TouchLastOrder records an order date; it never moves backwards.
func (d *Dealer) TouchLastOrder(at time.Time) bool {
	if d.LastOrderDate != nil && !at.After(*d.LastOrderDate) {
		return false
	}
	t := at.UTC()
	d.LastOrderDate = &t
	d.IncrementVersion()
	return true
}

// TouchLastVisit records a visit date; it never moves backwards.
func (d *Dealer) TouchLastVisit(at time.Time) bool {
	if d.LastVisitDate != nil && !at.After(*d.LastVisitDate) {
		return false
	}
	t := at.UTC()
	d.LastVisitDate = &t
	d.IncrementVersion()
	return true
}
