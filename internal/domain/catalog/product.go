package catalog

import (
	"strings"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

// Product is a sellable item. Products are master data: once referenced by
// an order or commitment the identity never changes.
type Product struct {
	shared.BaseAggregateRoot
	Code      string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name      string          `gorm:"type:varchar(200);not null"`
	Aliases   string          `gorm:"type:text"`
	Unit      string          `gorm:"type:varchar(20);not null;default:'unit'"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status    ProductStatus   `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates an active product
func NewProduct(code, name, unit string, unitPrice decimal.Decimal) (*Product, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" || len(code) > 50 {
		return nil, shared.NewDomainError("INVALID_CODE", "Product code must be 1-50 characters")
	}
	if name == "" || len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name must be 1-200 characters")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if unit == "" {
		unit = "unit"
	}
	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(code),
		Name:              name,
		Unit:              unit,
		UnitPrice:         unitPrice,
		Status:            ProductStatusActive,
	}, nil
}

// SetAliases replaces the alias list used by entity resolution
func (p *Product) SetAliases(aliases []string) {
	p.Aliases = shared.JoinAliases(aliases)
	p.IncrementVersion()
}

// AliasList returns the alias strings
func (p *Product) AliasList() []string {
	return shared.SplitAliases(p.Aliases)
}

// Discontinue takes the product out of the resolver pool
func (p *Product) Discontinue() {
	if p.Status == ProductStatusDiscontinued {
		return
	}
	p.Status = ProductStatusDiscontinued
	p.IncrementVersion()
}

// IsActive reports whether the product can be ordered
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}
