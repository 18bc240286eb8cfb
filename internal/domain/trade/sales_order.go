package trade

import (
	"fmt"
	"time"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxRate is the flat tax applied to order subtotals
var TaxRate = decimal.NewFromFloat(0.18)

// OrderStatus represents the status of a sales order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// CanTransitionTo checks if the status can move forward to target
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusConfirmed || target == OrderStatusCancelled
	case OrderStatusConfirmed:
		return target == OrderStatusDelivered || target == OrderStatusCancelled
	}
	return false
}

// FormatOrderNumber renders the human readable order number
func FormatOrderNumber(year, seq int) string {
	return fmt.Sprintf("ORD-%d-%04d", year, seq)
}

// SalesOrderLine is one product line of an order
type SalesOrderLine struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductCode  string          `gorm:"type:varchar(50)"`
	Quantity     int             `gorm:"not null"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineTotal    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	FromCommits  int             `gorm:"column:consumed_from_commitments;not null;default:0"`
	Unmatched    int             `gorm:"column:unmatched_quantity;not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for GORM
func (SalesOrderLine) TableName() string {
	return "sales_order_lines"
}

// SalesOrder is a dealer order. Once delivered it is immutable.
type SalesOrder struct {
	shared.BaseAggregateRoot
	OrderNumber string           `gorm:"type:varchar(30);not null;uniqueIndex"`
	DealerID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	Location    string           `gorm:"type:varchar(50);not null"`
	OrderDate   time.Time        `gorm:"type:date;not null;index"`
	Status      OrderStatus      `gorm:"type:varchar(20);not null;default:'pending';index"`
	Subtotal    decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	Tax         decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	Total       decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	Notes       string           `gorm:"type:text"`
	CancelledAt *time.Time
	DeliveredAt *time.Time
	Lines       []SalesOrderLine `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (SalesOrder) TableName() string {
	return "sales_orders"
}

// NewSalesOrder creates a pending order without lines
func NewSalesOrder(orderNumber string, dealerID uuid.UUID, location string, orderDate time.Time) (*SalesOrder, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if dealerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_DEALER", "Dealer ID cannot be empty")
	}
	return &SalesOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		DealerID:          dealerID,
		Location:          location,
		OrderDate:         shared.Day(orderDate),
		Status:            OrderStatusPending,
		Subtotal:          decimal.Zero,
		Tax:               decimal.Zero,
		Total:             decimal.Zero,
		Lines:             make([]SalesOrderLine, 0),
	}, nil
}

// AddLine appends a product line, merging quantity into an existing line
// for the same product, and recalculates totals.
func (o *SalesOrder) AddLine(productID uuid.UUID, productCode string, quantity int, unitPrice decimal.Decimal) (*SalesOrderLine, error) {
	if o.Status != OrderStatusPending {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Lines can only be added to a pending order")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	for idx := range o.Lines {
		if o.Lines[idx].ProductID == productID {
			o.Lines[idx].Quantity += quantity
			o.Lines[idx].LineTotal = unitPrice.Mul(decimal.NewFromInt(int64(o.Lines[idx].Quantity)))
			o.recalculateTotals()
			return &o.Lines[idx], nil
		}
	}

	now := time.Now().UTC()
	o.Lines = append(o.Lines, SalesOrderLine{
		ID:          uuid.New(),
		OrderID:     o.ID,
		ProductID:   productID,
		ProductCode: productCode,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LineTotal:   unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	o.recalculateTotals()
	return &o.Lines[len(o.Lines)-1], nil
}

// RecordConsumption stores how much of a line was absorbed by commitments
func (o *SalesOrder) RecordConsumption(productID uuid.UUID, consumed, unmatched int) {
	for idx := range o.Lines {
		if o.Lines[idx].ProductID == productID {
			o.Lines[idx].FromCommits = consumed
			o.Lines[idx].Unmatched = unmatched
			return
		}
	}
}

// Finalize seals a newly built order and raises OrderCreated
func (o *SalesOrder) Finalize() error {
	if len(o.Lines) == 0 {
		return shared.NewDomainError("NO_LINES", "Order must have at least one line")
	}
	o.AddDomainEvent(NewOrderCreatedEvent(o))
	return nil
}

// Confirm moves a pending order to confirmed
func (o *SalesOrder) Confirm() error {
	return o.transition(OrderStatusConfirmed)
}

// Deliver moves a confirmed order to delivered
func (o *SalesOrder) Deliver() error {
	if err := o.transition(OrderStatusDelivered); err != nil {
		return err
	}
	now := time.Now().UTC()
	o.DeliveredAt = &now
	return nil
}

// Cancel cancels a pending or confirmed order
func (o *SalesOrder) Cancel() error {
	if err := o.transition(OrderStatusCancelled); err != nil {
		return err
	}
	now := time.Now().UTC()
	o.CancelledAt = &now
	return nil
}

func (o *SalesOrder) transition(target OrderStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot move order from %s to %s", o.Status, target))
	}
	from := o.Status
	o.Status = target
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, from))
	return nil
}

func (o *SalesOrder) recalculateTotals() {
	subtotal := decimal.Zero
	for _, l := range o.Lines {
		subtotal = subtotal.Add(l.LineTotal)
	}
	o.Subtotal = subtotal.Round(2)
	o.Tax = subtotal.Mul(TaxRate).Round(2)
	o.Total = o.Subtotal.Add(o.Tax)
}

// TotalQuantity returns the summed line quantity
func (o *SalesOrder) TotalQuantity() int {
	total := 0
	for _, l := range o.Lines {
		total += l.Quantity
	}
	return total
}
