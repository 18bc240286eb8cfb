package finance

import (
	"time"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the settlement status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusOpen InvoiceStatus = "open"
	InvoiceStatusPaid InvoiceStatus = "paid"
)

// Invoice is a dealer receivable. Invoices feed the payment behaviour and
// payment urgency parts of dealer scoring.
type Invoice struct {
	shared.BaseAggregateRoot
	DealerID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderID       *uuid.UUID      `gorm:"type:uuid;index"`
	InvoiceNumber string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	IssuedAt      time.Time       `gorm:"type:date;not null"`
	DueDate       time.Time       `gorm:"type:date;not null;index"`
	PaidAt        *time.Time      `gorm:"type:date"`
	Status        InvoiceStatus   `gorm:"type:varchar(20);not null;default:'open';index"`
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoice creates an open invoice
func NewInvoice(dealerID uuid.UUID, number string, amount decimal.Decimal, issuedAt, dueDate time.Time) (*Invoice, error) {
	if dealerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_DEALER", "Dealer ID cannot be empty")
	}
	if number == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice amount must be positive")
	}
	if dueDate.Before(shared.Day(issuedAt)) {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before issue date")
	}
	return &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DealerID:          dealerID,
		InvoiceNumber:     number,
		Amount:            amount,
		IssuedAt:          shared.Day(issuedAt),
		DueDate:           shared.Day(dueDate),
		Status:            InvoiceStatusOpen,
	}, nil
}

// MarkPaid settles the invoice on the given date
func (i *Invoice) MarkPaid(at time.Time) error {
	if i.Status == InvoiceStatusPaid {
		return shared.NewDomainError(shared.CodeInvalidState, "Invoice already paid")
	}
	day := shared.Day(at)
	i.PaidAt = &day
	i.Status = InvoiceStatusPaid
	i.IncrementVersion()
	return nil
}

// PaidOnTime reports whether a paid invoice was settled by its due date
func (i *Invoice) PaidOnTime() bool {
	return i.PaidAt != nil && !i.PaidAt.After(i.DueDate)
}

// IsOverdue reports whether the invoice is open past its due date
func (i *Invoice) IsOverdue(asOf time.Time) bool {
	return i.Status == InvoiceStatusOpen && i.DueDate.Before(shared.Day(asOf))
}

// DaysOverdue returns whole days past due, 0 when not overdue
func (i *Invoice) DaysOverdue(asOf time.Time) int {
	if !i.IsOverdue(asOf) {
		return 0
	}
	return shared.DaysBetween(i.DueDate, asOf)
}

// PaymentSummary condenses a dealer's invoice history for scoring
type PaymentSummary struct {
	Counted         int             `json:"counted"`
	OnTime          int             `json:"on_time"`
	OverdueAmount   decimal.Decimal `json:"overdue_amount"`
	MaxDaysOverdue  int             `json:"max_days_overdue"`
	OverdueInvoices int             `json:"overdue_invoices"`
}

// OnTimeRate returns the on-time share in [0,1] and false when nothing was counted
func (s PaymentSummary) OnTimeRate() (float64, bool) {
	if s.Counted == 0 {
		return 0, false
	}
	return float64(s.OnTime) / float64(s.Counted), true
}

// Summarize builds a PaymentSummary. An invoice counts toward the on-time
// rate once it is paid or its due date has passed.
func Summarize(invoices []Invoice, asOf time.Time) PaymentSummary {
	s := PaymentSummary{OverdueAmount: decimal.Zero}
	for idx := range invoices {
		inv := &invoices[idx]
		switch {
		case inv.Status == InvoiceStatusPaid:
			s.Counted++
			if inv.PaidOnTime() {
				s.OnTime++
			}
		case inv.IsOverdue(asOf):
			s.Counted++
			s.OverdueInvoices++
			s.OverdueAmount = s.OverdueAmount.Add(inv.Amount)
			s.MaxDaysOverdue = max(s.MaxDaysOverdue, inv.DaysOverdue(asOf))
		}
	}
	return s
}
