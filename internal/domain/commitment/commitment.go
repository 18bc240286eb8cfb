package commitment

import (
	"fmt"
	"time"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Status is the lifecycle state of a commitment
type Status string

const (
	StatusPending   Status = "pending"
	StatusPartial   Status = "partial"
	StatusFulfilled Status = "fulfilled"
	StatusMissed    Status = "missed"
)

// IsOpen reports whether a commitment in this status can still be consumed
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusPartial
}

// Urgency labels how close an open commitment is to its expected date
type Urgency string

const (
	UrgencyOverdue  Urgency = "overdue"
	UrgencyDueSoon  Urgency = "due_soon"
	UrgencyUpcoming Urgency = "upcoming"
)

// DueSoonDays is the horizon for UrgencyDueSoon
const DueSoonDays = 3

// Commitment is a dealer's promise to buy a quantity by an expected date.
// ProductID nil means a basket commitment not tied to one product.
//
// Invariants: 0 <= QuantityConsumed <= QuantityPromised, consumed never
// decreases, and Status always agrees with the consumed quantity except for
// the terminal missed state.
type Commitment struct {
	shared.BaseAggregateRoot
	DealerID         uuid.UUID  `gorm:"type:uuid;not null;index:idx_commitment_open,priority:1"`
	ProductID        *uuid.UUID `gorm:"type:uuid;index:idx_commitment_open,priority:2"`
	SalesPersonID    *uuid.UUID `gorm:"type:uuid;index"`
	QuantityPromised int        `gorm:"not null"`
	QuantityConsumed int        `gorm:"not null;default:0"`
	ExpectedDate     time.Time  `gorm:"type:date;not null;index"`
	Status           Status     `gorm:"type:varchar(20);not null;default:'pending';index:idx_commitment_open,priority:3"`
	Confidence       float64    `gorm:"not null;default:1"`
	SourceText       string     `gorm:"type:text"`
	FulfilledAt      *time.Time
	MissedAt         *time.Time
}

// TableName returns the table name for GORM
func (Commitment) TableName() string {
	return "commitments"
}

// NewCommitment creates a pending commitment
func NewCommitment(dealerID uuid.UUID, productID *uuid.UUID, quantity int, expectedDate time.Time, confidence float64) (*Commitment, error) {
	if dealerID == uuid.Nil {
		return nil, invalid("Dealer is required")
	}
	if quantity <= 0 {
		return nil, invalid("Promised quantity must be positive")
	}
	if expectedDate.IsZero() {
		return nil, invalid("Expected date is required")
	}
	if confidence < 0 || confidence > 1 {
		return nil, invalid("Confidence must be between 0 and 1")
	}
	if productID != nil && *productID == uuid.Nil {
		productID = nil
	}

	c := &Commitment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DealerID:          dealerID,
		ProductID:         productID,
		QuantityPromised:  quantity,
		ExpectedDate:      shared.Day(expectedDate),
		Status:            StatusPending,
		Confidence:        confidence,
	}
	c.AddDomainEvent(NewCommitmentCreatedEvent(c))
	return c, nil
}

func invalid(msg string) error {
	return shared.NewDomainError(shared.CodeInvalidCommitment, msg)
}

// Remaining returns the quantity still outstanding
func (c *Commitment) Remaining() int {
	return c.QuantityPromised - c.QuantityConsumed
}

// IsOpen reports whether the commitment can still be consumed
func (c *Commitment) IsOpen() bool {
	return c.Status.IsOpen()
}

// Consume credits take units of an order against the commitment
func (c *Commitment) Consume(take int, window Window) error {
	if !c.IsOpen() {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot consume commitment in %s status", c.Status))
	}
	if take <= 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Consumed quantity must be positive")
	}
	if take > c.Remaining() {
		return shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Cannot consume %d, only %d remaining", take, c.Remaining()))
	}

	c.QuantityConsumed += take
	if c.QuantityConsumed == c.QuantityPromised {
		c.Status = StatusFulfilled
		now := time.Now().UTC()
		c.FulfilledAt = &now
	} else {
		c.Status = StatusPartial
	}
	c.IncrementVersion()
	c.AddDomainEvent(NewCommitmentConsumedEvent(c, take, window))
	return nil
}

// IsOverdue reports whether the expected date is before asOf while quantity remains
func (c *Commitment) IsOverdue(asOf time.Time) bool {
	return c.IsOpen() && c.Remaining() > 0 && c.ExpectedDate.Before(shared.Day(asOf))
}

// MarkMissed moves an overdue open commitment to the terminal missed state.
// It returns false, without error, when there is nothing to do.
func (c *Commitment) MarkMissed(asOf time.Time) bool {
	if !c.IsOverdue(asOf) {
		return false
	}
	c.Status = StatusMissed
	at := shared.Day(asOf)
	c.MissedAt = &at
	c.IncrementVersion()
	c.AddDomainEvent(NewCommitmentMissedEvent(c, asOf))
	return true
}

// UrgencyAt classifies the commitment relative to today
func (c *Commitment) UrgencyAt(today time.Time) Urgency {
	days := shared.DaysBetween(today, c.ExpectedDate)
	switch {
	case days < 0:
		return UrgencyOverdue
	case days <= DueSoonDays:
		return UrgencyDueSoon
	default:
		return UrgencyUpcoming
	}
}
