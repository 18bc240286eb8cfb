package commitment

import (
	"time"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeCommitment is the aggregate type for commitment events
const AggregateTypeCommitment = "Commitment"

// Event type constants
const (
	EventTypeCommitmentCreated  = "CommitmentCreated"
	EventTypeCommitmentConsumed = "CommitmentConsumed"
	EventTypeCommitmentMissed   = "CommitmentMissed"
)

// CommitmentCreatedEvent is published when a commitment is recorded
type CommitmentCreatedEvent struct {
	shared.BaseDomainEvent
	CommitmentID     uuid.UUID  `json:"commitment_id"`
	DealerID         uuid.UUID  `json:"dealer_id"`
	ProductID        *uuid.UUID `json:"product_id,omitempty"`
	QuantityPromised int        `json:"quantity_promised"`
	ExpectedDate     time.Time  `json:"expected_date"`
}

// NewCommitmentCreatedEvent creates a CommitmentCreatedEvent
func NewCommitmentCreatedEvent(c *Commitment) *CommitmentCreatedEvent {
	return &CommitmentCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeCommitmentCreated, AggregateTypeCommitment, c.ID),
		CommitmentID:     c.ID,
		DealerID:         c.DealerID,
		ProductID:        c.ProductID,
		QuantityPromised: c.QuantityPromised,
		ExpectedDate:     c.ExpectedDate,
	}
}

// CommitmentConsumedEvent is published each time an order is credited to a commitment
type CommitmentConsumedEvent struct {
	shared.BaseDomainEvent
	CommitmentID     uuid.UUID `json:"commitment_id"`
	DealerID         uuid.UUID `json:"dealer_id"`
	QuantityTaken    int       `json:"quantity_taken"`
	QuantityConsumed int       `json:"quantity_consumed"`
	Window           Window    `json:"window"`
	Status           Status    `json:"status"`
}

// NewCommitmentConsumedEvent creates a CommitmentConsumedEvent
func NewCommitmentConsumedEvent(c *Commitment, take int, window Window) *CommitmentConsumedEvent {
	return &CommitmentConsumedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeCommitmentConsumed, AggregateTypeCommitment, c.ID),
		CommitmentID:     c.ID,
		DealerID:         c.DealerID,
		QuantityTaken:    take,
		QuantityConsumed: c.QuantityConsumed,
		Window:           window,
		Status:           c.Status,
	}
}

// CommitmentMissedEvent is published when the sweep marks a commitment missed
type CommitmentMissedEvent struct {
	shared.BaseDomainEvent
	CommitmentID      uuid.UUID  `json:"commitment_id"`
	DealerID          uuid.UUID  `json:"dealer_id"`
	ProductID         *uuid.UUID `json:"product_id,omitempty"`
	ExpectedDate      time.Time  `json:"expected_date"`
	RemainingQuantity int        `json:"remaining_quantity"`
	AsOf              time.Time  `json:"as_of"`
}

// NewCommitmentMissedEvent creates a CommitmentMissedEvent
func NewCommitmentMissedEvent(c *Commitment, asOf time.Time) *CommitmentMissedEvent {
	return &CommitmentMissedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeCommitmentMissed, AggregateTypeCommitment, c.ID),
		CommitmentID:      c.ID,
		DealerID:          c.DealerID,
		ProductID:         c.ProductID,
		ExpectedDate:      c.ExpectedDate,
		RemainingQuantity: c.Remaining(),
		AsOf:              shared.Day(asOf),
	}
}
