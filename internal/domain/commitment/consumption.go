package commitment

import (
	"time"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Window tells which pass of the consumption algorithm absorbed a quantity
type Window string

const (
	WindowBackward Window = "backward"
	WindowForward  Window = "forward"
)

// DefaultForwardWindowDays bounds how far ahead an order may reach to
// consume a future commitment.
const DefaultForwardWindowDays = 7

// Allocation is the share of an order credited to one commitment
type Allocation struct {
	CommitmentID  uuid.UUID `json:"commitment_id"`
	ExpectedDate  time.Time `json:"expected_date"`
	QuantityTaken int       `json:"quantity_taken"`
	Window        Window    `json:"window"`
	Status        Status    `json:"status"`
}

// Plan is the result of running an order against a dealer's open commitments
type Plan struct {
	OrderQuantity           int           `json:"order_quantity"`
	Allocations             []Allocation  `json:"allocations"`
	ConsumedFromCommitments int           `json:"consumed_from_commitments"`
	UnmatchedQuantity       int           `json:"unmatched_quantity"`
	Touched                 []*Commitment `json:"-"`
}

// FullyMatched reports whether the whole order was absorbed by commitments
func (p Plan) FullyMatched() bool {
	return p.UnmatchedQuantity == 0
}

// Policy holds the tunables of the consumption algorithm
type Policy struct {
	ForwardWindowDays int
}

// DefaultPolicy returns the standard backward-first, 7-day forward policy
func DefaultPolicy() Policy {
	return Policy{ForwardWindowDays: DefaultForwardWindowDays}
}

// Partition splits open commitments into the backward set (expected on or
// before asOf) and the forward set (after asOf, within the forward window).
// Anything later is not eligible. Input order is preserved.
func (p Policy) Partition(open []*Commitment, asOf time.Time) (backward, forward []*Commitment) {
	today := shared.Day(asOf)
	horizon := today.AddDate(0, 0, p.ForwardWindowDays)
	for _, c := range open {
		if !c.IsOpen() || c.Remaining() <= 0 {
			continue
		}
		switch {
		case !c.ExpectedDate.After(today):
			backward = append(backward, c)
		case !c.ExpectedDate.After(horizon):
			forward = append(forward, c)
		}
	}
	return backward, forward
}

// Consume runs an order quantity against open commitments: the backward set
// first, then the forward set, each in expected-date order. The commitments
// are mutated in place and the touched ones are listed in the plan.
func (p Policy) Consume(open []*Commitment, orderQuantity int, asOf time.Time) (Plan, error) {
	if orderQuantity <= 0 {
		return Plan{}, shared.NewDomainError(shared.CodeInvalidInput, "Order quantity must be positive")
	}

	sorted := make([]*Commitment, len(open))
	copy(sorted, open)
	SortPending(sorted)
	backward, forward := p.Partition(sorted, asOf)

	plan := Plan{
		OrderQuantity: orderQuantity,
		Allocations:   make([]Allocation, 0),
	}
	remaining := orderQuantity

	pass := func(set []*Commitment, window Window) error {
		for _, c := range set {
			if remaining == 0 {
				return nil
			}
			take := min(remaining, c.Remaining())
			if take <= 0 {
				continue
			}
			if err := c.Consume(take, window); err != nil {
				return err
			}
			remaining -= take
			plan.Allocations = append(plan.Allocations, Allocation{
				CommitmentID:  c.ID,
				ExpectedDate:  c.ExpectedDate,
				QuantityTaken: take,
				Window:        window,
				Status:        c.Status,
			})
			plan.Touched = append(plan.Touched, c)
		}
		return nil
	}

	if err := pass(backward, WindowBackward); err != nil {
		return Plan{}, err
	}
	if err := pass(forward, WindowForward); err != nil {
		return Plan{}, err
	}

	plan.ConsumedFromCommitments = orderQuantity - remaining
	plan.UnmatchedQuantity = remaining
	return plan, nil
}
