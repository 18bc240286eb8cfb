package commitment

import (
	"time"

	"github.com/dealerops/backend/internal/domain/commitment"
	"github.com/dealerops/backend/internal/domain/resolver"
	"github.com/google/uuid"
)

// CreateCommitmentInput is the input for recording a commitment
type CreateCommitmentInput struct {
	DealerID      uuid.UUID
	ProductID     *uuid.UUID
	SalesPersonID *uuid.UUID
	Quantity      int
	ExpectedDate  time.Time
	Confidence    float64
	SourceText    string
}

// DraftCommitment is a commitment captured as free text, e.g. from visit notes.
// Dealer and product are re-resolved before anything is stored.
type DraftCommitment struct {
	DealerText       string
	ProductText      string
	Quantity         int
	ExpectedDate     *time.Time
	ExpectedDateText string
	Confidence       *float64
	SalesPersonID    *uuid.UUID
	SourceText       string
}

// DefaultDraftConfidence applies when a draft does not carry a confidence
const DefaultDraftConfidence = 0.80

// DraftResult is the outcome of CreateFromDraft. When a mention could not be
// resolved confidently, Created is false and the resolutions carry the
// candidates for the caller to disambiguate.
type DraftResult struct {
	Created    bool                 `json:"created"`
	Commitment *CommitmentResponse  `json:"commitment,omitempty"`
	Dealer     resolver.Resolution  `json:"dealer"`
	Product    *resolver.Resolution `json:"product,omitempty"`
}

// CommitmentResponse represents a commitment in API responses
type CommitmentResponse struct {
	ID               uuid.UUID         `json:"id"`
	DealerID         uuid.UUID         `json:"dealer_id"`
	ProductID        *uuid.UUID        `json:"product_id,omitempty"`
	SalesPersonID    *uuid.UUID        `json:"sales_person_id,omitempty"`
	QuantityPromised int               `json:"quantity_promised"`
	QuantityConsumed int               `json:"quantity_consumed"`
	ExpectedDate     string            `json:"expected_date"`
	Status           commitment.Status `json:"status"`
	Confidence       float64           `json:"confidence"`
	SourceText       string            `json:"source_text,omitempty"`
	FulfilledAt      *time.Time        `json:"fulfilled_at,omitempty"`
	MissedAt         *time.Time        `json:"missed_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	Version          int               `json:"version"`
}

// PendingCommitmentView is an open commitment with its outstanding quantity
// and urgency relative to today
type PendingCommitmentView struct {
	CommitmentResponse
	Remaining    int                `json:"remaining"`
	Urgency      commitment.Urgency `json:"urgency"`
	DaysUntilDue int                `json:"days_until_due"`
}

// ConsumeInput is the input for running an order quantity against commitments
type ConsumeInput struct {
	DealerID      uuid.UUID
	ProductID     *uuid.UUID
	OrderQuantity int
	AsOf          time.Time
}

// ConsumptionResult is the outcome of a consumption
type ConsumptionResult struct {
	OrderQuantity           int                     `json:"order_quantity"`
	Allocations             []commitment.Allocation `json:"allocations"`
	ConsumedFromCommitments int                     `json:"consumed_from_commitments"`
	UnmatchedQuantity       int                     `json:"unmatched_quantity"`
	FullyMatched            bool                    `json:"fully_matched"`
}

// SweepResult reports what a missed-commitment sweep did
type SweepResult struct {
	TotalCandidates int       `json:"total_candidates"`
	Missed          int       `json:"missed"`
	Failed          int       `json:"failed"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// ForecastQuery selects the commitments summarized by ForecastConsumption
type ForecastQuery struct {
	DealerID  *uuid.UUID
	ProductID *uuid.UUID
	From      time.Time
	Weeks     int
}

// Forecast defaults
const (
	DefaultForecastWeeks = 8
	MaxForecastWeeks     = 52
)

// ForecastBucket aggregates commitments expected within one week
type ForecastBucket struct {
	WeekStart         string `json:"week_start"`
	WeekEnd           string `json:"week_end"`
	CommittedQuantity int    `json:"committed_quantity"`
	ConsumedQuantity  int    `json:"consumed_quantity"`
	Commitments       int    `json:"commitments"`
	Fulfilled         int    `json:"fulfilled"`
	Missed            int    `json:"missed"`
}

// ForecastSummary totals a forecast
type ForecastSummary struct {
	TotalCommitted     int     `json:"total_committed"`
	TotalConsumed      int     `json:"total_consumed"`
	ConsumptionRatePct float64 `json:"consumption_rate_pct"`
	TotalCommitments   int     `json:"total_commitments"`
	Fulfilled          int     `json:"fulfilled"`
	Missed             int     `json:"missed"`
	FulfillmentRatePct float64 `json:"fulfillment_rate_pct"`
}

// Forecast is the weekly consumption outlook
type Forecast struct {
	From    string           `json:"from"`
	To      string           `json:"to"`
	Weeks   []ForecastBucket `json:"weeks"`
	Summary ForecastSummary  `json:"summary"`
}

const dateLayout = "2006-01-02"

// ToCommitmentResponse converts a domain commitment
func ToCommitmentResponse(c *commitment.Commitment) CommitmentResponse {
	return CommitmentResponse{
		ID:               c.ID,
		DealerID:         c.DealerID,
		ProductID:        c.ProductID,
		SalesPersonID:    c.SalesPersonID,
		QuantityPromised: c.QuantityPromised,
		QuantityConsumed: c.QuantityConsumed,
		ExpectedDate:     c.ExpectedDate.Format(dateLayout),
		Status:           c.Status,
		Confidence:       c.Confidence,
		SourceText:       c.SourceText,
		FulfilledAt:      c.FulfilledAt,
		MissedAt:         c.MissedAt,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
		Version:          c.Version,
	}
}

// ToConsumptionResult converts a consumption plan
func ToConsumptionResult(plan commitment.Plan) ConsumptionResult {
	allocations := plan.Allocations
	if allocations == nil {
		allocations = []commitment.Allocation{}
	}
	return ConsumptionResult{
		OrderQuantity:           plan.OrderQuantity,
		Allocations:             allocations,
		ConsumedFromCommitments: plan.ConsumedFromCommitments,
		UnmatchedQuantity:       plan.UnmatchedQuantity,
		FullyMatched:            plan.FullyMatched(),
	}
}
