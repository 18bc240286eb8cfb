package scoring

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriorityLevel classifies a visit priority score
type PriorityLevel string

const (
	PriorityHigh   PriorityLevel = "high"
	PriorityMedium PriorityLevel = "medium"
	PriorityLow    PriorityLevel = "low"
)

// Defaults applied when the history is unknown
const (
	UnknownDaysSinceOrder = 120
	UnknownDaysSinceVisit = 60
	UnknownHealth         = 50.0
)

var overdueAmountScale = decimal.NewFromInt(10000)

// VisitInputs are the raw facts used to rank a dealer for a visit
type VisitInputs struct {
	OverdueAmount      decimal.Decimal
	MaxDaysOverdue     int
	DaysSinceLastOrder *int
	DaysSinceLastVisit *int
	OverdueCommitments int
	DueSoonCommitments int
	HealthScore        *float64
}

// VisitComponents are the five sub-scores, each in [0,100]
type VisitComponents struct {
	PaymentUrgency     float64 `json:"payment_urgency"`
	OrderUrgency       float64 `json:"order_urgency"`
	VisitRecency       float64 `json:"visit_recency"`
	CommitmentPressure float64 `json:"commitment_pressure"`
	RelationshipRisk   float64 `json:"relationship_risk"`
}

// VisitPriority is a computed visit priority
type VisitPriority struct {
	Score           float64         `json:"score"`
	Level           PriorityLevel   `json:"level"`
	Components      VisitComponents `json:"components"`
	SuggestedAction string          `json:"suggested_action"`
	Reasons         []string        `json:"reasons"`
}

// PriorityLevelFor maps a score to a level
func PriorityLevelFor(score float64) PriorityLevel {
	switch {
	case score >= 70:
		return PriorityHigh
	case score >= 40:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// ComputeVisitPriority ranks a dealer for a visit. Every component is
// non-decreasing in its own input, so a dealer that owes more, for longer,
// and has not ordered for longer never ranks below an otherwise equal one.
func ComputeVisitPriority(in VisitInputs) VisitPriority {
	dlo := UnknownDaysSinceOrder
	if in.DaysSinceLastOrder != nil {
		dlo = max(0, *in.DaysSinceLastOrder)
	}
	dlv := UnknownDaysSinceVisit
	if in.DaysSinceLastVisit != nil {
		dlv = max(0, *in.DaysSinceLastVisit)
	}
	health := UnknownHealth
	if in.HealthScore != nil {
		health = *in.HealthScore
	}
	overdue := in.OverdueAmount
	if overdue.IsNegative() {
		overdue = decimal.Zero
	}
	amountTerm, _ := overdue.Div(overdueAmountScale).Float64()
	pressureCount := max(0, in.OverdueCommitments) + max(0, in.DueSoonCommitments)

	c := VisitComponents{
		PaymentUrgency:     clamp(float64(max(0, in.MaxDaysOverdue))*3 + amountTerm),
		OrderUrgency:       clamp(float64(dlo) * 2.5),
		VisitRecency:       clamp(float64(dlv) * 3),
		CommitmentPressure: clamp(float64(pressureCount) * 25),
		RelationshipRisk:   clamp(100 - health),
	}
	score := round1(clamp(
		c.PaymentUrgency*0.30 +
			c.OrderUrgency*0.25 +
			c.VisitRecency*0.15 +
			c.CommitmentPressure*0.15 +
			c.RelationshipRisk*0.15,
	))
	level := PriorityLevelFor(score)

	return VisitPriority{
		Score:           score,
		Level:           level,
		Components:      c,
		SuggestedAction: suggestAction(level, c, overdue, pressureCount, dlo),
		Reasons:         visitReasons(overdue, in.MaxDaysOverdue, dlo, pressureCount, health),
	}
}

func suggestAction(level PriorityLevel, c VisitComponents, overdue decimal.Decimal, pressure, dlo int) string {
	switch level {
	case PriorityHigh:
		switch {
		case c.PaymentUrgency >= 50:
			return fmt.Sprintf("Collect overdue payment Rs.%s", overdue.StringFixed(0))
		case pressure > 0:
			return fmt.Sprintf("Close %d expiring commitment(s)", pressure)
		default:
			return "Urgent attention needed"
		}
	case PriorityMedium:
		if dlo > 30 {
			return fmt.Sprintf("No order in %d days - check reorder", dlo)
		}
		return "Regular follow-up"
	default:
		return "Relationship maintenance"
	}
}

func visitReasons(overdue decimal.Decimal, daysOverdue, dlo, pressure int, health float64) []string {
	reasons := make([]string, 0, 3)
	if overdue.IsPositive() {
		reasons = append(reasons, fmt.Sprintf("Rs.%s overdue (%dd)", overdue.StringFixed(0), daysOverdue))
	}
	if dlo > 30 {
		reasons = append(reasons, fmt.Sprintf("No order in %d days", dlo))
	}
	if pressure > 0 {
		reasons = append(reasons, fmt.Sprintf("%d commitment(s) overdue or due soon", pressure))
	}
	if health < 50 {
		reasons = append(reasons, fmt.Sprintf("Health score critical (%.0f)", health))
	}
	if len(reasons) > 3 {
		reasons = reasons[:3]
	}
	return reasons
}
