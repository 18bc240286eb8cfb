// Package scoring derives dealer health and visit priority scores from
// order, payment, visit and commitment history. All functions here are pure;
// gathering the inputs is the application layer's job.
package scoring

import (
	"fmt"
	"math"
)

// HealthLabel classifies a health score
type HealthLabel string

const (
	HealthLabelHealthy  HealthLabel = "healthy"
	HealthLabelAtRisk   HealthLabel = "at_risk"
	HealthLabelCritical HealthLabel = "critical"
)

// NoOrderDays stands in for days-since-last-order when a dealer never ordered
const NoOrderDays = 999

// HealthPolicy holds the fixed thresholds and tunables of the health score.
// Thresholds must stay stable across releases so snapshots remain comparable.
type HealthPolicy struct {
	HealthyThreshold   float64
	AtRiskThreshold    float64
	RecencyGraceDays   int
	RecencyDecayPerDay float64
	ExpectedOrders     int
	WindowDays         int
}

// DefaultHealthPolicy returns the 70/50 policy over a 180 day window
func DefaultHealthPolicy() HealthPolicy {
	return HealthPolicy{
		HealthyThreshold:   70,
		AtRiskThreshold:    50,
		RecencyGraceDays:   0,
		RecencyDecayPerDay: 2,
		ExpectedOrders:     6,
		WindowDays:         180,
	}
}

// HealthInputs are the raw facts about one dealer.
// Nil rates mean there is no history yet and a neutral score applies.
type HealthInputs struct {
	DaysSinceLastOrder *int
	OrdersInWindow     int
	OnTimeRate         *float64
	FulfillmentRate    *float64
}

// HealthComponents are the four sub-scores, each in [0,100]
type HealthComponents struct {
	Recency     float64 `json:"recency"`
	Frequency   float64 `json:"frequency"`
	Payment     float64 `json:"payment"`
	Fulfillment float64 `json:"fulfillment"`
}

// HealthScore is a computed health score
type HealthScore struct {
	Components         HealthComponents `json:"components"`
	Total              float64          `json:"total"`
	Label              HealthLabel      `json:"label"`
	Reasons            []string         `json:"reasons"`
	DaysSinceLastOrder int              `json:"days_since_last_order"`
}

const (
	healthWeight  = 0.25
	neutralScore  = 50.0
	lowOrderCount = 3
)

// Label maps a total score to its label
func (p HealthPolicy) Label(total float64) HealthLabel {
	switch {
	case total >= p.HealthyThreshold:
		return HealthLabelHealthy
	case total >= p.AtRiskThreshold:
		return HealthLabelAtRisk
	default:
		return HealthLabelCritical
	}
}

// Compute scores a dealer. The fourth factor is the commitment fulfillment
// rate; order value growth is not used.
func (p HealthPolicy) Compute(in HealthInputs) HealthScore {
	var c HealthComponents
	reasons := make([]string, 0, 4)

	days := NoOrderDays
	if in.DaysSinceLastOrder != nil {
		days = max(0, *in.DaysSinceLastOrder)
		late := float64(max(0, days-p.RecencyGraceDays))
		c.Recency = clamp(100 - late*p.RecencyDecayPerDay)
		if days > 30 {
			reasons = append(reasons, fmt.Sprintf("No order in %d days", days))
		}
	} else {
		reasons = append(reasons, "No recent orders")
	}

	expected := max(1, p.ExpectedOrders)
	c.Frequency = clamp(float64(max(0, in.OrdersInWindow)) / float64(expected) * 100)
	if in.OrdersInWindow < lowOrderCount {
		reasons = append(reasons, "Low order frequency")
	}

	c.Payment = neutralScore
	if in.OnTimeRate != nil {
		c.Payment = clamp(*in.OnTimeRate * 100)
		if c.Payment < 70 {
			reasons = append(reasons, "Payment delays")
		}
	}

	c.Fulfillment = neutralScore
	if in.FulfillmentRate != nil {
		c.Fulfillment = clamp(*in.FulfillmentRate * 100)
		if c.Fulfillment < 70 {
			reasons = append(reasons, "Low commitment conversion")
		}
	}

	total := clamp(healthWeight * (c.Recency + c.Frequency + c.Payment + c.Fulfillment))
	total = round1(total)
	return HealthScore{
		Components: HealthComponents{
			Recency:     round1(c.Recency),
			Frequency:   round1(c.Frequency),
			Payment:     round1(c.Payment),
			Fulfillment: round1(c.Fulfillment),
		},
		Total:              total,
		Label:              p.Label(total),
		Reasons:            reasons,
		DaysSinceLastOrder: days,
	}
}

// CrossedBelow reports whether a score newly fell under the at-risk
// threshold. previous nil means no earlier snapshot.
func (p HealthPolicy) CrossedBelow(previous *float64, current float64) bool {
	if current >= p.AtRiskThreshold {
		return false
	}
	return previous == nil || *previous >= p.AtRiskThreshold
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
