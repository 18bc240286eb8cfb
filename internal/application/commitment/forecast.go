package commitment

import (
	"context"
	"fmt"
	"math"

	"github.com/dealerops/backend/internal/domain/commitment"
	"github.com/dealerops/backend/internal/domain/shared"
)

// ForecastConsumption buckets commitments by expected week and reports how
// much of the promised quantity orders have consumed. An open commitment
// whose date has passed counts as missed even before the sweep runs.
func (s *Service) ForecastConsumption(ctx context.Context, q ForecastQuery) (*Forecast, error) {
	weeks := q.Weeks
	if weeks <= 0 {
		weeks = DefaultForecastWeeks
	}
	if weeks > MaxForecastWeeks {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Forecast is limited to %d weeks", MaxForecastWeeks))
	}
	today := shared.Day(s.now())
	from := shared.Day(q.From)
	if q.From.IsZero() {
		from = today.AddDate(0, 0, -28)
	}
	to := from.AddDate(0, 0, 7*weeks-1)

	list, err := s.repo.FindByExpectedRange(ctx, q.DealerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load commitments: %w", err)
	}

	buckets := make([]ForecastBucket, weeks)
	for i := range buckets {
		start := from.AddDate(0, 0, 7*i)
		buckets[i].WeekStart = start.Format(dateLayout)
		buckets[i].WeekEnd = start.AddDate(0, 0, 6).Format(dateLayout)
	}

	var sum ForecastSummary
	for i := range list {
		c := &list[i]
		if q.ProductID != nil && (c.ProductID == nil || *c.ProductID != *q.ProductID) {
			continue
		}
		idx := shared.DaysBetween(from, c.ExpectedDate) / 7
		if idx < 0 || idx >= weeks {
			continue
		}
		b := &buckets[idx]
		b.Commitments++
		b.CommittedQuantity += c.QuantityPromised
		b.ConsumedQuantity += c.QuantityConsumed
		switch {
		case c.Status == commitment.StatusFulfilled:
			b.Fulfilled++
		case c.Status == commitment.StatusMissed, c.IsOverdue(today):
			b.Missed++
		}
	}

	for _, b := range buckets {
		sum.TotalCommitted += b.CommittedQuantity
		sum.TotalConsumed += b.ConsumedQuantity
		sum.TotalCommitments += b.Commitments
		sum.Fulfilled += b.Fulfilled
		sum.Missed += b.Missed
	}
	sum.ConsumptionRatePct = pct(sum.TotalConsumed, sum.TotalCommitted)
	sum.FulfillmentRatePct = pct(sum.Fulfilled, sum.TotalCommitments)

	return &Forecast{
		From:    from.Format(dateLayout),
		To:      to.Format(dateLayout),
		Weeks:   buckets,
		Summary: sum,
	}, nil
}

func pct(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 10
}
