// Package scoring computes dealer health snapshots and ranks dealers for
// field visits. The formulas live in the domain; this package gathers the
// inputs from the stores.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dealerops/backend/internal/domain/commitment"
	"github.com/dealerops/backend/internal/domain/finance"
	"github.com/dealerops/backend/internal/domain/partner"
	"github.com/dealerops/backend/internal/domain/scoring"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/dealerops/backend/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service handles health scoring and visit planning
type Service struct {
	dealerRepo     partner.DealerRepository
	orderRepo      trade.SalesOrderRepository
	invoiceRepo    finance.InvoiceRepository
	commitmentRepo commitment.Repository
	snapshotRepo   scoring.HealthSnapshotRepository
	policy         scoring.HealthPolicy
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewService creates a scoring Service
func NewService(
	dealerRepo partner.DealerRepository,
	orderRepo trade.SalesOrderRepository,
	invoiceRepo finance.InvoiceRepository,
	commitmentRepo commitment.Repository,
	snapshotRepo scoring.HealthSnapshotRepository,
	policy scoring.HealthPolicy,
	logger *zap.Logger,
) *Service {
	return &Service{
		dealerRepo:     dealerRepo,
		orderRepo:      orderRepo,
		invoiceRepo:    invoiceRepo,
		commitmentRepo: commitmentRepo,
		snapshotRepo:   snapshotRepo,
		policy:         policy,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetClock replaces the time source
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ScoreDealer computes and appends a health snapshot for one dealer. Nothing
// else is written. DealerHealthDropped is published when the score falls
// below the at-risk threshold from at or above it, or on a first snapshot.
func (s *Service) ScoreDealer(ctx context.Context, dealerID uuid.UUID, asOf time.Time) (*ScoreResult, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	dealer, err := s.dealerRepo.FindByID(ctx, dealerID)
	if err != nil {
		return nil, err
	}
	return s.score(ctx, dealer, asOf)
}

func (s *Service) score(ctx context.Context, dealer *partner.Dealer, asOf time.Time) (*ScoreResult, error) {
	inputs, err := s.healthInputs(ctx, dealer, asOf)
	if err != nil {
		return nil, err
	}

	var previous *float64
	last, err := s.snapshotRepo.FindLatest(ctx, dealer.ID)
	switch {
	case err == nil:
		total := last.Total
		previous = &total
	case !errors.Is(err, shared.ErrNotFound):
		return nil, fmt.Errorf("failed to load previous snapshot: %w", err)
	}

	score := s.policy.Compute(inputs)
	snap := scoring.NewHealthSnapshot(dealer.ID, asOf, score)
	if err := s.snapshotRepo.Append(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to store health snapshot: %w", err)
	}

	dropped := s.policy.CrossedBelow(previous, snap.Total)
	if dropped && s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, scoring.NewDealerHealthDroppedEvent(snap, previous)); err != nil {
			s.logger.Warn("Failed to publish health drop",
				zap.String("dealer_id", dealer.ID.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Debug("Dealer scored",
		zap.String("dealer_id", dealer.ID.String()),
		zap.String("dealer_code", dealer.Code),
		zap.Float64("total", snap.Total),
		zap.String("label", string(snap.Label)),
		zap.Bool("dropped", dropped),
	)
	return &ScoreResult{
		HealthResponse:     ToHealthResponse(snap),
		DaysSinceLastOrder: score.DaysSinceLastOrder,
		Previous:           previous,
		Dropped:            dropped,
	}, nil
}

func (s *Service) healthInputs(ctx context.Context, dealer *partner.Dealer, asOf time.Time) (scoring.HealthInputs, error) {
	today := shared.Day(asOf)
	since := today.AddDate(0, 0, -s.policy.WindowDays)

	var in scoring.HealthInputs
	if dealer.LastOrderDate != nil {
		days := shared.DaysBetween(*dealer.LastOrderDate, today)
		in.DaysSinceLastOrder = &days
	}

	orders, err := s.orderRepo.CountByDealerBetween(ctx, dealer.ID, since, today)
	if err != nil {
		return in, fmt.Errorf("failed to count orders: %w", err)
	}
	in.OrdersInWindow = int(orders)

	invoices, err := s.invoiceRepo.FindByDealerSince(ctx, dealer.ID, since)
	if err != nil {
		return in, fmt.Errorf("failed to load invoices: %w", err)
	}
	if rate, ok := finance.Summarize(invoices, asOf).OnTimeRate(); ok {
		in.OnTimeRate = &rate
	}

	dealerID := dealer.ID
	history, err := s.commitmentRepo.FindByExpectedRange(ctx, &dealerID, since, today)
	if err != nil {
		return in, fmt.Errorf("failed to load commitments: %w", err)
	}
	in.FulfillmentRate = fulfillmentRate(history)
	return in, nil
}

// fulfillmentRate is fulfilled over settled (fulfilled or missed)
// commitments; nil when none settled.
func fulfillmentRate(history []commitment.Commitment) *float64 {
	var fulfilled, settled int
	for _, c := range history {
		switch c.Status {
		case commitment.StatusFulfilled:
			fulfilled++
			settled++
		case commitment.StatusMissed:
			settled++
		}
	}
	if settled == 0 {
		return nil
	}
	rate := float64(fulfilled) / float64(settled)
	return &rate
}

// ScoreAll scores every active dealer. A failure on one dealer is logged and
// counted; the pass continues.
func (s *Service) ScoreAll(ctx context.Context, asOf time.Time) (*ScoreRunResult, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	dealers, err := s.dealerRepo.FindActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load dealers: %w", err)
	}

	result := &ScoreRunResult{AsOf: asOf}
	for i := range dealers {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		res, err := s.score(ctx, &dealers[i], asOf)
		if err != nil {
			result.Failed++
			s.logger.Error("Failed to score dealer",
				zap.String("dealer_id", dealers[i].ID.String()),
				zap.Error(err),
			)
			continue
		}
		result.Scored++
		if res.Dropped {
			result.Dropped++
		}
	}

	s.logger.Info("Health scoring completed",
		zap.Int("scored", result.Scored),
		zap.Int("failed", result.Failed),
		zap.Int("dropped", result.Dropped),
	)
	return result, nil
}

// LatestHealth returns the most recent snapshot of a dealer
func (s *Service) LatestHealth(ctx context.Context, dealerID uuid.UUID) (*HealthResponse, error) {
	snap, err := s.snapshotRepo.FindLatest(ctx, dealerID)
	if err != nil {
		return nil, err
	}
	resp := ToHealthResponse(snap)
	return &resp, nil
}

// HealthHistory returns snapshots newest first
func (s *Service) HealthHistory(ctx context.Context, dealerID uuid.UUID, limit int) ([]HealthResponse, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)
	history, err := s.snapshotRepo.FindHistory(ctx, dealerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load health history: %w", err)
	}
	out := make([]HealthResponse, 0, len(history))
	for i := range history {
		out = append(out, ToHealthResponse(&history[i]))
	}
	return out, nil
}

// VisitPlan ranks active dealers by visit priority, highest first, ties
// broken by dealer code.
func (s *Service) VisitPlan(ctx context.Context, q VisitPlanQuery) ([]VisitPlanEntry, error) {
	asOf := q.AsOf
	if asOf.IsZero() {
		asOf = s.now()
	}
	size := q.MaxDealers
	if size <= 0 {
		size = DefaultVisitPlanSize
	}
	dealers, err := s.dealerRepo.FindActive(ctx, q.SalesPersonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dealers: %w", err)
	}

	entries := make([]VisitPlanEntry, 0, len(dealers))
	for i := range dealers {
		d := &dealers[i]
		in, err := s.visitInputs(ctx, d, asOf)
		if err != nil {
			return nil, err
		}
		entries = append(entries, VisitPlanEntry{
			DealerID:      d.ID,
			DealerCode:    d.Code,
			DealerName:    d.Name,
			VisitPriority: scoring.ComputeVisitPriority(in),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].DealerCode < entries[j].DealerCode
	})
	if len(entries) > size {
		entries = entries[:size]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (s *Service) visitInputs(ctx context.Context, d *partner.Dealer, asOf time.Time) (scoring.VisitInputs, error) {
	today := shared.Day(asOf)
	var in scoring.VisitInputs

	invoices, err := s.invoiceRepo.FindByDealerSince(ctx, d.ID, today.AddDate(0, 0, -s.policy.WindowDays))
	if err != nil {
		return in, fmt.Errorf("failed to load invoices: %w", err)
	}
	summary := finance.Summarize(invoices, asOf)
	in.OverdueAmount = summary.OverdueAmount
	in.MaxDaysOverdue = summary.MaxDaysOverdue

	if d.LastOrderDate != nil {
		days := shared.DaysBetween(*d.LastOrderDate, today)
		in.DaysSinceLastOrder = &days
	}
	if d.LastVisitDate != nil {
		days := shared.DaysBetween(*d.LastVisitDate, today)
		in.DaysSinceLastVisit = &days
	}

	open, err := s.commitmentRepo.FindPending(ctx, commitment.PendingQuery{DealerID: d.ID})
	if err != nil {
		return in, fmt.Errorf("failed to load pending commitments: %w", err)
	}
	for _, c := range open {
		switch c.UrgencyAt(today) {
		case commitment.UrgencyOverdue:
			in.OverdueCommitments++
		case commitment.UrgencyDueSoon:
			in.DueSoonCommitments++
		}
	}

	last, err := s.snapshotRepo.FindLatest(ctx, d.ID)
	switch {
	case err == nil:
		total := last.Total
		in.HealthScore = &total
	case !errors.Is(err, shared.ErrNotFound):
		return in, fmt.Errorf("failed to load health snapshot: %w", err)
	}
	return in, nil
}
