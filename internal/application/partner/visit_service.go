// Package partner implements dealer-facing field activity: visit logging.
package partner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dealerops/backend/internal/domain/partner"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VisitService records dealer visits
type VisitService struct {
	dealerRepo partner.DealerRepository
	visitRepo  partner.VisitRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewVisitService creates a new VisitService
func NewVisitService(dealerRepo partner.DealerRepository, visitRepo partner.VisitRepository, logger *zap.Logger) *VisitService {
	return &VisitService{
		dealerRepo: dealerRepo,
		visitRepo:  visitRepo,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source
func (s *VisitService) SetClock(now func() time.Time) {
	s.now = now
}

// RecordVisit stores a visit and moves the dealer's last visit date forward.
// A visit logged late never moves it back.
func (s *VisitService) RecordVisit(ctx context.Context, in RecordVisitInput) (*VisitResponse, error) {
	dealer, err := s.dealerRepo.FindByID(ctx, in.DealerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Dealer not found")
		}
		return nil, err
	}
	visitedAt := in.VisitedAt
	if visitedAt.IsZero() {
		visitedAt = s.now()
	}
	if visitedAt.After(s.now().Add(time.Minute)) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Visit time cannot be in the future")
	}

	visit, err := partner.NewVisit(dealer.ID, in.SalesPersonID, visitedAt, in.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.visitRepo.Save(ctx, visit); err != nil {
		return nil, fmt.Errorf("failed to save visit: %w", err)
	}
	if dealer.TouchLastVisit(visit.VisitedAt) {
		if err := s.dealerRepo.Save(ctx, dealer); err != nil {
			return nil, fmt.Errorf("failed to update dealer: %w", err)
		}
	}

	s.logger.Info("Visit recorded",
		zap.String("visit_id", visit.ID.String()),
		zap.String("dealer_id", dealer.ID.String()),
		zap.Time("visited_at", visit.VisitedAt),
	)
	resp := ToVisitResponse(visit, dealer)
	return &resp, nil
}

// ListVisits returns a dealer's visits, newest first
func (s *VisitService) ListVisits(ctx context.Context, dealerID uuid.UUID, limit int) ([]VisitResponse, error) {
	if limit <= 0 {
		limit = DefaultVisitListLimit
	}
	visits, err := s.visitRepo.FindByDealer(ctx, dealerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load visits: %w", err)
	}
	out := make([]VisitResponse, 0, len(visits))
	for i := range visits {
		out = append(out, ToVisitResponse(&visits[i], nil))
	}
	return out, nil
}
