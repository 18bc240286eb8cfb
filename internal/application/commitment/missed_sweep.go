package commitment

import (
	"context"
	"time"

	"github.com/dealerops/backend/internal/application/transaction"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/dealerops/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SweepBatchSize is the page size used when loading overdue commitments
const SweepBatchSize = 500

// SweepMissed moves every open commitment whose expected date is before asOf
// to missed. Each commitment transitions in its own transaction, so one
// failure does not stop the sweep. Running it again for the same day is a
// no-op.
func (s *Service) SweepMissed(ctx context.Context, asOf time.Time) (_ *SweepResult, err error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	ctx, span := telemetry.StartSpan(ctx, "commitment", "sweep_missed")
	defer func() { telemetry.EndSpan(span, err) }()
	result := &SweepResult{ProcessedAt: s.now()}

	// Marked commitments leave the overdue set, so every page is read from
	// the start. Failed ones stay behind; attempted stops them being retried
	// within this run.
	attempted := make(map[uuid.UUID]struct{})
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		page, err := s.repo.FindOverdue(ctx, asOf, s.sweepBatch+len(attempted)-result.Missed)
		if err != nil {
			s.logger.Error("Failed to find overdue commitments", zap.Error(err))
			return nil, err
		}
		fresh := 0
		for _, candidate := range page {
			if _, seen := attempted[candidate.ID]; seen {
				continue
			}
			attempted[candidate.ID] = struct{}{}
			fresh++
			result.TotalCandidates++
			s.markMissed(ctx, candidate.ID, asOf, result)
		}
		if fresh == 0 {
			break
		}
	}
	span.SetAttributes(attribute.Int(telemetry.SpanAttrCandidates, result.TotalCandidates))

	if result.TotalCandidates == 0 {
		s.logger.Debug("No overdue commitments to sweep")
		return result, nil
	}
	s.logger.Info("Missed commitment sweep completed",
		zap.Time("as_of", shared.Day(asOf)),
		zap.Int("candidates", result.TotalCandidates),
		zap.Int("missed", result.Missed),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Service) markMissed(ctx context.Context, id uuid.UUID, asOf time.Time, result *SweepResult) {
	var events []shared.DomainEvent
	err := transaction.ExecuteWithRetry(ctx, s.scope, s.retry, s.logger, func(repos transaction.Repositories) error {
		events = nil
		c, err := repos.Commitments().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !c.MarkMissed(asOf) {
			return nil
		}
		if err := repos.Commitments().SaveWithLock(ctx, c); err != nil {
			return err
		}
		events = c.GetDomainEvents()
		return nil
	})
	if err != nil {
		result.Failed++
		s.logger.Error("Failed to mark commitment missed",
			zap.String("commitment_id", id.String()),
			zap.Error(err),
		)
		return
	}
	if len(events) > 0 {
		result.Missed++
		s.publish(ctx, events)
	}
}
