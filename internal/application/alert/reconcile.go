package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/dealerops/backend/internal/domain/alert"
	"github.com/dealerops/backend/internal/domain/commitment"
	"github.com/dealerops/backend/internal/domain/partner"
	"github.com/dealerops/backend/internal/domain/scoring"
	"github.com/dealerops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultReconcileLookbackDays bounds how far back lost alerts are recovered
const DefaultReconcileLookbackDays = 7

// ReconcileConfig tunes the Reconciler
type ReconcileConfig struct {
	LookbackDays int
	Health       scoring.HealthPolicy
}

// ReconcileResult summarizes one reconcile pass
type ReconcileResult struct {
	Checked int `json:"checked"`
	Raised  int `json:"raised"`
	Failed  int `json:"failed"`
}

// Reconciler raises alerts for missed commitments and health drops whose
// events never produced one, for instance because the alert insert failed
// after the state change committed. A condition that already has an alert in
// any status is left alone, so a closed alert is never reopened.
type Reconciler struct {
	dispatcher  *Dispatcher
	alerts      alert.Repository
	commitments commitment.Repository
	dealers     partner.DealerRepository
	snapshots   scoring.HealthSnapshotRepository
	lookback    int
	health      scoring.HealthPolicy
	logger      *zap.Logger
}

// NewReconciler creates a Reconciler
func NewReconciler(
	dispatcher *Dispatcher,
	alerts alert.Repository,
	commitments commitment.Repository,
	dealers partner.DealerRepository,
	snapshots scoring.HealthSnapshotRepository,
	cfg ReconcileConfig,
	logger *zap.Logger,
) *Reconciler {
	lookback := cfg.LookbackDays
	if lookback <= 0 {
		lookback = DefaultReconcileLookbackDays
	}
	health := cfg.Health
	if health.AtRiskThreshold <= 0 {
		health = scoring.DefaultHealthPolicy()
	}
	return &Reconciler{
		dispatcher:  dispatcher,
		alerts:      alerts,
		commitments: commitments,
		dealers:     dealers,
		snapshots:   snapshots,
		lookback:    lookback,
		health:      health,
		logger:      logger,
	}
}

func (r *Reconciler) since(asOf time.Time) time.Time {
	return shared.Day(asOf).AddDate(0, 0, -r.lookback)
}

// ReconcileMissed raises the missed-commitment alert for every commitment
// marked missed within the lookback window that has none
func (r *Reconciler) ReconcileMissed(ctx context.Context, asOf time.Time) (*ReconcileResult, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	missed, err := r.commitments.FindMissedSince(ctx, r.since(asOf))
	if err != nil {
		return nil, fmt.Errorf("failed to load missed commitments: %w", err)
	}

	result := &ReconcileResult{}
	for i := range missed {
		c := &missed[i]
		result.Checked++
		target, due := missedCommitmentCondition(c.ID, c.ExpectedDate)
		missedOn := asOf
		if c.MissedAt != nil {
			missedOn = *c.MissedAt
		}
		r.recover(ctx, result, alert.DedupeKey(alert.KindMissedCommitment, target, due), func() error {
			_, err := r.dispatcher.missedCommitment(ctx, commitment.NewCommitmentMissedEvent(c, missedOn))
			return err
		})
	}
	r.logResult("missed_commitment", result)
	return result, nil
}

// ReconcileHealth raises the at-risk alert for every drop below the at-risk
// threshold recorded within the lookback window that has none
func (r *Reconciler) ReconcileHealth(ctx context.Context, asOf time.Time) (*ReconcileResult, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	since := r.since(asOf)
	dealers, err := r.dealers.FindActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load dealers: %w", err)
	}

	// room for several snapshots a day plus the one preceding the window
	limit := 4*(r.lookback+1) + 1
	result := &ReconcileResult{}
	for _, dealer := range dealers {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		history, err := r.snapshots.FindHistory(ctx, dealer.ID, limit)
		if err != nil {
			result.Failed++
			r.logger.Error("Failed to load health history",
				zap.String("dealer_id", dealer.ID.String()),
				zap.Error(err),
			)
			continue
		}
		for i := range history {
			snap := &history[i]
			if snap.ScoreDate.Before(since) {
				break
			}
			var previous *float64
			if i+1 < len(history) {
				total := history[i+1].Total
				previous = &total
			} else if len(history) == limit {
				// predecessor fell outside the page
				break
			}
			if !r.health.CrossedBelow(previous, snap.Total) {
				continue
			}
			result.Checked++
			target, scoreDate := healthDropCondition(snap.DealerID, snap.ScoreDate)
			r.recover(ctx, result, alert.DedupeKey(alert.KindDealerAtRisk, target, scoreDate), func() error {
				_, err := r.dispatcher.healthDropped(ctx, scoring.NewDealerHealthDroppedEvent(snap, previous))
				return err
			})
		}
	}
	r.logResult("dealer_at_risk", result)
	return result, nil
}

func (r *Reconciler) recover(ctx context.Context, result *ReconcileResult, key string, raise func() error) {
	exists, err := r.alerts.ExistsByDedupeKey(ctx, key)
	if err != nil {
		result.Failed++
		r.logger.Error("Failed to check alert", zap.String("dedupe_key", key), zap.Error(err))
		return
	}
	if exists {
		return
	}
	if err := raise(); err != nil {
		result.Failed++
		r.logger.Error("Failed to raise missing alert", zap.String("dedupe_key", key), zap.Error(err))
		return
	}
	result.Raised++
	r.logger.Warn("Raised alert whose event was lost", zap.String("dedupe_key", key))
}

func (r *Reconciler) logResult(kind string, result *ReconcileResult) {
	r.logger.Info("Alert reconcile completed",
		zap.String("kind", kind),
		zap.Int("checked", result.Checked),
		zap.Int("raised", result.Raised),
		zap.Int("failed", result.Failed),
	)
}
