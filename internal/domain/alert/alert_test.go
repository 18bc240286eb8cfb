package alert

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAlert(t *testing.T) {
	target := Target{Kind: EntityKindCommitment, ID: uuid.New()}

	t.Run("valid alert", func(t *testing.T) {
		a, err := NewAlert(KindMissedCommitment, target, "", "2026-05-01", "Missed", "msg")
		require.NoError(t, err)
		assert.Equal(t, SeverityMedium, a.Severity)
		assert.Equal(t, StatusPending, a.Status)
		assert.Equal(t, AssigneeManager, a.AssignedTo)
		assert.Equal(t, "missed_commitment:commitment:"+target.ID.String()+":2026-05-01", a.DedupeKey)
		assert.Len(t, a.GetDomainEvents(), 1)
	})

	t.Run("unknown entity kind", func(t *testing.T) {
		_, err := NewAlert(KindPerformance, Target{Kind: "warehouse", ID: uuid.New()}, SeverityLow, "x", "", "")
		assert.Error(t, err)
	})

	t.Run("missing trigger", func(t *testing.T) {
		_, err := NewAlert(KindPerformance, target, SeverityLow, "", "", "")
		assert.Error(t, err)
	})
}

func TestAlert_Close(t *testing.T) {
	a, err := NewAlert(KindDealerAtRisk, Target{Kind: EntityKindDealer, ID: uuid.New()}, SeverityHigh, "d", "t", "m")
	require.NoError(t, err)

	require.NoError(t, a.Resolve())
	assert.Equal(t, StatusResolved, a.Status)
	assert.NotNil(t, a.ClosedAt)
	assert.Error(t, a.Dismiss())
}

func TestDedupeKey_DiffersByTrigger(t *testing.T) {
	target := Target{Kind: EntityKindDealer, ID: uuid.New()}
	assert.NotEqual(t,
		DedupeKey(KindDealerAtRisk, target, "2026-01-01"),
		DedupeKey(KindDealerAtRisk, target, "2026-01-02"))
	assert.Equal(t,
		DedupeKey(KindDealerAtRisk, target, "2026-01-01"),
		DedupeKey(KindDealerAtRisk, target, "2026-01-01"))
}
