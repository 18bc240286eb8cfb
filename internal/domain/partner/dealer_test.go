package partner

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDealer(t *testing.T) {
	t.Run("creates active dealer with upper-cased code", func(t *testing.T) {
		d, err := NewDealer("dl-001", "Sharma Traders", DealerTierA)
		require.NoError(t, err)
		assert.Equal(t, "DL-001", d.Code)
		assert.Equal(t, DealerStatusActive, d.Status)
		assert.Equal(t, 1, d.Version)
		assert.True(t, d.IsActive())
	})

	t.Run("defaults tier to B", func(t *testing.T) {
		d, err := NewDealer("DL-002", "Gupta Agencies", "")
		require.NoError(t, err)
		assert.Equal(t, DealerTierB, d.Tier)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewDealer("DL-003", "  ", DealerTierA)
		assert.Error(t, err)
	})

	t.Run("rejects unknown tier", func(t *testing.T) {
		_, err := NewDealer("DL-003", "X", DealerTier("Z"))
		assert.Error(t, err)
	})
}

func TestDealer_Lifecycle(t *testing.T) {
	d, err := NewDealer("DL-010", "Metro Paints", DealerTierC)
	require.NoError(t, err)

	d.Deactivate()
	assert.False(t, d.IsActive())
	v := d.Version
	d.Deactivate()
	assert.Equal(t, v, d.Version, "deactivating twice is a no-op")

	d.Activate()
	assert.True(t, d.IsActive())

	assert.Error(t, d.SetCreditLimit(decimal.NewFromInt(-1)))
	require.NoError(t, d.SetCreditLimit(decimal.NewFromInt(500000)))
	assert.True(t, d.CreditLimit.Equal(decimal.NewFromInt(500000)))

	sp := uuid.New()
	d.AssignTo(sp, "North")
	require.NotNil(t, d.SalesPersonID)
	assert.Equal(t, sp, *d.SalesPersonID)
}

func TestDealer_TouchDatesOnlyMoveForward(t *testing.T) {
	d, err := NewDealer("DL-020", "Kumar Hardware", DealerTierB)
	require.NoError(t, err)

	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.True(t, d.TouchLastOrder(now))
	assert.False(t, d.TouchLastOrder(now.AddDate(0, 0, -5)))
	assert.Equal(t, now, *d.LastOrderDate)

	assert.True(t, d.TouchLastVisit(now))
	assert.True(t, d.TouchLastVisit(now.AddDate(0, 0, 1)))
	assert.Equal(t, now.AddDate(0, 0, 1), *d.LastVisitDate)
}

func TestAliases(t *testing.T) {
	d, err := NewDealer("DL-030", "Shree Ganesh Traders", DealerTierA)
	require.NoError(t, err)

	d.SetAliases([]string{" Ganesh ", "", "SG, Traders"})
	assert.Equal(t, []string{"Ganesh", "SG  Traders"}, d.AliasList())
}

func TestNewVisit(t *testing.T) {
	_, err := NewVisit(uuid.Nil, nil, time.Now(), "")
	assert.Error(t, err)

	v, err := NewVisit(uuid.New(), nil, time.Now(), "discussed Q3 targets")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, v.ID)
}
