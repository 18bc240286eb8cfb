package partner

import (
	"context"
	"testing"
	"time"

	"github.com/dealerops/backend/internal/domain/partner"
	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/dealerops/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestVisitService_RecordVisit(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 16, 15, 0, 0, 0, time.UTC)
	store := testutil.NewMemStore()
	dealer, err := partner.NewDealer("D001", "Sharma Traders", partner.DealerTierA)
	require.NoError(t, err)
	store.PutDealer(dealer)

	svc := NewVisitService(store.DealerRepo(), store.VisitRepo(), zap.NewNop())
	svc.SetClock(testutil.FixedClock(now))
	rep := uuid.New()

	resp, err := svc.RecordVisit(ctx, RecordVisitInput{DealerID: dealer.ID, SalesPersonID: &rep, Notes: "collected cheque"})
	require.NoError(t, err)
	assert.Equal(t, now, resp.VisitedAt)
	require.NotNil(t, resp.LastVisitDate)
	assert.Equal(t, now, *resp.LastVisitDate)

	t.Run("late entry keeps the newer visit date", func(t *testing.T) {
		_, err := svc.RecordVisit(ctx, RecordVisitInput{DealerID: dealer.ID, VisitedAt: now.AddDate(0, 0, -5)})
		require.NoError(t, err)
		stored, _ := store.Dealer(dealer.ID)
		assert.Equal(t, now, *stored.LastVisitDate)
	})

	t.Run("future visit rejected", func(t *testing.T) {
		_, err := svc.RecordVisit(ctx, RecordVisitInput{DealerID: dealer.ID, VisitedAt: now.Add(48 * time.Hour)})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("unknown dealer", func(t *testing.T) {
		_, err := svc.RecordVisit(ctx, RecordVisitInput{DealerID: uuid.New()})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	visits, err := svc.ListVisits(ctx, dealer.ID, 0)
	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, "collected cheque", visits[0].Notes)
	assert.Equal(t, rep, *visits[0].SalesPersonID)
}
