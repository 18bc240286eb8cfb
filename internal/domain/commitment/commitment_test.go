package commitment

import (
	"errors"
	"testing"
	"time"

	"github.com/dealerops/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)

func newTestCommitment(t *testing.T, qty int, dueInDays int) *Commitment {
	t.Helper()
	c, err := NewCommitment(uuid.New(), nil, qty, today.AddDate(0, 0, dueInDays), 0.9)
	require.NoError(t, err)
	return c
}

func TestNewCommitment(t *testing.T) {
	dealer := uuid.New()
	product := uuid.New()

	t.Run("creates pending commitment", func(t *testing.T) {
		c, err := NewCommitment(dealer, &product, 50, today.Add(13*time.Hour), 0.8)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, c.Status)
		assert.Equal(t, 0, c.QuantityConsumed)
		assert.Equal(t, today, c.ExpectedDate, "expected date is truncated to the day")
		assert.Equal(t, 50, c.Remaining())
		require.Len(t, c.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeCommitmentCreated, c.GetDomainEvents()[0].EventType())
	})

	tests := []struct {
		name       string
		dealer     uuid.UUID
		qty        int
		date       time.Time
		confidence float64
	}{
		{"zero quantity", dealer, 0, today, 1},
		{"negative quantity", dealer, -5, today, 1},
		{"missing dealer", uuid.Nil, 10, today, 1},
		{"missing date", dealer, 10, time.Time{}, 1},
		{"confidence out of range", dealer, 10, today, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCommitment(tt.dealer, nil, tt.qty, tt.date, tt.confidence)
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrInvalidCommitment))
		})
	}

	t.Run("nil uuid product is treated as basket", func(t *testing.T) {
		nilID := uuid.Nil
		c, err := NewCommitment(dealer, &nilID, 5, today, 1)
		require.NoError(t, err)
		assert.Nil(t, c.ProductID)
	})
}

func TestCommitment_Consume(t *testing.T) {
	t.Run("partial then fulfilled", func(t *testing.T) {
		c := newTestCommitment(t, 30, 0)
		require.NoError(t, c.Consume(10, WindowBackward))
		assert.Equal(t, StatusPartial, c.Status)
		assert.Equal(t, 2, c.Version)

		require.NoError(t, c.Consume(20, WindowBackward))
		assert.Equal(t, StatusFulfilled, c.Status)
		assert.Equal(t, 0, c.Remaining())
		assert.NotNil(t, c.FulfilledAt)
	})

	t.Run("cannot exceed promised", func(t *testing.T) {
		c := newTestCommitment(t, 5, 0)
		assert.Error(t, c.Consume(6, WindowBackward))
		assert.Equal(t, 0, c.QuantityConsumed)
	})

	t.Run("cannot consume closed commitment", func(t *testing.T) {
		c := newTestCommitment(t, 5, 0)
		require.NoError(t, c.Consume(5, WindowBackward))
		err := c.Consume(1, WindowBackward)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("non-positive take rejected", func(t *testing.T) {
		c := newTestCommitment(t, 5, 0)
		assert.Error(t, c.Consume(0, WindowForward))
	})
}

func TestCommitment_MarkMissed(t *testing.T) {
	t.Run("overdue pending becomes missed once", func(t *testing.T) {
		c := newTestCommitment(t, 10, -2)
		c.ClearDomainEvents()
		assert.True(t, c.MarkMissed(today))
		assert.Equal(t, StatusMissed, c.Status)
		assert.False(t, c.MarkMissed(today), "missed is terminal")
		assert.Len(t, c.GetDomainEvents(), 1)
	})

	t.Run("partial overdue becomes missed", func(t *testing.T) {
		c := newTestCommitment(t, 10, -1)
		require.NoError(t, c.Consume(4, WindowBackward))
		assert.True(t, c.MarkMissed(today))
		assert.Equal(t, 4, c.QuantityConsumed)
	})

	t.Run("due today is not missed", func(t *testing.T) {
		c := newTestCommitment(t, 10, 0)
		assert.False(t, c.MarkMissed(today))
		assert.Equal(t, StatusPending, c.Status)
	})

	t.Run("fulfilled is never missed", func(t *testing.T) {
		c := newTestCommitment(t, 10, -5)
		require.NoError(t, c.Consume(10, WindowBackward))
		assert.False(t, c.MarkMissed(today))
	})
}

func TestCommitment_Urgency(t *testing.T) {
	assert.Equal(t, UrgencyOverdue, newTestCommitment(t, 1, -1).UrgencyAt(today))
	assert.Equal(t, UrgencyDueSoon, newTestCommitment(t, 1, 0).UrgencyAt(today))
	assert.Equal(t, UrgencyDueSoon, newTestCommitment(t, 1, 3).UrgencyAt(today))
	assert.Equal(t, UrgencyUpcoming, newTestCommitment(t, 1, 4).UrgencyAt(today))
}

func TestSortPending_TieBreaksByCreation(t *testing.T) {
	a := newTestCommitment(t, 1, 2)
	b := newTestCommitment(t, 1, 2)
	c := newTestCommitment(t, 1, 1)
	a.CreatedAt = today.Add(time.Hour)
	b.CreatedAt = today
	list := []*Commitment{a, b, c}
	SortPending(list)
	assert.Equal(t, []*Commitment{c, b, a}, list)
}
