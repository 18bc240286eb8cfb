package scoring

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewHealthSnapshot(t *testing.T) {
	score := DefaultHealthPolicy().Compute(HealthInputs{OrdersInWindow: 1, DaysSinceLastOrder: intp(40)})
	snap := NewHealthSnapshot(uuid.New(), time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC), score)

	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), snap.ScoreDate)
	assert.Equal(t, score.Total, snap.Total)
	assert.Equal(t, score.Reasons, snap.ReasonList())
	assert.Equal(t, []string{}, (&HealthSnapshot{}).ReasonList())
}
