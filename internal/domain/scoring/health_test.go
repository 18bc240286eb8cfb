package scoring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func TestHealthPolicy_Compute(t *testing.T) {
	p := DefaultHealthPolicy()

	t.Run("perfect dealer", func(t *testing.T) {
		s := p.Compute(HealthInputs{
			DaysSinceLastOrder: intp(0),
			OrdersInWindow:     8,
			OnTimeRate:         floatp(1),
			FulfillmentRate:    floatp(1),
		})
		assert.Equal(t, 100.0, s.Total)
		assert.Equal(t, HealthLabelHealthy, s.Label)
		assert.Empty(t, s.Reasons)
	})

	t.Run("no history is neutral on payment and fulfillment", func(t *testing.T) {
		s := p.Compute(HealthInputs{})
		assert.Equal(t, 0.0, s.Components.Recency)
		assert.Equal(t, 0.0, s.Components.Frequency)
		assert.Equal(t, 50.0, s.Components.Payment)
		assert.Equal(t, 50.0, s.Components.Fulfillment)
		assert.Equal(t, 25.0, s.Total)
		assert.Equal(t, HealthLabelCritical, s.Label)
		assert.Equal(t, NoOrderDays, s.DaysSinceLastOrder)
		assert.Contains(t, s.Reasons, "No recent orders")
	})

	t.Run("recency decays two points per day", func(t *testing.T) {
		s := p.Compute(HealthInputs{DaysSinceLastOrder: intp(20)})
		assert.Equal(t, 60.0, s.Components.Recency)
		s = p.Compute(HealthInputs{DaysSinceLastOrder: intp(45)})
		assert.Equal(t, 10.0, s.Components.Recency)
		assert.Contains(t, s.Reasons, "No order in 45 days")
		s = p.Compute(HealthInputs{DaysSinceLastOrder: intp(80)})
		assert.Equal(t, 0.0, s.Components.Recency)
	})

	t.Run("reasons", func(t *testing.T) {
		s := p.Compute(HealthInputs{
			DaysSinceLastOrder: intp(5),
			OrdersInWindow:     1,
			OnTimeRate:         floatp(0.5),
			FulfillmentRate:    floatp(0.2),
		})
		assert.Equal(t, []string{"Low order frequency", "Payment delays", "Low commitment conversion"}, s.Reasons)
	})
}

func TestHealthPolicy_Labels(t *testing.T) {
	p := DefaultHealthPolicy()
	assert.Equal(t, HealthLabelHealthy, p.Label(70))
	assert.Equal(t, HealthLabelAtRisk, p.Label(69.9))
	assert.Equal(t, HealthLabelAtRisk, p.Label(50))
	assert.Equal(t, HealthLabelCritical, p.Label(49.9))
}

func TestHealthPolicy_TotalAlwaysInRange(t *testing.T) {
	p := DefaultHealthPolicy()
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		in := HealthInputs{OrdersInWindow: rng.Intn(50)}
		if rng.Intn(4) > 0 {
			in.DaysSinceLastOrder = intp(rng.Intn(2000))
		}
		if rng.Intn(4) > 0 {
			in.OnTimeRate = floatp(rng.Float64())
		}
		if rng.Intn(4) > 0 {
			in.FulfillmentRate = floatp(rng.Float64())
		}
		s := p.Compute(in)
		assert.GreaterOrEqual(t, s.Total, 0.0)
		assert.LessOrEqual(t, s.Total, 100.0)
		for _, v := range []float64{s.Components.Recency, s.Components.Frequency, s.Components.Payment, s.Components.Fulfillment} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 100.0)
		}
	}
}

func TestHealthPolicy_CrossedBelow(t *testing.T) {
	p := DefaultHealthPolicy()
	assert.True(t, p.CrossedBelow(nil, 40))
	assert.True(t, p.CrossedBelow(floatp(55), 49.9))
	assert.False(t, p.CrossedBelow(floatp(45), 40), "already below")
	assert.False(t, p.CrossedBelow(floatp(45), 60))
	assert.False(t, p.CrossedBelow(nil, 50))
}
