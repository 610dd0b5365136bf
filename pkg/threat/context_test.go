package threat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextHistoryCap(t *testing.T) {
	cc := NewCallContext()
	for i := 0; i < 25; i++ {
		cc.Observe(0.5, LevelLow)
	}
	assert.Equal(t, historyCap, cc.Turns())
}

func TestContextRollingAverage(t *testing.T) {
	cc := NewCallContext()

	avg, n := cc.RollingAverage()
	assert.Equal(t, 0.0, avg)
	assert.Equal(t, 0, n)

	cc.Observe(0.2, LevelSafe)
	cc.Observe(0.4, LevelLow)
	cc.Observe(0.6, LevelMedium)

	avg, n = cc.RollingAverage()
	assert.InDelta(t, 0.4, avg, 1e-9)
	assert.Equal(t, 3, n)
}

func TestContextRollingAverageEvictsOldScores(t *testing.T) {
	cc := NewCallContext()
	// ten low scores, then ten high ones: only the high ones remain
	for i := 0; i < 10; i++ {
		cc.Observe(0.1, LevelSafe)
	}
	for i := 0; i < 10; i++ {
		cc.Observe(0.9, LevelHigh)
	}

	avg, n := cc.RollingAverage()
	assert.Equal(t, historyCap, n)
	assert.InDelta(t, 0.9, avg, 1e-9)
}

func TestContextEscalation(t *testing.T) {
	cc := NewCallContext()
	assert.False(t, cc.Escalated(), "empty history")

	cc.Observe(0.7, LevelMedium)
	cc.Observe(0.7, LevelMedium)
	assert.False(t, cc.Escalated(), "needs three consecutive turns")

	cc.Observe(0.9, LevelHigh)
	assert.True(t, cc.Escalated())

	// a calm turn breaks the streak
	cc.Observe(0.1, LevelSafe)
	assert.False(t, cc.Escalated())
}

func TestContextDistinctCategories(t *testing.T) {
	cc := NewCallContext()
	cc.AddCategories([]string{"urgency", "prize"})
	cc.AddCategories([]string{"prize", "coercion"})

	assert.Equal(t, 3, cc.DistinctCategories())
}
