package telemetry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionCounters(t *testing.T) {
	c := New()

	assert.Equal(t, int64(1), c.SessionConnected())
	assert.Equal(t, int64(2), c.SessionConnected())
	assert.Equal(t, int64(1), c.SessionDisconnected())

	s := c.Snapshot()
	assert.Equal(t, int64(1), s.ActiveSessions)
	assert.Equal(t, int64(2), s.TotalConnects)
	assert.Equal(t, int64(1), s.TotalDisconnects)
}

func TestFrameAndTurnCounters(t *testing.T) {
	c := New()

	c.FrameProcessed(false)
	c.FrameProcessed(true)
	c.TurnScored(false)
	c.TurnScored(true)
	c.HandoffStarted()
	c.DecoyTurn()
	c.EvidenceWrite()

	s := c.Snapshot()
	assert.Equal(t, int64(2), s.FramesProcessed)
	assert.Equal(t, int64(1), s.SpeechFrames)
	assert.Equal(t, int64(2), s.TurnsScored)
	assert.Equal(t, int64(1), s.AlertsRaised)
	assert.Equal(t, int64(1), s.Handoffs)
	assert.Equal(t, int64(1), s.DecoyTurns)
	assert.Equal(t, int64(1), s.EvidenceWrites)
	assert.GreaterOrEqual(t, s.UptimeSeconds, 0.0)
}

func TestCountersConcurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.SessionConnected()
			c.FrameProcessed(true)
			c.SessionDisconnected()
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	assert.Equal(t, int64(0), s.ActiveSessions)
	assert.Equal(t, int64(50), s.TotalConnects)
	assert.Equal(t, int64(50), s.SpeechFrames)
}
