// Package telemetry tracks process-wide gateway counters. Counters are
// plain atomics shared across sessions; events additionally go to the
// structured log so operators can follow call lifecycles.
package telemetry

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

type Client struct {
	startedAt time.Time

	activeSessions   atomic.Int64
	totalConnects    atomic.Int64
	totalDisconnects atomic.Int64
	framesProcessed  atomic.Int64
	speechFrames     atomic.Int64
	turnsScored      atomic.Int64
	alertsRaised     atomic.Int64
	handoffs         atomic.Int64
	decoyTurns       atomic.Int64
	evidenceWrites   atomic.Int64
}

// Global is the process-wide client used by the gateway. Tests construct
// their own via New.
var Global = New()

func New() *Client {
	return &Client{startedAt: time.Now()}
}

// Stats is a point-in-time snapshot, shaped for the stats endpoint.
type Stats struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	ActiveSessions   int64   `json:"active_sessions"`
	TotalConnects    int64   `json:"total_connects"`
	TotalDisconnects int64   `json:"total_disconnects"`
	FramesProcessed  int64   `json:"frames_processed"`
	SpeechFrames     int64   `json:"speech_frames"`
	TurnsScored      int64   `json:"turns_scored"`
	AlertsRaised     int64   `json:"alerts_raised"`
	Handoffs         int64   `json:"handoffs"`
	DecoyTurns       int64   `json:"decoy_turns"`
	EvidenceWrites   int64   `json:"evidence_writes"`
}

func (c *Client) Snapshot() Stats {
	return Stats{
		UptimeSeconds:    time.Since(c.startedAt).Seconds(),
		ActiveSessions:   c.activeSessions.Load(),
		TotalConnects:    c.totalConnects.Load(),
		TotalDisconnects: c.totalDisconnects.Load(),
		FramesProcessed:  c.framesProcessed.Load(),
		SpeechFrames:     c.speechFrames.Load(),
		TurnsScored:      c.turnsScored.Load(),
		AlertsRaised:     c.alertsRaised.Load(),
		Handoffs:         c.handoffs.Load(),
		DecoyTurns:       c.decoyTurns.Load(),
		EvidenceWrites:   c.evidenceWrites.Load(),
	}
}

// SessionConnected returns the new active-session count.
func (c *Client) SessionConnected() int64 {
	c.totalConnects.Add(1)
	return c.activeSessions.Add(1)
}

// SessionDisconnected returns the new active-session count.
func (c *Client) SessionDisconnected() int64 {
	c.totalDisconnects.Add(1)
	return c.activeSessions.Add(-1)
}

func (c *Client) FrameProcessed(speech bool) {
	c.framesProcessed.Add(1)
	if speech {
		c.speechFrames.Add(1)
	}
}

func (c *Client) TurnScored(alerted bool) {
	c.turnsScored.Add(1)
	if alerted {
		c.alertsRaised.Add(1)
	}
}

func (c *Client) HandoffStarted() { c.handoffs.Add(1) }
func (c *Client) DecoyTurn()      { c.decoyTurns.Add(1) }
func (c *Client) EvidenceWrite()  { c.evidenceWrites.Add(1) }

// Track logs a named event with structured properties.
func (c *Client) Track(event string, props map[string]interface{}) {
	log.Info().Fields(props).Msg(event)
}
