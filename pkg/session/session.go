package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rakshakai/rakshak/pkg/decoy"
	"github.com/rakshakai/rakshak/pkg/threat"
)

// State is the lifecycle state of a call session. Transitions are
// monotonic, with one exception: a decoy can be recalled, which moves
// handed_off back to monitoring.
type State string

const (
	StateConnected  State = "connected"
	StateMonitoring State = "monitoring"
	StateEscalating State = "escalating"
	StateHandedOff  State = "handed_off"
	StateTerminated State = "terminated"
)

var stateRank = map[State]int{
	StateConnected:  0,
	StateMonitoring: 1,
	StateEscalating: 2,
	StateHandedOff:  3,
	StateTerminated: 4,
}

// Session is the per-call state. All mutable fields are owned by the
// registry's serialized accessor; nothing outside Registry.WithSession
// may touch them.
type Session struct {
	ID        string
	CreatedAt time.Time

	State       State
	ThreatScore float64
	Sequence    int
	Context     *threat.CallContext
	Decoy       *decoy.Engine

	lastActivity atomic.Int64 // unix nanos, read lock-free by the idle reaper

	mu   sync.Mutex  // serializes mutators for this session only
	busy atomic.Bool // invariant check: set only while a mutator holds mu
}

func newSession(callID string) *Session {
	now := time.Now()
	s := &Session{
		ID:        callID,
		CreatedAt: now,
		State:     StateConnected,
		Context:   threat.NewCallContext(),
	}
	s.lastActivity.Store(now.UnixNano())
	return s
}

// Touch records activity for idle-timeout purposes.
func (s *Session) Touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity returns the time of the last processed event.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// AdvanceState moves the session forward. Backward transitions are
// ignored except the sanctioned handed_off to monitoring recall.
func (s *Session) AdvanceState(next State) {
	if s.State == StateHandedOff && next == StateMonitoring {
		s.State = next
		return
	}
	if stateRank[next] > stateRank[s.State] {
		s.State = next
	}
}

// DecoyActive reports whether caller turns should route to the decoy.
func (s *Session) DecoyActive() bool {
	return s.State == StateHandedOff && s.Decoy != nil
}
