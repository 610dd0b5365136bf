package threat

import (
	"sync"
)

// historyCap bounds the per-call score history. Ten turns of rolling
// context is enough to detect escalation without unbounded growth.
const historyCap = 10

// escalationWindow is how many consecutive recent turns at medium or above
// force a decoy handoff.
const escalationWindow = 3

// CallContext carries per-call rolling state across turns: recent scores and
// the distinct keyword categories seen so far. Safe for concurrent use,
// though calls are normally serialized by the session registry.
type CallContext struct {
	mu         sync.Mutex
	scores     []scoredTurn
	categories map[string]struct{}
}

type scoredTurn struct {
	score float64
	level Level
}

// NewCallContext creates an empty rolling context.
func NewCallContext() *CallContext {
	return &CallContext{categories: make(map[string]struct{})}
}

// AddCategories records keyword categories observed this turn.
func (c *CallContext) AddCategories(cats []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cat := range cats {
		c.categories[cat] = struct{}{}
	}
}

// DistinctCategories returns how many distinct keyword categories the call
// has triggered so far.
func (c *CallContext) DistinctCategories() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.categories)
}

// Observe appends a turn's final score to the rolling history.
func (c *CallContext) Observe(score float64, level Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scores = append(c.scores, scoredTurn{score: score, level: level})
	if len(c.scores) > historyCap {
		c.scores = c.scores[len(c.scores)-historyCap:]
	}
}

// RollingAverage returns the mean of the recorded scores and how many
// turns it covers.
func (c *CallContext) RollingAverage() (avg float64, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.scores) == 0 {
		return 0, 0
	}
	var sum float64
	for _, s := range c.scores {
		sum += s.score
	}
	return sum / float64(len(c.scores)), len(c.scores)
}

// Escalated reports whether the most recent turns form an escalation: the
// last escalationWindow turns all at medium or above.
func (c *CallContext) Escalated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.scores) < escalationWindow {
		return false
	}
	for _, s := range c.scores[len(c.scores)-escalationWindow:] {
		if !levelAtLeast(s.level, LevelMedium) {
			return false
		}
	}
	return true
}

// Turns returns how many scored turns the context has seen (capped at the
// history bound).
func (c *CallContext) Turns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.scores)
}
