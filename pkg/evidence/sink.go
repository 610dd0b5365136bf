// Package evidence persists scored call turns and builds tamper-evident
// engagement packages. Unremarkable audio never reaches a sink: callers
// store a turn only when its fused score clears the low threshold.
package evidence

import (
	"context"
	"time"

	"github.com/rakshakai/rakshak/pkg/intel"
)

// Speaker labels for stored turns.
const (
	SpeakerCaller = "caller"
	SpeakerDecoy  = "decoy"
)

// Turn is one persisted utterance with its scoring outcome.
type Turn struct {
	CallID     string         `json:"call_id"`
	Sequence   int            `json:"sequence"`
	Speaker    string         `json:"speaker"`
	Transcript string         `json:"transcript"`
	Score      float64        `json:"score"`
	Level      string         `json:"level"`
	Entities   []intel.Entity `json:"entities,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Sink is the persistence boundary. Implementations must be safe for
// concurrent use; the pipeline calls StoreTurn from many sessions.
type Sink interface {
	StoreTurn(ctx context.Context, turn *Turn) error
	LoadTurns(ctx context.Context, callID string) ([]Turn, error)
	StorePackage(ctx context.Context, pkg *Package) error
	Close() error
}
