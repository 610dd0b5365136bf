package decoy

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rakshakai/rakshak/pkg/intel"
	"github.com/rakshakai/rakshak/pkg/threat"
)

// Stage tracks how deep into the engagement the decoy is. Stages advance
// with turn count only; the decoy never de-escalates.
type Stage string

const (
	StageInitial       Stage = "initial"        // turns 0-2: confused, establish the character
	StageBuildingTrust Stage = "building_trust" // turns 3-7: cooperative, draw the caller out
	StageExtracting    Stage = "extracting"     // turns 8-14: fish for accounts, apps, names
	StageTerminating   Stage = "terminating"    // turn 15+: stall until the operator pulls the plug
)

func stageFor(turn int) Stage {
	switch {
	case turn < 3:
		return StageInitial
	case turn < 8:
		return StageBuildingTrust
	case turn < 15:
		return StageExtracting
	default:
		return StageTerminating
	}
}

// Speakers in the engagement transcript.
const (
	SpeakerCaller = "caller"
	SpeakerDecoy  = "decoy"
)

// TranscriptTurn is one remembered line of the engagement.
type TranscriptTurn struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// historyLimit bounds the remembered transcript. Reply generation only
// needs a short context window; full transcripts live in the evidence
// sink.
const historyLimit = 12

// ReplyModel rephrases a canned line in the persona's voice, given the
// recent exchange. Implementations are best-effort: any error keeps the
// canned line.
type ReplyModel interface {
	Rephrase(ctx context.Context, persona *Persona, line, callerText string, history []TranscriptTurn) (string, error)
}

// Reply is one decoy turn.
type Reply struct {
	Text   string        `json:"text"`
	Stage  Stage         `json:"stage"`
	Intent Intent        `json:"intent"`
	Delay  time.Duration `json:"delay_ms"`
	Turn   int           `json:"turn"`
}

// Summary is the engagement report produced when a decoy is terminated.
type Summary struct {
	PersonaID         string         `json:"persona_id"`
	DurationSeconds   float64        `json:"duration_seconds"`
	TotalTurns        int            `json:"total_turns"`
	FinalStage        Stage          `json:"final_stage"`
	ExtractedEntities []intel.Entity `json:"extracted_entities"`
}

const maxDelay = 5 * time.Second

// Engine runs a single decoy engagement. It is safe for concurrent use,
// but the response wait in Respond must never run under external locks;
// callers hand off the session before calling it.
type Engine struct {
	mu        sync.Mutex
	persona   *Persona
	rng       *rand.Rand
	model     ReplyModel
	started   time.Time
	turns     int
	extracted []intel.Entity
	history   []TranscriptTurn
}

// NewEngine starts an engagement as the given persona. The seed makes
// reply choice and delays reproducible in tests; pass time.Now().UnixNano()
// in production. model may be nil.
func NewEngine(persona *Persona, seed int64, model ReplyModel) *Engine {
	return &Engine{
		persona: persona,
		rng:     rand.New(rand.NewSource(seed)),
		model:   model,
		started: time.Now(),
	}
}

// Persona returns the persona this engine plays.
func (e *Engine) Persona() *Persona { return e.persona }

// Compose picks the next reply without waiting. The turn counter advances.
func (e *Engine) Compose(callerText string) *Reply {
	normalized := threat.Normalize(callerText)
	intent := DetectIntent(normalized)

	e.mu.Lock()
	defer e.mu.Unlock()

	turn := e.turns
	e.turns++
	e.record(SpeakerCaller, callerText)

	return &Reply{
		Text:   e.pickLine(intent),
		Stage:  stageFor(turn),
		Intent: intent,
		Delay:  e.responseDelay(turn),
		Turn:   turn,
	}
}

// Respond composes the next reply, optionally rephrases it through the
// reply model, then waits out the human-like delay. The wait is cancelled
// by ctx, in which case no reply is returned.
func (e *Engine) Respond(ctx context.Context, callerText string) (*Reply, error) {
	reply := e.Compose(callerText)

	if e.model != nil {
		text, err := e.model.Rephrase(ctx, e.persona, reply.Text, callerText, e.History())
		if err != nil {
			log.Debug().Err(err).Str("persona", e.persona.ID).Msg("reply_model_fallback")
		} else if text != "" {
			reply.Text = text
		}
	}

	timer := time.NewTimer(reply.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	e.mu.Lock()
	e.record(SpeakerDecoy, reply.Text)
	e.mu.Unlock()
	return reply, nil
}

// History returns a copy of the remembered transcript, oldest first.
func (e *Engine) History() []TranscriptTurn {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]TranscriptTurn, len(e.history))
	copy(out, e.history)
	return out
}

// record appends to the bounded transcript. Caller holds e.mu.
func (e *Engine) record(speaker, text string) {
	e.history = append(e.history, TranscriptTurn{Speaker: speaker, Text: text, Timestamp: time.Now()})
	if len(e.history) > historyLimit {
		e.history = e.history[len(e.history)-historyLimit:]
	}
}

// AddIntel records entities the caller leaked during the engagement.
func (e *Engine) AddIntel(entities []intel.Entity) {
	if len(entities) == 0 {
		return
	}
	e.mu.Lock()
	e.extracted = append(e.extracted, entities...)
	e.mu.Unlock()
}

// Summarize returns the engagement report. Safe to call at any point.
func (e *Engine) Summarize() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]intel.Entity, len(e.extracted))
	copy(out, e.extracted)

	var finalStage Stage
	if e.turns == 0 {
		finalStage = StageInitial
	} else {
		finalStage = stageFor(e.turns - 1)
	}

	return Summary{
		PersonaID:         e.persona.ID,
		DurationSeconds:   time.Since(e.started).Seconds(),
		TotalTurns:        e.turns,
		FinalStage:        finalStage,
		ExtractedEntities: out,
	}
}

// pickLine draws from the intent pool, falling back to the general pool.
// Caller holds e.mu.
func (e *Engine) pickLine(intent Intent) string {
	pool := e.persona.Replies[intent]
	if len(pool) == 0 {
		pool = e.persona.General
	}
	return pool[e.rng.Intn(len(pool))]
}

// responseDelay models typing-and-thinking time: a 1-3s base, extra
// hesitation for passive personas, and slower replies once the call drags
// past ten turns. Hard cap at 5s so the caller never gives up waiting.
// Caller holds e.mu.
func (e *Engine) responseDelay(turn int) time.Duration {
	seconds := 1.0 + e.rng.Float64()*2.0
	if e.persona.Passive {
		seconds += 0.5 + e.rng.Float64()*1.5
	}
	if turn > 10 {
		seconds += 0.5 + e.rng.Float64()*1.0
	}
	d := time.Duration(seconds * float64(time.Second))
	if d > maxDelay {
		d = maxDelay
	}
	return d
}
